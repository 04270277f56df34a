package user

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nekogravitycat/venue-booking-backend/internal/auth"
	"github.com/nekogravitycat/venue-booking-backend/internal/notify"
	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/ttlstore"
)

// Service defines business logic related to users.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*User, error)

	// RequestLoginCode mails a one-time code. Unknown emails succeed silently.
	RequestLoginCode(ctx context.Context, email string) error
	VerifyLoginCode(ctx context.Context, email, code string) (*User, error)
}

type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
	Phone       string
}

type UpdateProfileRequest struct {
	DisplayName *string
	Phone       *string
}

const (
	otpKeyPrefix      = "otp:"
	otpAttemptsPrefix = "otp-attempts:"
	otpMaxAttempts    = 5
	otpDigits         = 6
)

type service struct {
	repo     Repository
	hasher   auth.PasswordHasher
	codes    ttlstore.Store
	notifier notify.Notifier
	logger   zerolog.Logger
	otpTTL   time.Duration

	minPasswordLength int
}

// NewService creates a new user Service.
func NewService(
	repo Repository,
	hasher auth.PasswordHasher,
	codes ttlstore.Store,
	notifier notify.Notifier,
	logger zerolog.Logger,
	otpTTL time.Duration,
) Service {
	return &service{
		repo:              repo,
		hasher:            hasher,
		codes:             codes,
		notifier:          notifier,
		logger:            logger.With().Str("component", "user").Logger(),
		otpTTL:            otpTTL,
		minPasswordLength: 8,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	cleanEmail := normalizeEmail(req.Email)
	if cleanEmail == "" {
		return nil, ErrEmailRequired
	}
	if len(req.Password) < s.minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	_, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err == nil {
		return nil, ErrEmailAlreadyUsed
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &User{
		Email:        cleanEmail,
		PasswordHash: hash,
		DisplayName:  optional(req.DisplayName),
		Phone:        optional(req.Phone),
		IsActive:     true,
	}

	// Create still maps a unique violation, covering a concurrent register.
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}

	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.touchLogin(ctx, u)
	return u, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		u.DisplayName = optional(*req.DisplayName)
	}
	if req.Phone != nil {
		u.Phone = optional(*req.Phone)
	}

	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) RequestLoginCode(ctx context.Context, email string) error {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" {
		return ErrEmailRequired
	}

	u, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug().Msg("login code requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to fetch user by email: %w", err)
	}
	if !u.IsActive {
		return nil
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate login code: %w", err)
	}

	// A new code replaces the previous one and resets the attempt budget.
	if err := s.codes.Set(ctx, otpKeyPrefix+cleanEmail, code, s.otpTTL); err != nil {
		return fmt.Errorf("failed to store login code: %w", err)
	}
	if err := s.codes.Delete(ctx, otpAttemptsPrefix+cleanEmail); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}

	notify.Dispatch(ctx, s.notifier, s.logger, notify.Message{
		Kind:   notify.KindLoginCode,
		UserID: u.ID,
		Email:  u.Email,
		Text:   fmt.Sprintf("Your login code is %s. It expires in %s.", code, s.otpTTL),
		Data:   map[string]string{"code": code},
	})
	return nil
}

func (s *service) VerifyLoginCode(ctx context.Context, email, code string) (*User, error) {
	cleanEmail := normalizeEmail(email)
	code = strings.TrimSpace(code)
	if cleanEmail == "" || code == "" {
		return nil, ErrInvalidCode
	}

	key := otpKeyPrefix + cleanEmail
	stored, err := s.codes.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ttlstore.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to read login code: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		s.recordFailedAttempt(ctx, cleanEmail)
		return nil, ErrInvalidCode
	}

	// Take makes the code single-use even under concurrent verifies.
	if _, err := s.codes.Take(ctx, key); err != nil {
		if errors.Is(err, ttlstore.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to consume login code: %w", err)
	}
	_ = s.codes.Delete(ctx, otpAttemptsPrefix+cleanEmail)

	u, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	s.touchLogin(ctx, u)
	return u, nil
}

// recordFailedAttempt burns the code after otpMaxAttempts wrong guesses.
func (s *service) recordFailedAttempt(ctx context.Context, email string) {
	key := otpAttemptsPrefix + email

	attempts := 0
	if v, err := s.codes.Get(ctx, key); err == nil {
		attempts, _ = strconv.Atoi(v)
	}
	attempts++

	if attempts >= otpMaxAttempts {
		_ = s.codes.Delete(ctx, otpKeyPrefix+email)
		_ = s.codes.Delete(ctx, key)
		s.logger.Warn().Str("email", email).Msg("login code burned after too many attempts")
		return
	}
	if err := s.codes.Set(ctx, key, strconv.Itoa(attempts), s.otpTTL); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record login attempt")
	}
}

func (s *service) touchLogin(ctx context.Context, u *User) {
	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID).Msg("failed to update last login")
		return
	}
	u.LastLoginAt = &now
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// normalizeEmail trims spaces and lowercases the email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
