package user

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/venue-booking-backend/internal/auth"
	"github.com/nekogravitycat/venue-booking-backend/internal/notify"
	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/ttlstore"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockRepository) Create(ctx context.Context, u *User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockRepository) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	return m.Called(ctx, id, t).Error(0)
}

func (m *mockRepository) UpdateProfile(ctx context.Context, u *User) error {
	return m.Called(ctx, u).Error(0)
}

type chanNotifier struct {
	sent chan notify.Message
}

func (n *chanNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.sent <- msg
	return nil
}

type fixture struct {
	svc      Service
	repo     *mockRepository
	store    *ttlstore.MemoryStore
	notifier *chanNotifier
	hasher   auth.PasswordHasher
}

func newFixture() *fixture {
	repo := new(mockRepository)
	store := ttlstore.NewMemoryStore()
	notifier := &chanNotifier{sent: make(chan notify.Message, 4)}
	hasher := auth.NewBcryptPasswordHasher(4)
	return &fixture{
		svc:      NewService(repo, hasher, store, notifier, zerolog.Nop(), time.Minute),
		repo:     repo,
		store:    store,
		notifier: notifier,
		hasher:   hasher,
	}
}

func (f *fixture) waitMessage(t *testing.T) notify.Message {
	t.Helper()
	select {
	case msg := <-f.notifier.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no notification sent")
		return notify.Message{}
	}
}

func TestRegister(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterRequest{Email: " ", Password: "longenough"})
	assert.ErrorIs(t, err, ErrEmailRequired)

	_, err = f.svc.Register(ctx, RegisterRequest{Email: "a@b.com", Password: "short"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	f.repo.On("GetByEmail", ctx, "taken@b.com").Return(&User{ID: "u0"}, nil).Once()
	_, err = f.svc.Register(ctx, RegisterRequest{Email: "Taken@B.com", Password: "longenough"})
	assert.ErrorIs(t, err, ErrEmailAlreadyUsed)

	f.repo.On("GetByEmail", ctx, "new@b.com").Return(nil, ErrNotFound).Once()
	f.repo.On("Create", ctx, mock.MatchedBy(func(u *User) bool {
		return u.Email == "new@b.com" && u.IsActive && !u.IsAdmin && u.DisplayName == nil && *u.Phone == "0912"
	})).Return(nil).Once()

	u, err := f.svc.Register(ctx, RegisterRequest{Email: "new@b.com", Password: "longenough", Phone: " 0912 "})
	require.NoError(t, err)
	assert.NoError(t, f.hasher.Compare(u.PasswordHash, "longenough"))
	f.repo.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	hash, err := f.hasher.Hash("correct-horse")
	require.NoError(t, err)

	f.repo.On("GetByEmail", ctx, "a@b.com").Return(&User{ID: "u1", Email: "a@b.com", PasswordHash: hash, IsActive: true}, nil)
	f.repo.On("GetByEmail", ctx, "off@b.com").Return(&User{ID: "u2", PasswordHash: hash, IsActive: false}, nil)
	f.repo.On("GetByEmail", ctx, "nobody@b.com").Return(nil, ErrNotFound)
	f.repo.On("UpdateLastLogin", ctx, "u1", mock.Anything).Return(nil)

	u, err := f.svc.Login(ctx, "A@B.com", "correct-horse")
	require.NoError(t, err)
	assert.NotNil(t, u.LastLoginAt)

	_, err = f.svc.Login(ctx, "a@b.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody@b.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "off@b.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func TestLoginCodeFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.repo.On("GetByEmail", ctx, "a@b.com").Return(&User{ID: "u1", Email: "a@b.com", IsActive: true}, nil)
	f.repo.On("UpdateLastLogin", ctx, "u1", mock.Anything).Return(nil)

	require.NoError(t, f.svc.RequestLoginCode(ctx, "a@b.com"))
	msg := f.waitMessage(t)
	assert.Equal(t, notify.KindLoginCode, msg.Kind)
	assert.Equal(t, "a@b.com", msg.Email)
	code := msg.Data["code"]
	require.Len(t, code, otpDigits)

	_, err := f.svc.VerifyLoginCode(ctx, "a@b.com", "xxxxxx")
	assert.ErrorIs(t, err, ErrInvalidCode)

	u, err := f.svc.VerifyLoginCode(ctx, "a@b.com", code)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	// Codes are single use.
	_, err = f.svc.VerifyLoginCode(ctx, "a@b.com", code)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestLoginCodeBurnedAfterAttempts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.repo.On("GetByEmail", ctx, "a@b.com").Return(&User{ID: "u1", Email: "a@b.com", IsActive: true}, nil)

	require.NoError(t, f.svc.RequestLoginCode(ctx, "a@b.com"))
	code := f.waitMessage(t).Data["code"]

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < otpMaxAttempts; i++ {
		_, err := f.svc.VerifyLoginCode(ctx, "a@b.com", wrong)
		assert.ErrorIs(t, err, ErrInvalidCode)
	}

	_, err := f.svc.VerifyLoginCode(ctx, "a@b.com", code)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestRequestLoginCodeUnknownEmail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.repo.On("GetByEmail", ctx, "ghost@b.com").Return(nil, ErrNotFound)

	require.NoError(t, f.svc.RequestLoginCode(ctx, "ghost@b.com"))

	_, err := f.store.Get(ctx, otpKeyPrefix+"ghost@b.com")
	assert.ErrorIs(t, err, ttlstore.ErrNotFound)
	assert.Empty(t, f.notifier.sent)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	name := "Old"
	f.repo.On("GetByID", ctx, "u1").Return(&User{ID: "u1", DisplayName: &name}, nil)
	f.repo.On("UpdateProfile", ctx, mock.AnythingOfType("*user.User")).Return(nil)

	empty := ""
	phone := "0999"
	u, err := f.svc.UpdateProfile(ctx, "u1", UpdateProfileRequest{DisplayName: &empty, Phone: &phone})
	require.NoError(t, err)
	assert.Nil(t, u.DisplayName)
	require.NotNil(t, u.Phone)
	assert.Equal(t, "0999", *u.Phone)
}
