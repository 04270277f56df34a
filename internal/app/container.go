package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/venue-booking-backend/internal/api"
	"github.com/nekogravitycat/venue-booking-backend/internal/auth"
	"github.com/nekogravitycat/venue-booking-backend/internal/booking"
	"github.com/nekogravitycat/venue-booking-backend/internal/config"
	"github.com/nekogravitycat/venue-booking-backend/internal/hall"
	"github.com/nekogravitycat/venue-booking-backend/internal/media"
	"github.com/nekogravitycat/venue-booking-backend/internal/notify"
	"github.com/nekogravitycat/venue-booking-backend/internal/payment"
	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/ttlstore"
	"github.com/nekogravitycat/venue-booking-backend/internal/user"
)

// sweepInterval is how often the in-memory code store drops expired entries.
const sweepInterval = time.Minute

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int
	Logger       zerolog.Logger

	// Redis backs the OTP code store. Nil falls back to an in-memory store.
	Redis *redis.Client
	// Notifier delivers user notifications. Nil falls back to logging them.
	Notifier notify.Notifier

	OTPTTL   time.Duration
	MediaDir string
	Payment  config.PaymentConfig
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
}

// NewContainer initializes all modules and returns the container. ctx bounds
// background work started here.
func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	var codes ttlstore.Store
	if cfg.Redis != nil {
		codes = ttlstore.NewRedisStore(cfg.Redis, "venue:")
	} else {
		mem := ttlstore.NewMemoryStore()
		go mem.RunSweeper(ctx, sweepInterval)
		codes = mem
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(cfg.Logger)
	}

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher, codes, notifier, cfg.Logger, cfg.OTPTTL)

	// Media Module
	storage, err := media.NewLocalStorage(cfg.MediaDir)
	if err != nil {
		return nil, fmt.Errorf("init media storage: %w", err)
	}
	mediaRepo := media.NewPgxRepository(cfg.DBPool)
	mediaService := media.NewService(mediaRepo, storage, cfg.Logger)

	// Hall Module
	hallRepo := hall.NewPgxRepository(cfg.DBPool)
	hallService := hall.NewService(hallRepo)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(bookingRepo, hallRepo, hallRepo, notifier, cfg.Logger)

	// Payment Module
	gateway, err := payment.NewClient(cfg.Payment)
	if err != nil {
		return nil, fmt.Errorf("init payment gateway: %w", err)
	}
	paymentRepo := payment.NewPgxRepository(cfg.DBPool)
	paymentService := payment.NewService(paymentRepo, gateway, bookingService, cfg.Logger)

	var db api.Pinger
	if cfg.DBPool != nil {
		db = cfg.DBPool
	}

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		Logger:         cfg.Logger,
		UserService:    userService,
		HallService:    hallService,
		MediaService:   mediaService,
		BookingService: bookingService,
		PaymentService: paymentService,
		JWTManager:     jwtManager,
		DB:             db,
	})

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
	}, nil
}
