package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/metabridge-api/config"
	"github.com/jwalitptl/metabridge-api/internal/email"
	accountHandler "github.com/jwalitptl/metabridge-api/internal/handler/account"
	authHandler "github.com/jwalitptl/metabridge-api/internal/handler/auth"
	"github.com/jwalitptl/metabridge-api/internal/handler/health"
	predictionHandler "github.com/jwalitptl/metabridge-api/internal/handler/prediction"
	"github.com/jwalitptl/metabridge-api/internal/middleware"
	"github.com/jwalitptl/metabridge-api/internal/model"
	"github.com/jwalitptl/metabridge-api/internal/repository/postgres"
	"github.com/jwalitptl/metabridge-api/internal/router"
	accountService "github.com/jwalitptl/metabridge-api/internal/service/account"
	auditService "github.com/jwalitptl/metabridge-api/internal/service/audit"
	authService "github.com/jwalitptl/metabridge-api/internal/service/auth"
	"github.com/jwalitptl/metabridge-api/internal/service/notification"
	"github.com/jwalitptl/metabridge-api/internal/service/otp"
	"github.com/jwalitptl/metabridge-api/internal/service/prediction"
	"github.com/jwalitptl/metabridge-api/internal/sms"
	"github.com/jwalitptl/metabridge-api/pkg/auth"
	"github.com/jwalitptl/metabridge-api/pkg/logger"
	"github.com/jwalitptl/metabridge-api/pkg/metrics"
	"github.com/jwalitptl/metabridge-api/pkg/security"
	"github.com/jwalitptl/metabridge-api/pkg/validator"
)

const metricsNamespace = "metabridge"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if cfg.UsesDevSecret() {
		appLogger.Warn().Msg("JWT_SECRET is not set, signing tokens with the development secret")
	}

	if err := validator.RegisterBinding(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.URL()); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		appLogger.Info().Msg("database migrations applied")
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(reg, metricsNamespace)

	// Initialize repositories
	base := postgres.NewBaseRepository(db)
	doctorRepo := postgres.NewCredentialRepository(base, model.DoctorType)
	patientRepo := postgres.NewCredentialRepository(base, model.PatientType)
	userRepo := postgres.NewUserRepository(base)

	// Delivery channels
	emailSvc := email.NewDisabledService()
	if cfg.Email.Enabled() {
		emailSvc = email.NewSMTPService(email.Config{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
	} else {
		appLogger.Warn().Msg("email delivery is not configured")
	}

	smsSvc := sms.NewDisabledService()
	if cfg.SMS.Enabled() {
		smsSvc = sms.NewTwilioService(sms.Config{
			AccountSID: cfg.SMS.AccountSID,
			AuthToken:  cfg.SMS.AuthToken,
			From:       cfg.SMS.From,
		})
	} else {
		appLogger.Warn().Msg("sms delivery is not configured")
	}

	limiter, closeRedis := newOTPLimiter(ctx, cfg, appLogger)
	defer closeRedis()

	// Initialize services
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret)
	hasher := security.NewBcryptHasher(cfg.Security.BcryptCost)
	auditor := auditService.NewService(appLogger)
	deps := authService.Deps{
		Hasher:     hasher,
		Limiter:    limiter,
		Dispatcher: notification.NewService(emailSvc, smsSvc, appMetrics, appLogger),
		JWT:        jwtSvc,
		Auditor:    auditor,
		Metrics:    appMetrics,
		Logger:     appLogger,
		TokenTTL:   cfg.JWT.Expiry,
	}
	doctorSvc := authService.NewService(doctorRepo, deps)
	patientSvc := authService.NewService(patientRepo, deps)
	accountSvc := accountService.NewService(userRepo, hasher, jwtSvc, auditor, appMetrics, cfg.JWT.AccountExpiry)
	predictionSvc := prediction.NewService(prediction.Config{
		BaseURL:        cfg.ML.BaseURL,
		Timeout:        cfg.ML.Timeout,
		MaxFailures:    cfg.ML.MaxFailures,
		BreakerTimeout: cfg.ML.BreakerTimeout,
	}, appMetrics, appLogger)

	// Setup router
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins

	r := router.NewRouter(
		middleware.NewAuthMiddleware(jwtSvc),
		[]*authHandler.Handler{
			authHandler.NewHandler(doctorSvc),
			authHandler.NewHandler(patientSvc),
		},
		accountHandler.NewHandler(accountSvc),
		predictionHandler.NewHandler(predictionSvc),
		health.NewHandler(&base, reg),
		router.RouterConfig{
			Mode:           cfg.Server.Mode,
			RateLimit:      rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:      cfg.RateLimit.Burst,
			RateEnabled:    cfg.RateLimit.Enabled,
			CORSConfig:     corsConfig,
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			MetricsPrefix:  metricsNamespace,
			Registerer:     reg,
		},
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		appLogger.Info().Int("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info().Msg("shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("server exited properly")
}

// newOTPLimiter prefers Redis so limits hold across replicas, and falls back to process memory.
func newOTPLimiter(ctx context.Context, cfg *config.Config, l zerolog.Logger) (otp.Limiter, func()) {
	noop := func() {}
	if cfg.Redis.URL == "" {
		return otp.NewMemoryLimiter(cfg.OTP.Window, cfg.OTP.MaxSends), noop
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		l.Warn().Err(err).Msg("invalid redis url, using in-memory otp limiter")
		return otp.NewMemoryLimiter(cfg.OTP.Window, cfg.OTP.MaxSends), noop
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		l.Warn().Err(err).Msg("redis unreachable, using in-memory otp limiter")
		_ = client.Close()
		return otp.NewMemoryLimiter(cfg.OTP.Window, cfg.OTP.MaxSends), noop
	}

	l.Info().Msg("otp limiter backed by redis")
	return otp.NewRedisLimiter(client, cfg.OTP.Window, cfg.OTP.MaxSends, l), func() { _ = client.Close() }
}
