package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"takenotes/internal/auth/device"
	"takenotes/internal/auth/federation"
	"takenotes/internal/auth/handler"
	authmetrics "takenotes/internal/auth/metrics"
	"takenotes/internal/auth/password"
	authservice "takenotes/internal/auth/service"
	"takenotes/internal/auth/store/cooldown"
	"takenotes/internal/auth/store/pending"
	userstore "takenotes/internal/auth/store/user"
	jwttoken "takenotes/internal/jwt_token"
	"takenotes/internal/notify"
	"takenotes/internal/platform/config"
	"takenotes/internal/platform/httpserver"
	"takenotes/internal/platform/logger"
	"takenotes/internal/platform/metrics"
	"takenotes/internal/platform/postgres"
	"takenotes/internal/platform/redis"
	httptransport "takenotes/internal/transport/http"
	"takenotes/pkg/platform/audit"
	"takenotes/pkg/platform/circuit"
	authmw "takenotes/pkg/platform/middleware/auth"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.Auth.UsingDefaultSigningKey() {
		log.Warn("JWT_SIGNING_KEY not set, using development signing key")
	}

	authMetrics := authmetrics.New()
	healthChecks := map[string]httptransport.HealthCheck{}

	users, db, err := buildUserStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		healthChecks["postgres"] = db.PingContext
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var issuanceCooldown authservice.IssuanceCooldown = cooldown.NewInMemory()
	if redisClient != nil {
		defer redisClient.Close()
		healthChecks["redis"] = redisClient.Health
		issuanceCooldown = cooldown.NewRedis(redisClient.Client)
		log.Info("issuance cooldown backed by redis")
	}

	pendingStore := pending.New(pending.WithTTL(cfg.Auth.OTPTTL))
	go func() {
		if err := pendingStore.RunSweeper(ctx, cfg.Auth.OTPSweepInterval, authMetrics.RecordSweep); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("pending registration sweeper stopped", "error", err)
		}
	}()

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, jwttoken.WithTTL(cfg.Auth.TokenTTL))

	publisher, err := buildAuditPublisher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("failed to close audit publisher", "error", err)
		}
	}()

	opts := []authservice.Option{
		authservice.WithLogger(log),
		authservice.WithMetrics(authMetrics),
		authservice.WithAuditPublisher(publisher),
		authservice.WithIssuanceCooldown(issuanceCooldown, cfg.Auth.OTPResendInterval),
		authservice.WithNotifyTimeout(cfg.Notify.Timeout),
		authservice.WithDeviceService(device.NewService(true)),
	}
	if cfg.Google.ClientID != "" {
		verifier, err := federation.NewGoogleVerifier(ctx, cfg.Google.ClientID, federation.WithTimeout(cfg.Google.VerifyTimeout))
		if err != nil {
			return err
		}
		opts = append(opts, authservice.WithIdentityVerifier(verifier))
	} else {
		log.Warn("GOOGLE_CLIENT_ID not set, Google sign-in disabled")
	}

	service := authservice.New(users, pendingStore, password.New(), jwtService, buildNotifier(cfg, log), opts...)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		Metrics:        metrics.New(),
		RequestTimeout: cfg.Server.RequestTimeout,
		Auth:           handler.New(service, log),
		RequireAuth:    authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), log),
		HealthChecks:   healthChecks,
	})

	srv := httpserver.New(cfg.Server, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting takenotes auth gateway", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func buildUserStore(ctx context.Context, cfg config.Config, log *slog.Logger) (authservice.UserStore, *sql.DB, error) {
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if db == nil {
		log.Info("DATABASE_URL not set, users kept in memory")
		return userstore.New(), nil, nil
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return userstore.NewPostgres(db), db, nil
}

func buildNotifier(cfg config.Config, log *slog.Logger) authservice.Notifier {
	var sender notify.Notifier
	if cfg.Notify.SMTPHost == "" {
		log.Warn("SMTP_HOST not set, codes are written to the log")
		sender = notify.NewLogSender(log)
	} else {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.Notify.SMTPHost,
			Port:     cfg.Notify.SMTPPort,
			Username: cfg.Notify.SMTPUsername,
			Password: cfg.Notify.SMTPPassword,
			From:     cfg.Notify.From,
		})
	}
	breaker := circuit.New("smtp",
		circuit.WithFailureThreshold(cfg.Notify.BreakerThreshold),
		circuit.WithCooldown(cfg.Notify.BreakerCooldown),
	)
	return notify.NewBreakerNotifier(sender, breaker, log)
}

func buildAuditPublisher(ctx context.Context, cfg config.Config, log *slog.Logger) (audit.Publisher, error) {
	var sink audit.Publisher = audit.NewLogPublisher(log)
	if len(cfg.Audit.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafkaPublisher(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			return nil, err
		}
		sink = kafka
		log.Info("audit events published to kafka", "topic", cfg.Audit.KafkaTopic)
	}
	return audit.NewBufferedPublisher(sink, log), nil
}
