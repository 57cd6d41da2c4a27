package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"waitlist-referral-system/config"
	"waitlist-referral-system/handlers"
	"waitlist-referral-system/services"
	"waitlist-referral-system/storage"
	"waitlist-referral-system/utils"
	"waitlist-referral-system/workers"

	log "github.com/sirupsen/logrus"
)

func main() {
	if !config.LoadDotEnv() {
		log.Info("No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	services.ConfigureLogging(cfg.LogLevel, cfg.IsDevelopment())

	db, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := storage.Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	store, err := services.NewIdempotencyStoreFromURL(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Fatal("failed to configure idempotency store")
	}

	var provider services.IdentityProvider
	if cfg.AuthConfigured() {
		apiKey := cfg.SupabaseAnonKey
		if apiKey == "" {
			apiKey = cfg.SupabaseServiceRoleKey
		}
		provider = services.NewSupabaseClient(cfg.SupabaseURL, apiKey, cfg.PublicURL, utils.HTTPClient)
	} else {
		log.Warn("SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY not set, OTP endpoints will return auth_not_configured")
	}

	attribution := services.NewAttributionEngine(db)
	events := services.NewEventService(db)
	leaderboard := services.NewLeaderboardService(db)

	deps := &handlers.Deps{
		Config:      cfg,
		DB:          db,
		Waitlist:    services.NewWaitlistService(db, services.NewCodeGenerator(), attribution, events),
		Attribution: attribution,
		Points:      services.NewPointsService(db),
		Leaderboard: leaderboard,
		Guard:       services.NewIdempotencyGuard(store),
		Sessions:    services.NewSessionManager(cfg.SessionSecret),
		Auth:        services.NewAuthService(db, provider),
		Events:      events,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler, err := services.StartScheduler(store)
	if err != nil {
		log.WithError(err).Fatal("failed to start scheduler")
	}

	if cfg.SnapshotsEnabled() {
		r2, err := utils.NewR2Client(ctx, utils.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2Bucket,
			CDNBaseURL:      cfg.CDNBaseURL,
		})
		if err != nil {
			log.WithError(err).Fatal("failed to initialize R2 client")
		}
		go workers.NewLeaderboardSnapshotWorker(leaderboard, r2, cfg.SnapshotInterval).Start(ctx)
	}

	app := handlers.NewApp(deps)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Error("server error")
			stop()
		}
	}()

	log.WithFields(log.Fields{
		"port":    cfg.Port,
		"env":     cfg.Env,
		"origins": cfg.AppOrigins,
		"redis":   cfg.RedisURL != "",
	}).Info("waitlist service running")

	<-ctx.Done()
	log.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	if err := scheduler.Shutdown(); err != nil {
		log.WithError(err).Warn("scheduler shutdown")
	}
}
