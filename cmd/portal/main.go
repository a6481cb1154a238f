package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlasov/club_portal/internal/app"
	"github.com/atlasov/club_portal/internal/clock"
	"github.com/atlasov/club_portal/internal/config"
	httpapi "github.com/atlasov/club_portal/internal/controller/http"
	"github.com/atlasov/club_portal/internal/icsync"
	"github.com/atlasov/club_portal/internal/notifier"
	"github.com/atlasov/club_portal/internal/poster"
	"github.com/atlasov/club_portal/internal/repository"
	"github.com/atlasov/club_portal/internal/repository/base"
	"github.com/atlasov/club_portal/internal/service"
	"github.com/atlasov/club_portal/internal/standings"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)

	defer logger.Sync()

	logger.Sugar().Infow("Starting club portal",
		"environment", cfg.Environment,
		"http_addr", cfg.HTTPAddr,
		"club", cfg.ClubName)

	zone, err := time.LoadLocation(cfg.ClubZone)
	if err != nil {
		logger.Fatal("Invalid club timezone", zap.String("zone", cfg.ClubZone), zap.Error(err))
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("✅ Connected to database")

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(startupCtx); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if version, err := migrator.Version(startupCtx); err == nil {
		logger.Info("✅ Migrations applied", zap.Int64("version", version))
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("Failed to close migrator", zap.Error(err))
	}

	clk := clock.NewSystem()

	baseRepo := base.NewRepository(pool)
	eventRepo := repository.NewEventRepository(baseRepo, logger)
	memberRepo := repository.NewMemberRepository(baseRepo, logger)
	teamRepo := repository.NewTeamRepository(baseRepo, logger)
	responseRepo := repository.NewResponseRepository(baseRepo, logger)
	newsRepo := repository.NewNewsRepository(baseRepo, logger)
	chatRepo := repository.NewChatRepository(baseRepo, logger)
	treasuryRepo := repository.NewTreasuryRepository(baseRepo, logger)
	reminderRepo := repository.NewReminderRepository(baseRepo, logger)

	// Telegram не обязателен: без токена портал работает, но ничего
	// не рассылает
	var announcer service.Announcer
	var channel app.ChannelNotifier
	if cfg.TelegramEnabled() {
		tg, err := notifier.New(cfg.TelegramToken, cfg.TelegramChatID, zone, logger)
		if err != nil {
			logger.Fatal("Failed to create telegram notifier", zap.Error(err))
		}
		announcer = tg
		channel = tg
		logger.Info("✅ Telegram notifications enabled", zap.Int64("chat_id", cfg.TelegramChatID))
	} else {
		logger.Info("⚠️ Telegram notifications disabled")
	}

	calendarSvc := service.NewCalendarService(eventRepo, clk, zone, logger)
	rsvpSvc := service.NewRSVPService(responseRepo, eventRepo, service.RSVPPolicy(cfg.RSVPPolicy), clk, zone, logger)
	eventSvc := service.NewEventService(eventRepo, teamRepo, announcer, zone, logger)
	newsSvc := service.NewNewsService(newsRepo, announcer, logger)
	teamSvc := service.NewTeamService(teamRepo, memberRepo, chatRepo, logger)
	memberSvc := service.NewMemberService(memberRepo, logger)
	chatSvc := service.NewChatService(chatRepo, teamRepo, logger)
	treasurySvc := service.NewTreasuryService(treasuryRepo, teamRepo, logger)

	var importer app.FeedSyncer
	if cfg.FeedsPath != "" {
		feeds, err := config.LoadFeeds(cfg.FeedsPath)
		if err != nil {
			logger.Fatal("Failed to load feeds config", zap.String("path", cfg.FeedsPath), zap.Error(err))
		}
		importer = service.NewImportService(eventRepo, icsync.NewClient(zone, logger), feeds, clk, logger)
		logger.Info("✅ Calendar import enabled", zap.Int("feeds", len(feeds.Sources)))
	}

	scraper := standings.New(cfg.StandingsURL, time.Duration(cfg.StandingsTTLMinutes)*time.Minute, clk, logger)
	posters := poster.NewGenerator(cfg.PosterFont, zone, clk, logger)
	changefeed := app.NewChangefeed(pool, logger)

	scheduler := app.NewScheduler(
		calendarSvc, rsvpSvc, reminderRepo, teamSvc,
		channel, posters, importer,
		app.SchedulerConfig{
			SweepInterval: time.Duration(cfg.ReminderSweepMinutes) * time.Minute,
			DigestCron:    cfg.DigestCron,
			ImportCron:    cfg.ImportCron,
		},
		clk, zone, logger,
	)

	server := httpapi.NewServer(httpapi.Deps{
		Calendar:  calendarSvc,
		Events:    eventSvc,
		RSVPs:     rsvpSvc,
		News:      newsSvc,
		Teams:     teamSvc,
		Members:   memberSvc,
		Chat:      chatSvc,
		Treasury:  treasurySvc,
		Standings: scraper,
		Posters:   posters,
		Templates: eventRepo,
		Stream:    changefeed,
		DB:        pool,
		Clock:     clk,
	}, cfg.ClubName, zone, cfg.CORSOrigin, logger)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Routes(),
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go changefeed.Run(rootCtx)

	if err := scheduler.Start(rootCtx); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("🚀 HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		srvErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	case <-rootCtx.Done():
		logger.Info("Shutdown signal received")
	}

	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("Portal stopped")
}
