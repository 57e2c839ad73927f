package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/handlers"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/metrics"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/middleware"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/services"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/utils"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(ctxOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, closeStore, err := openGateway(cfg, true)
		if err != nil {
			return err
		}
		defer closeStore()

		guard, closeGuard, err := newSyncGuard(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeGuard()

		resolver, err := services.NewAuthServiceClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.AuthCacheTTL.Std())
		if err != nil {
			return err
		}

		var uploader services.CoverUploader
		if cfg.R2.Enabled() {
			r2, err := utils.NewR2Uploader(ctx, cfg.R2)
			if err != nil {
				return fmt.Errorf("failed to initialize R2 client: %w", err)
			}
			uploader = r2
		} else {
			slog.Warn("[CONFIG] R2 settings incomplete, cover uploads disabled")
		}

		m := metrics.New()
		ledger := services.NewPointsLedger(store, m)
		importer := newImporter(store, guard, cfg, m)
		deps := appDeps{
			metrics:    m,
			resolver:   resolver,
			quests:     services.NewQuestProgressService(store, ledger, m),
			ledger:     ledger,
			importer:   importer,
			membership: services.NewMembershipService(store, store, uploader),
			origins:    cfg.Origins(),
			serviceKey: cfg.SupabaseServiceRoleKey,
		}
		app := newApp(deps)

		sched, err := services.StartRankScheduler(ledger, cfg.RankInterval.Std())
		if err != nil {
			return err
		}
		defer func() {
			if err := sched.Shutdown(); err != nil {
				slog.Error("[Scheduler] shutdown failed", "error", err)
			}
		}()

		if cfg.ImportEnabled() && cfg.ThriftSyncInterval.Std() > 0 {
			workers.NewStoreSyncWorker(importer, cfg.ThriftSyncInterval.Std(), cfg.DefaultRadiusM).Start(ctx)
		}

		errCh := make(chan error, 1)
		go func() {
			addr := ":" + cfg.Port
			slog.Info("[HTTP] listening", "addr", addr, "store", cfg.StoreBackend, "origins", cfg.AllowedOrigins)
			errCh <- app.Listen(addr)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		slog.Info("[HTTP] shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type appDeps struct {
	metrics    *metrics.Metrics
	resolver   services.IdentityResolver
	quests     *services.QuestProgressService
	ledger     *services.PointsLedger
	importer   *services.StoreImportService
	membership *services.MembershipService
	origins    []string
	serviceKey string
}

func newApp(d appDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "wits-quest",
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(middleware.RequestLogger(d.metrics))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(d.origins, ","),
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		ExposeHeaders: "Content-Length, Content-Type, X-Request-ID",
		MaxAge:        86400,
	}))

	requireAuth := middleware.RequireIdentity(d.resolver)

	handlers.SetupHealthRoutes(app, d.metrics)
	handlers.SetupLeaderboardRoutes(app, d.ledger)
	handlers.SetupUserQuestRoutes(app, d.quests, requireAuth)
	handlers.SetupLocationRoutes(app, d.importer, middleware.AllowServiceKey(d.serviceKey, requireAuth))
	handlers.SetupPrivateLeaderboardRoutes(app, d.membership, requireAuth)

	return app
}

// ctxOrBackground keeps commands usable when cobra was invoked without a context.
func ctxOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
