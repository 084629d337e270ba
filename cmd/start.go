package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"staysync/core/loader"
	"staysync/core/logger"
	"staysync/core/middleware/auth"
	"staysync/core/middleware/rayid"
	"staysync/core/scheduler"

	"staysync/feature/calendarsync"
	"staysync/feature/integrity"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "staysync/docs/swagger"
)

// @title StaySync API
// @version 1.0
// @description Calendar reconciliation for short-term rental properties.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sync server",
	Long:  `Starts the HTTP server, the periodic feed sweep and all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Configuration, logger and database
		rt, err := loadRuntime()
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		defer rt.Close()
		logg := rt.logger
		zap.ReplaceGlobals(logg)

		// 2. Reconciliation engine with its optional backends
		if err := rt.withEngine(cmd.Context()); err != nil {
			logg.Fatal("Failed to build sync engine", zap.Error(err))
		}

		// 3. Periodic sweep
		var sched *scheduler.Scheduler
		if rt.cfg.Scheduler.Enabled {
			sched, err = scheduler.New(rt.cfg.Scheduler, rt.engine, logg)
			if err != nil {
				logg.Fatal("Failed to create scheduler", zap.Error(err))
			}
			sched.Start()
		}

		// 4. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           rt.cfg.Server.ReadTimeout(),
		})

		// 5. Initialize Feature Loader
		mgr := loader.NewManager()
		mgr.Register(calendarsync.NewFeature(rt.engine, rt.store, logg))
		mgr.Register(integrity.NewFeature(rt.db, rt.storage, rt.cfg.Storage, logg))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Request logging with the ray id attached
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Swagger Documentation (Public)
		app.Get("/swagger/*", swagger.HandlerDefault)

		// 4. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: rt.cfg.Server.ApiKey}))

		// 6. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 7. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", rt.cfg.Server.Port))
			if err := app.Listen(rt.cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 8. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")

		timeout := rt.cfg.Server.ShutdownTimeout()
		if err := app.ShutdownWithTimeout(timeout); err != nil {
			logg.Warn("Server shutdown incomplete", zap.Error(err))
		}
		if sched != nil {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := sched.Stop(ctx); err != nil {
				logg.Warn("Scheduled sweep still running at shutdown", zap.Error(err))
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
