// Package main contains the entrypoint for the boteco GroupMe bot server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/boteco/internal/bot"
	"github.com/edgard/boteco/internal/bot/tasks"
	"github.com/edgard/boteco/internal/config"
	"github.com/edgard/boteco/internal/database"
	"github.com/edgard/boteco/internal/groupme"
	"github.com/edgard/boteco/internal/logger"
	"github.com/edgard/boteco/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all application components (config, logger, storage,
// GroupMe client, bot, scheduler, webhook server), handles graceful
// shutdown, and returns an exit code.
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format == "json")
	log.Info("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	var store database.Store
	if cfg.Storage.Enabled {
		db, err := database.NewDB(cfg.Storage.Path)
		if err != nil {
			log.Error("Failed to connect to database", "path", cfg.Storage.Path, "error", err)
			return 1
		}
		defer database.CloseDB(db)
		store = database.NewStore(db, log)
	}

	client := groupme.NewClient(cfg.APIKey, log)

	router := bot.NewRouter(log)
	registerHandlers(router)

	b, err := bot.New(cfg, client, store, router, log)
	if err != nil {
		log.Error("Failed to construct bot", "error", err)
		return 1
	}
	// Destroy auto-created identities on the way out; failures are
	// logged by Close and never block exit.
	defer b.Close(context.Background())

	registry := bot.NewRegistry()
	if err := registry.Add(b); err != nil {
		log.Error("Failed to register bot", "error", err)
		return 1
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	srv := server.New(cfg.Server, b, registry, log)

	log.Info("Starting boteco...", "bot_id", b.ID(), "group_id", b.GroupID())

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gCtx)
	})

	g.Go(func() error {
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		log.Info("Shutdown signal received, stopping scheduler...")
		if err := sched.Stop(); err != nil {
			log.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	runErr := g.Wait()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Stopped gracefully.")
	return 0
}

// registerHandlers wires the built-in demo commands. Real deployments
// replace these with their own handlers before serving traffic.
func registerHandlers(router *bot.Router) {
	router.Command("/ping", func(ctx context.Context, mc *bot.Context, args string) error {
		return mc.Reply(ctx, "pong")
	})

	router.Command("/echo", func(ctx context.Context, mc *bot.Context, args string) error {
		if args == "" {
			return mc.Reply(ctx, "Nothing to echo.")
		}
		return mc.Reply(ctx, args)
	})

	router.OnUnknownCommand(func(ctx context.Context, mc *bot.Context, text string) error {
		cmd, _, _ := strings.Cut(text, " ")
		return mc.Reply(ctx, fmt.Sprintf("Unknown command: %s", cmd))
	})

	router.OnMessage(func(ctx context.Context, mc *bot.Context) error {
		if url, ok := mc.Message.FirstImageURL(); ok {
			slog.DebugContext(ctx, "Received image message", "url", url, "from", mc.Message.Name)
		}
		return nil
	})
}
