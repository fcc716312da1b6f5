package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/club-brackets/internal/cache"
	"github.com/AdamBeresnev/club-brackets/internal/config"
	"github.com/AdamBeresnev/club-brackets/internal/db"
	"github.com/AdamBeresnev/club-brackets/internal/service"
	"github.com/AdamBeresnev/club-brackets/internal/store"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	database, err := db.InitDB(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	tournamentStore := store.NewTournamentStore(database)
	matchCache := cache.New(tournamentStore)
	guard := service.NewGuard(database, tournamentStore, matchCache)

	app := &application{
		logger:      logger,
		tournaments: service.NewTournamentService(database, tournamentStore, matchCache, guard),
		brackets:    service.NewBracketService(tournamentStore, guard),
		matches:     service.NewMatchService(tournamentStore, guard, cfg.CascadePolicy),
		checks:      map[string]Checker{"sqlite": dbChecker{database}},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", srv.Addr, err)
		}
		logger.Info("starting http server", "addr", srv.Addr, "cascade_policy", cfg.CascadePolicy)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
