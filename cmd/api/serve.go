package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pet-health-tracker/internal/middleware"
	"pet-health-tracker/internal/platform/clock"
	"pet-health-tracker/internal/router"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Levanta la API HTTP y el job de recordatorios",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	verifier, err := newVerifier(cfg.Auth)
	if err != nil {
		return err
	}

	opts := router.Options{
		AuthVerifier: verifier,
		DB:           db,
		Logger:       log,
		Clock:        clock.System{},
		RateLimit: middleware.RateLimitOptions{
			RequestsPerSecond: cfg.HTTP.RateLimit.RPS,
			Burst:             cfg.HTTP.RateLimit.Burst,
		},
	}
	svcs := router.NewServices(opts)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router.NewHandler(svcs, opts),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	var rem *reminderSetup
	if cfg.Reminders.Enabled {
		rem, err = newReminders(ctx, svcs.CareItems)
		if err != nil {
			return err
		}
		defer rem.Close()
		if err := rem.Checker.Start(); err != nil {
			return fmt.Errorf("start reminders: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", map[string]any{
			"addr":        srv.Addr,
			"environment": cfg.Service.Environment,
			"storage":     storageName(db),
			"auth_mode":   cfg.Auth.Mode,
			"reminders":   cfg.Reminders.Enabled,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		if rem != nil {
			rem.Checker.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("service stopped", nil)
	return nil
}
