package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/erazemk/popis/internal/api"
	"github.com/erazemk/popis/internal/history"
	"github.com/erazemk/popis/internal/store"
)

func serveCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local survey API",
		Long: `Serve the JSON API the survey UI talks to.

The draft that was open when the server last stopped is resumed; if it was
completed in the meantime, a new draft is started.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Addr = addr
			}
			return serve(a)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from POPIS_ADDR or 127.0.0.1:8080)")
	return cmd
}

func serve(a *app) error {
	database, err := a.openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	slog.Info("database ready", "path", a.cfg.DBPath)

	ctx := context.Background()

	// Generated on first run.
	deviceID, err := store.EnsureSetting(ctx, database, store.SettingDeviceID, uuid.New().String())
	if err != nil {
		return fmt.Errorf("loading device id: %w", err)
	}

	engine := a.newEngine(database)
	draftID, err := engine.Resume(ctx)
	if err != nil {
		return fmt.Errorf("resuming draft: %w", err)
	}
	slog.Info("draft engine ready",
		"device_id", deviceID,
		"draft_id", draftID,
		"completed", engine.CompletedCount(),
	)

	logger := slog.Default()
	router := api.NewRouter(api.Options{
		DB:            database,
		Engine:        engine,
		History:       history.New(store.New(database), logger),
		Logger:        logger,
		PreserveKeys:  a.cfg.PreserveKeys,
		MaxDuplicates: a.cfg.MaxDuplicates,
	})

	// Cancelled on shutdown so open event streams return.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	server := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           api.LoggingMiddleware(logger, router),
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// No WriteTimeout: event streams stay open.
		IdleTimeout: 120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	ln, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr, err)
	}
	slog.Info("server started", "addr", ln.Addr().String())
	if err := runServer(server, ln, quit, cancelBase); err != nil {
		return err
	}

	slog.Info("server stopped, closing database")
	return nil
}

// runServer serves on ln until a signal arrives on quit, then calls onStop and
// shuts the server down. It returns only after Shutdown has finished, so
// callers may release what handlers use.
func runServer(server *http.Server, ln net.Listener, quit <-chan os.Signal, onStop func()) error {
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sig, ok := <-quit
		if !ok {
			return
		}
		slog.Info("shutdown signal received", "signal", sig.String())
		onStop()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	<-shutdownDone
	return nil
}
