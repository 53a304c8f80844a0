package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/username/nanopos/src/config"
	"github.com/username/nanopos/src/handlers"
	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/services"
	"golang.org/x/time/rate"
)

type serveCmd struct {
	port     string
	interval time.Duration
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the point of sale HTTP API" }
func (*serveCmd) Usage() string {
	return `nanopos serve [-port <port>] [-interval <duration>]

  Serves the command API. With -interval the ledger is synced periodically.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.port, "port", "", "Port to listen on. Defaults to PORT.")
	f.DurationVar(&c.interval, "interval", 0, "Background sync interval, 0 disables it.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, status := openApp(ctx)
	if a == nil {
		return status
	}
	defer closeApp(a)

	authHandler := handlers.NewAuthHandler(a.Auth)
	commandHandler := handlers.NewCommandHandler(a.Dispatcher)
	snapshotHandler := handlers.NewSnapshotHandler(a.Sync, a.Watch, a.Session)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/auth/login", authHandler.LoginHandler)
	apiRouter.Handle("POST /api/commands", authHandler.AuthMiddleware(http.HandlerFunc(commandHandler.HandleCommand)))
	apiRouter.Handle("GET /api/snapshot", authHandler.AuthMiddleware(http.HandlerFunc(snapshotHandler.HandleGetSnapshot)))
	apiRouter.Handle("GET /api/watch", authHandler.AuthMiddleware(http.HandlerFunc(snapshotHandler.HandleGetWatch)))
	apiRouter.HandleFunc("GET /api/status", snapshotHandler.HandleGetStatus)

	rootMux.Handle("/api/", apiRouter)
	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "nanopos is running"})
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	limiter := rate.NewLimiter(rate.Every(100*time.Millisecond), 30)
	finalHandler := handlers.EnableCORS(config.Cfg.AllowedOrigins)(
		handlers.RateLimitMiddleware(limiter)(handlers.RequestLogger(rootMux)))

	port := c.port
	if port == "" {
		port = config.Cfg.Port
	}
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if c.interval > 0 {
		go backgroundSync(ctx, a.Sync, c.interval)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("Server starting", "address", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("Failed to start server", "error", err)
			fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L.Error("Server shutdown failed", "error", err)
		}
		logger.L.Info("Server stopped gracefully.")
	}
	return subcommands.ExitSuccess
}

func backgroundSync(ctx context.Context, sync services.SyncService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sync.UpdateInfo(ctx, true); err != nil {
				logger.L.Warn("Background sync failed", "error", err)
			}
		}
	}
}
