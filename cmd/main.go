package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/profiles/internal/adapters/http/api"
	"github.com/okian/profiles/internal/adapters/http/swagger"
	"github.com/okian/profiles/internal/adapters/scoringapi"
	"github.com/okian/profiles/internal/adapters/sessionstore"
	"github.com/okian/profiles/internal/app"
	"github.com/okian/profiles/internal/config"
	"github.com/okian/profiles/pkg/logger"
	"github.com/okian/profiles/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 60 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
	// writeSlack is added to the API timeout so a slow upload can still be answered.
	writeSlack = 10 * time.Second
)

func main() {
	// Only the custom registry is served; drop the default collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	mux, sessions := newMux(ctx, cfg, loggerInstance)

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout(cfg),
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("api_base_url", cfg.APIBaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...", logger.Int("sessions", sessions.Size()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	sessions.Close()

	loggerInstance.Info(ctx, "server stopped")
}

// newMux wires the scoring client, sessions and routes from cfg.
func newMux(ctx context.Context, cfg *config.Config, l logger.Logger) (*http.ServeMux, *sessionstore.Store) {
	client := scoringapi.New(cfg.APIBaseURL,
		scoringapi.WithTimeout(cfg.APITimeout()),
		scoringapi.WithLogger(l.Named("scoringapi")),
	)
	svc := app.New(client,
		app.WithLogger(l),
		app.WithPageSize(cfg.PageSize),
		app.WithSiblingCount(cfg.SiblingCount),
		app.WithAcceptedExtensions(cfg.AcceptedExtensions),
		app.WithDownloadName(cfg.DownloadName),
	)
	sessions := sessionstore.New(svc, sessionstore.WithCapacity(cfg.SessionCapacity))

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(sessions,
		api.WithLogger(l.Named("http")),
		api.WithMaxUploadBytes(cfg.MaxUploadBytes()),
	).Register(ctx, mux)
	return mux, sessions
}

// writeTimeout outlasts the scoring API timeout; an unbounded API call
// leaves the write unbounded too.
func writeTimeout(cfg *config.Config) time.Duration {
	if cfg.APITimeout() <= 0 {
		return 0
	}
	return cfg.APITimeout() + writeSlack
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
