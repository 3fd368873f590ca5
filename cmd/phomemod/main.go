package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/matheusdanoite/phomemo-go/internal/config"
	"github.com/matheusdanoite/phomemo-go/internal/link"
	"github.com/matheusdanoite/phomemo-go/internal/printjob"
	"github.com/matheusdanoite/phomemo-go/internal/relay"
)

func main() {
	// Optional .env for development setups; real deployments set the
	// environment directly.
	godotenv.Load()

	logLevel := parseLogLevel(envStr("PHOMEMO_LOG_LEVEL", "info"))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Parse configuration from environment variables
	listenPort := envInt("PHOMEMO_LISTEN_PORT", 8290)
	dataDir := envStr("PHOMEMO_DATA_DIR", "")
	instanceName := envStr("PHOMEMO_NAME", "Phomemo Relay")
	heartbeat := time.Duration(envInt("PHOMEMO_HEARTBEAT_SEC", 30)) * time.Second
	frameDelay := time.Duration(envInt("PHOMEMO_FRAME_DELAY_MS", 40)) * time.Millisecond
	var extraNames []string
	if v := os.Getenv("PHOMEMO_DEVICE_NAMES"); v != "" {
		extraNames = strings.Split(v, ",")
	}

	var store *config.Store
	if dataDir != "" {
		var err error
		store, err = config.NewStore(dataDir)
		if err != nil {
			slog.Error("failed to open settings store", "dir", dataDir, "err", err)
			os.Exit(1)
		}
	} else {
		store = config.NewMemoryStore()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	radio, err := link.NewBLERadio(slog.Default())
	if err != nil {
		slog.Error("bluetooth adapter unavailable", "err", err)
		os.Exit(1)
	}

	lnk := link.New(radio, slog.Default(), extraNames, heartbeat)
	go lnk.Run(ctx)
	go logStateChanges(lnk.StateChanges())

	executor := printjob.NewExecutor(lnk, slog.Default(), frameDelay, nil)

	addr := fmt.Sprintf(":%d", listenPort)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: logMiddleware(relay.NewHandler(lnk, executor, store, slog.Default())),
	}

	// Start mDNS advertisement
	mdnsServer, err := relay.Advertise(instanceName, listenPort)
	if err != nil {
		slog.Error("mDNS registration failed", "err", err)
		os.Exit(1)
	}
	defer mdnsServer.Shutdown()
	slog.Info("mDNS registered", "name", instanceName, "service", "_phomemo-relay._tcp")

	// Start HTTP server
	go func() {
		slog.Info("relay server starting", "addr", addr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}

func logStateChanges(states <-chan link.State) {
	for s := range states {
		slog.Info("printer link", "state", s)
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// responseRecorder captures the status code for logging.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(rec, r)
		slog.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}
