package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cavrolab/flowpanel/internal/config"
	"github.com/cavrolab/flowpanel/internal/sqlite"
)

// runtime is the per-invocation environment shared by the subcommands.
type runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	closers []io.Closer
}

// newRuntime loads configuration and builds the logger. Stdio mode logs to
// stderr so stdout stays clean for JSON-RPC.
func newRuntime(configPath string, stdio bool, stdout, stderr io.Writer) (*runtime, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if stdio {
		cfg.Transport.Mode = "stdio"
	}

	rt := &runtime{cfg: cfg}

	logWriter := stdout
	if stdio {
		logWriter = stderr
	}
	if logPath := os.Getenv("FLOWPANEL_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(stderr, "log file error: %v\n", err)
		} else {
			rt.closers = append(rt.closers, file)
			logWriter = fileWriter
		}
	}
	rt.logger = slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	return rt, nil
}

// openDB opens the configured database and applies migrations.
func (rt *runtime) openDB() (*sqlite.DB, error) {
	if err := ensureDBDir(rt.cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(rt.cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	rt.closers = append(rt.closers, db)
	return db, nil
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i].Close()
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// waitForShutdown blocks until a signal arrives, ctx ends or the server
// fails, then shuts the server down gracefully.
func waitForShutdown(ctx context.Context, logger *slog.Logger, server *http.Server, serveErr <-chan error) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
