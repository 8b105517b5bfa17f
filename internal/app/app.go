// Package app assembles repositories, domain services and transports from
// a loaded configuration.
package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cavrolab/flowpanel/internal/config"
	"github.com/cavrolab/flowpanel/internal/device"
	"github.com/cavrolab/flowpanel/internal/domain/activity"
	"github.com/cavrolab/flowpanel/internal/domain/command"
	"github.com/cavrolab/flowpanel/internal/domain/protocol"
	"github.com/cavrolab/flowpanel/internal/domain/reconcile"
	"github.com/cavrolab/flowpanel/internal/mcp"
	"github.com/cavrolab/flowpanel/internal/sqlite"
	"github.com/cavrolab/flowpanel/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// App holds the wired services of one running process.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	Keys     *sqlite.KeyRepository
	Tables   *protocol.Service
	Commands *command.Service
	Activity *activity.Service
	Handler  *mcp.Handler
	MCP      *sdkmcp.Server
}

// New wires every service on top of db. Migrations must already be applied.
func New(cfg config.Config, db *sqlite.DB, version string, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	activityRepo := sqlite.NewActivityRepository(db)
	keys := sqlite.NewKeyRepository(db)
	activitySvc := activity.NewService(activityRepo, logger)

	tables := protocol.NewService(activitySvc, reconcile.Options{
		PreserveEdited: cfg.Reconcile.PreserveEdited,
	}, logger)
	pump := device.NewClient(device.Config{
		BaseURL: cfg.Device.BaseURL,
		Timeout: cfg.Device.Timeout,
	}, logger)
	commands := command.NewService(pump, tables, activitySvc, command.Config{
		Limits: command.Limits{
			MinVolume: cfg.Limits.MinVolumeUL,
			MaxVolume: cfg.Limits.MaxVolumeUL,
		},
		DefaultSerialPort: cfg.Device.SerialPort,
	}, logger)

	services := mcp.Services{
		Tables:   tables,
		Commands: commands,
		Activity: activitySvc,
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		Keys:     keys,
		Tables:   tables,
		Commands: commands,
		Activity: activitySvc,
		Handler:  mcp.NewHandler(services),
		MCP: mcp.NewServer(mcp.Config{
			Services:      services,
			Resolver:      keys,
			AuthEnabled:   cfg.Auth.Enabled,
			TransportMode: cfg.Transport.Mode,
			Version:       version,
			Logger:        logger,
		}),
	}
}

// Router returns the HTTP handler serving the panel page, REST API,
// JSON-RPC and streamable MCP.
func (a *App) Router() http.Handler {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return a.MCP },
		&sdkmcp.StreamableHTTPOptions{
			SessionTimeout: 30 * time.Minute,
			Logger:         a.logger,
		},
	)

	opts := transport.Options{MCP: mcpHandler, Logger: a.logger}
	if a.cfg.Auth.Enabled {
		opts.Auth = transport.AuthMiddleware(a.Keys)
	}
	return transport.NewServer(a.Handler, opts)
}
