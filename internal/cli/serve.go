package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/cavrolab/flowpanel/internal/app"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command
func NewServeCmd(version string, configFile func() string) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long:  `Serves the panel page, the REST API, JSON-RPC on /rpc and streamable MCP on /mcp.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(configFile(), false, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			if host != "" {
				rt.cfg.Server.Host = host
			}
			if port != 0 {
				rt.cfg.Server.Port = port
			}
			rt.cfg.Transport.Mode = "http"
			if err := rt.cfg.Validate(); err != nil {
				return err
			}

			db, err := rt.openDB()
			if err != nil {
				return err
			}
			application := app.New(rt.cfg, db, version, rt.logger)

			addr := fmt.Sprintf("%s:%d", rt.cfg.Server.Host, rt.cfg.Server.Port)
			httpServer := &http.Server{
				Addr:    addr,
				Handler: application.Router(),
			}

			serveErr := make(chan error, 1)
			go func() {
				rt.logger.Info("server listening",
					"addr", addr,
					"auth", rt.cfg.Auth.Enabled,
					"device", rt.cfg.Device.BaseURL,
				)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
			}()

			if err := waitForShutdown(cmd.Context(), rt.logger, httpServer, serveErr); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides config)")

	return cmd
}
