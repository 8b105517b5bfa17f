package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/cavrolab/flowpanel/internal/app"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

// NewMCPCmd creates the mcp command
func NewMCPCmd(version string, configFile func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP over stdio",
		Long:  `Runs the MCP tool server on stdin/stdout. Authentication is disabled; every call uses the default tenant.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(configFile(), true, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			db, err := rt.openDB()
			if err != nil {
				return err
			}
			application := app.New(rt.cfg, db, version, rt.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt.logger.Info("starting stdio transport", "auth", "disabled")
			if err := application.MCP.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				return fmt.Errorf("stdio server error: %w", err)
			}
			return nil
		},
	}
}
