package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/cavrolab/flowpanel/internal/sqlite"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const tokenPrefix = "fp_"

// NewKeysCmd creates the keys command
func NewKeysCmd(configFile func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}
	cmd.AddCommand(newKeysAddCmd(configFile))
	return cmd
}

func newKeysAddCmd(configFile func() string) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <tenant>",
		Short: "Create an API key for a tenant",
		Long:  `Creates a bearer token for the tenant and prints it. Only its hash is stored, so it cannot be shown again.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(configFile(), false, cmd.ErrOrStderr(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			db, err := rt.openDB()
			if err != nil {
				return err
			}

			token, err := newToken()
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			tenant := args[0]
			if err := sqlite.NewKeyRepository(db).Add(cmd.Context(), token, tenant, description); err != nil {
				return fmt.Errorf("failed to add key: %w", err)
			}

			green := color.New(color.FgGreen).SprintFunc()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created key for tenant %s\n", tenant)
			fmt.Fprintf(out, "  %s\n", green(token))
			fmt.Fprintln(out, "Store it now; it is not shown again.")
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Note stored with the key")

	return cmd
}

func newToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return tokenPrefix + hex.EncodeToString(buf), nil
}
