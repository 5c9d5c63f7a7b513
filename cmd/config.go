package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/jellyfin-rpc/internal/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective settings",
	Long: `Load the settings the daemon would use and print them as TOML.

Defaults and JELLYFIN_RPC_* environment overrides are applied. The API key
is redacted. Fails with the same message as the daemon when the settings
are missing or invalid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if err := cfg.Encode(cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("failed to encode settings: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
