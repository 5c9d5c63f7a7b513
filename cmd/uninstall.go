package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/jellyfin-rpc/internal/daemon"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the systemd user service",
	Long: `Stop the jellyfin-rpc daemon and remove its systemd user unit.

This command will:
  - Disable and stop the running service (if any)
  - Remove the unit from ~/.config/systemd/user/

Stopping the service clears your Discord presence.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		unitPath, err := daemon.GetUnitPath()
		if err != nil {
			return fmt.Errorf("failed to get unit path: %w", err)
		}

		if _, err := os.Stat(unitPath); os.IsNotExist(err) {
			fmt.Println("Daemon is not installed (unit not found)")
			return nil
		}

		fmt.Println("Stopping daemon...")
		if err := systemctl("disable", "--now", daemon.UnitName); err != nil {
			fmt.Printf("Warning: failed to stop daemon: %v\n", err)
			fmt.Println("Continuing with unit removal...")
		} else {
			fmt.Println("✓ Daemon stopped")
		}

		if err := os.Remove(unitPath); err != nil {
			return fmt.Errorf("failed to remove unit file: %w", err)
		}
		if err := systemctl("daemon-reload"); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}

		fmt.Printf("✓ Removed unit from %s\n", unitPath)
		fmt.Println("\nThe jellyfin-rpc daemon has been uninstalled successfully.")
		fmt.Println("\nTo reinstall, run:")
		fmt.Println("  jellyfin-rpc install")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
