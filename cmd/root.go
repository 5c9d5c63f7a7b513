/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/jellyfin-rpc/internal/config"
	"github.com/jfmyers9/jellyfin-rpc/internal/media"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Explicit settings file, empty to search the default locations
var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jellyfin-rpc",
	Short: "Show what you are playing on Discord",
	Long: `jellyfin-rpc mirrors the track you are listening to onto Discord Rich Presence.

It runs as a background daemon that polls a Jellyfin server's sessions
(or a local MPRIS player such as Feishin, or MPD) and updates your Discord status
only when the track, the pause state or the playback position changes.

Settings are read from jellyfin-rpc.toml in ~/.config/iipython/ or /etc/,
or from the file given with --config.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Settings file (default: search ~/.config/iipython and /etc)")
}

// newSource builds the playback source selected in the settings.
func newSource(cfg *config.Config, logger zerolog.Logger) media.Source {
	switch cfg.Source {
	case config.SourceMPRIS:
		return media.NewMPRISSource(cfg.MPRISPlayer, logger)
	case config.SourceMPD:
		return media.NewMPDSource(cfg.MPDAddress, cfg.MPDPassword, logger)
	default:
		return media.NewJellyfinSource(cfg.URL, cfg.APIKey)
	}
}
