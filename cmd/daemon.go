package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/jellyfin-rpc/internal/artwork"
	"github.com/jfmyers9/jellyfin-rpc/internal/config"
	"github.com/jfmyers9/jellyfin-rpc/internal/daemon"
	"github.com/jfmyers9/jellyfin-rpc/internal/discord"
)

var (
	daemonLogFile  string
	daemonLogLevel string
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the presence daemon",
	Long: `Run the daemon that mirrors the current track onto Discord Rich Presence.

The daemon will:
- Wait for Discord to start if it is not running yet
- Poll the playback source every update_time seconds
- Push a new presence when the track, pause state or position changes
- Clear the presence after a few polls with nothing playing
- Reconnect to Discord if the client restarts
- Clear the presence on SIGINT/SIGTERM before exiting

The daemon runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file (useful for systemd).`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringVar(&daemonLogFile, "log-file", "", "Log file path (default: stderr)")
	daemonCmd.Flags().StringVar(&daemonLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	daemonCmd.Flags().String("source", "", "Playback source: jellyfin, mpris or mpd (overrides config)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile, config.WithFlag("source", cmd.Flags().Lookup("source")))
	if err != nil {
		return err
	}

	logger := setupLogger(daemonLogFile, daemonLogLevel)

	logger.Info().
		Str("version", version).
		Str("source", cfg.Source).
		Msg("Starting jellyfin-rpc daemon")

	source := newSource(cfg, logger)

	proxy := ""
	if cfg.UseImageProxy() {
		proxy = cfg.ImageProxyURL
	}
	resolver := artwork.New(artwork.Config{
		BackendURL:     cfg.URL,
		PublicURL:      cfg.PublicEndpoint(),
		CatalogEnabled: cfg.MusicBrainzAlbumArt,
		ProxyURL:       proxy,
		LastFMAPIKey:   cfg.LastFMAPIKey,
	}, logger)

	presence := discord.New(cfg.ClientID, logger)

	d := daemon.New(daemon.Config{
		PollInterval: cfg.PollInterval(),
		Slack:        cfg.Slack(),
		IdlePolls:    cfg.IdlePolls,
	}, source, resolver, presence, logger)

	// Run daemon (blocks until shutdown signal)
	runErr := d.Run()

	if err := d.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
	}
	if runErr != nil {
		return fmt.Errorf("daemon error: %w", runErr)
	}

	logger.Info().Msg("Daemon stopped")
	return nil
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	output := os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		} else {
			output = f
		}
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
