package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/jellyfin-rpc/internal/media"
)

// Config holds daemon configuration
type Config struct {
	PollInterval time.Duration // How often to poll the playback source
	Slack        time.Duration // Position drift tolerated on top of PollInterval
	IdlePolls    int           // Idle polls before the presence is cleared
}

// Daemon wires the playback source, the engine and the presence sink
// together and owns their lifetime.
type Daemon struct {
	config Config
	source media.Source
	sink   Sink
	engine *Engine
	poller *Poller
	logger zerolog.Logger
}

// New creates a new Daemon instance
func New(cfg Config, source media.Source, art ArtResolver, sink Sink, logger zerolog.Logger) *Daemon {
	engine := NewEngine(source, art, sink, EngineConfig{
		PollInterval:  cfg.PollInterval,
		Slack:         cfg.Slack,
		IdleThreshold: cfg.IdlePolls,
	}, logger)

	return &Daemon{
		config: cfg,
		source: source,
		sink:   sink,
		engine: engine,
		poller: NewPoller(engine, sink, cfg.PollInterval, logger),
		logger: logger.With().Str("component", "daemon").Logger(),
	}
}

// Run starts the daemon and blocks until shutdown signal received
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		d.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		d.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	if err := d.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (d *Daemon) run(ctx context.Context) error {
	d.logger.Info().Msg("Starting daemon")

	if err := d.connect(ctx); err != nil {
		return err
	}
	return d.poller.Run(ctx)
}

// connect blocks until the sink connects, retrying every poll interval.
func (d *Daemon) connect(ctx context.Context) error {
	err := d.sink.Connect()
	if err == nil {
		return nil
	}
	d.logger.Warn().Err(err).Msg("Discord is not running, waiting for it")

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := d.sink.Connect()
			if err == nil {
				return nil
			}
			d.logger.Debug().Err(err).Msg("Discord still unavailable")
		}
	}
}

// Shutdown clears the presence and releases the sink and source. The clear
// is best effort: a sink that is already gone is not an error.
func (d *Daemon) Shutdown() error {
	d.logger.Info().Msg("Shutting down daemon")

	if err := d.sink.Clear(); err != nil {
		d.logger.Debug().Err(err).Msg("Could not clear presence")
	}

	var errs []error
	if err := d.sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close presence: %w", err))
	}
	if err := d.source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close source: %w", err))
	}
	return errors.Join(errs...)
}
