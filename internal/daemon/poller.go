package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/jellyfin-rpc/internal/discord"
	"github.com/jfmyers9/jellyfin-rpc/internal/media"
)

// Poller runs the engine at a fixed interval, one cycle at a time.
type Poller struct {
	engine   *Engine
	sink     Sink
	interval time.Duration
	logger   zerolog.Logger

	sourceDown bool // Last cycle failed to reach the playback source
}

// NewPoller creates a new Poller instance
func NewPoller(engine *Engine, sink Sink, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		engine:   engine,
		sink:     sink,
		interval: interval,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Run polls immediately and then on every tick until ctx is cancelled.
// Cancellation is only observed between cycles.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().
		Dur("interval", p.interval).
		Msg("Starting poller")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// cycle runs one poll to completion even if ctx is cancelled meanwhile.
func (p *Poller) cycle(ctx context.Context) {
	action, err := p.engine.Poll(context.WithoutCancel(ctx))

	var te *media.TransportError
	switch {
	case errors.As(err, &te):
		if !p.sourceDown {
			p.logger.Warn().Err(te).Msg("Playback source unreachable")
			p.sourceDown = true
		}
	case p.sourceDown:
		p.logger.Info().Msg("Playback source reachable again")
		p.sourceDown = false
	}

	switch {
	case err == nil:
	case errors.Is(err, discord.ErrConnectionLost):
		p.logger.Warn().Err(err).Msg("Lost connection to Discord, reconnecting")
		if err := p.sink.Connect(); err != nil {
			p.logger.Debug().Err(err).Msg("Reconnect failed, retrying next tick")
		}
	case te != nil:
		// Logged above on the transition.
	default:
		p.logger.Error().Err(err).Msg("Update failed")
	}

	p.logger.Debug().Stringer("action", action).Msg("Poll complete")
}
