package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/jellyfin-rpc/internal/discord"
	"github.com/jfmyers9/jellyfin-rpc/internal/media"
)

// Action is the outcome of a single poll.
type Action int

const (
	// ActionUnchanged means the displayed presence was left alone.
	ActionUnchanged Action = iota
	// ActionPushed means a new presence was sent.
	ActionPushed
	// ActionCleared means the presence is now empty.
	ActionCleared
	// ActionIdle means nothing is playing but the presence is not being
	// cleared yet, or was already cleared.
	ActionIdle
)

func (a Action) String() string {
	switch a {
	case ActionUnchanged:
		return "unchanged"
	case ActionPushed:
		return "pushed"
	case ActionCleared:
		return "cleared"
	case ActionIdle:
		return "idle"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Sink displays presence updates. *discord.Presence implements it.
type Sink interface {
	Connect() error
	Push(discord.Activity) error
	Clear() error
	Close() error
}

// ArtResolver picks the cover image for a snapshot. It never fails; a
// missing image comes back as a sentinel URI.
type ArtResolver interface {
	Resolve(ctx context.Context, snap *media.Snapshot) string
}

// EngineConfig tunes change detection.
type EngineConfig struct {
	PollInterval  time.Duration // Time between polls
	Slack         time.Duration // Extra position drift tolerated before a seek is assumed
	IdleThreshold int           // Idle polls before the presence is cleared
}

// Discord rejects text fields outside this length window.
const (
	minFieldLen = 2
	maxFieldLen = 128
)

// Engine decides on every poll whether the presence must be pushed,
// cleared or left alone.
type Engine struct {
	source media.Source
	art    ArtResolver
	sink   Sink
	cfg    EngineConfig
	state  State
	now    func() time.Time
	logger zerolog.Logger
}

// NewEngine creates an engine with empty state.
func NewEngine(source media.Source, art ArtResolver, sink Sink, cfg EngineConfig, logger zerolog.Logger) *Engine {
	if cfg.IdleThreshold < 1 {
		cfg.IdleThreshold = 1
	}
	return &Engine{
		source: source,
		art:    art,
		sink:   sink,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With().Str("component", "engine").Logger(),
	}
}

// driftBand is how far the position may move between polls before it
// counts as a seek.
func (e *Engine) driftBand() time.Duration {
	return e.cfg.PollInterval + e.cfg.Slack
}

// Poll runs one fetch and update cycle.
//
// A *media.TransportError from the source is treated as an idle poll and
// returned together with the idle outcome. Errors from the sink are
// returned and the update is retried on a later poll, except a payload
// Discord rejected, which is logged and not resent until the track changes.
func (e *Engine) Poll(ctx context.Context) (Action, error) {
	snap, err := e.source.Current(ctx)
	if err != nil {
		var te *media.TransportError
		if !errors.As(err, &te) {
			return ActionUnchanged, err
		}
		action, idleErr := e.idle()
		if idleErr != nil {
			return action, errors.Join(err, idleErr)
		}
		return action, err
	}
	if snap == nil {
		return e.idle()
	}
	e.state.idleStreak = 0

	// Local players report a stopped track as paused at zero.
	if snap.Paused && snap.Position == 0 {
		return e.pausedAtZero(snap)
	}

	identityChanged := e.state.identityChanged(snap.Identity())
	if !identityChanged && !e.state.cleared && !e.state.drifted(snap.Position, e.driftBand()) {
		e.state.lastPosition = snap.Position
		return ActionUnchanged, nil
	}

	art := e.resolveArt(ctx, snap)
	if err := e.sink.Push(buildActivity(snap, art, e.now())); err != nil {
		var apiErr *discord.APIError
		if !errors.As(err, &apiErr) {
			return ActionUnchanged, fmt.Errorf("push presence: %w", err)
		}
		// A rejected payload is not resent until the track changes or seeks.
		e.logger.Warn().Err(err).Str("title", snap.Title).Msg("Discord rejected presence")
		e.state.recordPush(snap)
		return ActionUnchanged, nil
	}

	if identityChanged {
		e.logger.Info().
			Str("title", snap.Title).
			Str("artist", snap.Artist).
			Str("album", snap.Album).
			Bool("paused", snap.Paused).
			Msg("Track changed")
	} else {
		e.logger.Debug().
			Dur("position", snap.Position).
			Msg("Position jumped")
	}
	e.state.recordPush(snap)
	return ActionPushed, nil
}

// idle counts a poll with nothing playing and clears the presence once the
// streak reaches the threshold. Later idle polls leave it alone.
func (e *Engine) idle() (Action, error) {
	e.state.idleStreak++
	if e.state.cleared || e.state.idleStreak < e.cfg.IdleThreshold {
		return ActionIdle, nil
	}
	if err := e.sink.Clear(); err != nil {
		return ActionIdle, fmt.Errorf("clear presence: %w", err)
	}
	e.logger.Info().Int("idle_polls", e.state.idleStreak).Msg("Nothing playing, presence cleared")
	e.state.recordIdleClear()
	return ActionCleared, nil
}

func (e *Engine) pausedAtZero(snap *media.Snapshot) (Action, error) {
	if !e.state.cleared {
		if err := e.sink.Clear(); err != nil {
			return ActionUnchanged, fmt.Errorf("clear presence: %w", err)
		}
		e.logger.Info().Str("title", snap.Title).Msg("Stopped at start of track, presence cleared")
	}
	e.state.recordPausedClear(snap)
	return ActionCleared, nil
}

func (e *Engine) resolveArt(ctx context.Context, snap *media.Snapshot) string {
	key := snap.ArtKey()
	if uri, ok := e.state.cachedArt(key); ok {
		return uri
	}
	uri := e.art.Resolve(ctx, snap)
	e.state.cacheArt(key, uri)
	e.logger.Info().Str("album", snap.Album).Str("art", uri).Msg("Artwork refreshed")
	return uri
}

// buildActivity renders snap as a "Listening to" activity.
func buildActivity(snap *media.Snapshot, art string, now time.Time) discord.Activity {
	state := "by " + snap.Artist
	if snap.Album != "" && snap.Album != snap.Title {
		state = "on " + snap.Album + " by " + snap.Artist
	}

	status, badge := "Playing", "playing"
	if snap.Paused {
		status, badge = "Paused", "paused"
	}

	a := discord.Activity{
		Type:    discord.ActivityListening,
		Name:    fitField(snap.Artist),
		Details: fitField(snap.Title),
		State:   fitField(state),
		Assets: &discord.Assets{
			LargeImage: art,
			LargeText:  fitField(snap.Album),
			SmallImage: badge,
			SmallText:  status,
		},
	}

	if !snap.Paused && snap.Duration > snap.Position {
		end := now.Add(snap.Duration - snap.Position).Unix()
		a.Timestamps = &discord.Timestamps{End: &end}
	}
	return a
}

// fitField pads or truncates s into Discord's accepted field length,
// counted in characters. Empty strings stay empty so the field is omitted.
func fitField(s string) string {
	if s == "" {
		return ""
	}
	n := utf8.RuneCountInString(s)
	if n > maxFieldLen {
		return string([]rune(s)[:maxFieldLen-1]) + "…"
	}
	if n < minFieldLen {
		return s + strings.Repeat(" ", minFieldLen-n)
	}
	return s
}
