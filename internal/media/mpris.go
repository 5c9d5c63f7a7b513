package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

const (
	mprisPrefix     = "org.mpris.MediaPlayer2."
	mprisObjectPath = "/org/mpris/MediaPlayer2"
	mprisPlayer     = "org.mpris.MediaPlayer2.Player"
)

// MPRISSource reads playback state from a local player over D-Bus.
type MPRISSource struct {
	busName string
	dial    func() (DBusClient, error)
	conn    DBusClient
	logger  zerolog.Logger
}

// NewMPRISSource creates a source for org.mpris.MediaPlayer2.<player>.
// The bus connection is opened lazily on the first read.
func NewMPRISSource(player string, logger zerolog.Logger) *MPRISSource {
	return &MPRISSource{
		busName: mprisPrefix + player,
		dial: func() (DBusClient, error) {
			return NewSessionBusClient()
		},
		logger: logger.With().Str("component", "mpris").Logger(),
	}
}

// Current returns the player's current track, or nil when it is stopped.
// Players routinely restart, so a failed read reconnects and retries once
// before giving up.
func (s *MPRISSource) Current(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.conn == nil {
		if err := s.reconnect(); err != nil {
			return nil, &TransportError{Source: "mpris", Err: err}
		}
	}

	snap, err := s.read()
	if err == nil {
		return snap, nil
	}

	s.logger.Debug().Err(err).Str("player", s.busName).Msg("Player read failed, reconnecting")
	if rerr := s.reconnect(); rerr != nil {
		return nil, &TransportError{Source: "mpris", Err: errors.Join(err, rerr)}
	}

	snap, err = s.read()
	if err != nil {
		return nil, &TransportError{Source: "mpris", Err: err}
	}
	return snap, nil
}

// Close closes the bus connection.
func (s *MPRISSource) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// reconnect replaces the bus connection and checks that the player is
// present on it.
func (s *MPRISSource) reconnect() error {
	_ = s.Close()

	conn, err := s.dial()
	if err != nil {
		return fmt.Errorf("connect to session bus: %w", err)
	}
	if _, err := conn.GetNameOwner(s.busName); err != nil {
		_ = conn.Close()
		return fmt.Errorf("player %s not running: %w", s.busName, err)
	}

	s.conn = conn
	s.logger.Info().Str("player", s.busName).Msg("Connected to MPRIS")
	return nil
}

// read fetches metadata, playback status and position in one pass.
func (s *MPRISSource) read() (*Snapshot, error) {
	metaVariant, err := s.conn.GetProperty(s.busName, mprisObjectPath, mprisPlayer+".Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}
	statusVariant, err := s.conn.GetProperty(s.busName, mprisObjectPath, mprisPlayer+".PlaybackStatus")
	if err != nil {
		return nil, fmt.Errorf("failed to get playback status: %w", err)
	}
	status, ok := statusVariant.Value().(string)
	if !ok {
		return nil, fmt.Errorf("invalid playback status format: %T", statusVariant.Value())
	}
	if status == "Stopped" {
		return nil, nil
	}

	// Some players return nil or unexpected types when idle
	metadata, ok := metaVariant.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, nil
	}

	title := variantString(metadata["xesam:title"])
	if title == "" {
		return nil, nil
	}

	posVariant, err := s.conn.GetProperty(s.busName, mprisObjectPath, mprisPlayer+".Position")
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}

	album := variantString(metadata["xesam:album"])
	artist := variantFirstString(metadata["xesam:artist"])

	return &Snapshot{
		TrackID:  tupleKey(title, album, artist),
		Title:    title,
		Album:    album,
		Artist:   artist,
		ArtURL:   variantString(metadata["mpris:artUrl"]),
		Position: microsToDuration(variantInt(posVariant)),
		Duration: microsToDuration(variantInt(metadata["mpris:length"])),
		Paused:   status == "Paused",
	}, nil
}

func variantString(v dbus.Variant) string {
	s, _ := v.Value().(string)
	return s
}

// variantFirstString handles xesam:artist, which MPRIS defines as a list but is a
// plain string in some players.
func variantFirstString(v dbus.Variant) string {
	switch val := v.Value().(type) {
	case []string:
		if len(val) > 0 {
			return val[0]
		}
	case string:
		return val
	}
	return ""
}

// variantInt accepts the integer widths players use for mpris:length and
// Position.
func variantInt(v dbus.Variant) int64 {
	switch val := v.Value().(type) {
	case int64:
		return val
	case uint64:
		return int64(val)
	case int32:
		return int64(val)
	case uint32:
		return int64(val)
	case float64:
		return int64(val)
	}
	return 0
}

func microsToDuration(us int64) time.Duration {
	if us <= 0 {
		return 0
	}
	return time.Duration(us) * time.Microsecond
}
