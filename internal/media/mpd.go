package media

import (
	"context"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog"
)

// DefaultMPDAddress is where MPD listens unless configured otherwise.
const DefaultMPDAddress = "localhost:6600"

// mpdClient is the subset of *mpd.Client the source uses.
type mpdClient interface {
	Status() (mpd.Attrs, error)
	CurrentSong() (mpd.Attrs, error)
	Close() error
}

// MPDSource reads the current song from a Music Player Daemon.
type MPDSource struct {
	addr   string
	dial   func() (mpdClient, error)
	conn   mpdClient
	logger zerolog.Logger
}

// NewMPDSource creates a source for the MPD server at addr. An address
// starting with "/" is a unix socket, anything else is host:port.
func NewMPDSource(addr, password string, logger zerolog.Logger) *MPDSource {
	if addr == "" {
		addr = DefaultMPDAddress
	}
	network := "tcp"
	if strings.HasPrefix(addr, "/") {
		network = "unix"
	}

	return &MPDSource{
		addr: addr,
		dial: func() (mpdClient, error) {
			return mpd.DialAuthenticated(network, addr, password)
		},
		logger: logger.With().Str("component", "mpd").Logger(),
	}
}

// Current returns the song MPD is playing. MPD closes idle connections, so
// a failed read reconnects and retries once.
func (s *MPDSource) Current(ctx context.Context) (*Snapshot, error) {
	if s.conn == nil {
		if err := s.reconnect(); err != nil {
			return nil, &TransportError{Source: "mpd", Err: err}
		}
	}

	snap, err := s.read()
	if err == nil {
		return snap, nil
	}

	s.logger.Debug().Err(err).Msg("MPD read failed, reconnecting")
	if rerr := s.reconnect(); rerr != nil {
		return nil, &TransportError{Source: "mpd", Err: rerr}
	}
	snap, err = s.read()
	if err != nil {
		return nil, &TransportError{Source: "mpd", Err: err}
	}
	return snap, nil
}

// Close closes the connection to MPD.
func (s *MPDSource) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *MPDSource) reconnect() error {
	_ = s.Close()
	conn, err := s.dial()
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.addr, err)
	}
	s.conn = conn
	return nil
}

func (s *MPDSource) read() (*Snapshot, error) {
	status, err := s.conn.Status()
	if err != nil {
		return nil, err
	}

	state := status["state"]
	if state != "play" && state != "pause" {
		return nil, nil
	}

	song, err := s.conn.CurrentSong()
	if err != nil {
		return nil, err
	}
	if song["file"] == "" {
		return nil, nil
	}

	title := song["Title"]
	if title == "" {
		title = strings.TrimSuffix(path.Base(song["file"]), path.Ext(song["file"]))
	}
	artist := song["AlbumArtist"]
	if artist == "" {
		artist = song["Artist"]
	}

	duration := secondsAttr(status["duration"])
	if duration == 0 {
		duration = secondsAttr(song["duration"])
	}

	snap := &Snapshot{
		TrackID:  song["file"],
		Title:    title,
		Album:    song["Album"],
		Artist:   artist,
		Position: secondsAttr(status["elapsed"]),
		Duration: duration,
		Paused:   state == "pause",
	}
	if mbid := song["MUSICBRAINZ_ALBUMID"]; mbid != "" {
		snap.ProviderIDs = map[string]string{"MusicBrainzAlbum": mbid}
	}
	return snap, nil
}

// secondsAttr parses MPD's fractional seconds ("123.456").
func secondsAttr(v string) time.Duration {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0
	}
	return time.Duration(math.Round(f * float64(time.Second)))
}
