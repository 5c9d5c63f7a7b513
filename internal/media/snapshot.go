package media

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Snapshot is one observation of what a player is doing right now.
type Snapshot struct {
	TrackID  string        // Stable track identity
	Title    string        // Track title
	Album    string        // Album name
	Artist   string        // Primary artist
	AlbumID  string        // Backend album id, empty when the source has none
	ArtURL   string        // Artwork URL reported by the player, if any
	Position time.Duration // Current playback offset
	Duration time.Duration // Total length, 0 when unknown
	Paused   bool

	// External catalog ids keyed by provider, e.g. "MusicBrainzAlbum"
	ProviderIDs map[string]string
}

// Identity is the (track, pause state) pair that decides whether the
// displayed presence is stale.
type Identity struct {
	TrackID string
	Paused  bool
}

// Identity returns the snapshot's identity.
func (s *Snapshot) Identity() Identity {
	return Identity{TrackID: s.TrackID, Paused: s.Paused}
}

// ArtKey returns the key that decides whether artwork must be resolved
// again. Tracks from the same album share a key.
func (s *Snapshot) ArtKey() string {
	switch {
	case s.AlbumID != "":
		return s.AlbumID
	case s.ArtURL != "":
		return s.ArtURL
	default:
		return tupleKey(s.Album, s.Artist)
	}
}

// ProviderID returns the external catalog id for provider, or "".
func (s *Snapshot) ProviderID(provider string) string {
	if s.ProviderIDs == nil {
		return ""
	}
	return s.ProviderIDs[provider]
}

// Source reports what is playing right now.
type Source interface {
	// Current returns the current snapshot, or nil when nothing is playing.
	// A *TransportError means the backend could not be reached.
	Current(ctx context.Context) (*Snapshot, error)

	// Close releases the connection to the backend.
	Close() error
}

// TransportError reports that a playback source could not be reached.
type TransportError struct {
	Source string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// tupleKey joins fields with the ASCII unit separator, which never appears
// in display strings.
func tupleKey(fields ...string) string {
	return strings.Join(fields, "\x1f")
}
