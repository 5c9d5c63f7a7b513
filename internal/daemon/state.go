package daemon

import (
	"time"

	"github.com/jfmyers9/jellyfin-rpc/internal/media"
)

// State is what the engine remembers between polls. It lives for the
// lifetime of the process and is only ever touched by the engine, so it
// carries no lock.
type State struct {
	lastIdentity media.Identity // Identity last pushed
	hasIdentity  bool
	lastPosition time.Duration // Position at the last push or unchanged poll

	lastAlbumKey string // ArtKey that lastArtURI was resolved for
	lastArtURI   string
	hasArt       bool

	idleStreak int  // Consecutive polls with nothing playing
	cleared    bool // The presence is currently empty
}

// identityChanged reports whether id differs from the last pushed identity.
func (s *State) identityChanged(id media.Identity) bool {
	return !s.hasIdentity || s.lastIdentity != id
}

// drifted reports whether pos moved further than band from the last
// observed position, in either direction.
func (s *State) drifted(pos, band time.Duration) bool {
	d := pos - s.lastPosition
	if d < 0 {
		d = -d
	}
	return d > band
}

// cachedArt returns the resolved art for key if it is the cached one.
func (s *State) cachedArt(key string) (string, bool) {
	if !s.hasArt || s.lastAlbumKey != key {
		return "", false
	}
	return s.lastArtURI, true
}

func (s *State) cacheArt(key, uri string) {
	s.lastAlbumKey = key
	s.lastArtURI = uri
	s.hasArt = true
}

// recordPush remembers snap as the displayed presence.
func (s *State) recordPush(snap *media.Snapshot) {
	s.lastIdentity = snap.Identity()
	s.hasIdentity = true
	s.lastPosition = snap.Position
	s.cleared = false
}

// recordIdleClear forgets the displayed track so that it is pushed again
// when playback resumes. Cached art is kept.
func (s *State) recordIdleClear() {
	s.lastIdentity = media.Identity{}
	s.hasIdentity = false
	s.lastPosition = 0
	s.cleared = true
}

// recordPausedClear remembers the paused identity behind an empty presence.
func (s *State) recordPausedClear(snap *media.Snapshot) {
	s.lastIdentity = snap.Identity()
	s.hasIdentity = true
	s.lastPosition = snap.Position
	s.cleared = true
}
