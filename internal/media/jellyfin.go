package media

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ticksPerSecond is the resolution of Jellyfin's RunTimeTicks and
// PositionTicks fields.
const ticksPerSecond = 10_000_000

// JellyfinSource polls the Jellyfin session list.
type JellyfinSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewJellyfinSource creates a source for the server at baseURL.
func NewJellyfinSource(baseURL, apiKey string) *JellyfinSource {
	return &JellyfinSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

type jellyfinSession struct {
	UserName       string            `json:"UserName"`
	Client         string            `json:"Client"`
	DeviceName     string            `json:"DeviceName"`
	NowPlayingItem *jellyfinItem     `json:"NowPlayingItem"`
	PlayState      jellyfinPlayState `json:"PlayState"`
}

type jellyfinItem struct {
	ID           string            `json:"Id"`
	Name         string            `json:"Name"`
	Album        string            `json:"Album"`
	AlbumID      string            `json:"AlbumId"`
	AlbumArtist  string            `json:"AlbumArtist"`
	Artists      []string          `json:"Artists"`
	RunTimeTicks int64             `json:"RunTimeTicks"`
	ProviderIDs  map[string]string `json:"ProviderIds"`
}

type jellyfinPlayState struct {
	PositionTicks int64 `json:"PositionTicks"`
	IsPaused      bool  `json:"IsPaused"`
}

// Current returns the track playing in the first session that has one.
func (s *JellyfinSource) Current(ctx context.Context) (*Snapshot, error) {
	sessions, err := s.sessions(ctx)
	if err != nil {
		return nil, &TransportError{Source: "jellyfin", Err: err}
	}

	for _, sess := range sessions {
		if sess.NowPlayingItem == nil {
			continue
		}
		return sess.snapshot(), nil
	}
	return nil, nil
}

// Close drops idle keep-alive connections to the server.
func (s *JellyfinSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *JellyfinSource) sessions(ctx context.Context) ([]jellyfinSession, error) {
	query := url.Values{"api_key": {s.apiKey}}
	endpoint := fmt.Sprintf("%s/Sessions?%s", s.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "jellyfin-rpc/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var sessions []jellyfinSession
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

func (sess jellyfinSession) snapshot() *Snapshot {
	item := sess.NowPlayingItem

	artist := item.AlbumArtist
	if artist == "" && len(item.Artists) > 0 {
		artist = item.Artists[0]
	}

	return &Snapshot{
		TrackID:     item.ID,
		Title:       item.Name,
		Album:       item.Album,
		Artist:      artist,
		AlbumID:     item.AlbumID,
		Position:    ticksToDuration(sess.PlayState.PositionTicks),
		Duration:    ticksToDuration(item.RunTimeTicks),
		Paused:      sess.PlayState.IsPaused,
		ProviderIDs: item.ProviderIDs,
	}
}

// ticksToDuration converts Jellyfin ticks (100ns units) to a duration.
func ticksToDuration(ticks int64) time.Duration {
	if ticks <= 0 {
		return 0
	}
	return time.Duration(ticks) * (time.Second / ticksPerSecond)
}
