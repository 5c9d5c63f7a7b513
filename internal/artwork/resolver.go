package artwork

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/jellyfin-rpc/internal/media"
	"github.com/jfmyers9/jellyfin-rpc/pkg/lastfm"
)

// NoArt is the Discord asset key shown when no cover could be found.
const NoArt = "noart"

const (
	defaultCatalogEndpoint = "https://coverartarchive.org"
	musicBrainzAlbumKey    = "MusicBrainzAlbum"
)

// Config controls where artwork is looked up.
type Config struct {
	BackendURL     string // URL the player talks to
	PublicURL      string // URL handed to Discord viewers
	CatalogEnabled bool   // Try the Cover Art Archive first
	ProxyURL       string // Image proxy base, empty to disable
	LastFMAPIKey   string // Enables the Last.fm album.getInfo fallback
}

type albumLookup interface {
	GetInfo(ctx context.Context, artist, album string) (*lastfm.Album, error)
}

// Resolver picks a display image for a snapshot. It does not cache; callers
// decide when a new album warrants a lookup.
type Resolver struct {
	cfg     Config
	client  *http.Client
	catalog string
	albums  albumLookup // nil when Last.fm is not configured
	logger  zerolog.Logger
}

// New creates a Resolver.
func New(cfg Config, logger zerolog.Logger) *Resolver {
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	cfg.ProxyURL = strings.TrimRight(strings.TrimSpace(cfg.ProxyURL), "/")
	if cfg.PublicURL == "" {
		cfg.PublicURL = cfg.BackendURL
	}

	r := &Resolver{
		cfg:     cfg,
		client:  &http.Client{},
		catalog: defaultCatalogEndpoint,
		logger:  logger.With().Str("component", "artwork").Logger(),
	}

	if cfg.LastFMAPIKey != "" {
		client, err := lastfm.NewClient(lastfm.Config{
			APIKey:     cfg.LastFMAPIKey,
			HTTPClient: r.client,
			MaxRetries: 1,
			Logger:     debugLogger{r.logger},
		})
		if err == nil {
			r.albums = client.Album()
		}
	}
	return r
}

// debugLogger feeds Last.fm client debug output into zerolog.
type debugLogger struct {
	zerolog.Logger
}

func (l debugLogger) Debugf(format string, args ...interface{}) {
	l.Debug().Msgf(format, args...)
}

// Resolve returns an image URI for the snapshot, or NoArt. The first
// source that answers wins: the Cover Art Archive (when enabled and the
// track carries a MusicBrainz album id), the art URL reported by the
// player, the backend's primary album image, then the Last.fm album cover
// when an API key is configured. Any real URI is then
// rewritten through the image proxy when one is configured.
func (r *Resolver) Resolve(ctx context.Context, snap *media.Snapshot) string {
	uri := r.pick(ctx, snap)
	if uri == NoArt || r.cfg.ProxyURL == "" {
		return uri
	}
	return ProxyURL(r.cfg.ProxyURL, uri)
}

func (r *Resolver) pick(ctx context.Context, snap *media.Snapshot) string {
	if r.cfg.CatalogEnabled {
		if mbid := snap.ProviderID(musicBrainzAlbumKey); mbid != "" {
			uri := fmt.Sprintf("%s/release/%s/front", r.catalog, url.PathEscape(mbid))
			if r.available(ctx, uri) {
				return uri
			}
			r.logger.Debug().Str("mbid", mbid).Msg("Cover Art Archive has no front cover")
		}
	}

	if snap.ArtURL != "" {
		return r.publicize(snap.ArtURL)
	}

	if snap.AlbumID != "" && r.cfg.PublicURL != "" {
		uri := fmt.Sprintf("%s/Items/%s/Images/Primary", r.cfg.PublicURL, url.PathEscape(snap.AlbumID))
		if r.available(ctx, uri) {
			return uri
		}
		r.logger.Debug().Str("album_id", snap.AlbumID).Msg("Backend has no primary image")
	}

	if r.albums != nil && snap.Artist != "" && snap.Album != "" {
		album, err := r.albums.GetInfo(ctx, snap.Artist, snap.Album)
		if err != nil {
			r.logger.Debug().Err(err).Str("album", snap.Album).Msg("Last.fm album lookup failed")
		} else if cover := album.Cover(); cover != "" {
			return cover
		}
	}

	return NoArt
}

// feishinQuery matches the client tag Feishin appends to Subsonic cover
// URLs.
var feishinQuery = regexp.MustCompile(`&v=[^&]*&c=feishin&size=\d+`)

// publicize swaps the backend URL prefix for the public one so viewers can
// load the image, and replaces Feishin's client tag with a generic one.
func (r *Resolver) publicize(uri string) string {
	uri = feishinQuery.ReplaceAllLiteralString(uri, "&v=1&c=a")
	if r.cfg.BackendURL == "" || r.cfg.PublicURL == r.cfg.BackendURL {
		return uri
	}
	if rest, ok := strings.CutPrefix(uri, r.cfg.BackendURL); ok {
		return r.cfg.PublicURL + rest
	}
	return uri
}

// available reports whether uri answers 200 to a GET.
func (r *Resolver) available(ctx context.Context, uri string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", "jellyfin-rpc/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug().Err(err).Str("url", uri).Msg("Artwork probe failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	return resp.StatusCode == http.StatusOK
}

// ProxyURL rewrites uri through an imgproxy-style endpoint:
// {base}/0/{unpadded base64url(uri)}.jpg
func ProxyURL(base, uri string) string {
	encoded := base64.RawURLEncoding.EncodeToString([]byte(uri))
	return fmt.Sprintf("%s/0/%s.jpg", strings.TrimRight(base, "/"), encoded)
}
