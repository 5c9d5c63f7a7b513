package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Supported playback sources.
const (
	SourceJellyfin = "jellyfin"
	SourceMPRIS    = "mpris"
	SourceMPD      = "mpd"
)

const (
	DefaultClientID      = "1117545345690374277"
	DefaultImageProxyURL = "https://images.iipython.dev"
	DefaultMPRISPlayer   = "Feishin"
	DefaultMPDAddress    = "localhost:6600"
)

// Config holds application configuration
type Config struct {
	// Playback source: "jellyfin", "mpris" or "mpd"
	Source string `toml:"source"`

	// Jellyfin server URL used for API calls
	URL string `toml:"url"`

	// Optional URL handed out to Discord viewers for artwork links.
	// Falls back to URL when empty.
	PublicURL string `toml:"url_public,omitempty"`

	APIKey string `toml:"api_key"`

	// Poll interval in seconds
	UpdateTime float64 `toml:"update_time"`

	// Extra slack (seconds) on top of the poll interval before a position
	// jump counts as a seek
	TickSensitivity float64 `toml:"tick_sensitivity"`

	// Consecutive empty polls before the presence is cleared
	IdlePolls int `toml:"idle_polls"`

	// Discord application id
	ClientID string `toml:"client_id"`

	MusicBrainzAlbumArt bool   `toml:"musicbrainz_album_art"`
	ImageProxyEnabled   bool   `toml:"imageproxy_enabled"`
	ImageProxyURL       string `toml:"imageproxy_url"`

	// Last.fm API key for the album cover fallback, empty to disable
	LastFMAPIKey string `toml:"lastfm_api_key,omitempty"`

	// MPRIS player name, the suffix of org.mpris.MediaPlayer2.<name>
	MPRISPlayer string `toml:"mpris_player"`

	// MPD host:port or unix socket path
	MPDAddress  string `toml:"mpd_address"`
	MPDPassword string `toml:"mpd_password,omitempty"`
}

// Error reports a configuration file that is missing, unreadable or invalid.
type Error struct {
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Reason
	if e.Path != "" {
		msg = fmt.Sprintf("%s in %s", e.Reason, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", msg, e.Err)
	}
	return "config: " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// SearchPaths returns the directories searched for jellyfin-rpc.toml, in
// order of precedence.
func SearchPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "iipython"))
	}
	return append(paths, "/etc")
}

// Option adjusts how Load resolves settings.
type Option func(v *viper.Viper) error

// WithFlag lets a command line flag override the settings key. The flag
// only takes effect when it was set explicitly.
func WithFlag(key string, flag *pflag.Flag) Option {
	return func(v *viper.Viper) error {
		if flag == nil {
			return fmt.Errorf("no flag bound to %q", key)
		}
		return v.BindPFlag(key, flag)
	}
}

// Load reads configuration from file and environment. An explicit path
// skips the search path lookup.
func Load(path string, opts ...Option) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("jellyfin-rpc")
		for _, dir := range SearchPaths() {
			v.AddConfigPath(dir)
		}
	}

	v.SetDefault("source", SourceJellyfin)
	v.SetDefault("update_time", 1.0)
	v.SetDefault("tick_sensitivity", 2.0)
	v.SetDefault("idle_polls", 4)
	v.SetDefault("client_id", DefaultClientID)
	v.SetDefault("imageproxy_url", DefaultImageProxyURL)
	v.SetDefault("mpris_player", DefaultMPRISPlayer)
	v.SetDefault("mpd_address", DefaultMPDAddress)

	v.SetEnvPrefix("JELLYFIN_RPC")
	v.AutomaticEnv()

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, &Error{Path: path, Reason: "invalid override", Err: err}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
			return nil, &Error{Path: path, Reason: "no valid configuration file found"}
		case errors.Is(err, fs.ErrPermission):
			return nil, &Error{Path: v.ConfigFileUsed(), Reason: "unreadable configuration", Err: err}
		default:
			return nil, &Error{Path: v.ConfigFileUsed(), Reason: "invalid toml", Err: err}
		}
	}

	cfg := &Config{
		Source:              strings.ToLower(strings.TrimSpace(v.GetString("source"))),
		URL:                 strings.TrimRight(v.GetString("url"), "/"),
		PublicURL:           strings.TrimRight(v.GetString("url_public"), "/"),
		APIKey:              v.GetString("api_key"),
		UpdateTime:          v.GetFloat64("update_time"),
		TickSensitivity:     v.GetFloat64("tick_sensitivity"),
		IdlePolls:           v.GetInt("idle_polls"),
		ClientID:            v.GetString("client_id"),
		MusicBrainzAlbumArt: v.GetBool("musicbrainz_album_art"),
		ImageProxyEnabled:   v.GetBool("imageproxy_enabled"),
		ImageProxyURL:       strings.TrimRight(v.GetString("imageproxy_url"), "/"),
		LastFMAPIKey:        v.GetString("lastfm_api_key"),
		MPRISPlayer:         v.GetString("mpris_player"),
		MPDAddress:          v.GetString("mpd_address"),
		MPDPassword:         v.GetString("mpd_password"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, &Error{Path: v.ConfigFileUsed(), Reason: "invalid configuration", Err: err}
	}
	return cfg, nil
}

// Validate checks that the settings are usable by the daemon.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceJellyfin:
		if c.APIKey == "" {
			return errors.New("api_key is required for the jellyfin source")
		}
		if c.URL == "" {
			return errors.New("url is required")
		}
	case SourceMPRIS:
		if c.MPRISPlayer == "" {
			return errors.New("mpris_player must not be empty")
		}
	case SourceMPD:
		if c.MPDAddress == "" {
			return errors.New("mpd_address must not be empty")
		}
	default:
		return fmt.Errorf("unknown source %q (want %q, %q or %q)", c.Source, SourceJellyfin, SourceMPRIS, SourceMPD)
	}

	for key, raw := range map[string]string{"url": c.URL, "url_public": c.PublicURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s %q is not an absolute URL", key, raw)
		}
	}

	if c.UpdateTime <= 0 {
		return fmt.Errorf("update_time must be positive, got %v", c.UpdateTime)
	}
	if c.TickSensitivity < 0 {
		return fmt.Errorf("tick_sensitivity must not be negative, got %v", c.TickSensitivity)
	}
	if c.IdlePolls < 1 {
		return fmt.Errorf("idle_polls must be at least 1, got %d", c.IdlePolls)
	}
	if c.ClientID == "" {
		return errors.New("client_id must not be empty")
	}
	return nil
}

// PollInterval returns update_time as a duration.
func (c *Config) PollInterval() time.Duration {
	return secondsToDuration(c.UpdateTime)
}

// Slack returns tick_sensitivity as a duration. The seek threshold used by
// the daemon is PollInterval() + Slack().
func (c *Config) Slack() time.Duration {
	return secondsToDuration(c.TickSensitivity)
}

// PublicEndpoint returns the URL used in links shown to Discord viewers.
func (c *Config) PublicEndpoint() string {
	if c.PublicURL != "" {
		return c.PublicURL
	}
	return c.URL
}

// UseImageProxy reports whether artwork should be rewritten through the
// image proxy.
func (c *Config) UseImageProxy() bool {
	return c.ImageProxyEnabled && strings.TrimSpace(c.ImageProxyURL) != ""
}

// Encode writes the configuration as TOML with the API key redacted.
func (c *Config) Encode(w io.Writer) error {
	redacted := *c
	if redacted.APIKey != "" {
		redacted.APIKey = "<redacted>"
	}
	if redacted.LastFMAPIKey != "" {
		redacted.LastFMAPIKey = "<redacted>"
	}
	if redacted.MPDPassword != "" {
		redacted.MPDPassword = "<redacted>"
	}
	enc := toml.NewEncoder(w)
	return enc.Encode(redacted)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
