package lastfm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
)

const believeXML = `<?xml version="1.0" encoding="utf-8"?>
<lfm status="ok">
	<album>
		<name>Believe</name>
		<artist>Cher</artist>
		<mbid>63b3a8ca-26f2-4e2b-b867-647a6ec2bebd</mbid>
		<url>https://www.last.fm/music/Cher/Believe</url>
		<image size="small">https://img.example.com/34s/believe.png</image>
		<image size="extralarge">https://img.example.com/300x300/believe.png</image>
		<image size="mega">https://img.example.com/mega/believe.png</image>
		<image size="">https://img.example.com/unsized/believe.png</image>
	</album>
</lfm>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{APIKey: "key", BaseURL: srv.URL + "/2.0/", MaxRetries: 2})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

// TestAlbumService_GetInfo tests the GetInfo method.
func TestAlbumService_GetInfo(t *testing.T) {
	var query atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		query.Store(r.URL.Query())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(believeXML))
	})

	album, err := c.Album().GetInfo(context.Background(), "Cher", "Believe")
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}

	if album.Name != "Believe" || album.Artist != "Cher" {
		t.Errorf("album = %+v", album)
	}
	if len(album.Images) != 4 {
		t.Errorf("images = %d, want 4", len(album.Images))
	}
	if got := album.Cover(); got != "https://img.example.com/mega/believe.png" {
		t.Errorf("Cover() = %q, want the mega image", got)
	}

	q := query.Load().(url.Values)
	for key, want := range map[string]string{
		"method":  "album.getInfo",
		"api_key": "key",
		"artist":  "Cher",
		"album":   "Believe",
	} {
		if got := q.Get(key); got != want {
			t.Errorf("query %s = %q, want %q", key, got, want)
		}
	}
}

func TestAlbumService_GetInfo_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<lfm status="failed">
	<error code="6">Album not found</error>
</lfm>`))
	})

	_, err := c.Album().GetInfo(context.Background(), "Nobody", "Nothing")
	var lfmErr *Error
	if !errors.As(err, &lfmErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if lfmErr.Code != ErrCodeInvalidParameters {
		t.Errorf("code = %d, want %d", lfmErr.Code, ErrCodeInvalidParameters)
	}
	if !strings.Contains(err.Error(), "error 6") {
		t.Errorf("error %q should contain the code", err)
	}
}

func TestAlbumService_GetInfo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(believeXML))
	})

	if _, err := c.Album().GetInfo(context.Background(), "Cher", "Believe"); err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestAlbumService_GetInfo_RequiresNames(t *testing.T) {
	c, err := NewClient(Config{APIKey: "key"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Album().GetInfo(context.Background(), "", "Believe"); err == nil {
		t.Error("expected error for missing artist")
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestAlbumCover_NoImages(t *testing.T) {
	a := &Album{Images: []Image{{Size: ImageLarge, URL: ""}}}
	if got := a.Cover(); got != "" {
		t.Errorf("Cover() = %q, want empty", got)
	}
}

func TestError_IsAndTemporary(t *testing.T) {
	err := &Error{Code: ErrCodeServiceOffline, Message: "offline"}
	if !errors.Is(err, &Error{Code: ErrCodeServiceOffline}) {
		t.Error("errors.Is should match on code")
	}
	if errors.Is(err, &Error{Code: ErrCodeInvalidAPIKey}) {
		t.Error("errors.Is should not match a different code")
	}
	if !err.Temporary() {
		t.Error("service offline should be temporary")
	}
	if !(&Error{Code: ErrCodeOperationFailed}).Temporary() {
		t.Error("operation failed should be temporary")
	}
	if (&Error{Code: ErrCodeInvalidParameters}).Temporary() {
		t.Error("invalid parameters should not be temporary")
	}
}
