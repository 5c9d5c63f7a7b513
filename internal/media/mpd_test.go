package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog"
)

type fakeMPD struct {
	status mpd.Attrs
	song   mpd.Attrs
	err    error // returned by Status until cleared
	closed bool
}

func (f *fakeMPD) Status() (mpd.Attrs, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.status, nil
}

func (f *fakeMPD) CurrentSong() (mpd.Attrs, error) {
	return f.song, nil
}

func (f *fakeMPD) Close() error {
	f.closed = true
	return nil
}

func newTestMPD(conns ...*fakeMPD) (*MPDSource, *int) {
	dials := 0
	s := NewMPDSource("", "", zerolog.Nop())
	s.dial = func() (mpdClient, error) {
		if dials >= len(conns) {
			dials++
			return nil, errors.New("connection refused")
		}
		c := conns[dials]
		dials++
		return c, nil
	}
	return s, &dials
}

func playingMPD() *fakeMPD {
	return &fakeMPD{
		status: mpd.Attrs{"state": "play", "elapsed": "42.5", "duration": "215.2"},
		song: mpd.Attrs{
			"file":                "Queen/A Night at the Opera/11 Bohemian Rhapsody.flac",
			"Title":               "Bohemian Rhapsody",
			"Artist":              "Queen",
			"Album":               "A Night at the Opera",
			"MUSICBRAINZ_ALBUMID": "mbid-opera",
		},
	}
}

func TestMPDCurrent_Playing(t *testing.T) {
	s, _ := newTestMPD(playingMPD())

	snap, err := s.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if snap == nil {
		t.Fatal("expected a snapshot")
	}
	if snap.Title != "Bohemian Rhapsody" || snap.Artist != "Queen" || snap.Album != "A Night at the Opera" {
		t.Errorf("unexpected metadata: %+v", snap)
	}
	if snap.Position != 42500*time.Millisecond {
		t.Errorf("Position = %v", snap.Position)
	}
	if snap.Duration != 215200*time.Millisecond {
		t.Errorf("Duration = %v", snap.Duration)
	}
	if snap.Paused {
		t.Error("expected playing")
	}
	if snap.ProviderID("MusicBrainzAlbum") != "mbid-opera" {
		t.Errorf("ProviderIDs = %v", snap.ProviderIDs)
	}
	if snap.ArtKey() != tupleKey("A Night at the Opera", "Queen") {
		t.Errorf("ArtKey() = %q", snap.ArtKey())
	}
}

func TestMPDCurrent_TitleFallsBackToFile(t *testing.T) {
	conn := playingMPD()
	delete(conn.song, "Title")
	s, _ := newTestMPD(conn)

	snap, err := s.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if snap.Title != "11 Bohemian Rhapsody" {
		t.Errorf("Title = %q", snap.Title)
	}
}

func TestMPDCurrent_NothingPlaying(t *testing.T) {
	tests := []struct {
		name   string
		status mpd.Attrs
		song   mpd.Attrs
	}{
		{"stopped", mpd.Attrs{"state": "stop"}, mpd.Attrs{}},
		{"empty queue", mpd.Attrs{"state": "play"}, mpd.Attrs{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestMPD(&fakeMPD{status: tt.status, song: tt.song})
			snap, err := s.Current(context.Background())
			if err != nil || snap != nil {
				t.Errorf("Current() = %+v, %v; want nil, nil", snap, err)
			}
		})
	}
}

func TestMPDCurrent_Paused(t *testing.T) {
	conn := playingMPD()
	conn.status["state"] = "pause"
	s, _ := newTestMPD(conn)

	snap, err := s.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if !snap.Paused {
		t.Error("expected paused")
	}
}

func TestMPDCurrent_ReconnectsAfterTimeout(t *testing.T) {
	stale := playingMPD()
	stale.err = errors.New("broken pipe")
	s, dials := newTestMPD(stale, playingMPD())

	snap, err := s.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if snap == nil || *dials != 2 {
		t.Errorf("snap=%v dials=%d, want a snapshot after one redial", snap, *dials)
	}
	if !stale.closed {
		t.Error("stale connection should be closed")
	}
}

func TestMPDCurrent_Unreachable(t *testing.T) {
	s, _ := newTestMPD()

	_, err := s.Current(context.Background())
	var te *TransportError
	if !errors.As(err, &te) || te.Source != "mpd" {
		t.Errorf("expected mpd TransportError, got %v", err)
	}
}

func TestSecondsAttr(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"":     0,
		"junk": 0,
		"-1":   0,
		"1.5":  1500 * time.Millisecond,
		"215":  215 * time.Second,
	} {
		if got := secondsAttr(in); got != want {
			t.Errorf("secondsAttr(%q) = %v, want %v", in, got, want)
		}
	}
}
