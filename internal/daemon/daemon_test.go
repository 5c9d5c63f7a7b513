package daemon

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/jellyfin-rpc/internal/discord"
	"github.com/jfmyers9/jellyfin-rpc/internal/media"
)

func newTestDaemon(src *fakeSource, logger zerolog.Logger) (*Daemon, *fakeSink) {
	sink := &fakeSink{}
	d := New(Config{
		PollInterval: 10 * time.Millisecond,
		Slack:        2 * time.Second,
		IdlePolls:    4,
	}, src, &fakeResolver{}, sink, logger)
	return d, sink
}

func TestPoller_ReconnectsAfterConnectionLost(t *testing.T) {
	src := &fakeSource{script: []*media.Snapshot{track("a", "album-1", 10*time.Second)}}
	d, sink := newTestDaemon(src, zerolog.Nop())
	sink.pushErr = discord.ErrConnectionLost

	d.poller.cycle(context.Background())
	if sink.connects != 1 {
		t.Fatalf("connects = %d, want 1 after a lost connection", sink.connects)
	}
	if len(sink.pushes) != 0 {
		t.Fatalf("the failed update must not be retried in the same cycle")
	}

	d.poller.cycle(context.Background())
	if len(sink.pushes) != 1 {
		t.Errorf("pushes = %d, want 1 on the next cycle", len(sink.pushes))
	}
}

func TestPoller_FailedReconnectKeepsRunning(t *testing.T) {
	src := &fakeSource{script: []*media.Snapshot{track("a", "album-1", 10*time.Second)}}
	d, sink := newTestDaemon(src, zerolog.Nop())
	sink.pushErr = discord.ErrConnectionLost
	sink.connectErr = discord.ErrUnavailable

	for i := 0; i < 3; i++ {
		d.poller.cycle(context.Background())
	}
	if src.calls != 3 {
		t.Errorf("source polled %d times, want 3", src.calls)
	}
}

func TestPoller_LogsSourceOutageOnce(t *testing.T) {
	te := &media.TransportError{Source: "jellyfin", Err: errors.New("connection refused")}
	src := &fakeSource{
		script: []*media.Snapshot{nil, nil, nil, nil, track("a", "album-1", 0)},
		errs:   []error{te, te, te, te},
	}
	var buf bytes.Buffer
	d, _ := newTestDaemon(src, zerolog.New(&buf))

	for i := 0; i < 5; i++ {
		d.poller.cycle(context.Background())
	}

	out := buf.String()
	if n := strings.Count(out, "Playback source unreachable"); n != 1 {
		t.Errorf("outage logged %d times, want 1", n)
	}
	if n := strings.Count(out, "Playback source reachable again"); n != 1 {
		t.Errorf("recovery logged %d times, want 1", n)
	}
}

func TestPoller_RunPollsImmediately(t *testing.T) {
	src := &fakeSource{}
	d, _ := newTestDaemon(src, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.poller.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if src.calls != 1 {
		t.Errorf("source polled %d times, want 1", src.calls)
	}
}

func TestDaemon_ConnectRetriesUntilCancelled(t *testing.T) {
	src := &fakeSource{}
	d, sink := newTestDaemon(src, zerolog.Nop())
	sink.connectErr = discord.ErrUnavailable

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	if err := d.run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run() = %v, want deadline exceeded", err)
	}
	if sink.connects < 2 {
		t.Errorf("connects = %d, want retries", sink.connects)
	}
	if src.calls != 0 {
		t.Errorf("source polled %d times before Discord connected", src.calls)
	}
}

func TestDaemon_ConnectWaitsForTicker(t *testing.T) {
	src := &fakeSource{}
	d, sink := newTestDaemon(src, zerolog.Nop())
	sink.connectErr = discord.ErrUnavailable

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.connect(ctx) }()

	time.Sleep(25 * time.Millisecond)
	cancel()
	<-done

	// connect is retried on the ticker, never spinning.
	if sink.connects > 10 {
		t.Errorf("connects = %d in 25ms at a 10ms interval", sink.connects)
	}
}

func TestDaemon_Shutdown(t *testing.T) {
	src := &fakeSource{}
	d, sink := newTestDaemon(src, zerolog.Nop())

	if err := d.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if sink.clears != 1 {
		t.Errorf("clears = %d, want 1", sink.clears)
	}
	if !sink.closed || !src.closed {
		t.Errorf("sink closed=%v source closed=%v, want both", sink.closed, src.closed)
	}
}
