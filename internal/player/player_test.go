package player

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBuilder struct {
	mu    sync.Mutex
	calls int
	ref   string
	err   error
	gate  chan struct{} // when non-nil, BuildVideo blocks until it closes
}

func (b *fakeBuilder) BuildVideo(ctx context.Context, session string) (string, error) {
	b.mu.Lock()
	b.calls++
	gate := b.gate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return b.ref, b.err
}

func (b *fakeBuilder) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type fakeResolver struct{}

func (fakeResolver) Resolve(ref string) string { return "http://kiosk.local:8000" + ref }

type fakeEpoch struct {
	mu  sync.Mutex
	gen uint64
}

func (e *fakeEpoch) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen
}

func (e *fakeEpoch) SessionID() string { return "sess" }

func (e *fakeEpoch) bump() {
	e.mu.Lock()
	e.gen++
	e.mu.Unlock()
}

type fakeSurface struct {
	mu     sync.Mutex
	played []string
	stops  int
}

func (s *fakeSurface) Play(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, url)
}

func (s *fakeSurface) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *fakeSurface) playedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.played...)
}

func newTestPlayer(b *fakeBuilder, e *fakeEpoch, s *fakeSurface) *Player {
	return New(b, fakeResolver{}, e, s, log.New(os.Stderr, "test ", log.LstdFlags))
}

func TestBuildSuccessPlaysCacheBustedURL(t *testing.T) {
	builder := &fakeBuilder{ref: "/videos/sess/latest.mp4"}
	surface := &fakeSurface{}
	p := newTestPlayer(builder, &fakeEpoch{}, surface)

	p.RequestBuild(context.Background())

	assert.Eventually(t, func() bool { return p.State() == StatePlaying }, time.Second, 5*time.Millisecond)

	urls := surface.playedURLs()
	require.Len(t, urls, 1)
	assert.True(t, strings.HasPrefix(urls[0], "http://kiosk.local:8000/videos/sess/latest.mp4?t="), "got %q", urls[0])
}

func TestSecondBuildWhileBuildingIsIgnored(t *testing.T) {
	builder := &fakeBuilder{ref: "/videos/sess/latest.mp4", gate: make(chan struct{})}
	surface := &fakeSurface{}
	p := newTestPlayer(builder, &fakeEpoch{}, surface)
	ctx := context.Background()

	p.RequestBuild(ctx)
	assert.Equal(t, StateBuilding, p.State())
	p.RequestBuild(ctx)
	p.RequestBuild(ctx)

	close(builder.gate)
	assert.Eventually(t, func() bool { return p.State() == StatePlaying }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, builder.callCount(), "only one network build call goes out")
}

func TestBuildFailureReturnsToIdleAndUnlocks(t *testing.T) {
	builder := &fakeBuilder{err: errors.New("backend returned status 500")}
	surface := &fakeSurface{}
	p := newTestPlayer(builder, &fakeEpoch{}, surface)
	ctx := context.Background()

	p.RequestBuild(ctx)
	assert.Eventually(t, func() bool { return p.State() == StateIdle }, time.Second, 5*time.Millisecond)
	assert.Error(t, p.LastError())
	assert.Empty(t, surface.playedURLs(), "no partial playback attempted")

	// Not permanently locked out: a later request is accepted.
	builder.mu.Lock()
	builder.err = nil
	builder.ref = "/videos/sess/latest.mp4"
	builder.mu.Unlock()

	p.RequestBuild(ctx)
	assert.Eventually(t, func() bool { return p.State() == StatePlaying }, time.Second, 5*time.Millisecond)
	assert.NoError(t, p.LastError())
	assert.Equal(t, 2, builder.callCount())
}

func TestBuildOutlivesCallerContext(t *testing.T) {
	builder := &fakeBuilder{ref: "/videos/sess/latest.mp4", gate: make(chan struct{})}
	surface := &fakeSurface{}
	p := newTestPlayer(builder, &fakeEpoch{}, surface)

	// The requesting handler's context is cancelled before the build
	// finishes; the build must still complete and reach playback.
	ctx, cancel := context.WithCancel(context.Background())
	p.RequestBuild(ctx)
	cancel()
	close(builder.gate)

	assert.Eventually(t, func() bool { return p.State() == StatePlaying }, time.Second, 5*time.Millisecond)
	assert.NoError(t, p.LastError())
}

func TestResetDuringBuildDiscardsResult(t *testing.T) {
	builder := &fakeBuilder{ref: "/videos/sess/latest.mp4", gate: make(chan struct{})}
	surface := &fakeSurface{}
	epoch := &fakeEpoch{}
	p := newTestPlayer(builder, epoch, surface)

	p.RequestBuild(context.Background())
	epoch.bump() // session reset while the build is in flight
	close(builder.gate)

	assert.Eventually(t, func() bool { return p.State() == StateIdle }, time.Second, 5*time.Millisecond)
	assert.Empty(t, surface.playedURLs(), "stale artifact never reaches the surface")
}

func TestPlaybackLifecycle(t *testing.T) {
	builder := &fakeBuilder{ref: "/videos/sess/latest.mp4"}
	surface := &fakeSurface{}
	p := newTestPlayer(builder, &fakeEpoch{}, surface)

	p.RequestBuild(context.Background())
	assert.Eventually(t, func() bool { return p.State() == StatePlaying }, time.Second, 5*time.Millisecond)

	// Autoplay block is a substate of playing, not an error.
	p.AutoplayBlocked()
	assert.Equal(t, StatePlaying, p.State())
	assert.True(t, p.Blocked())
	p.GestureReceived()
	assert.False(t, p.Blocked())

	p.PlaybackEnded()
	assert.Equal(t, StateIdle, p.State())
}

func TestPlaybackErrorLeavesPlaying(t *testing.T) {
	builder := &fakeBuilder{ref: "/videos/sess/latest.mp4"}
	surface := &fakeSurface{}
	p := newTestPlayer(builder, &fakeEpoch{}, surface)

	p.RequestBuild(context.Background())
	assert.Eventually(t, func() bool { return p.State() == StatePlaying }, time.Second, 5*time.Millisecond)

	p.PlaybackError(errors.New("artifact unreachable"))
	assert.Equal(t, StateIdle, p.State())
	assert.Error(t, p.LastError())
}

func TestRebuildDuringPlaybackStopsSurface(t *testing.T) {
	builder := &fakeBuilder{ref: "/videos/sess/latest.mp4"}
	surface := &fakeSurface{}
	p := newTestPlayer(builder, &fakeEpoch{}, surface)
	ctx := context.Background()

	p.RequestBuild(ctx)
	assert.Eventually(t, func() bool { return p.State() == StatePlaying }, time.Second, 5*time.Millisecond)

	p.RequestBuild(ctx)
	assert.Eventually(t, func() bool { return len(surface.playedURLs()) == 2 }, time.Second, 5*time.Millisecond)

	surface.mu.Lock()
	stops := surface.stops
	surface.mu.Unlock()
	assert.Equal(t, 1, stops)
}

func TestIdleEventsAreIgnored(t *testing.T) {
	p := newTestPlayer(&fakeBuilder{}, &fakeEpoch{}, &fakeSurface{})

	p.PlaybackEnded()
	p.PlaybackError(errors.New("ignored"))
	p.AutoplayBlocked()

	assert.Equal(t, StateIdle, p.State())
	assert.False(t, p.Blocked())
	assert.NoError(t, p.LastError())
}
