// Package player drives the idle → building → playing → idle lifecycle of
// the kiosk's video artifact.
package player

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// State names one phase of the build/playback lifecycle.
type State string

const (
	StateIdle     State = "idle"
	StateBuilding State = "building"
	StatePlaying  State = "playing"
)

// Builder requests video assembly from the backend.
type Builder interface {
	BuildVideo(ctx context.Context, session string) (string, error)
}

// Resolver turns a backend-relative video reference into an absolute URL.
// client.Client satisfies it.
type Resolver interface {
	Resolve(ref string) string
}

// Epoch reports the current session generation so a build result that
// arrives after a reset can be recognized as stale. session.Controller
// satisfies it.
type Epoch interface {
	Generation() uint64
	SessionID() string
}

// Surface is the presentation layer that actually shows the video. Play is
// handed a fully-qualified, cache-busted locator; the surface reports back
// through the player's Playback* methods.
type Surface interface {
	Play(url string)
	Stop()
}

// Player serializes build requests and tracks the playback lifecycle.
type Player struct {
	mu      sync.Mutex
	state   State
	blocked bool // autoplay-blocked: loaded but awaiting a user gesture
	lastErr error

	backend  Builder
	resolver Resolver
	epoch    Epoch
	surface  Surface
	logger   *log.Logger

	errs chan error

	// now is swappable for deterministic cache-bust values in tests.
	now func() time.Time
}

// New creates an idle player.
func New(backend Builder, resolver Resolver, epoch Epoch, surface Surface, logger *log.Logger) *Player {
	return &Player{
		state:    StateIdle,
		backend:  backend,
		resolver: resolver,
		epoch:    epoch,
		surface:  surface,
		logger:   logger,
		errs:     make(chan error, 16),
		now:      time.Now,
	}
}

// State returns the current lifecycle phase.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Blocked reports whether playback is loaded but waiting on a user gesture.
func (p *Player) Blocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.blocked
}

// LastError returns the most recent build or playback failure, cleared by
// the next accepted build request.
func (p *Player) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Errors surfaces build and playback failures to the operator.
func (p *Player) Errors() <-chan error {
	return p.errs
}

// RequestBuild asks the backend to assemble the current session's frames and,
// on success, starts playback. A request while a build is already in flight
// is logically redundant and silently ignored; only one build call ever goes
// out per request window. A request during playback stops the current video
// and rebuilds.
func (p *Player) RequestBuild(ctx context.Context) {
	p.mu.Lock()
	if p.state == StateBuilding {
		p.mu.Unlock()
		p.logger.Printf("build already in flight; ignoring redundant request")
		return
	}
	if p.state == StatePlaying {
		p.surface.Stop()
	}
	p.state = StateBuilding
	p.blocked = false
	p.lastErr = nil
	gen := p.epoch.Generation()
	sess := p.epoch.SessionID()
	p.mu.Unlock()

	// The build must outlive the dispatch that requested it; the caller's
	// context may be cancelled as soon as its handler returns.
	opCtx := context.WithoutCancel(ctx)
	go func() {
		ref, err := p.backend.BuildVideo(opCtx, sess)
		p.finishBuild(gen, ref, err)
	}()
}

func (p *Player) finishBuild(gen uint64, ref string, err error) {
	p.mu.Lock()
	if p.epoch.Generation() != gen {
		// The session was reset while the build ran; whatever came back
		// belongs to dead frames.
		p.state = StateIdle
		p.mu.Unlock()
		p.logger.Printf("discarding build result from a superseded session")
		return
	}
	if err != nil {
		p.state = StateIdle
		p.lastErr = err
		p.mu.Unlock()
		p.report(err)
		return
	}

	url := p.cacheBust(p.resolver.Resolve(ref))
	p.state = StatePlaying
	p.mu.Unlock()

	p.surface.Play(url)
}

// cacheBust appends a per-build query parameter so a previously cached
// artifact under the same name is never what plays.
func (p *Player) cacheBust(url string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%st=%d", url, sep, p.now().UnixMilli())
}

// PlaybackEnded moves back to idle at the natural end of the video, on an
// explicit stop, or when the fullscreen context is lost.
func (p *Player) PlaybackEnded() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePlaying {
		return
	}
	p.state = StateIdle
	p.blocked = false
}

// PlaybackError abandons a dead video element rather than leaving the kiosk
// stuck on it.
func (p *Player) PlaybackError(err error) {
	p.mu.Lock()
	if p.state != StatePlaying {
		p.mu.Unlock()
		return
	}
	p.state = StateIdle
	p.blocked = false
	p.lastErr = err
	p.mu.Unlock()
	p.report(err)
}

// AutoplayBlocked marks playback as loaded but not advancing, pending a user
// gesture. It is not an error and does not leave the playing state.
func (p *Player) AutoplayBlocked() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePlaying {
		return
	}
	p.blocked = true
}

// GestureReceived resumes playback after an autoplay block.
func (p *Player) GestureReceived() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePlaying {
		return
	}
	p.blocked = false
}

func (p *Player) report(err error) {
	p.logger.Printf("playback pipeline error: %v", err)
	select {
	case p.errs <- err:
	default:
	}
}
