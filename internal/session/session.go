// Package session owns the authoritative ordering of frames within one kiosk
// session. Both the on-screen controls and the hardware button path converge
// on a Controller, so behavior is identical regardless of input source.
package session

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/DevinMcDonald/GallupStopMotion/internal/client"
)

// FrameState tags a frame's reconciliation status against the backend.
type FrameState string

const (
	// FramePending is the optimistic local entry shown while the upload is
	// still in flight.
	FramePending FrameState = "pending"
	// FrameConfirmed means the backend assigned the frame an id.
	FrameConfirmed FrameState = "confirmed"
	// FrameFailed keeps the entry visible after a failed upload; a silent
	// rollback would make the kiosk look like it ate the capture.
	FrameFailed FrameState = "failed"
)

// Frame is one entry in the ordered sequence, most recent first.
type Frame struct {
	slot     uint64
	State    FrameState
	LocalRef string          // local preview reference, set for the frame's whole life
	Ref      client.FrameRef // backend record, valid once Confirmed
	Err      error           // upload error, set when Failed
}

// Backend is the remote frame store as the controller sees it.
type Backend interface {
	UploadFrame(ctx context.Context, session string, image []byte) (client.FrameRef, error)
	DeleteLast(ctx context.Context, session string) error
	DeleteAll(ctx context.Context, session string) error
}

// Controller sequences frame mutations for the current session. It is safe
// for concurrent callers; the UI and the serial forwarder both invoke it.
type Controller struct {
	mu         sync.Mutex
	backend    Backend
	logger     *log.Logger
	sessionID  string
	generation uint64
	nextSlot   uint64
	frames     []Frame // index 0 is the newest frame

	errs chan error
}

// NewController creates a controller with a fresh session identity.
func NewController(backend Backend, logger *log.Logger) *Controller {
	return &Controller{
		backend:   backend,
		logger:    logger,
		sessionID: uuid.NewString(),
		errs:      make(chan error, 16),
	}
}

// SessionID returns the current session identity.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Generation returns the session epoch. It increments on every reset; any
// in-flight work captured under an older generation must discard its result.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Frames returns a snapshot of the ordered sequence, newest first.
func (c *Controller) Frames() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

// Errors is the single surface through which every soft failure is reported.
func (c *Controller) Errors() <-chan error {
	return c.errs
}

// StartFresh abandons the current session: the local sequence is cleared, a
// new session identity is minted, and the backend is asked, best-effort, to
// drop the old session's frames. Calling it twice in a row with nothing
// captured in between is a no-op from the user's perspective.
func (c *Controller) StartFresh(ctx context.Context) {
	c.mu.Lock()
	prev := c.sessionID
	c.generation++
	c.sessionID = uuid.NewString()
	c.frames = nil
	c.mu.Unlock()

	c.logger.Printf("session reset: %s superseded by new session", prev)
	// The cleanup must outlive the press or request that triggered it; the
	// caller's context may be cancelled the moment its dispatch returns.
	opCtx := context.WithoutCancel(ctx)
	go func() {
		if err := c.backend.DeleteAll(opCtx, prev); err != nil {
			c.report(err)
		}
	}()
}

// ResetAll is StartFresh triggered mid-session by explicit user or hardware
// action.
func (c *Controller) ResetAll(ctx context.Context) {
	c.StartFresh(ctx)
}

// Capture appends an optimistic pending frame at the front of the sequence
// and returns immediately; the upload completes independently so rapid
// repeated presses each get dispatched rather than queueing behind a spinner.
// On success the pending entry is replaced in place by the confirmed record;
// on failure it flips to Failed and stays visible.
func (c *Controller) Capture(ctx context.Context, image []byte, localRef string) {
	c.mu.Lock()
	c.nextSlot++
	slot := c.nextSlot
	gen := c.generation
	sess := c.sessionID
	c.frames = append([]Frame{{slot: slot, State: FramePending, LocalRef: localRef}}, c.frames...)
	c.mu.Unlock()

	// The upload's lifetime is its own; a capture must not fail because the
	// dispatch that triggered it (a button press handler, say) already
	// returned and cancelled its context. The client's own timeout bounds it.
	opCtx := context.WithoutCancel(ctx)
	go func() {
		ref, err := c.backend.UploadFrame(opCtx, sess, image)
		c.resolveUpload(slot, gen, ref, err)
	}()
}

// resolveUpload reconciles an upload result with the optimistic entry. The
// entry is located by slot identity, not arrival order, because uploads may
// complete out of capture order.
func (c *Controller) resolveUpload(slot, gen uint64, ref client.FrameRef, err error) {
	c.mu.Lock()
	if c.generation != gen {
		// The session was reset while the upload was in flight; the result
		// belongs to a dead session.
		c.mu.Unlock()
		return
	}
	idx := -1
	for i := range c.frames {
		if c.frames[i].slot == slot {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Undone before the upload landed; nothing to reconcile.
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.frames[idx].State = FrameFailed
		c.frames[idx].Err = err
	} else {
		c.frames[idx].State = FrameConfirmed
		c.frames[idx].Ref = ref
	}
	c.mu.Unlock()

	if err != nil {
		c.report(err)
	}
}

// UndoLast removes the newest frame locally and, when that frame is known to
// exist on the backend, asks the backend to drop its most recent frame.
// Undoing a Pending or Failed frame skips the backend call: the upload may
// never have landed, and deleting the backend's actual newest frame would
// remove someone else's capture. A late confirmation for an undone pending
// frame is discarded by slot identity.
func (c *Controller) UndoLast(ctx context.Context) {
	c.mu.Lock()
	if len(c.frames) == 0 {
		c.mu.Unlock()
		return
	}
	head := c.frames[0]
	c.frames = c.frames[1:]
	sess := c.sessionID
	c.mu.Unlock()

	if head.State != FrameConfirmed {
		c.logger.Printf("undo of %s frame: local only, backend untouched", head.State)
		return
	}
	opCtx := context.WithoutCancel(ctx)
	go func() {
		if err := c.backend.DeleteLast(opCtx, sess); err != nil {
			c.report(err)
		}
	}()
}

// report surfaces a soft failure without ever blocking an operation on a
// slow or absent consumer.
func (c *Controller) report(err error) {
	c.logger.Printf("backend operation failed: %v", err)
	select {
	case c.errs <- err:
	default:
	}
}
