// Package kiosk is the headless shell: it drives the session controller and
// the playback state machine directly from normalized commands, for kiosks
// that run without a browser UI. A camera daemon drops JPEGs into a spool
// directory; the shell picks up the newest one on each capture press.
package kiosk

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/DevinMcDonald/GallupStopMotion/internal/player"
	"github.com/DevinMcDonald/GallupStopMotion/internal/session"
	"github.com/DevinMcDonald/GallupStopMotion/internal/token"
)

// FrameSource hands the shell image bytes for one capture, plus a local
// reference for display while the upload is pending. Pixel acquisition
// itself lives outside this repository.
type FrameSource interface {
	NextFrame(ctx context.Context) (image []byte, localRef string, err error)
}

// Shell routes commands to the controller and the player.
type Shell struct {
	ctrl   *session.Controller
	player *player.Player
	frames FrameSource
	logger *log.Logger
}

// NewShell wires a shell over an existing controller and player.
func NewShell(ctrl *session.Controller, p *player.Player, frames FrameSource, logger *log.Logger) *Shell {
	return &Shell{ctrl: ctrl, player: p, frames: frames, logger: logger}
}

// Handle executes one command. It satisfies forwarder.Sink, so the serial
// and GPIO paths feed the same controller surface the UI would.
func (s *Shell) Handle(ctx context.Context, cmd token.Command) error {
	switch cmd {
	case token.Capture:
		image, localRef, err := s.frames.NextFrame(ctx)
		if err != nil {
			return fmt.Errorf("no frame available to capture: %w", err)
		}
		s.ctrl.Capture(ctx, image, localRef)
		return nil
	case token.Undo:
		s.ctrl.UndoLast(ctx)
		return nil
	case token.Reset:
		s.ctrl.ResetAll(ctx)
		return nil
	case token.Play, token.Save:
		s.player.RequestBuild(ctx)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// SpoolSource reads the newest JPEG from a spool directory.
type SpoolSource struct {
	Dir string
}

// NextFrame returns the bytes of the newest *.jpg in the spool directory.
// Newest is by filename, which camera daemons timestamp.
func (s SpoolSource) NextFrame(ctx context.Context) ([]byte, string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read spool dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".jpg") || strings.HasSuffix(e.Name(), ".jpeg") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, "", fmt.Errorf("spool dir %s holds no frames", s.Dir)
	}
	sort.Strings(names)

	path := filepath.Join(s.Dir, names[len(names)-1])
	image, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read spooled frame: %w", err)
	}
	return image, path, nil
}

// LogSurface is a playback surface for headless runs: it announces the
// resolved locator and leaves presentation to whatever is watching the logs.
type LogSurface struct {
	Logger *log.Logger
}

func (s LogSurface) Play(url string) {
	s.Logger.Printf("PLAY %s", url)
}

func (s LogSurface) Stop() {
	s.Logger.Printf("STOP")
}
