package forwarder

import (
	"context"
	"fmt"
	"log"

	"github.com/DevinMcDonald/GallupStopMotion/internal/client"
	"github.com/DevinMcDonald/GallupStopMotion/internal/token"
)

// Buttons relays commands to the backend as button events, so the browser
// shell reacts exactly as it would to the matching on-screen control. This is
// the default sink: the UI owns the webcam and the playback surface, so the
// forwarder never needs either.
type Buttons interface {
	PostButton(ctx context.Context, eventType string) error
}

// BackendSink translates each command into one HTTP call. client.Client
// satisfies Buttons.
type BackendSink struct {
	buttons Buttons
	logger  *log.Logger
}

// NewBackendSink creates a sink relaying through the given client.
func NewBackendSink(c *client.Client, logger *log.Logger) *BackendSink {
	return &BackendSink{buttons: c, logger: logger}
}

// Handle relays one command. The two build-and-play variants collapse to a
// single play event; everything else passes through under its own name.
func (s *BackendSink) Handle(ctx context.Context, cmd token.Command) error {
	if !cmd.Valid() {
		return fmt.Errorf("refusing to relay unknown command %q", cmd)
	}
	if cmd == token.Save {
		cmd = token.Play
	}
	return s.buttons.PostButton(ctx, string(cmd))
}
