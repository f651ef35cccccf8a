// Package forwarder bridges command tokens arriving over a serial byte
// stream to the same backend operations the on-screen controls trigger. It
// runs as an independent long-lived process parallel to the UI; the backend
// is the only thing the two paths share.
package forwarder

import (
	"bufio"
	"context"
	"io"
	"log"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/DevinMcDonald/GallupStopMotion/internal/token"
)

// Sink consumes one recognized command. kiosk.Shell handles commands
// in-process; BackendSink relays them over HTTP.
type Sink interface {
	Handle(ctx context.Context, cmd token.Command) error
}

// PortOpener opens the token byte stream. Injectable so tests can stand in
// for a USB device.
type PortOpener func() (io.ReadCloser, error)

// SerialPort returns an opener for a real serial device at the given baud.
func SerialPort(device string, baud int) PortOpener {
	return func() (io.ReadCloser, error) {
		return serial.Open(device, &serial.Mode{BaudRate: baud})
	}
}

// Forwarder reads newline-delimited tokens and dispatches them to a sink.
type Forwarder struct {
	open   PortOpener
	sink   Sink
	logger *log.Logger

	minBackoff      time.Duration
	maxBackoff      time.Duration
	dispatchTimeout time.Duration
}

// New creates a forwarder. Backoff bounds govern how reopening is paced when
// the device is missing or disappears mid-read (USB replug included).
func New(open PortOpener, sink Sink, logger *log.Logger, minBackoff, maxBackoff time.Duration) *Forwarder {
	if minBackoff <= 0 {
		minBackoff = time.Second
	}
	if maxBackoff < minBackoff {
		maxBackoff = 30 * time.Second
	}
	return &Forwarder{
		open:            open,
		sink:            sink,
		logger:          logger,
		minBackoff:      minBackoff,
		maxBackoff:      maxBackoff,
		dispatchTimeout: 10 * time.Second,
	}
}

// Run opens the device and forwards tokens until the context is cancelled.
// No read or dispatch failure terminates the loop; the device disappearing
// only means retrying the open with backoff.
func (f *Forwarder) Run(ctx context.Context) {
	backoff := f.minBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		port, err := f.open()
		if err != nil {
			f.logger.Printf("failed to open input device: %v (retrying in %s)", err, backoff)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, f.maxBackoff)
			continue
		}

		f.logger.Printf("input device open; forwarding commands")
		backoff = f.minBackoff
		f.readLoop(ctx, port)
		port.Close()

		if ctx.Err() != nil {
			return
		}
		f.logger.Printf("input device lost; reopening")
		if !sleep(ctx, backoff) {
			return
		}
	}
}

// readLoop forwards complete lines until the stream errors or ends.
func (f *Forwarder) readLoop(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		f.HandleLine(ctx, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		f.logger.Printf("serial read error: %v", err)
	}
}

// HandleLine trims one raw line and dispatches it if it names a known
// command. Unknown tokens are logged and ignored, never fatal.
func (f *Forwarder) HandleLine(ctx context.Context, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	cmd, ok := token.Parse(line)
	if !ok {
		f.logger.Printf("ignoring unknown command token: %q", line)
		return
	}
	f.HandleCommand(ctx, cmd)
}

// HandleCommand dispatches one recognized command with a bounded deadline.
// The GPIO poll path calls this directly, bypassing line parsing.
func (f *Forwarder) HandleCommand(ctx context.Context, cmd token.Command) {
	opCtx, cancel := context.WithTimeout(ctx, f.dispatchTimeout)
	defer cancel()
	if err := f.sink.Handle(opCtx, cmd); err != nil {
		f.logger.Printf("failed to dispatch %q: %v", cmd, err)
	}
}

// sleep waits for d, returning false if the context ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
