package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/DevinMcDonald/GallupStopMotion/config"
	"github.com/DevinMcDonald/GallupStopMotion/internal/client"
	"github.com/DevinMcDonald/GallupStopMotion/internal/debounce"
	"github.com/DevinMcDonald/GallupStopMotion/internal/forwarder"
	"github.com/DevinMcDonald/GallupStopMotion/internal/kiosk"
	"github.com/DevinMcDonald/GallupStopMotion/internal/player"
	"github.com/DevinMcDonald/GallupStopMotion/internal/session"
	"github.com/DevinMcDonald/GallupStopMotion/internal/token"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "forwarderd ", log.LstdFlags)

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	fw := cfg.Forwarder

	backend, err := client.New(fw.BackendURL, fw.ButtonToken)
	if err != nil {
		logger.Fatalf("invalid backend URL %q: %v", fw.BackendURL, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Direct mode drives the capture pipeline in-process for headless
	// installs; relay mode just posts button events and lets the browser
	// UI do the capturing.
	var sink forwarder.Sink
	if fw.Direct {
		ctrl := session.NewController(backend, logger)
		pl := player.New(backend, backend, ctrl, kiosk.LogSurface{Logger: logger}, logger)
		sink = kiosk.NewShell(ctrl, pl, kiosk.SpoolSource{Dir: fw.SpoolDir}, logger)
		go drainErrors(ctx, logger, "session", ctrl.Errors())
		go drainErrors(ctx, logger, "player", pl.Errors())
		logger.Printf("direct mode: driving session controller in-process, spool dir %s", fw.SpoolDir)
	} else {
		sink = forwarder.NewBackendSink(backend, logger)
		logger.Printf("relay mode: posting button events to %s", fw.BackendURL)
	}

	switch fw.Source {
	case "gpio":
		buttons := make([]*debounce.Button, 0, len(fw.Buttons))
		for _, bc := range fw.Buttons {
			cmd := token.Command(bc.Command)
			if !cmd.Valid() {
				logger.Fatalf("button on pin %s maps to unknown command %q", bc.Pin, bc.Command)
			}
			b, err := debounce.OpenButton(bc.Pin, cmd, fw.DebounceWindow())
			if err != nil {
				logger.Fatalf("failed to open GPIO pin %s: %v", bc.Pin, err)
			}
			buttons = append(buttons, b)
			logger.Printf("watching pin %s for %q", bc.Pin, bc.Command)
		}
		if len(buttons) == 0 {
			logger.Fatalf("gpio source configured with no buttons")
		}

		// No port to manage here; the forwarder is used only for its
		// dispatch policy (per-command timeout, non-fatal failures).
		f := forwarder.New(nil, sink, logger,
			time.Duration(fw.ReconnectMinSeconds)*time.Second,
			time.Duration(fw.ReconnectMaxSeconds)*time.Second)
		poller := debounce.NewPoller(buttons, fw.PollInterval())
		go poller.Run(ctx, func(cmd token.Command) {
			f.HandleCommand(ctx, cmd)
		})
	case "serial":
		f := forwarder.New(forwarder.SerialPort(fw.SerialDevice, fw.BaudRate), sink, logger,
			time.Duration(fw.ReconnectMinSeconds)*time.Second,
			time.Duration(fw.ReconnectMaxSeconds)*time.Second)
		go f.Run(ctx)
		logger.Printf("reading command tokens from %s at %d baud", fw.SerialDevice, fw.BaudRate)
	default:
		logger.Fatalf("unknown forwarder source %q (want \"serial\" or \"gpio\")", fw.Source)
	}

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping forwarder...")
	cancel()

	// Give in-flight dispatches a moment to settle before exiting.
	time.Sleep(200 * time.Millisecond)
	logger.Println("Forwarder stopped")
}

// drainErrors surfaces background failures from the optimistic pipelines in
// the log; a kiosk has nowhere else to report them.
func drainErrors(ctx context.Context, logger *log.Logger, who string, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			logger.Printf("%s: %v", who, err)
		}
	}
}
