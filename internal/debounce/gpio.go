package debounce

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/DevinMcDonald/GallupStopMotion/internal/token"
)

var (
	hostInit sync.Once
	initErr  error
)

// OpenPin looks up a GPIO pin by name and configures it as a pulled-up input,
// so the open-circuit level reads high and a held button reads low.
func OpenPin(name string) (LevelReader, error) {
	hostInit.Do(func() {
		_, initErr = host.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("gpio host init failed: %w", initErr)
	}

	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no such gpio pin: %q", name)
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure pin %q as input: %w", name, err)
	}
	return gpioLevel{pin: p}, nil
}

type gpioLevel struct {
	pin gpio.PinIO
}

func (g gpioLevel) Level() bool {
	return bool(g.pin.Read())
}

// OpenButton opens a named pin and wraps it in a button state machine bound
// to the given command token.
func OpenButton(pinName string, cmd token.Command, window time.Duration) (*Button, error) {
	pin, err := OpenPin(pinName)
	if err != nil {
		return nil, err
	}
	return NewButton(pinName, cmd, pin, window), nil
}
