package debounce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/DevinMcDonald/GallupStopMotion/internal/token"
)

// fakePin is a settable level source for driving the state machine by hand.
type fakePin struct {
	level bool
}

func (p *fakePin) Level() bool { return p.level }

const window = 25 * time.Millisecond

// tickUntil advances the button in 1ms steps up to end, collecting presses.
func tickUntil(b *Button, start, end time.Time) []token.Command {
	var presses []token.Command
	for now := start; !now.After(end); now = now.Add(time.Millisecond) {
		if cmd, ok := b.Tick(now); ok {
			presses = append(presses, cmd)
		}
	}
	return presses
}

func TestCleanPressEmitsOnce(t *testing.T) {
	pin := &fakePin{level: true}
	b := NewButton("GPIO17", token.Capture, pin, window)
	now := time.Now()

	// Held low well past the window: exactly one press, on the press edge.
	pin.level = false
	presses := tickUntil(b, now, now.Add(100*time.Millisecond))
	assert.Equal(t, []token.Command{token.Capture}, presses)

	// Release: observed internally, but no output.
	pin.level = true
	presses = tickUntil(b, now.Add(101*time.Millisecond), now.Add(200*time.Millisecond))
	assert.Empty(t, presses)
}

func TestBounceWithinWindowEmitsNothing(t *testing.T) {
	pin := &fakePin{level: true}
	b := NewButton("GPIO17", token.Capture, pin, window)
	now := time.Now()

	// Oscillate every 5ms for 60ms, ending back at idle. The pending timer
	// keeps resetting, so no transition ever becomes stable.
	var presses int
	for i := 0; i < 12; i++ {
		pin.level = i%2 != 0
		if _, ok := b.Tick(now.Add(time.Duration(i*5) * time.Millisecond)); ok {
			presses++
		}
	}
	pin.level = true
	for i := 60; i < 120; i++ {
		if _, ok := b.Tick(now.Add(time.Duration(i) * time.Millisecond)); ok {
			presses++
		}
	}
	assert.Zero(t, presses)
}

func TestBouncyPressSettlingLowEmitsOnce(t *testing.T) {
	pin := &fakePin{level: true}
	b := NewButton("GPIO17", token.Play, pin, window)
	now := time.Now()

	// Contact chatter for 15ms, then the contact settles closed.
	for i := 0; i < 15; i++ {
		pin.level = i%2 == 0
		b.Tick(now.Add(time.Duration(i) * time.Millisecond))
	}
	pin.level = false
	presses := tickUntil(b, now.Add(15*time.Millisecond), now.Add(100*time.Millisecond))
	assert.Equal(t, []token.Command{token.Play}, presses)
}

func TestPressShorterThanWindowIsInvisible(t *testing.T) {
	pin := &fakePin{level: true}
	b := NewButton("GPIO17", token.Undo, pin, window)
	now := time.Now()

	pin.level = false
	presses := tickUntil(b, now, now.Add(10*time.Millisecond))
	pin.level = true
	presses = append(presses, tickUntil(b, now.Add(11*time.Millisecond), now.Add(100*time.Millisecond))...)
	assert.Empty(t, presses)
}

func TestRepeatedPressesBeyondWindowEmitInOrder(t *testing.T) {
	pin := &fakePin{level: true}
	b := NewButton("GPIO17", token.Capture, pin, window)
	now := time.Now()

	var presses []token.Command
	for i := 0; i < 3; i++ {
		base := now.Add(time.Duration(i) * 200 * time.Millisecond)
		pin.level = false
		presses = append(presses, tickUntil(b, base, base.Add(60*time.Millisecond))...)
		pin.level = true
		presses = append(presses, tickUntil(b, base.Add(61*time.Millisecond), base.Add(140*time.Millisecond))...)
	}
	assert.Equal(t, []token.Command{token.Capture, token.Capture, token.Capture}, presses)
}

func TestHeldAtStartupDoesNotFire(t *testing.T) {
	pin := &fakePin{level: false} // button already held when we power up
	b := NewButton("GPIO17", token.Reset, pin, window)
	now := time.Now()

	presses := tickUntil(b, now, now.Add(200*time.Millisecond))
	assert.Empty(t, presses)

	// Release, then a real press still works.
	pin.level = true
	tickUntil(b, now.Add(201*time.Millisecond), now.Add(300*time.Millisecond))
	pin.level = false
	presses = tickUntil(b, now.Add(301*time.Millisecond), now.Add(400*time.Millisecond))
	assert.Equal(t, []token.Command{token.Reset}, presses)
}

func TestButtonsAreIndependent(t *testing.T) {
	pinA := &fakePin{level: true}
	pinB := &fakePin{level: true}
	a := NewButton("GPIO17", token.Capture, pinA, window)
	c := NewButton("GPIO27", token.Play, pinB, window)
	now := time.Now()

	// Button A bounces wildly while button B performs a clean press.
	var aPresses, bPresses int
	pinB.level = false
	for i := 0; i < 100; i++ {
		pinA.level = i%2 == 0
		tick := now.Add(time.Duration(i) * time.Millisecond)
		if _, ok := a.Tick(tick); ok {
			aPresses++
		}
		if _, ok := c.Tick(tick); ok {
			bPresses++
		}
	}
	assert.Zero(t, aPresses)
	assert.Equal(t, 1, bPresses)
}
