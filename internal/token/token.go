// Package token defines the command vocabulary shared by every input source.
// A command names one user intention regardless of whether it came from a
// touchscreen tap, a keyboard shortcut, or a physical button press relayed
// over serial.
package token

// Command is the normalized name of one user intention.
type Command string

const (
	Capture Command = "capture"
	Play    Command = "play"
	Undo    Command = "undo"
	Reset   Command = "reset"
	Save    Command = "save"
)

// commands is the fixed vocabulary accepted from any source.
var commands = map[Command]bool{
	Capture: true,
	Play:    true,
	Undo:    true,
	Reset:   true,
	Save:    true,
}

// aliases maps spellings emitted by older firmware revisions to canonical
// commands. Lookups are case-sensitive; the firmware emits exactly these.
var aliases = map[string]Command{
	"CAPTURE": Capture,
	"PLAY":    Play,
	"UNDO":    Undo,
	"RESET":   Reset,
	"SAVE":    Save,
	"BTN_A":   Capture,
	"BTN_B":   Play,
	"BTN_C":   Reset,
	"snap":    Capture,
	"restart": Reset,
}

// Parse maps one trimmed input line to a command. The second return is false
// for anything outside the vocabulary; callers log and ignore those.
func Parse(line string) (Command, bool) {
	if commands[Command(line)] {
		return Command(line), true
	}
	if cmd, ok := aliases[line]; ok {
		return cmd, true
	}
	return "", false
}

// Valid reports whether c is part of the fixed vocabulary.
func (c Command) Valid() bool {
	return commands[c]
}
