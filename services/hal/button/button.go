package button

import "sensornode-go/services/hal"

// Default timings in milliseconds.
const (
	DefaultDebounceMs  = 50
	DefaultClickMs     = 400
	DefaultLongPressMs = 800
)

// unboundedClicks caps a multi-click sequence when a multi-click handler is
// registered; sequences end on the click window long before reaching it.
const unboundedClicks = 100

// Level is the raw line level that means "pressed".
type Level bool

const (
	ActiveLow  Level = false
	ActiveHigh Level = true
)

func (l Level) String() string {
	if l == ActiveHigh {
		return "high"
	}
	return "low"
}

// pull returns the resistor that holds the line at its released level.
func (l Level) pull() hal.Pull {
	if l == ActiveHigh {
		return hal.PullDown
	}
	return hal.PullUp
}

// LevelReader is the input line behind a button. hal.GPIOPin satisfies it.
type LevelReader interface {
	ConfigureInput(pull hal.Pull) error
	Get() bool
}

// Config is the tunable part of a button.
type Config struct {
	DebounceMs  uint32
	ClickMs     uint32
	LongPressMs uint32
	Active      Level
}

// DefaultConfig returns the stock timings for the given active level.
func DefaultConfig(active Level) Config {
	return Config{
		DebounceMs:  DefaultDebounceMs,
		ClickMs:     DefaultClickMs,
		LongPressMs: DefaultLongPressMs,
		Active:      active,
	}
}

// button couples configuration with the FSM state only the tick mutates.
type button struct {
	name  string
	line  LevelReader
	cfg   Config
	slots [numGestures]slot

	state     State
	prev      State  // stable state restored when a press turns out to be noise
	prevSince uint32 // entry time of prev
	pressed   bool   // last raw sample resolved against cfg.Active
	since     uint32 // clock reading when state was entered
	clicks    int
	maxClicks int
	longPress bool

	fired []firing
}

// firing is a gesture recognised during the current tick.
type firing struct {
	g      Gesture
	clicks int
}

func newButton(name string, line LevelReader, active Level) *button {
	return &button{
		name:  name,
		line:  line,
		cfg:   DefaultConfig(active),
		fired: make([]firing, 0, 2),
	}
}

// refresh derives the click ceiling and long-press enablement from the
// handlers registered right now.
func (b *button) refresh() {
	switch {
	case b.slots[MultiClick].set():
		b.maxClicks = unboundedClicks
	case b.slots[DoubleClick].set():
		b.maxClicks = 2
	default:
		b.maxClicks = 1
	}
	b.longPress = b.slots[LongPressStart].set() ||
		b.slots[LongPressDuring].set() ||
		b.slots[LongPressStop].set()
}

// sample reads the line and resolves it against the active level.
func (b *button) sample() bool {
	return b.line.Get() == bool(b.cfg.Active)
}
