package button

// Gesture is a semantic event recognised from a button's raw signal.
type Gesture uint8

const (
	Click Gesture = iota
	DoubleClick
	MultiClick
	LongPressStart
	LongPressDuring
	LongPressStop

	numGestures
)

func (g Gesture) String() string {
	switch g {
	case Click:
		return "click"
	case DoubleClick:
		return "double_click"
	case MultiClick:
		return "multi_click"
	case LongPressStart:
		return "long_press_start"
	case LongPressDuring:
		return "long_press_during"
	case LongPressStop:
		return "long_press_stop"
	default:
		return "unknown"
	}
}

// Gestures lists every gesture in dispatch-slot order.
func Gestures() []Gesture {
	return []Gesture{Click, DoubleClick, MultiClick, LongPressStart, LongPressDuring, LongPressStop}
}

// Event is handed to a Handler. Arg is the value supplied at registration,
// returned untouched.
type Event struct {
	Button  string
	Gesture Gesture
	Clicks  int    // final click count for click gestures, 0 otherwise
	At      uint32 // clock reading of the tick that recognised the gesture
	Arg     any
}

// Handler reacts to a gesture. It runs synchronously inside the scheduler's
// tick with the registry locked: it must be quick, must not block, and must
// not call back into the Registry. Returned errors and panics are logged and
// counted, never propagated.
type Handler func(Event) error

// slot is one optional handler with its opaque argument.
type slot struct {
	fn  Handler
	arg any
}

func (s slot) set() bool { return s.fn != nil }
