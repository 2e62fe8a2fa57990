package errcode

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	Timeout        Code = "timeout"

	// Buttons
	UnknownButton Code = "unknown_button"
	ButtonExists  Code = "button_exists"
	PinConfig     Code = "pin_config_failed"

	// Workers
	AlreadyRunning Code = "already_running"
	NotRunning     Code = "not_running"

	// Peripherals
	UnknownLED    Code = "unknown_led"
	LEDExists     Code = "led_exists"
	UnknownPin    Code = "unknown_pin"
	UnknownBus    Code = "unknown_bus"
	UnknownDevice Code = "unknown_device"
	BadChecksum   Code = "bad_checksum"

	Error Code = "error" // generic fallback
)

// E keeps the operation and a cause next to a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is match an *E against its bare Code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap builds an *E. err may be nil.
func Wrap(c Code, op, msg string, err error) error {
	return &E{C: c, Op: op, Msg: msg, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
