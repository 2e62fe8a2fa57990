// services/hal/internal/halcore/types.go
package halcore

import (
	"context"

	"tinygo.org/x/drivers"
)

// ---- GPIO abstractions ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

func (p Pull) String() string {
	switch p {
	case PullUp:
		return "up"
	case PullDown:
		return "down"
	default:
		return "none"
	}
}

type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Number() int
}

// PinFactory supplies GPIO pins by the configured number scheme.
type PinFactory interface {
	ByNumber(n int) (GPIOPin, bool)
}

// ---- Buses ----

// I2CBusFactory injects configured I²C instances by id ("i2c0", "i2c1").
// Uses the TinyGo drivers.I2C interface to remain compatible on MCU builds.
type I2CBusFactory interface {
	ByID(id string) (drivers.I2C, bool)
}

// SerialPort is the byte stream a UART sensor talks over.
type SerialPort interface {
	Write(p []byte) (int, error)
	// RecvSomeContext blocks until at least one byte is available or ctx ends.
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

// SerialFactory injects configured UARTs by id ("uart0", "uart1").
type SerialFactory interface {
	ByID(id string) (SerialPort, bool)
}
