// Package hal exposes the node's hardware abstractions and the platform
// backends selected at build time.
package hal

import (
	"sensornode-go/services/hal/internal/halcore"
	"sensornode-go/services/hal/internal/platform"
)

type (
	Pull          = halcore.Pull
	GPIOPin       = halcore.GPIOPin
	PinFactory    = halcore.PinFactory
	I2CBusFactory = halcore.I2CBusFactory
	SerialPort    = halcore.SerialPort
	SerialFactory = halcore.SerialFactory
)

const (
	PullNone = halcore.PullNone
	PullUp   = halcore.PullUp
	PullDown = halcore.PullDown
)

// Pins returns the GPIO backend for this build. On Linux, backend selects
// "periph" (default), "rpio" or "fake"; elsewhere it is ignored.
func Pins(backend string) (PinFactory, error) { return platform.DefaultPinFactory(backend) }

// I2CBuses returns the I²C buses for this build.
func I2CBuses() I2CBusFactory { return platform.DefaultI2CFactory() }

// Serials returns the UARTs for this build.
func Serials() SerialFactory { return platform.DefaultSerialFactory() }
