//go:build !rp2040 && !rp2350

package hal

import (
	"sensornode-go/services/hal/internal/platform"

	"tinygo.org/x/drivers"
)

// Host-side fakes, re-exported for tests in other packages.
type (
	FakePin        = platform.FakePin
	HostPinFactory = platform.HostPinFactory
	HostI2C        = platform.HostI2C
	HostSerial     = platform.HostSerial
)

func NewFakePin(n int) *FakePin          { return platform.NewFakePin(n) }
func NewHostPinFactory() *HostPinFactory { return platform.NewHostPinFactory() }
func NewHostI2C() *HostI2C               { return platform.NewHostI2C() }

func NewHostSerial(reply func([]byte) []byte) *HostSerial {
	return platform.NewHostSerial(reply)
}

func NewHostI2CFactory(buses map[string]drivers.I2C) I2CBusFactory {
	return platform.NewHostI2CFactory(buses)
}

func NewHostSerialFactory(ports map[string]SerialPort) SerialFactory {
	return platform.NewHostSerialFactory(ports)
}
