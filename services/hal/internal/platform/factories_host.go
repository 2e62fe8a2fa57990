// services/hal/internal/platform/factories_host.go
//go:build !linux && !rp2040 && !rp2350

package platform

import (
	"sensornode-go/services/hal/internal/halcore"

	"tinygo.org/x/drivers"
)

// Non-Linux hosts have no GPIO; every backend resolves to inert fakes so the
// node can run on a desktop.
func DefaultPinFactory(string) (halcore.PinFactory, error) { return NewHostPinFactory(), nil }

// DefaultI2CFactory creates inert host I²C buses "i2c0" and "i2c1".
func DefaultI2CFactory() halcore.I2CBusFactory {
	return NewHostI2CFactory(map[string]drivers.I2C{
		"i2c0": NewHostI2C(),
		"i2c1": NewHostI2C(),
	})
}

func DefaultSerialFactory() halcore.SerialFactory {
	return NewHostSerialFactory(map[string]halcore.SerialPort{})
}
