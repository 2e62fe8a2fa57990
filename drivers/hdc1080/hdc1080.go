// Package hdc1080 provides a driver for the TI HDC1080 temperature/humidity
// sensor.
//
// Each reading writes the register pointer, waits out the conversion, then
// reads two bytes in a separate transaction:
//
//	d := hdc1080.New(bus)
//	_ = d.Configure()
//	t, err := d.Temperature()
//
// Temperature and humidity are measured independently (acquisition mode 0).
package hdc1080

import (
	"errors"
	"sync"
	"time"

	"tinygo.org/x/drivers"
)

// I2C address.
const Address = 0x40

// Registers.
const (
	regTemperature   = 0x00
	regHumidity      = 0x01
	regConfiguration = 0x02
)

// DefaultConversionWait covers a 14-bit conversion of either channel.
const DefaultConversionWait = 25 * time.Millisecond

// Errors returned by the driver.
var (
	ErrNotConfigured = errors.New("hdc1080: not configured")
	ErrShortRead     = errors.New("hdc1080: short read")
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x40 if zero.
	Address uint16
	// ConversionWait is the pause between pointer write and read. Default 25 ms.
	ConversionWait time.Duration
	// TemperatureOffset is added to every temperature reading, in °C.
	TemperatureOffset float32
	// HumidityOffset is added to every humidity reading, in %RH.
	HumidityOffset float32
}

// Device wraps an I2C connection to an HDC1080.
type Device struct {
	mu         sync.Mutex
	bus        drivers.I2C
	Address    uint16
	cfg        Config
	configured bool
	buf        [2]byte
}

// New creates a Device. The I2C bus must already be configured; New does not
// touch the device.
func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, Address: Address}
}

// Configure applies cfg (optional) and writes the configuration register:
// independent acquisition, 14-bit temperature and humidity, heater off.
func (d *Device) Configure(cfgs ...Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c := Config{}
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Address != 0 {
		d.Address = c.Address
	}
	if c.ConversionWait <= 0 {
		c.ConversionWait = DefaultConversionWait
	}
	c.Address = d.Address
	d.cfg = c

	if err := d.bus.Tx(d.Address, []byte{regConfiguration, 0x00, 0x00}, nil); err != nil {
		return err
	}
	d.configured = true
	return nil
}

// Temperature returns the temperature in °C including the configured offset.
func (d *Device) Temperature() (float32, error) {
	raw, err := d.read(regTemperature)
	if err != nil {
		return 0, err
	}
	return TemperatureC(raw) + d.cfg.TemperatureOffset, nil
}

// Humidity returns relative humidity in % including the configured offset.
func (d *Device) Humidity() (float32, error) {
	raw, err := d.read(regHumidity)
	if err != nil {
		return 0, err
	}
	return HumidityRH(raw) + d.cfg.HumidityOffset, nil
}

// TemperatureC converts a raw temperature sample to °C.
func TemperatureC(raw uint16) float32 {
	return float32(raw)*165/65536 - 40
}

// HumidityRH converts a raw humidity sample to %RH.
func HumidityRH(raw uint16) float32 {
	return float32(raw) * 100 / 65536
}

func (d *Device) read(reg byte) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.configured {
		return 0, ErrNotConfigured
	}
	if err := d.bus.Tx(d.Address, []byte{reg}, nil); err != nil {
		return 0, err
	}
	time.Sleep(d.cfg.ConversionWait)

	d.buf = [2]byte{}
	if err := d.bus.Tx(d.Address, nil, d.buf[:]); err != nil {
		return 0, err
	}
	return uint16(d.buf[0])<<8 | uint16(d.buf[1]), nil
}
