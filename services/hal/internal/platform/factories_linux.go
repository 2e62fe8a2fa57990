// services/hal/internal/platform/factories_linux.go
//go:build linux && !rp2040 && !rp2350

package platform

import (
	"strconv"
	"strings"
	"sync"

	"sensornode-go/errcode"
	"sensornode-go/services/hal/internal/halcore"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

// Backend names accepted by DefaultPinFactory.
const (
	BackendPeriph = "periph"
	BackendRPIO   = "rpio"
	BackendFake   = "fake"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// initHost loads periph's host drivers once per process.
func initHost() error {
	hostOnce.Do(func() { _, hostErr = host.Init() })
	return hostErr
}

// DefaultPinFactory returns the GPIO backend named by backend ("" = periph).
func DefaultPinFactory(backend string) (halcore.PinFactory, error) {
	switch backend {
	case "", BackendPeriph:
		if err := initHost(); err != nil {
			return nil, errcode.Wrap(errcode.Unsupported, "gpio", "periph host init", err)
		}
		return periphPinFactory{}, nil
	case BackendRPIO:
		return newRPIOPinFactory()
	case BackendFake:
		return NewHostPinFactory(), nil
	default:
		return nil, errcode.Wrap(errcode.InvalidParams, "gpio", "unknown backend "+backend, nil)
	}
}

// ----------------------------- GPIO (periph) ---------------------------------

type periphPinFactory struct{}

// ByNumber resolves BCM numbering ("GPIO<n>") through periph's registry.
func (periphPinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	p := gpioreg.ByName("GPIO" + strconv.Itoa(n))
	if p == nil {
		return nil, false
	}
	return &periphPin{p: p, n: n}, true
}

type periphPin struct {
	p gpio.PinIO
	n int
}

func (r *periphPin) ConfigureInput(pull halcore.Pull) error {
	pp := gpio.Float
	switch pull {
	case halcore.PullUp:
		pp = gpio.PullUp
	case halcore.PullDown:
		pp = gpio.PullDown
	}
	return r.p.In(pp, gpio.NoEdge)
}

func (r *periphPin) ConfigureOutput(initial bool) error { return r.p.Out(gpio.Level(initial)) }
func (r *periphPin) Set(level bool)                     { _ = r.p.Out(gpio.Level(level)) }
func (r *periphPin) Get() bool                          { return r.p.Read() == gpio.High }
func (r *periphPin) Number() int                        { return r.n }

// ----------------------------- I²C (periph) ----------------------------------

type periphI2CFactory struct {
	mu    sync.Mutex
	buses map[string]drivers.I2C
}

// ByID opens "i2cN" as /dev/i2c-N on first use and keeps it open.
func (f *periphI2CFactory) ByID(id string) (drivers.I2C, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.buses[id]; ok {
		return b, true
	}
	if !strings.HasPrefix(id, "i2c") || initHost() != nil {
		return nil, false
	}
	bc, err := i2creg.Open(strings.TrimPrefix(id, "i2c"))
	if err != nil {
		return nil, false
	}
	// i2c.Bus.Tx(addr uint16, w, r []byte) error already matches drivers.I2C.
	f.buses[id] = bc
	return bc, true
}

func DefaultI2CFactory() halcore.I2CBusFactory {
	return &periphI2CFactory{buses: make(map[string]drivers.I2C)}
}

// Linux builds leave UARTs unconfigured; tests inject HostSerial ports.
func DefaultSerialFactory() halcore.SerialFactory {
	return NewHostSerialFactory(map[string]halcore.SerialPort{})
}
