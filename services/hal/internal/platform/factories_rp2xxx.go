// services/hal/internal/platform/factories_rp2xxx.go
//go:build rp2040 || rp2350

package platform

import (
	"context"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers"

	"sensornode-go/services/hal/internal/halcore"
)

// -----------------------------------------------------------------------------
// Defaults for Raspberry Pi Pico / Pico 2 (RP2 family)
// -----------------------------------------------------------------------------

// DefaultPinFactory maps logical numbers directly to machine.Pin(n) (GP numbering).
// The backend name is ignored: the MCU has a single GPIO block.
func DefaultPinFactory(string) (halcore.PinFactory, error) { return rp2PinFactory{}, nil }

// DefaultI2CFactory configures i2c0 and i2c1 with board-default pins at 400 kHz.
func DefaultI2CFactory() halcore.I2CBusFactory {
	f := &rp2I2CFactory{buses: make(map[string]drivers.I2C)}

	b0 := machine.I2C0
	_ = b0.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	})
	f.buses["i2c0"] = b0

	b1 := machine.I2C1
	_ = b1.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C1_SDA_PIN,
		SCL:       machine.I2C1_SCL_PIN,
	})
	f.buses["i2c1"] = b1

	return f
}

// Pico default UART pins; sensors run at 9600 8N1.
const (
	uart0TX = 0
	uart0RX = 1
	uart1TX = 8
	uart1RX = 9

	sensorBaud = 9600
)

// DefaultSerialFactory configures uart0 and uart1 through uartx.
func DefaultSerialFactory() halcore.SerialFactory {
	f := &rp2SerialFactory{ports: make(map[string]halcore.SerialPort)}
	for _, u := range []struct {
		id     string
		hw     *uartx.UART
		tx, rx int
	}{
		{"uart0", uartx.UART0, uart0TX, uart0RX},
		{"uart1", uartx.UART1, uart1TX, uart1RX},
	} {
		_ = u.hw.Configure(uartx.UARTConfig{
			BaudRate: sensorBaud,
			TX:       machine.Pin(u.tx),
			RX:       machine.Pin(u.rx),
		})
		f.ports[u.id] = &rp2SerialPort{u: u.hw}
	}
	return f
}

// ---- I²C ----

type rp2I2CFactory struct {
	buses map[string]drivers.I2C
}

func (f *rp2I2CFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.buses[id]
	return b, ok
}

// ---- GPIO ----

type rp2PinFactory struct{}

func (rp2PinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	if n < 0 || n > 29 {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n), n: n}, true
}

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureInput(pull halcore.Pull) error {
	var mode machine.PinMode
	switch pull {
	case halcore.PullUp:
		mode = machine.PinInputPullup
	case halcore.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }
func (r *rp2Pin) Number() int    { return r.n }

// ---- UART (uartx) ----

type rp2SerialFactory struct {
	ports map[string]halcore.SerialPort
}

func (f *rp2SerialFactory) ByID(id string) (halcore.SerialPort, bool) {
	p, ok := f.ports[id]
	return p, ok
}

type rp2SerialPort struct{ u *uartx.UART }

func (p *rp2SerialPort) Write(b []byte) (int, error) { return p.u.Write(b) }
func (p *rp2SerialPort) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	return p.u.RecvSomeContext(ctx, buf)
}
