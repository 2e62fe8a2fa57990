// services/hal/internal/platform/pins_rpio_linux.go
//go:build linux && !rp2040 && !rp2350

package platform

import (
	"sync"

	"sensornode-go/errcode"
	"sensornode-go/services/hal/internal/halcore"

	"github.com/stianeikeland/go-rpio/v4"
)

var (
	rpioOnce sync.Once
	rpioErr  error
)

// newRPIOPinFactory maps /dev/gpiomem once and serves BCM-numbered pins.
func newRPIOPinFactory() (halcore.PinFactory, error) {
	rpioOnce.Do(func() { rpioErr = rpio.Open() })
	if rpioErr != nil {
		return nil, errcode.Wrap(errcode.Unsupported, "gpio", "rpio open", rpioErr)
	}
	return rpioPinFactory{}, nil
}

type rpioPinFactory struct{}

func (rpioPinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	if n < 0 || n > 53 {
		return nil, false
	}
	return &rpioPin{p: rpio.Pin(n), n: n}, true
}

type rpioPin struct {
	p rpio.Pin
	n int
}

func (r *rpioPin) ConfigureInput(pull halcore.Pull) error {
	r.p.Input()
	switch pull {
	case halcore.PullUp:
		r.p.PullUp()
	case halcore.PullDown:
		r.p.PullDown()
	default:
		r.p.PullOff()
	}
	return nil
}

func (r *rpioPin) ConfigureOutput(initial bool) error {
	r.p.Output()
	r.Set(initial)
	return nil
}

func (r *rpioPin) Set(level bool) {
	if level {
		r.p.High()
	} else {
		r.p.Low()
	}
}

func (r *rpioPin) Get() bool   { return r.p.Read() == rpio.High }
func (r *rpioPin) Number() int { return r.n }
