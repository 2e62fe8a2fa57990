// services/hal/internal/platform/fakes_host.go
//go:build !rp2040 && !rp2350

package platform

import (
	"context"
	"sync"

	"sensornode-go/services/hal/internal/halcore"

	"tinygo.org/x/drivers"
)

// ----------------------------- GPIO (host) -----------------------------------

// FakePin implements GPIOPin for host-side tests and desktop runs.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	modeOut bool
	pull    halcore.Pull
	// ConfigErr, when set, is returned by ConfigureInput/ConfigureOutput.
	ConfigErr error
	writes    int
}

func NewFakePin(n int) *FakePin { return &FakePin{number: n} }

func (p *FakePin) ConfigureInput(pull halcore.Pull) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ConfigErr != nil {
		return p.ConfigErr
	}
	p.modeOut = false
	p.pull = pull
	// An idle line rests at its pull level.
	switch pull {
	case halcore.PullUp:
		p.level = true
	case halcore.PullDown:
		p.level = false
	}
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ConfigErr != nil {
		return p.ConfigErr
	}
	p.modeOut = true
	p.level = initial
	return nil
}

// Set drives the line; tests also use it to simulate an external level.
func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.writes++
	p.mu.Unlock()
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

func (p *FakePin) Number() int { return p.number }

// Pull reports the pull resistor requested by the last ConfigureInput.
func (p *FakePin) Pull() halcore.Pull {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pull
}

// IsOutput reports whether the pin was last configured as an output.
func (p *FakePin) IsOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modeOut
}

// Writes counts Set calls.
func (p *FakePin) Writes() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.writes
}

// HostPinFactory returns stable *FakePin instances per number.
type HostPinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func NewHostPinFactory() *HostPinFactory {
	return &HostPinFactory{pins: make(map[int]*FakePin)}
}

func (f *HostPinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	return f.Pin(n), true
}

// Pin exposes the underlying *FakePin, creating it on first use.
func (f *HostPinFactory) Pin(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pins == nil {
		f.pins = make(map[int]*FakePin)
	}
	p, ok := f.pins[n]
	if !ok {
		p = NewFakePin(n)
		f.pins[n] = p
	}
	return p
}

// ----------------------------- I²C (host) ------------------------------------

// HostI2C implements tinygo drivers.I2C for host-side tests. Reads are served
// from Regs keyed by the first byte of the most recent write (the register
// pointer), so pointer-write then read sequences behave like real devices.
type HostI2C struct {
	mu      sync.Mutex
	Regs    map[byte][]byte
	TxErr   error
	pointer byte
	LastTx  struct {
		Addr uint16
		W    []byte
		Rn   int
	}
}

func NewHostI2C() *HostI2C { return &HostI2C{Regs: make(map[byte][]byte)} }

func (h *HostI2C) Tx(addr uint16, w, r []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastTx.Addr = addr
	h.LastTx.W = append([]byte(nil), w...)
	h.LastTx.Rn = len(r)
	if h.TxErr != nil {
		return h.TxErr
	}
	if len(w) > 0 {
		h.pointer = w[0]
	}
	if len(r) > 0 {
		copy(r, h.Regs[h.pointer])
	}
	return nil
}

// SetReg installs the bytes returned when reg is read.
func (h *HostI2C) SetReg(reg byte, b ...byte) {
	h.mu.Lock()
	if h.Regs == nil {
		h.Regs = make(map[byte][]byte)
	}
	h.Regs[reg] = append([]byte(nil), b...)
	h.mu.Unlock()
}

type hostI2CFactory struct {
	buses map[string]drivers.I2C
}

func (f *hostI2CFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.buses[id]
	return b, ok
}

// NewHostI2CFactory serves the given buses by id.
func NewHostI2CFactory(buses map[string]drivers.I2C) halcore.I2CBusFactory {
	return &hostI2CFactory{buses: buses}
}

// ----------------------------- UART (host) -----------------------------------

// HostSerial is a scripted serial port: every Write is recorded and answered
// by Reply(written) queued for subsequent reads.
type HostSerial struct {
	mu      sync.Mutex
	rx      []byte
	ready   chan struct{}
	Written [][]byte
	Reply   func(w []byte) []byte
}

func NewHostSerial(reply func(w []byte) []byte) *HostSerial {
	return &HostSerial{ready: make(chan struct{}, 1), Reply: reply}
}

func (s *HostSerial) Write(p []byte) (int, error) {
	s.mu.Lock()
	s.Written = append(s.Written, append([]byte(nil), p...))
	if s.Reply != nil {
		s.rx = append(s.rx, s.Reply(p)...)
	}
	s.mu.Unlock()
	s.signal()
	return len(p), nil
}

// Inject queues bytes as if they arrived on the line.
func (s *HostSerial) Inject(b ...byte) {
	s.mu.Lock()
	s.rx = append(s.rx, b...)
	s.mu.Unlock()
	s.signal()
}

func (s *HostSerial) RecvSomeContext(ctx context.Context, p []byte) (int, error) {
	for {
		s.mu.Lock()
		if len(s.rx) > 0 {
			n := copy(p, s.rx)
			s.rx = s.rx[n:]
			s.mu.Unlock()
			return n, nil
		}
		s.mu.Unlock()
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-s.ready:
		}
	}
}

func (s *HostSerial) signal() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

type hostSerialFactory struct {
	ports map[string]halcore.SerialPort
}

func (f *hostSerialFactory) ByID(id string) (halcore.SerialPort, bool) {
	p, ok := f.ports[id]
	return p, ok
}

// NewHostSerialFactory serves the given ports by id.
func NewHostSerialFactory(ports map[string]halcore.SerialPort) halcore.SerialFactory {
	return &hostSerialFactory{ports: ports}
}
