// Package led drives named single-colour LEDs: steady on, off, continuous
// blink, or a finite number of flashes.
package led

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"sensornode-go/errcode"
	"sensornode-go/types"
	"sensornode-go/x/logx"
	"sensornode-go/x/timex"
)

const DefaultInterval = 10 * time.Millisecond

// Line is the output behind an LED. hal.GPIOPin satisfies it.
type Line interface {
	ConfigureOutput(initial bool) error
	Set(level bool)
}

// ChangeFunc observes mode changes, e.g. to publish them.
type ChangeFunc func(name string, st types.LEDState)

type led struct {
	line     Line
	inverted bool

	mode    types.LEDMode
	onMs    uint32
	offMs   uint32
	flashes int // remaining on-phases; 0 blinks forever

	lit   bool
	since uint32
}

func (l *led) drive(on bool) {
	l.lit = on
	l.line.Set(on != l.inverted)
}

func (l *led) state() types.LEDState {
	st := types.LEDState{Mode: l.mode}
	if l.mode == types.LEDBlink {
		st.OnMs, st.OffMs = l.onMs, l.offMs
	}
	return st
}

// Manager owns the LEDs and the worker that times blink phases.
type Manager struct {
	mu       sync.Mutex
	leds     map[string]*led
	clock    timex.Clock
	interval time.Duration
	log      *logrus.Entry
	onChange ChangeFunc

	cancel  context.CancelFunc
	running bool
}

// New creates a Manager. A nil clock uses a monotonic clock.
func New(clock timex.Clock, log *logrus.Entry, onChange ChangeFunc) *Manager {
	if clock == nil {
		clock = timex.NewMonoClock(0)
	}
	return &Manager{
		leds:     make(map[string]*led),
		clock:    clock,
		interval: DefaultInterval,
		log:      logx.OrDiscard(log),
		onChange: onChange,
	}
}

// Add configures line as an output driven off and registers it.
func (m *Manager) Add(name string, line Line, inverted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leds[name]; ok {
		return errcode.Wrap(errcode.LEDExists, "add", name, nil)
	}
	if err := line.ConfigureOutput(inverted); err != nil {
		return errcode.Wrap(errcode.PinConfig, "add", name, err)
	}
	m.leds[name] = &led{line: line, inverted: inverted, mode: types.LEDOff}
	m.log.WithField("led", name).Debug("led added")
	return nil
}

func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leds[name]; !ok {
		return m.notFound("remove", name)
	}
	delete(m.leds, name)
	return nil
}

func (m *Manager) On(name string) error {
	return m.set("on", name, func(l *led, now uint32) {
		l.mode, l.flashes = types.LEDOn, 0
		l.drive(true)
	})
}

func (m *Manager) Off(name string) error {
	return m.set("off", name, func(l *led, now uint32) {
		l.mode, l.flashes = types.LEDOff, 0
		l.drive(false)
	})
}

// Blink alternates onMs lit and offMs dark until changed. A zero phase
// degenerates to steady on or off.
func (m *Manager) Blink(name string, onMs, offMs uint32) error {
	return m.blink("blink", name, onMs, offMs, 0)
}

// Flash lights the LED count times, then leaves it off.
func (m *Manager) Flash(name string, count int, onMs, offMs uint32) error {
	if count <= 0 || onMs == 0 {
		return errcode.Wrap(errcode.InvalidParams, "flash", name, nil)
	}
	return m.blink("flash", name, onMs, offMs, count)
}

func (m *Manager) blink(op, name string, onMs, offMs uint32, count int) error {
	switch {
	case onMs == 0 && offMs == 0:
		return errcode.Wrap(errcode.InvalidParams, op, name+": both phases zero", nil)
	case offMs == 0 && count == 0:
		return m.On(name)
	case onMs == 0:
		return m.Off(name)
	}
	return m.set(op, name, func(l *led, now uint32) {
		l.mode = types.LEDBlink
		l.onMs, l.offMs, l.flashes = onMs, offMs, count
		l.since = now
		l.drive(true)
	})
}

// State reports an LED's current mode.
func (m *Manager) State(name string) (types.LEDState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leds[name]
	if !ok {
		return types.LEDState{}, m.notFound("state", name)
	}
	return l.state(), nil
}

// Lit reports whether the LED is currently emitting.
func (m *Manager) Lit(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leds[name]
	if !ok {
		return false, m.notFound("lit", name)
	}
	return l.lit, nil
}

// Tick advances blink phases to the clock reading now.
func (m *Manager) Tick(now uint32, period uint64) {
	var done []string

	m.mu.Lock()
	for name, l := range m.leds {
		if l.mode != types.LEDBlink {
			continue
		}
		elapsed := timex.ElapsedMs(l.since, now, period)
		switch {
		case l.lit && elapsed >= l.onMs:
			if l.flashes > 0 {
				l.flashes--
				if l.flashes == 0 {
					l.mode = types.LEDOff
					l.drive(false)
					done = append(done, name)
					continue
				}
			}
			l.since = now
			l.drive(false)
		case !l.lit && elapsed >= l.offMs:
			l.since = now
			l.drive(true)
		}
	}
	m.mu.Unlock()

	sort.Strings(done)
	for _, name := range done {
		m.notify(name, types.LEDState{Mode: types.LEDOff})
	}
}

// Start runs the blink worker until Stop or ctx ends.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errcode.Wrap(errcode.AlreadyRunning, "start", "led manager", nil)
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	go func() {
		t := time.NewTicker(m.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.Tick(m.clock.NowMs(), m.clock.Period())
			}
		}
	}()
	m.log.Info("led manager started")
	return nil
}

func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return errcode.Wrap(errcode.NotRunning, "stop", "led manager", nil)
	}
	m.cancel()
	m.running = false
	m.log.Info("led manager stopped")
	return nil
}

func (m *Manager) set(op, name string, fn func(*led, uint32)) error {
	now := m.clock.NowMs()

	m.mu.Lock()
	l, ok := m.leds[name]
	if !ok {
		err := m.notFound(op, name)
		m.mu.Unlock()
		return err
	}
	fn(l, now)
	st := l.state()
	m.mu.Unlock()

	m.notify(name, st)
	return nil
}

func (m *Manager) notify(name string, st types.LEDState) {
	m.log.WithFields(logrus.Fields{"led": name, "mode": st.Mode}).Debug("led mode")
	if m.onChange != nil {
		m.onChange(name, st)
	}
}

func (m *Manager) notFound(op, name string) error {
	m.log.WithFields(logrus.Fields{"led": name, "op": op}).Warn("unknown led")
	return errcode.Wrap(errcode.UnknownLED, op, name, nil)
}
