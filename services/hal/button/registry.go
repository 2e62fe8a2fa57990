// Package button recognises clicks, multi-clicks and long presses on any
// number of polled push buttons.
//
// A Registry owns the buttons; a Scheduler samples every registered button
// once per tick and advances its state machine. Handlers run synchronously on
// the scheduler's goroutine.
package button

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"sensornode-go/errcode"
	"sensornode-go/x/logx"
)

// Registry is the set of named buttons. One mutex serialises structural
// changes, configuration changes and the scheduler's tick.
type Registry struct {
	mu      sync.Mutex
	buttons map[string]*button
	names   []string // sorted; fixes the per-tick processing order
	log     *logrus.Entry

	failures atomic.Uint64
}

func NewRegistry(log *logrus.Entry) *Registry {
	return &Registry{
		buttons: make(map[string]*button),
		log:     logx.OrDiscard(log),
	}
}

// Add configures line as an input, with the pull resistor that holds it at
// the released level, and registers it under name with default timings.
// A line that cannot be configured is an error and nothing is registered.
func (r *Registry) Add(name string, line LevelReader, active Level) error {
	if line == nil {
		return errcode.Wrap(errcode.InvalidParams, "add", name, nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.buttons[name]; ok {
		r.log.WithField("button", name).Warn("button already exists")
		return errcode.Wrap(errcode.ButtonExists, "add", name, nil)
	}
	if err := line.ConfigureInput(active.pull()); err != nil {
		return errcode.Wrap(errcode.PinConfig, "add", name, err)
	}

	r.buttons[name] = newButton(name, line, active)
	i := sort.SearchStrings(r.names, name)
	r.names = append(r.names, "")
	copy(r.names[i+1:], r.names[i:])
	r.names[i] = name

	r.log.WithFields(logrus.Fields{"button": name, "active": active}).Debug("button added")
	return nil
}

// Remove drops a button. It is safe while the scheduler runs.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.buttons[name]; !ok {
		return r.notFound("remove", name)
	}
	delete(r.buttons, name)
	if i := sort.SearchStrings(r.names, name); i < len(r.names) && r.names[i] == name {
		r.names = append(r.names[:i], r.names[i+1:]...)
	}
	r.log.WithField("button", name).Debug("button removed")
	return nil
}

// SetDebounce sets the minimum stable time, in ms, before a level change is trusted.
func (r *Registry) SetDebounce(name string, ms uint32) error {
	return r.update("set_debounce", name, func(b *button) { b.cfg.DebounceMs = ms })
}

// SetClickWindow sets how long, in ms, a click sequence waits for another press.
func (r *Registry) SetClickWindow(name string, ms uint32) error {
	return r.update("set_click_window", name, func(b *button) { b.cfg.ClickMs = ms })
}

// SetLongPress sets how long, in ms, a press must be held to become a long press.
func (r *Registry) SetLongPress(name string, ms uint32) error {
	return r.update("set_long_press", name, func(b *button) { b.cfg.LongPressMs = ms })
}

// Configure replaces all timings at once. The active level is fixed at Add
// and cfg.Active is ignored.
func (r *Registry) Configure(name string, cfg Config) error {
	return r.update("configure", name, func(b *button) {
		cfg.Active = b.cfg.Active
		b.cfg = cfg
	})
}

// SetHandler installs fn for gesture g; a nil fn clears the slot. arg is
// passed back untouched in Event.Arg.
func (r *Registry) SetHandler(name string, g Gesture, fn Handler, arg any) error {
	if g >= numGestures {
		return errcode.Wrap(errcode.InvalidParams, "set_handler", fmt.Sprintf("gesture %d", g), nil)
	}
	return r.update("set_handler", name, func(b *button) { b.slots[g] = slot{fn: fn, arg: arg} })
}

func (r *Registry) OnClick(name string, fn Handler, arg any) error {
	return r.SetHandler(name, Click, fn, arg)
}

func (r *Registry) OnDoubleClick(name string, fn Handler, arg any) error {
	return r.SetHandler(name, DoubleClick, fn, arg)
}

// OnMultiClick handles sequences of three or more clicks; registering it
// lifts the click ceiling so sequences end only on the click window.
func (r *Registry) OnMultiClick(name string, fn Handler, arg any) error {
	return r.SetHandler(name, MultiClick, fn, arg)
}

func (r *Registry) OnLongPressStart(name string, fn Handler, arg any) error {
	return r.SetHandler(name, LongPressStart, fn, arg)
}

// OnLongPressDuring fires on the tick a long press starts and on every tick
// it is held afterwards.
func (r *Registry) OnLongPressDuring(name string, fn Handler, arg any) error {
	return r.SetHandler(name, LongPressDuring, fn, arg)
}

func (r *Registry) OnLongPressStop(name string, fn Handler, arg any) error {
	return r.SetHandler(name, LongPressStop, fn, arg)
}

// Config returns a button's current configuration.
func (r *Registry) Config(name string) (Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buttons[name]
	if !ok {
		return Config{}, r.notFound("config", name)
	}
	return b.cfg, nil
}

// Exists reports whether name is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.buttons[name]
	return ok
}

// Names lists registered buttons in processing order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

// State reports a button's FSM state and pending click count, for diagnostics.
func (r *Registry) State(name string) (State, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buttons[name]
	if !ok {
		return StateIdle, 0, r.notFound("state", name)
	}
	return b.state, b.clicks, nil
}

// HandlerFailures counts handler errors and panics since construction.
func (r *Registry) HandlerFailures() uint64 { return r.failures.Load() }

// ResetAll returns every button's FSM to Idle, keeping configuration.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.names {
		r.buttons[name].reset()
	}
}

// Tick samples every button once and advances its FSM to the clock reading
// now, on a clock that wraps at period (0 = 2^32). Handlers for recognised
// gestures run before Tick returns.
func (r *Registry) Tick(now uint32, period uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.names {
		b := r.buttons[name]
		from := b.state
		b.step(b.sample(), now, period)
		if b.state != from && r.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
			r.log.WithField("button", name).Tracef("%s to %s", from, b.state)
		}
		for _, f := range b.fired {
			r.dispatch(b, f, now)
		}
	}
}

// dispatch runs one handler behind a recover so a failing handler cannot
// stop the tick or disturb other buttons.
func (r *Registry) dispatch(b *button, f firing, now uint32) {
	l := r.log.WithFields(logrus.Fields{"button": b.name, "gesture": f.g})
	if f.g != LongPressDuring {
		l.Debug("gesture")
	}
	s := b.slots[f.g]
	if !s.set() {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.failures.Add(1)
			l.Errorf("handler panic: %v", p)
		}
	}()
	err := s.fn(Event{Button: b.name, Gesture: f.g, Clicks: f.clicks, At: now, Arg: s.arg})
	if err != nil {
		r.failures.Add(1)
		l.WithError(err).Error("handler failed")
	}
}

func (r *Registry) update(op, name string, fn func(*button)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buttons[name]
	if !ok {
		return r.notFound(op, name)
	}
	fn(b)
	return nil
}

func (r *Registry) notFound(op, name string) error {
	r.log.WithFields(logrus.Fields{"button": name, "op": op}).Warn("unknown button")
	return errcode.Wrap(errcode.UnknownButton, op, name, nil)
}
