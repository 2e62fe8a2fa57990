package button

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"sensornode-go/errcode"
	"sensornode-go/services/hal"
)

func TestRegistry_ConfigRoundTrip(t *testing.T) {
	reg := NewRegistry(nil)
	if err := reg.Add("a", hal.NewFakePin(1), ActiveHigh); err != nil {
		t.Fatal(err)
	}

	got, err := reg.Config("a")
	if err != nil {
		t.Fatal(err)
	}
	if got != DefaultConfig(ActiveHigh) {
		t.Fatalf("fresh config = %+v, want defaults", got)
	}

	if err := reg.SetDebounce("a", 25); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetClickWindow("a", 300); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetLongPress("a", 1200); err != nil {
		t.Fatal(err)
	}

	got, _ = reg.Config("a")
	want := Config{DebounceMs: 25, ClickMs: 300, LongPressMs: 1200, Active: ActiveHigh}
	if got != want {
		t.Fatalf("config = %+v, want %+v", got, want)
	}

	// Configure keeps the active level chosen at Add.
	if err := reg.Configure("a", Config{DebounceMs: 10, ClickMs: 20, LongPressMs: 30, Active: ActiveLow}); err != nil {
		t.Fatal(err)
	}
	got, _ = reg.Config("a")
	if got.DebounceMs != 10 || got.ClickMs != 20 || got.LongPressMs != 30 || got.Active != ActiveHigh {
		t.Fatalf("after Configure = %+v", got)
	}
}

func TestRegistry_UnknownName(t *testing.T) {
	reg := NewRegistry(nil)
	noop := func(Event) error { return nil }

	calls := map[string]func() error{
		"remove":         func() error { return reg.Remove("nope") },
		"set_debounce":   func() error { return reg.SetDebounce("nope", 1) },
		"set_click":      func() error { return reg.SetClickWindow("nope", 1) },
		"set_long":       func() error { return reg.SetLongPress("nope", 1) },
		"configure":      func() error { return reg.Configure("nope", Config{}) },
		"on_click":       func() error { return reg.OnClick("nope", noop, nil) },
		"on_double":      func() error { return reg.OnDoubleClick("nope", noop, nil) },
		"on_multi":       func() error { return reg.OnMultiClick("nope", noop, nil) },
		"on_long_start":  func() error { return reg.OnLongPressStart("nope", noop, nil) },
		"on_long_during": func() error { return reg.OnLongPressDuring("nope", noop, nil) },
		"on_long_stop":   func() error { return reg.OnLongPressStop("nope", noop, nil) },
		"config":         func() error { _, err := reg.Config("nope"); return err },
		"state":          func() error { _, _, err := reg.State("nope"); return err },
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, errcode.UnknownButton) {
			t.Errorf("%s: err = %v, want %s", name, err, errcode.UnknownButton)
		}
	}
	if reg.Exists("nope") {
		t.Fatal("Exists reported an unregistered button")
	}
}

func TestRegistry_DuplicateAdd_KeepsExisting(t *testing.T) {
	reg := NewRegistry(nil)
	first := hal.NewFakePin(1)
	if err := reg.Add("a", first, ActiveHigh); err != nil {
		t.Fatal(err)
	}
	_ = reg.SetDebounce("a", 77)

	second := hal.NewFakePin(2)
	err := reg.Add("a", second, ActiveLow)
	if !errors.Is(err, errcode.ButtonExists) {
		t.Fatalf("err = %v, want %s", err, errcode.ButtonExists)
	}
	if second.Pull() != hal.PullNone {
		t.Fatal("duplicate Add touched the new line")
	}
	cfg, _ := reg.Config("a")
	if cfg.DebounceMs != 77 || cfg.Active != ActiveHigh {
		t.Fatalf("existing entry changed: %+v", cfg)
	}
}

func TestRegistry_LineConfigFailure_Propagates(t *testing.T) {
	reg := NewRegistry(nil)
	pin := hal.NewFakePin(1)
	cause := errors.New("no such line")
	pin.ConfigErr = cause

	err := reg.Add("a", pin, ActiveHigh)
	if !errors.Is(err, errcode.PinConfig) || !errors.Is(err, cause) {
		t.Fatalf("err = %v, want %s wrapping cause", err, errcode.PinConfig)
	}
	if reg.Exists("a") {
		t.Fatal("button registered despite line failure")
	}
}

func TestRegistry_PullFollowsActiveLevel(t *testing.T) {
	reg := NewRegistry(nil)
	hi, lo := hal.NewFakePin(1), hal.NewFakePin(2)
	_ = reg.Add("hi", hi, ActiveHigh)
	_ = reg.Add("lo", lo, ActiveLow)

	if hi.Pull() != hal.PullDown {
		t.Errorf("active-high pull = %s, want down", hi.Pull())
	}
	if lo.Pull() != hal.PullUp {
		t.Errorf("active-low pull = %s, want up", lo.Pull())
	}
	if hi.IsOutput() || lo.IsOutput() {
		t.Error("button line configured as output")
	}
}

func TestRegistry_NamesSortedAndRemove(t *testing.T) {
	reg := NewRegistry(nil)
	for i, n := range []string{"c", "a", "b"} {
		if err := reg.Add(n, hal.NewFakePin(i), ActiveHigh); err != nil {
			t.Fatal(err)
		}
	}
	if got := reg.Names(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("Names = %v", got)
	}
	if err := reg.Remove("b"); err != nil {
		t.Fatal(err)
	}
	if got := reg.Names(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("Names after remove = %v", got)
	}
	if err := reg.Remove("b"); !errors.Is(err, errcode.UnknownButton) {
		t.Fatalf("second remove err = %v", err)
	}
	// The name is free again.
	if err := reg.Add("b", hal.NewFakePin(9), ActiveHigh); err != nil {
		t.Fatalf("re-add: %v", err)
	}
}

func TestRegistry_SetHandlerRejectsBadGesture(t *testing.T) {
	reg := NewRegistry(nil)
	_ = reg.Add("a", hal.NewFakePin(1), ActiveHigh)
	err := reg.SetHandler("a", Gesture(200), func(Event) error { return nil }, nil)
	if !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("err = %v, want %s", err, errcode.InvalidParams)
	}
}

func TestRegistry_HandlerFailuresIsolated(t *testing.T) {
	reg := NewRegistry(nil)
	pins := map[string]*hal.FakePin{"a": hal.NewFakePin(1), "b": hal.NewFakePin(2), "c": hal.NewFakePin(3)}
	for n, p := range pins {
		if err := reg.Add(n, p, ActiveHigh); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	_ = reg.OnClick("a", func(Event) error { panic("boom") }, nil)
	_ = reg.OnClick("b", func(Event) error { return errors.New("nope") }, nil)
	_ = reg.OnClick("c", func(ev Event) error {
		got = append(got, ev.Arg.(string))
		return nil
	}, "ctx-c")

	for now := uint32(0); now < 600; now += 10 {
		for _, p := range pins {
			p.Set(now < 100)
		}
		reg.Tick(now, 0)
	}

	if !reflect.DeepEqual(got, []string{"ctx-c"}) {
		t.Fatalf("healthy handler saw %v, want one call with its arg", got)
	}
	if n := reg.HandlerFailures(); n != 2 {
		t.Fatalf("HandlerFailures = %d, want 2", n)
	}
	for n := range pins {
		if st, clicks, _ := reg.State(n); st != StateIdle || clicks != 0 {
			t.Errorf("%s left in %s/%d", n, st, clicks)
		}
	}
}

func TestRegistry_ClearHandler(t *testing.T) {
	reg := NewRegistry(nil)
	pin := hal.NewFakePin(1)
	_ = reg.Add("a", pin, ActiveHigh)

	calls := 0
	_ = reg.OnClick("a", func(Event) error { calls++; return nil }, nil)
	_ = reg.OnClick("a", nil, nil)

	for now := uint32(0); now < 600; now += 10 {
		pin.Set(now < 100)
		reg.Tick(now, 0)
	}
	if calls != 0 {
		t.Fatalf("cleared handler ran %d times", calls)
	}
}

func TestRegistry_ResetAll(t *testing.T) {
	reg := NewRegistry(nil)
	pin := hal.NewFakePin(1)
	_ = reg.Add("a", pin, ActiveHigh)

	pin.Set(true)
	reg.Tick(0, 0)
	if st, _, _ := reg.State("a"); st != StatePressed {
		t.Fatalf("state = %s, want pressed", st)
	}
	reg.ResetAll()
	if st, _, _ := reg.State("a"); st != StateIdle {
		t.Fatalf("state after reset = %s, want idle", st)
	}
	if cfg, _ := reg.Config("a"); cfg != DefaultConfig(ActiveHigh) {
		t.Fatalf("ResetAll changed config: %+v", cfg)
	}
}

func TestRegistry_AddRemoveWhileTicking(t *testing.T) {
	reg := NewRegistry(nil)
	if err := reg.Add("steady", hal.NewFakePin(0), ActiveHigh); err != nil {
		t.Fatal(err)
	}
	s := NewScheduler(reg, Options{Interval: time.Millisecond}, nil)
	if err := s.Start(context.Background(), 0, 0); err != nil {
		t.Fatal(err)
	}

	const workers, cycles = 4, 200
	nop := func(Event) error { return nil }
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("g%d", i)
			for c := 0; c < cycles; c++ {
				pin := hal.NewFakePin(i + 1)
				if err := reg.Add(name, pin, ActiveHigh); err != nil {
					t.Errorf("%s cycle %d: Add: %v", name, c, err)
					return
				}
				if err := reg.OnClick(name, nop, nil); err != nil {
					t.Errorf("%s cycle %d: OnClick: %v", name, c, err)
					return
				}
				pin.Set(true)
				pin.Set(false)
				if err := reg.Remove(name); err != nil {
					t.Errorf("%s cycle %d: Remove: %v", name, c, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := reg.Names(); !reflect.DeepEqual(got, []string{"steady"}) {
		t.Fatalf("Names = %v, want [steady]", got)
	}

	before := s.Stats().Ticks
	if err := s.Start(context.Background(), 0, 0); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer s.Stop()
	if !waitFor(t, time.Second, func() bool { return s.Stats().Ticks > before }) {
		t.Fatal("scheduler did not tick after restart")
	}
	if st, clicks, err := reg.State("steady"); err != nil || st != StateIdle || clicks != 0 {
		t.Fatalf("steady = %s/%d/%v, want idle", st, clicks, err)
	}
}
