package button

import "sensornode-go/x/timex"

// State is the position of one button's recognition FSM.
type State uint8

const (
	StateIdle         State = iota // initial; reached after every gesture
	StatePressed                   // press seen, not yet debounced or classified
	StateReleased                  // release seen, waiting out the debounce window
	StateCounting                  // click(s) counted, waiting for more or the click window
	StateLongPressed               // held past the long-press threshold
	StateLongReleased              // long press released, waiting out the debounce window
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePressed:
		return "pressed"
	case StateReleased:
		return "released"
	case StateCounting:
		return "counting"
	case StateLongPressed:
		return "long_pressed"
	case StateLongReleased:
		return "long_released"
	default:
		return "unknown"
	}
}

// step advances the FSM by one tick. pressed is the raw sample resolved
// against the active level. Recognised gestures are left in b.fired in
// dispatch order.
func (b *button) step(pressed bool, now uint32, period uint64) {
	b.fired = b.fired[:0]
	b.pressed = pressed
	b.refresh()
	elapsed := timex.ElapsedMs(b.since, now, period)

	switch b.state {
	case StateIdle:
		if pressed {
			b.press(now)
		}

	case StatePressed:
		switch {
		case pressed:
			if b.longPress && elapsed > b.cfg.LongPressMs {
				b.fire(LongPressStart, LongPressDuring)
				b.state = StateLongPressed
			}
		case elapsed < b.cfg.DebounceMs:
			// Too short to be a press: fall back to where we were.
			b.revert()
		default:
			b.enter(StateReleased, now)
		}

	case StateReleased:
		switch {
		case elapsed >= b.cfg.DebounceMs:
			b.clicks++
			b.enter(StateCounting, now)
			b.count(pressed, 0, now)
		case pressed:
			// Contact bounce; the release timer keeps running.
			b.prev, b.prevSince = StateReleased, b.since
			b.state = StatePressed
		}

	case StateCounting:
		b.count(pressed, elapsed, now)

	case StateLongPressed:
		if pressed {
			b.fire(LongPressDuring)
		} else {
			b.enter(StateLongReleased, now)
		}

	case StateLongReleased:
		switch {
		case elapsed >= b.cfg.DebounceMs:
			b.fire(LongPressStop)
			b.restart(pressed, now)
		case pressed:
			b.state = StateLongPressed
		}

	default:
		b.reset()
	}
}

// count decides whether a click sequence continues or is complete.
func (b *button) count(pressed bool, elapsed, now uint32) {
	switch {
	case b.clicks <= 0:
		b.reset()
	case b.clicks >= b.maxClicks:
		b.finish()
		b.restart(pressed, now)
	case pressed:
		b.prev, b.prevSince = StateCounting, b.since
		b.enter(StatePressed, now)
	case elapsed >= b.cfg.ClickMs:
		b.finish()
		b.reset()
	}
}

// finish queues the click gesture matching the final count.
func (b *button) finish() {
	g := MultiClick
	switch b.clicks {
	case 1:
		g = Click
	case 2:
		g = DoubleClick
	}
	b.fired = append(b.fired, firing{g: g, clicks: b.clicks})
}

// press starts a fresh sequence.
func (b *button) press(now uint32) {
	b.clicks = 0
	b.prev, b.prevSince = StateIdle, 0
	b.enter(StatePressed, now)
}

// restart returns to Idle and, if the line is already held, starts the next
// sequence on the same tick so the press is not lost.
func (b *button) restart(pressed bool, now uint32) {
	b.reset()
	if pressed {
		b.press(now)
	}
}

// revert restores the stable state that preceded a rejected press. A noise
// release returns to Counting or Released with their original entry time,
// so clicks already counted stay pending; only a first press falls back to
// Idle.
func (b *button) revert() {
	if b.prev == StateIdle {
		b.reset()
		return
	}
	b.state, b.since = b.prev, b.prevSince
}

func (b *button) enter(s State, now uint32) {
	b.state = s
	b.since = now
}

func (b *button) reset() {
	b.state = StateIdle
	b.prev = StateIdle
	b.since, b.prevSince = 0, 0
	b.clicks = 0
}

func (b *button) fire(gs ...Gesture) {
	for _, g := range gs {
		b.fired = append(b.fired, firing{g: g})
	}
}
