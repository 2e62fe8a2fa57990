// bus/bus_test.go
package bus

import (
	"context"
	"sort"
	"testing"
	"time"
)

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("button", "front", "click"))
	conn.Publish(conn.NewMessage(T("button", "front", "click"), "hello", false))

	expectOneOf(t, sub, "hello")
}

func TestRetained_ReplayedToLateSubscriber(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(b.NewMessage(T("config", "heartbeat"), "persist", true))
	sub := conn.Subscribe(T("config", "heartbeat"))

	expectOneOf(t, sub, "persist")
}

func TestWildcard_SingleLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	sClick := c.Subscribe(T("button", "+", "click"))
	sAny := c.Subscribe(T("button", "+", "+"))
	sNo := c.Subscribe(T("button", "+", "long_press_stop"))

	c.Publish(b.NewMessage(T("button", "front", "click"), "m1", false))
	expectOneOf(t, sClick, "m1")
	expectOneOf(t, sAny, "m1")
	expectNoMessage(t, sNo)

	// One level short: "+" must consume exactly one token.
	c.Publish(b.NewMessage(T("button", "front"), "m2", false))
	expectNoMessage(t, sClick)
	expectNoMessage(t, sAny)
}

func TestWildcard_MultiLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	sTree := c.Subscribe(T("sensor", "#"))
	sAll := c.Subscribe(T("#"))
	sExact := c.Subscribe(T("sensor"))

	c.Publish(b.NewMessage(T("sensor"), "p1", false))
	expectOneOf(t, sTree, "p1")
	expectOneOf(t, sAll, "p1")
	expectOneOf(t, sExact, "p1")

	c.Publish(b.NewMessage(T("sensor", "co2", "ppm"), "p2", false))
	expectOneOf(t, sTree, "p2")
	expectOneOf(t, sAll, "p2")
	expectNoMessage(t, sExact)
}

func TestWildcard_RetainedDelivery(t *testing.T) {
	b := NewBus(32)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("sensor"), "r0", true))
	c.Publish(b.NewMessage(T("sensor", "temperature"), "r1", true))
	c.Publish(b.NewMessage(T("sensor", "co2", "raw"), "r2", true))
	c.Publish(b.NewMessage(T("sensor", "humidity"), "r3", true))

	assertUnorderedEqual(t, drainPayloads(t, c.Subscribe(T("sensor", "#")), 4), []string{"r0", "r1", "r2", "r3"})
	assertUnorderedEqual(t, drainPayloads(t, c.Subscribe(T("sensor", "+")), 2), []string{"r1", "r3"})
}

func TestRetained_ClearWithNilPayload(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("led", "status"), "on", true))
	c.Publish(b.NewMessage(T("led", "wifi"), "off", true))
	c.Publish(b.NewMessage(T("led", "status"), nil, true))

	got := drainPayloads(t, c.Subscribe(T("led", "#")), 1)
	if got[0] != "off" {
		t.Fatalf("expected only 'off' after clear, got %v", got)
	}
}

func TestUnsubscribe_ClosesAndStopsDelivery(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	sub := c.Subscribe(T("a"))
	c.Unsubscribe(sub)
	c.Unsubscribe(sub) // second call is a no-op

	if _, ok := <-sub.Channel(); ok {
		t.Fatal("channel should be closed")
	}
	c.Publish(b.NewMessage(T("a"), "x", false)) // must not panic
}

func TestRequestReply_RequestWait(t *testing.T) {
	b := NewBus(8)
	reqConn := b.NewConnection("requester")
	respConn := b.NewConnection("responder")

	reqTopic := T("sensor", "co2", "calibrate")
	respSub := respConn.Subscribe(reqTopic)
	defer respConn.Unsubscribe(respSub)

	go func() {
		if msg, ok := <-respSub.Channel(); ok {
			respConn.Reply(msg, "OK", false)
		}
	}()

	req := b.NewMessage(reqTopic, 400, false)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	reply, err := reqConn.RequestWait(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error waiting for reply: %v", err)
	}
	if got, ok := reply.Payload.(string); !ok || got != "OK" {
		t.Fatalf("unexpected reply payload: %#v", reply.Payload)
	}
	if len(req.ReplyTo) == 0 {
		t.Fatal("request lacks ReplyTo after RequestWait")
	}
}

func TestRequestReply_Timeout(t *testing.T) {
	b := NewBus(8)
	reqConn := b.NewConnection("requester")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := reqConn.RequestWait(ctx, b.NewMessage(T("service", "noop"), nil, false)); err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

func TestReply_WithoutReplyTo(t *testing.T) {
	c := NewBus(1).NewConnection("x")
	if c.Reply(&Message{Topic: T("a")}, "x", false) {
		t.Fatal("Reply should report false without ReplyTo")
	}
}

func TestTopic_InvalidTokenPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for non-comparable token, got none")
		}
	}()
	_ = T([]byte{1, 2, 3})
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func expectOneOf(t *testing.T, sub *Subscription, want string) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		s, ok := got.Payload.(string)
		if !ok || s != want {
			t.Fatalf("unexpected payload: %v (want %q)", got.Payload, want)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for %q", want)
	}
}

func expectNoMessage(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected message: %#v", got)
	case <-time.After(30 * time.Millisecond):
	}
}

func drainPayloads(t *testing.T, sub *Subscription, n int) []string {
	t.Helper()
	var out []string
	deadline := time.Now().Add(300 * time.Millisecond)
	for len(out) < n && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			s, ok := m.Payload.(string)
			if !ok {
				t.Fatalf("non-string payload in drain: %#v", m.Payload)
			}
			out = append(out, s)
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(out) != n {
		t.Fatalf("drainPayloads: expected %d messages, got %d (%v)", n, len(out), out)
	}
	return out
}

func assertUnorderedEqual(t *testing.T, got, want []string) {
	t.Helper()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %v, want %v", i, got, want)
		}
	}
}
