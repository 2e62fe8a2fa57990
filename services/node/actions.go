package node

import (
	"context"
	"runtime"

	"github.com/sirupsen/logrus"

	"sensornode-go/bus"
	"sensornode-go/services/hal/button"
	"sensornode-go/services/sensors"
	"sensornode-go/types"
	"sensornode-go/x/timex"
)

// onGesture runs inside the button tick: it publishes and queues LED work
// but never waits.
func (n *Node) onGesture(ev button.Event) error {
	n.conn.Publish(n.conn.NewMessage(ButtonTopic(ev.Button, ev.Gesture), types.ButtonEvent{
		Button:  ev.Button,
		Gesture: ev.Gesture.String(),
		Clicks:  ev.Clicks,
		TS:      timex.NowMs(),
	}, false))

	status := n.cfg.StatusLED
	switch ev.Gesture {
	case button.Click:
		n.logDiagnostics()
		return n.flash(status, 1)
	case button.DoubleClick:
		n.request(sensors.CalibrateTopic(), nil)
		return n.flash(status, 2)
	case button.MultiClick:
		n.conn.Publish(n.conn.NewMessage(TopicResetConfig, nil, false))
		return n.flash(status, 3)
	case button.LongPressStart:
		if status != "" {
			return n.leds.On(status)
		}
	case button.LongPressStop:
		n.conn.Publish(n.conn.NewMessage(TopicRestart, nil, false))
		if status != "" {
			return n.leds.Off(status)
		}
	}
	return nil
}

// logDiagnostics reports scheduler counters and a runtime memory snapshot.
func (n *Node) logDiagnostics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	f := n.stats()
	f["alloc"] = ms.Alloc
	f["heapInuse"] = ms.HeapInuse
	f["heapSys"] = ms.HeapSys
	f["mallocs"] = ms.Mallocs
	f["frees"] = ms.Frees
	n.log.WithFields(f).Info("diagnostics")
}

func (n *Node) flash(name string, count int) error {
	if name == "" {
		return nil
	}
	return n.leds.Flash(name, count, flashOnMs, flashOffMs)
}

// request sends a bus request and logs the Ack off the tick goroutine.
func (n *Node) request(topic bus.Topic, payload any) {
	go func() {
		ctx, cancel := context.WithTimeout(n.ctx, requestTimeout)
		defer cancel()

		l := n.log.WithField("topic", topic)
		rep, err := n.conn.RequestWait(ctx, n.conn.NewMessage(topic, payload, false))
		if err != nil {
			l.WithError(err).Warn("request unanswered")
			return
		}
		if ack, ok := rep.Payload.(types.Ack); ok && !ack.OK {
			l.WithField("error", ack.Error).Warn("request failed")
			return
		}
		l.Info("request done")
	}()
}

func (n *Node) publishLED(name string, st types.LEDState) {
	n.conn.Publish(n.conn.NewMessage(LEDTopic(name), st, true))
	n.log.WithFields(logrus.Fields{"led": name, "mode": st.Mode}).Trace("led state")
}
