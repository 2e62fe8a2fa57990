package sensors

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sensornode-go/bus"
	"sensornode-go/drivers/cm1106"
	"sensornode-go/drivers/hdc1080"
	"sensornode-go/errcode"
	"sensornode-go/services/hal"
	"sensornode-go/types"
)

type fakeCO2 struct {
	mu      sync.Mutex
	ppm     uint16
	readErr error
	calErr  error
	cal     []uint16
}

func (f *fakeCO2) PPM(context.Context) (uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ppm, f.readErr
}

func (f *fakeCO2) Calibrate(_ context.Context, ppm uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cal = append(f.cal, ppm)
	return f.calErr
}

func readings(t *testing.T, sub *bus.Subscription, n int) map[types.Kind]types.SensorReading {
	t.Helper()
	got := map[types.Kind]types.SensorReading{}
	deadline := time.After(time.Second)
	for len(got) < n {
		select {
		case m := <-sub.Channel():
			r, ok := m.Payload.(types.SensorReading)
			if !ok {
				t.Fatalf("payload %T, want SensorReading", m.Payload)
			}
			if !m.Retained {
				t.Fatalf("reading on %v not retained", m.Topic)
			}
			got[r.Kind] = r
		case <-deadline:
			t.Fatalf("got %d readings, want %d", len(got), n)
		}
	}
	return got
}

func TestPoll_PublishesAllKinds(t *testing.T) {
	i2c := hal.NewHostI2C()
	th := hdc1080.New(i2c)
	if err := th.Configure(hdc1080.Config{ConversionWait: time.Millisecond}); err != nil {
		t.Fatal(err)
	}
	i2c.SetReg(0x00, 0x80, 0x00) // 42.5 °C
	i2c.SetReg(0x01, 0x40, 0x00) // 25 %RH

	b := bus.NewBus(8)
	conn := b.NewConnection("sensors")
	svc := New(Options{Climate: th, CO2: &fakeCO2{ppm: 640}}, nil)
	svc.Poll(context.Background(), conn)

	sub := b.NewConnection("test").Subscribe(bus.T("sensor", bus.SingleLevel))
	got := readings(t, sub, 3)

	if r := got[types.KindTemperature]; r.Value != 42.5 || r.Sensor != "hdc1080" {
		t.Errorf("temperature = %+v", r)
	}
	if r := got[types.KindHumidity]; r.Value != 25 {
		t.Errorf("humidity = %+v", r)
	}
	if r := got[types.KindCO2]; r.Value != 640 || r.Sensor != "cm1106" || r.Error != "" {
		t.Errorf("co2 = %+v", r)
	}
}

func TestPoll_ErrorReading(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("sensors")
	svc := New(Options{CO2: &fakeCO2{ppm: 999, readErr: cm1106.ErrChecksum}}, nil)
	svc.Poll(context.Background(), conn)

	sub := conn.Subscribe(ReadingTopic(types.KindCO2))
	r := readings(t, sub, 1)[types.KindCO2]
	if r.Error != string(errcode.BadChecksum) || r.Value != 0 {
		t.Fatalf("reading = %+v, want bad_checksum with zero value", r)
	}
}

func TestCalibrate_RequestReply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	co2 := &fakeCO2{ppm: 400}
	b := bus.NewBus(8)
	_ = New(Options{Interval: time.Hour, CO2: co2}, nil).Start(ctx, b.NewConnection("sensors"))

	client := b.NewConnection("client")
	ask := func(payload any) types.Ack {
		t.Helper()
		rctx, rcancel := context.WithTimeout(ctx, time.Second)
		defer rcancel()
		rep, err := client.RequestWait(rctx, client.NewMessage(CalibrateTopic(), payload, false))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		ack, ok := rep.Payload.(types.Ack)
		if !ok {
			t.Fatalf("reply %T, want Ack", rep.Payload)
		}
		return ack
	}

	if ack := ask(nil); !ack.OK {
		t.Fatalf("default calibrate ack = %+v", ack)
	}
	if ack := ask(float64(420)); !ack.OK {
		t.Fatalf("420 ack = %+v", ack)
	}
	if ack := ask("lots"); ack.OK || ack.Error != string(errcode.InvalidPayload) {
		t.Fatalf("bad payload ack = %+v", ack)
	}

	co2.mu.Lock()
	co2.calErr = cm1106.ErrTimeout
	co2.mu.Unlock()
	if ack := ask(nil); ack.OK || ack.Error != string(errcode.Timeout) {
		t.Fatalf("failing calibrate ack = %+v", ack)
	}

	co2.mu.Lock()
	defer co2.mu.Unlock()
	if len(co2.cal) != 3 || co2.cal[0] != cm1106.DefaultPPM || co2.cal[1] != 420 {
		t.Fatalf("calibrations = %v", co2.cal)
	}
}

func TestCalibrate_NoSensor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(8)
	_ = New(Options{Interval: time.Hour}, nil).Start(ctx, b.NewConnection("sensors"))

	client := b.NewConnection("client")
	rctx, rcancel := context.WithTimeout(ctx, time.Second)
	defer rcancel()
	rep, err := client.RequestWait(rctx, client.NewMessage(CalibrateTopic(), nil, false))
	if err != nil {
		t.Fatal(err)
	}
	if ack := rep.Payload.(types.Ack); ack.OK || ack.Error != string(errcode.Unsupported) {
		t.Fatalf("ack = %+v", ack)
	}
}

func TestPPMOf(t *testing.T) {
	cases := []struct {
		in   any
		want uint16
		ok   bool
	}{
		{nil, 400, true},
		{float64(800), 800, true},
		{1000, 1000, true},
		{map[string]any{"ppm": 450.0}, 450, true},
		{float64(-1), 0, false},
		{"x", 0, false},
	}
	for _, c := range cases {
		got, ok := ppmOf(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ppmOf(%v) = %d,%v want %d,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestCodeOf(t *testing.T) {
	if c := codeOf(errors.New("x")); c != errcode.Error {
		t.Fatalf("codeOf(plain) = %s", c)
	}
}
