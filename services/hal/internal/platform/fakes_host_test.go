//go:build !rp2040 && !rp2350

package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"sensornode-go/services/hal/internal/halcore"
)

func TestFakePin_InputRestsAtPull(t *testing.T) {
	f := NewHostPinFactory()
	gp, ok := f.ByNumber(34)
	if !ok {
		t.Fatal("ByNumber failed")
	}
	if err := gp.ConfigureInput(halcore.PullUp); err != nil {
		t.Fatalf("ConfigureInput: %v", err)
	}
	if !gp.Get() {
		t.Fatal("pulled-up idle line should read high")
	}
	if f.Pin(34).Pull() != halcore.PullUp || f.Pin(34).IsOutput() {
		t.Fatal("pin mode not recorded")
	}
	if f.Pin(34) != gp.(*FakePin) {
		t.Fatal("factory must return stable instances")
	}
}

func TestFakePin_ConfigErr(t *testing.T) {
	p := NewFakePin(3)
	p.ConfigErr = errors.New("line busy")
	if err := p.ConfigureInput(halcore.PullDown); err == nil {
		t.Fatal("expected configure error")
	}
}

func TestHostI2C_RegisterPointer(t *testing.T) {
	bus := NewHostI2C()
	bus.SetReg(0x01, 0xAB, 0xCD)

	if err := bus.Tx(0x40, []byte{0x01}, nil); err != nil {
		t.Fatal(err)
	}
	r := make([]byte, 2)
	if err := bus.Tx(0x40, nil, r); err != nil {
		t.Fatal(err)
	}
	if r[0] != 0xAB || r[1] != 0xCD {
		t.Fatalf("read % x", r)
	}
	if bus.LastTx.Addr != 0x40 || bus.LastTx.Rn != 2 {
		t.Fatalf("LastTx = %+v", bus.LastTx)
	}
}

func TestHostSerial_ScriptedReply(t *testing.T) {
	s := NewHostSerial(func(w []byte) []byte { return []byte{w[0] + 1} })
	if _, err := s.Write([]byte{0x10}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	buf := make([]byte, 4)
	n, err := s.RecvSomeContext(ctx, buf)
	if err != nil || n != 1 || buf[0] != 0x11 {
		t.Fatalf("recv n=%d err=%v buf=% x", n, err, buf[:n])
	}
	if _, err := s.RecvSomeContext(ctx, buf); err == nil {
		t.Fatal("expected ctx expiry on empty line")
	}
}
