// Package cm1106 provides a driver for the Cubic CM1106 NDIR CO2 sensor over
// its 9600 8N1 UART protocol.
//
// Frames sent to the sensor start with 0x11, replies with 0x16. The last byte
// of every frame is a checksum making the byte sum a multiple of 256.
package cm1106

import (
	"context"
	"errors"
	"sync"
	"time"
)

const BaudRate = 9600

const (
	headSend = 0x11
	headAck  = 0x16

	cmdRead      = 0x01
	cmdCalibrate = 0x03

	readReplyLen      = 8
	calibrateReplyLen = 4
)

// Defaults.
const (
	DefaultSettle  = 25 * time.Millisecond
	DefaultTimeout = 5 * time.Second
	DefaultPPM     = 400
)

var (
	ErrChecksum = errors.New("cm1106: bad checksum")
	ErrProtocol = errors.New("cm1106: protocol error")
	ErrTimeout  = errors.New("cm1106: timeout")
)

// Port is the byte stream the sensor is attached to.
type Port interface {
	Write(p []byte) (int, error)
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

// Config controls timing. Zero fields take defaults.
type Config struct {
	// Settle is the pause between sending a command and reading the reply.
	Settle time.Duration
	// Timeout bounds the wait for a complete reply.
	Timeout time.Duration
}

// Device talks to one CM1106.
type Device struct {
	mu   sync.Mutex
	port Port
	cfg  Config
	buf  [readReplyLen]byte
}

func New(port Port, cfgs ...Config) *Device {
	c := Config{}
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return &Device{port: port, cfg: c}
}

// PPM reads the current CO2 concentration.
func (d *Device) PPM(ctx context.Context) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rep := d.buf[:readReplyLen]
	if err := d.exchange(ctx, Frame(cmdRead), rep); err != nil {
		return 0, err
	}
	if rep[0] != headAck || rep[1] != 0x05 || rep[2] != cmdRead {
		return 0, ErrProtocol
	}
	if Checksum(rep[:readReplyLen-1]) != rep[readReplyLen-1] {
		return 0, ErrChecksum
	}
	return uint16(rep[3])<<8 | uint16(rep[4]), nil
}

// Calibrate sets the current concentration as ppm (single-point zero
// calibration). The sensor should sit in air of known concentration.
func (d *Device) Calibrate(ctx context.Context, ppm uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	rep := d.buf[:calibrateReplyLen]
	if err := d.exchange(ctx, Frame(cmdCalibrate, byte(ppm>>8), byte(ppm)), rep); err != nil {
		return err
	}
	if rep[0] != headAck || rep[1] != 0x01 || rep[2] != cmdCalibrate {
		return ErrProtocol
	}
	if Checksum(rep[:calibrateReplyLen-1]) != rep[calibrateReplyLen-1] {
		return ErrChecksum
	}
	return nil
}

// Frame builds a command frame: head, length, command, data, checksum.
func Frame(cmd byte, data ...byte) []byte {
	f := make([]byte, 0, 4+len(data))
	f = append(f, headSend, byte(1+len(data)), cmd)
	f = append(f, data...)
	return append(f, Checksum(f))
}

// Checksum returns the byte that brings the sum of b to a multiple of 256.
func Checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return -sum
}

func (d *Device) exchange(ctx context.Context, cmd, reply []byte) error {
	d.drain()
	if _, err := d.port.Write(cmd); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.cfg.Settle):
	}

	rctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	for got := 0; got < len(reply); {
		n, err := d.port.RecvSomeContext(rctx, reply[got:])
		got += n
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return ErrTimeout
			}
			return err
		}
	}
	return nil
}

// drain discards stale bytes so replies line up with commands.
func (d *Device) drain() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var junk [16]byte
	for {
		n, err := d.port.RecvSomeContext(ctx, junk[:])
		if err != nil || n == 0 {
			return
		}
	}
}
