// Package sensors polls the environmental sensors and publishes readings as
// retained sensor/<kind> messages.
package sensors

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"sensornode-go/bus"
	"sensornode-go/drivers/cm1106"
	"sensornode-go/errcode"
	"sensornode-go/types"
	"sensornode-go/x/logx"
	"sensornode-go/x/timex"
)

var (
	topicCalibrate = bus.T("sensor", string(types.KindCO2), "calibrate")
)

// ReadingTopic is where readings of kind are retained.
func ReadingTopic(k types.Kind) bus.Topic { return bus.T("sensor", string(k)) }

// CalibrateTopic accepts CO2 calibration requests; the payload is the
// reference concentration in ppm (default 400).
func CalibrateTopic() bus.Topic { return topicCalibrate }

// Climate is a temperature/humidity sensor, e.g. *hdc1080.Device.
type Climate interface {
	Temperature() (float32, error)
	Humidity() (float32, error)
}

// CO2 is a carbon dioxide sensor, e.g. *cm1106.Device.
type CO2 interface {
	PPM(ctx context.Context) (uint16, error)
	Calibrate(ctx context.Context, ppm uint16) error
}

const DefaultInterval = 30 * time.Second

type Options struct {
	Interval    time.Duration
	Climate     Climate
	ClimateName string
	CO2         CO2
	CO2Name     string
}

type Service struct {
	opts Options
	log  *logrus.Entry
}

func New(opts Options, log *logrus.Entry) *Service {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.ClimateName == "" {
		opts.ClimateName = "hdc1080"
	}
	if opts.CO2Name == "" {
		opts.CO2Name = "cm1106"
	}
	return &Service{opts: opts, log: logx.OrDiscard(log)}
}

// Start polls immediately, then every Interval, until ctx ends.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	calSub := conn.Subscribe(topicCalibrate)
	go s.serviceLoop(ctx, conn, calSub)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, calSub *bus.Subscription) {
	defer conn.Unsubscribe(calSub)

	tick := time.NewTicker(s.opts.Interval)
	defer tick.Stop()

	s.Poll(ctx, conn)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sensors service stopping")
			return
		case <-tick.C:
			s.Poll(ctx, conn)
		case msg, ok := <-calSub.Channel():
			if !ok {
				return
			}
			s.calibrate(ctx, conn, msg)
		}
	}
}

// Poll reads every configured sensor once and publishes the results.
func (s *Service) Poll(ctx context.Context, conn *bus.Connection) {
	if c := s.opts.Climate; c != nil {
		v, err := c.Temperature()
		s.publish(conn, types.KindTemperature, s.opts.ClimateName, v, err)
		v, err = c.Humidity()
		s.publish(conn, types.KindHumidity, s.opts.ClimateName, v, err)
	}
	if c := s.opts.CO2; c != nil {
		ppm, err := c.PPM(ctx)
		s.publish(conn, types.KindCO2, s.opts.CO2Name, float32(ppm), err)
	}
}

func (s *Service) publish(conn *bus.Connection, k types.Kind, sensor string, v float32, err error) {
	r := types.SensorReading{Kind: k, Sensor: sensor, Value: v, TS: timex.NowMs()}
	l := s.log.WithFields(logrus.Fields{"kind": k, "sensor": sensor})
	if err != nil {
		r.Value = 0
		r.Error = string(codeOf(err))
		l.WithError(err).Error("sensor read failed")
	} else {
		l.WithField("value", v).Debug("reading")
	}
	conn.Publish(conn.NewMessage(ReadingTopic(k), r, true))
}

func (s *Service) calibrate(ctx context.Context, conn *bus.Connection, msg *bus.Message) {
	ack := types.Ack{OK: true}
	ppm, ok := ppmOf(msg.Payload)
	switch {
	case !ok:
		ack = types.Ack{Error: string(errcode.InvalidPayload)}
	case s.opts.CO2 == nil:
		ack = types.Ack{Error: string(errcode.Unsupported)}
	default:
		if err := s.opts.CO2.Calibrate(ctx, ppm); err != nil {
			s.log.WithError(err).Error("co2 calibration failed")
			ack = types.Ack{Error: string(codeOf(err))}
		} else {
			s.log.WithField("ppm", ppm).Info("co2 calibrated")
		}
	}
	conn.Reply(msg, ack, false)
}

// ppmOf accepts nil (default), a JSON number or an integer.
func ppmOf(p any) (uint16, bool) {
	var v float64
	switch x := p.(type) {
	case nil:
		return cm1106.DefaultPPM, true
	case float64:
		v = x
	case int:
		v = float64(x)
	case uint16:
		return x, true
	case map[string]any:
		return ppmOf(x["ppm"])
	default:
		return 0, false
	}
	if v <= 0 || v > 65535 {
		return 0, false
	}
	return uint16(v), true
}

func codeOf(err error) errcode.Code {
	switch {
	case errors.Is(err, cm1106.ErrChecksum):
		return errcode.BadChecksum
	case errors.Is(err, cm1106.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return errcode.Timeout
	}
	return errcode.Of(err)
}
