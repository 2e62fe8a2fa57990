// Package heartbeat logs node liveness on a configurable interval.
package heartbeat

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"sensornode-go/bus"
	"sensornode-go/x/logx"
)

var topicConfigHeartbeat = bus.T("config", "heartbeat")

const DefaultInterval = time.Second

// StatsFunc supplies fields logged with every beat.
type StatsFunc func() logrus.Fields

type Service struct {
	log      *logrus.Entry
	interval time.Duration
	stats    StatsFunc
	beats    chan time.Time // optional test hook
}

// New creates a heartbeat. stats, if non-nil, adds fields to each beat.
func New(log *logrus.Entry, stats StatsFunc) *Service {
	return &Service{log: logx.OrDiscard(log), interval: DefaultInterval, stats: stats}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			s.log.Info("heartbeat service stopping")
			return
		case t := <-tick.C:
			e := s.log
			if s.stats != nil {
				e = e.WithFields(s.stats())
			}
			e.Info("heartbeat")
			if s.beats != nil {
				select {
				case s.beats <- t:
				default:
				}
			}
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			if d, ok := intervalOf(msg.Payload); ok {
				s.interval = d
				tick.Reset(d)
				s.log.WithField("interval", d).Info("heartbeat interval set")
			} else {
				s.log.WithField("payload", msg.Payload).Warn("ignoring heartbeat config")
			}
		}
	}
}

// intervalOf reads {"interval": seconds} as decoded from JSON.
func intervalOf(p any) (time.Duration, bool) {
	m, ok := p.(map[string]any)
	if !ok {
		return 0, false
	}
	sec, ok := m["interval"].(float64)
	if !ok || sec <= 0 {
		return 0, false
	}
	return time.Duration(sec * float64(time.Second)), true
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
