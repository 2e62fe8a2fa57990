// Command busmon boots the node and logs every bus message: button gestures,
// LED modes, sensor readings and system requests.
package main

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sensornode-go/bus"
	"sensornode-go/services/config"
	"sensornode-go/services/node"
	"sensornode-go/x/logx"
)

var deviceID = "host"

func topicString(t bus.Topic) string {
	var sb strings.Builder
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			sb.WriteByte('/')
		}
		switch v := t.At(i).(type) {
		case string:
			sb.WriteString(v)
		case int:
			sb.WriteString(strconv.Itoa(v))
		default:
			sb.WriteByte('?')
		}
	}
	return sb.String()
}

func main() {
	cfg, err := config.Load(deviceID)
	if err != nil {
		logx.New("info").WithError(err).Fatal("config")
	}
	log := logx.New(cfg.Log.Level)
	mon := logx.Component(log, "busmon")

	n, err := node.New(deviceID, cfg, node.Deps{}, log)
	if err != nil {
		mon.WithError(err).Fatal("node setup failed")
	}

	sub := n.Bus().NewConnection("busmon").Subscribe(bus.T(bus.MultiLevel))
	go func() {
		for m := range sub.Channel() {
			mon.WithFields(logrus.Fields{
				"topic":    topicString(m.Topic),
				"retained": m.Retained,
			}).Infof("%+v", m.Payload)
		}
	}()

	go func() {
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for range t.C {
			printMem(mon)
		}
	}()

	if err := n.Run(context.Background()); err != nil {
		mon.WithError(err).Error("node exited")
	}
}

// printMem logs a compact snapshot of runtime memory stats.
func printMem(l *logrus.Entry) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	l.WithFields(logrus.Fields{
		"alloc":     ms.Alloc,
		"heapInuse": ms.HeapInuse,
		"heapSys":   ms.HeapSys,
		"mallocs":   ms.Mallocs,
		"frees":     ms.Frees,
	}).Info("mem")
}
