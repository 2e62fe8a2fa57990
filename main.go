package main

import (
	"context"
	"os"
	"time"

	"sensornode-go/services/config"
	"sensornode-go/services/node"
	"sensornode-go/x/logx"
)

// deviceID selects the embedded config; override with
// -ldflags "-X main.deviceID=rpi".
var deviceID = defaultDevice

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(bootDelay)

	cfg, err := config.Load(deviceID)
	if err != nil {
		logx.New("info").WithError(err).WithField("device", deviceID).Fatal("config")
	}
	log := logx.New(cfg.Log.Level)
	log.WithField("device", deviceID).Info("boot")

	n, err := node.New(deviceID, cfg, node.Deps{}, log)
	if err != nil {
		log.WithError(err).Fatal("node setup failed")
	}

	for {
		if err := n.Run(context.Background()); err != nil {
			log.WithError(err).Error("node exited")
			os.Exit(1)
		}
		log.Warn("restarting node")
		if cfg, err = config.Load(deviceID); err != nil {
			log.WithError(err).Fatal("config")
		}
		if n, err = node.New(deviceID, cfg, node.Deps{}, log); err != nil {
			log.WithError(err).Fatal("node setup failed")
		}
	}
}
