// Command co2probe polls a CM1106 on a board UART and logs each reading.
// Pass -calibrate to zero the sensor at 400 ppm first.
package main

import (
	"context"
	"flag"
	"time"

	"sensornode-go/drivers/cm1106"
	"sensornode-go/services/hal"
	"sensornode-go/x/logx"
)

func main() {
	port := flag.String("port", "uart1", "serial port id")
	every := flag.Duration("every", 2*time.Second, "poll interval")
	calibrate := flag.Bool("calibrate", false, "calibrate to 400 ppm before polling")
	level := flag.String("log", "info", "log level")
	flag.Parse()

	log := logx.Component(logx.New(*level), "co2probe")

	p, ok := hal.Serials().ByID(*port)
	if !ok {
		log.WithField("port", *port).Fatal("serial port not available")
	}
	d := cm1106.New(p)
	ctx := context.Background()

	if *calibrate {
		if err := d.Calibrate(ctx, cm1106.DefaultPPM); err != nil {
			log.WithError(err).Fatal("calibrate")
		}
		log.Info("calibrated to 400 ppm")
	}

	t := time.NewTicker(*every)
	defer t.Stop()
	for ; ; <-t.C {
		ppm, err := d.PPM(ctx)
		if err != nil {
			log.WithError(err).Error("read failed")
			continue
		}
		log.WithField("ppm", ppm).Info("co2")
	}
}
