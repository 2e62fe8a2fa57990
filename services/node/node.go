// Package node assembles the sensor node: buttons, LEDs, sensors, config and
// heartbeat on one bus, and maps button gestures to node actions.
package node

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"sensornode-go/bus"
	"sensornode-go/drivers/cm1106"
	"sensornode-go/drivers/hdc1080"
	"sensornode-go/errcode"
	"sensornode-go/services/config"
	"sensornode-go/services/hal"
	"sensornode-go/services/hal/button"
	"sensornode-go/services/heartbeat"
	"sensornode-go/services/led"
	"sensornode-go/services/sensors"
	"sensornode-go/types"
	"sensornode-go/x/logx"
	"sensornode-go/x/timex"
)

var (
	TopicRestart     = bus.T("system", "restart")
	TopicResetConfig = bus.T("system", "reset_config")
)

// ButtonTopic is where gestures of one button are published.
func ButtonTopic(name string, g button.Gesture) bus.Topic {
	return bus.T("button", name, g.String())
}

// LEDTopic retains an LED's current mode.
func LEDTopic(name string) bus.Topic { return bus.T("led", name) }

const (
	flashOnMs  = 100
	flashOffMs = 100

	requestTimeout = 10 * time.Second
	busQueueLen    = 64
)

// Deps are the hardware and time sources. Nil fields use the build's
// defaults from package hal and a monotonic clock.
type Deps struct {
	Pins    hal.PinFactory
	I2C     hal.I2CBusFactory
	Serials hal.SerialFactory
	Clock   timex.Clock
}

type Node struct {
	cfg    config.NodeConfig
	device string
	root   *logrus.Logger
	log    *logrus.Entry

	bus     *bus.Bus
	conn    *bus.Connection
	buttons *button.Registry
	sched   *button.Scheduler
	leds    *led.Manager
	sensors *sensors.Service
	beat    *heartbeat.Service
	cfgSvc  *config.ConfigService

	ctx context.Context // parent of gesture-triggered requests
}

// New builds the node from cfg. Buttons and LEDs that cannot be configured
// are fatal; sensors that cannot be found are logged and skipped.
func New(device string, cfg config.NodeConfig, deps Deps, root *logrus.Logger) (*Node, error) {
	if root == nil {
		root = logx.New(cfg.Log.Level)
	}
	if deps.Clock == nil {
		deps.Clock = timex.NewMonoClock(0)
	}
	if deps.Pins == nil {
		p, err := hal.Pins(cfg.GPIO.Backend)
		if err != nil {
			return nil, err
		}
		deps.Pins = p
	}
	if deps.I2C == nil {
		deps.I2C = hal.I2CBuses()
	}
	if deps.Serials == nil {
		deps.Serials = hal.Serials()
	}

	b := bus.NewBus(busQueueLen)
	n := &Node{
		cfg:    cfg,
		device: device,
		root:   root,
		log:    logx.Component(root, "node"),
		bus:    b,
		conn:   b.NewConnection("node"),
		ctx:    context.Background(),
	}

	n.leds = led.New(deps.Clock, logx.Component(root, "led"), n.publishLED)
	for _, lc := range cfg.LEDs {
		pin, ok := deps.Pins.ByNumber(lc.Pin)
		if !ok {
			return nil, errcode.Wrap(errcode.UnknownPin, "led", lc.Name, nil)
		}
		if err := n.leds.Add(lc.Name, pin, lc.Inverted); err != nil {
			return nil, err
		}
		n.publishLED(lc.Name, types.LEDState{Mode: types.LEDOff})
	}

	n.buttons = button.NewRegistry(logx.Component(root, "button"))
	for _, bc := range cfg.Buttons {
		if err := n.addButton(deps.Pins, bc); err != nil {
			return nil, err
		}
	}
	n.sched = button.NewScheduler(n.buttons, button.Options{
		Interval: time.Duration(cfg.Scheduler.IntervalMs) * time.Millisecond,
		Clock:    deps.Clock,
	}, logx.Component(root, "button"))

	n.sensors = sensors.New(n.sensorOptions(deps), logx.Component(root, "sensors"))
	n.beat = heartbeat.New(logx.Component(root, "heartbeat"), n.stats)
	n.cfgSvc = config.NewConfigService(logx.Component(root, "config"))
	return n, nil
}

func (n *Node) addButton(pins hal.PinFactory, bc config.ButtonConfig) error {
	pin, ok := pins.ByNumber(bc.Pin)
	if !ok {
		return errcode.Wrap(errcode.UnknownPin, "button", bc.Name, nil)
	}
	active := button.ActiveHigh
	if bc.ActiveLow {
		active = button.ActiveLow
	}
	if err := n.buttons.Add(bc.Name, pin, active); err != nil {
		return err
	}
	if err := n.buttons.Configure(bc.Name, button.Config{
		DebounceMs:  bc.DebounceMs,
		ClickMs:     bc.ClickMs,
		LongPressMs: bc.LongPressMs,
	}); err != nil {
		return err
	}
	for _, g := range button.Gestures() {
		if err := n.buttons.SetHandler(bc.Name, g, n.onGesture, nil); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) sensorOptions(deps Deps) sensors.Options {
	opts := sensors.Options{Interval: time.Duration(n.cfg.Sensors.IntervalMs) * time.Millisecond}

	if hc := n.cfg.Sensors.HDC1080; hc != nil {
		i2c, ok := deps.I2C.ByID(hc.Bus)
		if !ok {
			n.log.WithField("bus", hc.Bus).Error("hdc1080: i2c bus not available")
		} else {
			d := hdc1080.New(i2c)
			err := d.Configure(hdc1080.Config{
				Address:           hc.Address,
				TemperatureOffset: hc.TemperatureOffset,
				HumidityOffset:    hc.HumidityOffset,
			})
			if err != nil {
				n.log.WithError(err).Error("hdc1080: configure failed")
			} else {
				opts.Climate = d
			}
		}
	}

	if cc := n.cfg.Sensors.CM1106; cc != nil {
		port, ok := deps.Serials.ByID(cc.Port)
		if !ok {
			n.log.WithField("port", cc.Port).Error("cm1106: serial port not available")
		} else {
			opts.CO2 = cm1106.New(port)
		}
	}
	return opts
}

// Bus exposes the node's bus for monitors and tests.
func (n *Node) Bus() *bus.Bus { return n.bus }

func (n *Node) Buttons() *button.Registry { return n.buttons }

func (n *Node) LEDs() *led.Manager { return n.leds }

// Start launches every service. Buttons start ticking last so gestures
// never reach a half-started node.
func (n *Node) Start(ctx context.Context) error {
	ctx = context.WithValue(ctx, config.CtxDeviceKey, n.device)
	n.ctx = ctx

	if n.device != "" {
		n.cfgSvc.Start(ctx, n.bus.NewConnection("config"))
	}
	_ = n.beat.Start(ctx, n.bus.NewConnection("heartbeat"))
	_ = n.sensors.Start(ctx, n.bus.NewConnection("sensors"))
	if err := n.leds.Start(ctx); err != nil {
		return err
	}
	if err := n.sched.Start(ctx, n.cfg.Scheduler.Priority, n.cfg.Scheduler.StackBudget); err != nil {
		_ = n.leds.Stop()
		return err
	}
	n.log.WithFields(logrus.Fields{
		"device":  n.device,
		"buttons": n.buttons.Names(),
		"leds":    len(n.cfg.LEDs),
	}).Info("node started")
	return nil
}

// Stop halts the tick workers. Services bound to the Start context stop
// with it.
func (n *Node) Stop() {
	_ = n.sched.Stop()
	_ = n.leds.Stop()
	n.log.Info("node stopped")
}

// Run starts the node and blocks until ctx ends or a restart is requested.
// A config reset also ends Run; the caller reloads the embedded config
// before building the next node.
func (n *Node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sys := n.bus.NewConnection("system")
	restart := sys.Subscribe(TopicRestart)
	reset := sys.Subscribe(TopicResetConfig)
	if err := n.Start(ctx); err != nil {
		return err
	}
	defer n.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-restart.Channel():
		n.log.Warn("restart requested")
		return nil
	case <-reset.Channel():
		n.log.Warn("config reset requested")
		return nil
	}
}

func (n *Node) stats() logrus.Fields {
	st := n.sched.Stats()
	return logrus.Fields{
		"ticks":            st.Ticks,
		"handler_failures": st.HandlerFailures,
	}
}
