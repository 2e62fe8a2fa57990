package config

import (
	"sensornode-go/x/mathx"
)

// NodeConfig is the typed form of a device document.
type NodeConfig struct {
	Log       LogConfig       `json:"log"`
	GPIO      GPIOConfig      `json:"gpio"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Buttons   []ButtonConfig  `json:"buttons"`
	LEDs      []LEDConfig     `json:"leds"`
	StatusLED string          `json:"status_led"`
	Sensors   SensorsConfig   `json:"sensors"`
	Heartbeat HeartbeatConfig `json:"heartbeat"`
}

type LogConfig struct {
	Level string `json:"level"`
}

// GPIOConfig selects the pin backend on Linux: "periph", "rpio" or "fake".
type GPIOConfig struct {
	Backend string `json:"backend"`
}

type SchedulerConfig struct {
	IntervalMs  uint32 `json:"interval_ms"`
	Priority    int    `json:"priority"`
	StackBudget int    `json:"stack_budget"`
}

type ButtonConfig struct {
	Name        string `json:"name"`
	Pin         int    `json:"pin"`
	ActiveLow   bool   `json:"active_low"`
	DebounceMs  uint32 `json:"debounce_ms"`
	ClickMs     uint32 `json:"click_ms"`
	LongPressMs uint32 `json:"long_press_ms"`
}

type LEDConfig struct {
	Name     string `json:"name"`
	Pin      int    `json:"pin"`
	Inverted bool   `json:"inverted"`
}

type SensorsConfig struct {
	IntervalMs uint32         `json:"interval_ms"`
	HDC1080    *HDC1080Config `json:"hdc1080,omitempty"`
	CM1106     *CM1106Config  `json:"cm1106,omitempty"`
}

type HDC1080Config struct {
	Bus               string  `json:"bus"`
	Address           uint16  `json:"address"`
	TemperatureOffset float32 `json:"temperature_offset"`
	HumidityOffset    float32 `json:"humidity_offset"`
}

type CM1106Config struct {
	Port string `json:"port"`
}

// HeartbeatConfig is also published raw on config/heartbeat.
type HeartbeatConfig struct {
	Interval float64 `json:"interval"` // seconds
}

// Defaults and limits, in ms unless noted.
const (
	DefaultDebounceMs  = 50
	DefaultClickMs     = 400
	DefaultLongPressMs = 800

	DefaultTickMs         = 10
	DefaultPriority       = 2
	DefaultStackBudget    = 4096
	DefaultSensorInterval = 30_000
	DefaultHeartbeatS     = 1.0
)

func (c *NodeConfig) normalise() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.GPIO.Backend == "" {
		c.GPIO.Backend = "periph"
	}

	c.Scheduler.IntervalMs = mathx.Clamp(mathx.OrDefault(c.Scheduler.IntervalMs, DefaultTickMs), 1, 100)
	c.Scheduler.Priority = mathx.Clamp(mathx.OrDefault(c.Scheduler.Priority, DefaultPriority), 0, 10)
	c.Scheduler.StackBudget = mathx.Clamp(mathx.OrDefault(c.Scheduler.StackBudget, DefaultStackBudget), 1024, 65536)

	for i := range c.Buttons {
		b := &c.Buttons[i]
		b.DebounceMs = mathx.Clamp(mathx.OrDefault(b.DebounceMs, DefaultDebounceMs), 1, 1000)
		b.ClickMs = mathx.Clamp(mathx.OrDefault(b.ClickMs, DefaultClickMs), 50, 5000)
		b.LongPressMs = mathx.Clamp(mathx.OrDefault(b.LongPressMs, DefaultLongPressMs), 100, 60_000)
	}

	c.Sensors.IntervalMs = mathx.Clamp(mathx.OrDefault(c.Sensors.IntervalMs, DefaultSensorInterval), 1000, 3_600_000)
	if h := c.Sensors.HDC1080; h != nil {
		if h.Bus == "" {
			h.Bus = "i2c0"
		}
		h.Address = mathx.OrDefault(h.Address, 0x40)
	}
	if m := c.Sensors.CM1106; m != nil && m.Port == "" {
		m.Port = "uart1"
	}

	c.Heartbeat.Interval = mathx.Clamp(mathx.OrDefault(c.Heartbeat.Interval, DefaultHeartbeatS), 0.1, 3600)
}
