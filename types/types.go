package types

// ---- Capability kinds ----

type Kind string

const (
	KindButton      Kind = "button"
	KindLED         Kind = "led"
	KindTemperature Kind = "temperature"
	KindHumidity    Kind = "humidity"
	KindCO2         Kind = "co2"
)

// ---- Buttons ----

// ButtonEvent is published on button/<name>/<gesture> for every recognised gesture.
type ButtonEvent struct {
	Button  string `json:"button"`
	Gesture string `json:"gesture"` // "click", "double_click", "multi_click", "long_press_start", ...
	Clicks  int    `json:"clicks,omitempty"`
	TS      int64  `json:"ts_ms"`
}

// ---- LEDs ----

type LEDMode string

const (
	LEDOff   LEDMode = "off"
	LEDOn    LEDMode = "on"
	LEDBlink LEDMode = "blink"
)

// LEDState is retained on led/<name>.
type LEDState struct {
	Mode  LEDMode `json:"mode"`
	OnMs  uint32  `json:"on_ms,omitempty"`
	OffMs uint32  `json:"off_ms,omitempty"`
}

// ---- Sensors ----

// SensorReading is retained on sensor/<kind>.
// Value is in the kind's natural unit: °C, %RH, or ppm.
type SensorReading struct {
	Kind   Kind    `json:"kind"`
	Sensor string  `json:"sensor"`
	Value  float32 `json:"value"`
	TS     int64   `json:"ts_ms"`
	Error  string  `json:"error,omitempty"`
}

// ---- Control plane ----

// Ack answers a bus request.
type Ack struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
