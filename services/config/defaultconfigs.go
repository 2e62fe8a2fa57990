package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgPico = `{
  "log": {"level": "info"},
  "scheduler": {"interval_ms": 10, "priority": 2, "stack_budget": 4096},
  "buttons": [
    {"name": "user", "pin": 15, "active_low": true}
  ],
  "leds": [
    {"name": "status", "pin": 25}
  ],
  "status_led": "status",
  "sensors": {
    "interval_ms": 30000,
    "hdc1080": {"bus": "i2c0"},
    "cm1106": {"port": "uart1"}
  },
  "heartbeat": {
    "interval": 2
  }
}`

const cfgRPi = `{
  "log": {"level": "info"},
  "gpio": {"backend": "periph"},
  "buttons": [
    {"name": "user", "pin": 17, "active_low": true},
    {"name": "aux", "pin": 27, "active_low": true, "long_press_ms": 1500}
  ],
  "leds": [
    {"name": "status", "pin": 22}
  ],
  "status_led": "status",
  "sensors": {
    "interval_ms": 60000,
    "hdc1080": {"bus": "i2c1", "temperature_offset": -1.5}
  },
  "heartbeat": {
    "interval": 5
  }
}`

const cfgHost = `{
  "log": {"level": "debug"},
  "gpio": {"backend": "fake"},
  "buttons": [
    {"name": "user", "pin": 1, "active_low": true}
  ],
  "leds": [
    {"name": "status", "pin": 2}
  ],
  "status_led": "status",
  "sensors": {
    "interval_ms": 5000
  },
  "heartbeat": {
    "interval": 1
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"rpi":  []byte(cfgRPi),
	"host": []byte(cfgHost),
}
