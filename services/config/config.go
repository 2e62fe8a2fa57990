// Package config resolves the node's embedded per-device configuration and
// publishes it on the bus.
package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"sensornode-go/bus"
	"sensornode-go/errcode"
	"sensornode-go/x/logx"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Raw returns the embedded document for device.
func Raw(device string) ([]byte, error) {
	if device == "" {
		return nil, errcode.Wrap(errcode.InvalidParams, "config", "missing device ID", nil)
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, errcode.Wrap(errcode.UnknownDevice, "config", "no embedded config for device "+device, nil)
	}
	return raw, nil
}

// Load decodes the device's document into a NodeConfig with defaults
// applied and timings clamped.
func Load(device string) (NodeConfig, error) {
	raw, err := Raw(device)
	if err != nil {
		return NodeConfig{}, err
	}
	return Parse(raw)
}

// Parse decodes raw JSON into a normalised NodeConfig.
func Parse(raw []byte) (NodeConfig, error) {
	var c NodeConfig
	if err := json.Unmarshal(raw, &c); err != nil {
		return NodeConfig{}, errcode.Wrap(errcode.InvalidPayload, "config", "decode", err)
	}
	c.normalise()
	if err := c.validate(); err != nil {
		return NodeConfig{}, err
	}
	return c, nil
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
	log  *logrus.Entry
}

func NewConfigService(log *logrus.Entry) *ConfigService {
	return &ConfigService{Name: serviceName, log: logx.OrDiscard(log)}
}

// publishConfig publishes each top-level key of the device document as a
// retained config/<key> message.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	raw, err := Raw(device)
	if err != nil {
		return err
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return errcode.Wrap(errcode.InvalidPayload, "config", "embedded config is not a JSON object", err)
	}
	if m == nil {
		return errcode.Wrap(errcode.InvalidPayload, "config", "embedded config is null", nil)
	}

	for k, v := range m {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	s.log.WithFields(logrus.Fields{"device": device, "keys": len(m)}).Info("config published")
	return nil
}

// Start publishes the config in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			s.log.WithError(err).Error("config publish failed")
		}
	}()
}

// Publish is the synchronous form of Start.
func (s *ConfigService) Publish(ctx context.Context, conn *bus.Connection) error {
	return s.publishConfig(ctx, conn)
}

func (c *NodeConfig) validate() error {
	seen := map[string]bool{}
	for _, b := range c.Buttons {
		if b.Name == "" {
			return errcode.Wrap(errcode.InvalidParams, "config", "button without name", nil)
		}
		if seen["button/"+b.Name] {
			return errcode.Wrap(errcode.InvalidParams, "config", fmt.Sprintf("duplicate button %q", b.Name), nil)
		}
		seen["button/"+b.Name] = true
	}
	for _, l := range c.LEDs {
		if l.Name == "" {
			return errcode.Wrap(errcode.InvalidParams, "config", "led without name", nil)
		}
		if seen["led/"+l.Name] {
			return errcode.Wrap(errcode.InvalidParams, "config", fmt.Sprintf("duplicate led %q", l.Name), nil)
		}
		seen["led/"+l.Name] = true
	}
	if c.StatusLED != "" && !seen["led/"+c.StatusLED] {
		return errcode.Wrap(errcode.UnknownLED, "config", "status_led "+c.StatusLED, nil)
	}
	return nil
}
