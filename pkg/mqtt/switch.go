package mqtt

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const switchStateInterval = 5 * time.Second

// SwitchFn exposes a command/state topic pair for an on/off switch. The
// returned loop reports stateFn every few seconds until ctx is done.
func (c *Client) SwitchFn(ctx context.Context, name string, onFn func(), offFn func(), stateFn func() bool) func() error {
	topicPrefix := fmt.Sprintf("%s/switch/%s/", c.topicPrefix, name)
	commandTopic := topicPrefix + "command"
	stateTopic := topicPrefix + "state"

	return func() error {
		slog.Debug("subscribing to mqtt switch", "switch", name, "topic", commandTopic, "module", "mqtt")
		if err := c.Subscribe(commandTopic, func(client paho.Client, msg paho.Message) {
			slog.Debug("mqtt switch command received", "switch", name, "command", msg.Payload(), "topic", commandTopic, "module", "mqtt")
			if bytes.Equal(msg.Payload(), []byte("ON")) {
				onFn()
			} else {
				offFn()
			}
		}); err != nil {
			return fmt.Errorf("switch %s: %w", name, err)
		}

		t := time.NewTicker(switchStateInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				if !c.client.IsConnected() {
					slog.Error("mqtt client not connected", "switch", name, "module", "mqtt")
					continue
				}
				c.Publish(stateTopic, switchState(stateFn()))
			}
		}
	}
}

func switchState(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// Pause stops GetPublisher loops from publishing samples. Readings keep
// flowing through the window while paused.
func (c *Client) Pause() {
	c.paused.Store(true)
}

func (c *Client) Resume() {
	c.paused.Store(false)
}

func (c *Client) Publishing() bool {
	return !c.paused.Load()
}
