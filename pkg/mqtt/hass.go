package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/mikesmitty/swma/pkg/sensor"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	HassSensorGeneric HassSensorType = iota
	HassSensorIlluminance
	HassSensorTemperature
	HassSensorHumidity
)

type HassSensorType int

// HassSensorTypeFor maps a sensor metric to its Home Assistant device class.
func HassSensorTypeFor(metric string) HassSensorType {
	switch metric {
	case sensor.MetricTemperature, sensor.MetricDewpoint:
		return HassSensorTemperature
	case sensor.MetricHumidity:
		return HassSensorHumidity
	case sensor.MetricInfrared:
		return HassSensorIlluminance
	}
	return HassSensorGeneric
}

type HassSensor struct {
	configTopic       string
	Name              string     `json:"name"`
	UniqueID          string     `json:"unique_id"`
	Device            HassDevice `json:"device,omitempty"`
	DeviceClass       string     `json:"device_class,omitempty"`
	StateClass        string     `json:"state_class,omitempty"`
	StateTopic        string     `json:"state_topic"`
	UnitOfMeasurement string     `json:"unit_of_measurement,omitempty"`
	Icon              string     `json:"icon,omitempty"`
}

type HassDevice struct {
	Name        string   `json:"name,omitempty"`
	Identifiers []string `json:"identifiers,omitempty"`
	Model       string   `json:"model,omitempty"`
}

// HomeAssistant announces every registered sensor and announces them again
// whenever Home Assistant comes back online.
func (c *Client) HomeAssistant() error {
	c.HassAnnounceAll()
	topic := "homeassistant/status"
	return c.Subscribe(topic, func(client paho.Client, msg paho.Message) {
		payload := string(msg.Payload())
		slog.Info("homeassistant status watcher", "status", payload, "module", "mqtt")
		if payload == "online" {
			c.HassAnnounceAll()
		}
	})
}

func (c *Client) HassAnnounceAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	slog.Info("announcing homeassistant sensors", "count", len(c.hassSensors), "module", "mqtt")
	for _, hs := range c.hassSensors {
		c.HassAnnounceSensor(hs)
	}
}

func (c *Client) NewHassSensor(name string, sensorType HassSensorType) HassSensor {
	var deviceClass string
	var unit string
	switch sensorType {
	case HassSensorIlluminance:
		deviceClass = "illuminance"
		unit = "#"
	case HassSensorTemperature:
		deviceClass = "temperature"
		unit = "°C"
	case HassSensorHumidity:
		deviceClass = "humidity"
		unit = "%"
	}
	return HassSensor{
		Name: name,
		Device: HassDevice{
			Name:  cases.Title(language.English).String(c.clientID),
			Model: "swma",
		},
		StateTopic:        c.topicPrefix + "/sensor/" + slugify(name),
		DeviceClass:       deviceClass,
		StateClass:        "measurement",
		UnitOfMeasurement: unit,
	}
}

// RegisterHassSensor fills in the ids Home Assistant needs and returns the
// unique id to publish against.
func (c *Client) RegisterHassSensor(hs HassSensor) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hs.UniqueID == "" {
		hs.UniqueID = slugify(hs.Device.Name + "_" + hs.Name)
	}
	if len(hs.Device.Identifiers) == 0 {
		hs.Device.Identifiers = []string{slugify(hs.Device.Name)}
	}
	hs.configTopic = "homeassistant/sensor/" + hs.UniqueID + "/config"
	c.hassSensors[hs.UniqueID] = hs
	return hs.UniqueID
}

func (c *Client) HassAnnounceSensor(hs HassSensor) {
	payload, err := json.Marshal(hs)
	if err != nil {
		slog.Error("json marshal error", "error", err, "module", "mqtt", "sensor", hs.Name)
		return
	}
	c.Publish(hs.configTopic, string(payload))
}

func (c *Client) HassPublishSensor(uniqueID, state string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	hs, ok := c.hassSensors[uniqueID]
	if !ok {
		return fmt.Errorf("sensor not found: %s", uniqueID)
	}
	c.Publish(hs.StateTopic, state)
	return nil
}

func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "_")
}
