package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/mikesmitty/swma/pkg/sensor"
	"github.com/mikesmitty/swma/pkg/smoother"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Error() error                   { return nil }
func (doneToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

type message struct {
	topic   string
	payload string
}

// fakeBroker records publishes. Methods the client never calls fall
// through to the nil embedded interface.
type fakeBroker struct {
	paho.Client
	mu        sync.Mutex
	published []message
	handlers  map[string]paho.MessageHandler
}

func (f *fakeBroker) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = make(map[string]paho.MessageHandler)
	}
	f.handlers[topic] = callback
	return doneToken{}
}

func (f *fakeBroker) handler(topic string) paho.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[topic]
}

func (f *fakeBroker) IsConnected() bool { return true }

type fakeMessage struct {
	paho.Message
	payload []byte
}

func (m fakeMessage) Payload() []byte { return m.payload }

func (f *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, message{topic, payload.(string)})
	return doneToken{}
}

func (f *fakeBroker) Disconnect(quiesce uint) {}

func (f *fakeBroker) messages() []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message(nil), f.published...)
}

func TestSampler(t *testing.T) {
	s := NewSampler(3)
	var got []bool
	for range 6 {
		got = append(got, s.Ready())
	}
	assert.Equal(t, []bool{false, false, true, false, false, true}, got)

	every := NewSampler(0)
	assert.True(t, every.Ready())
	assert.True(t, every.Ready())
}

func TestHassSensorTypeFor(t *testing.T) {
	assert.Equal(t, HassSensorTemperature, HassSensorTypeFor(sensor.MetricTemperature))
	assert.Equal(t, HassSensorTemperature, HassSensorTypeFor(sensor.MetricDewpoint))
	assert.Equal(t, HassSensorHumidity, HassSensorTypeFor(sensor.MetricHumidity))
	assert.Equal(t, HassSensorIlluminance, HassSensorTypeFor(sensor.MetricInfrared))
	assert.Equal(t, HassSensorGeneric, HassSensorTypeFor("pressure"))
}

func TestRegisterHassSensor(t *testing.T) {
	c := newClient(&fakeBroker{}, "pi", 1)
	id := c.RegisterHassSensor(c.NewHassSensor("Tank Average", HassSensorTemperature))
	assert.Equal(t, "pi_tank_average", id)

	hs := c.hassSensors[id]
	assert.Equal(t, "homeassistant/sensor/pi_tank_average/config", hs.configTopic)
	assert.Equal(t, "swma/pi/sensor/tank_average", hs.StateTopic)

	payload, err := json.Marshal(hs)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "Tank Average",
		"unique_id": "pi_tank_average",
		"device": {"name": "Pi", "identifiers": ["pi"], "model": "swma"},
		"device_class": "temperature",
		"state_class": "measurement",
		"state_topic": "swma/pi/sensor/tank_average",
		"unit_of_measurement": "°C"
	}`, string(payload))

	assert.Error(t, c.HassPublishSensor("missing", "1"))
}

func TestPublisher(t *testing.T) {
	broker := &fakeBroker{}
	c := newClient(broker, "pi", 2)

	samples := make(chan smoother.Sample)
	loop := c.GetPublisher("Tank", HassSensorTemperature, samples)
	done := make(chan error, 1)
	go func() { done <- loop() }()

	for i := 1; i <= 4; i++ {
		samples <- smoother.Sample{Raw: float64(i), Average: float64(i) / 2, Spread: 0.5, Count: uint64(i), Filled: true}
	}
	close(samples)
	require.NoError(t, <-done)
	c.Disconnect()

	got := map[string][]string{}
	for _, m := range broker.messages() {
		got[m.topic] = append(got[m.topic], m.payload)
	}
	assert.Equal(t, []string{"2.0000", "4.0000"}, got["swma/pi/sensor/tank_raw"])
	assert.Equal(t, []string{"1.0000", "2.0000"}, got["swma/pi/sensor/tank_average"])
	assert.Len(t, got["swma/pi/sensor/tank_std_dev"], 2)
	assert.Len(t, got["swma/pi/sensor/tank_slope"], 2)
	assert.Equal(t, []string{"0.5000", "0.5000"}, got["swma/pi/sensor/tank_spread"])
}

func TestPublisherWaitsForFilledWindow(t *testing.T) {
	broker := &fakeBroker{}
	c := newClient(broker, "pi", 1)

	samples := make(chan smoother.Sample, 3)
	samples <- smoother.Sample{Raw: 1, Count: 1}
	samples <- smoother.Sample{Raw: 2, Count: 2}
	samples <- smoother.Sample{Raw: 3, Count: 3, Filled: true}
	close(samples)
	require.NoError(t, c.GetPublisher("Tank", HassSensorTemperature, samples)())
	c.Disconnect()

	var raw []string
	for _, m := range broker.messages() {
		if m.topic == "swma/pi/sensor/tank_raw" {
			raw = append(raw, m.payload)
		}
	}
	assert.Equal(t, []string{"3.0000"}, raw)
}

func TestDisconnectDropsLatePublishes(t *testing.T) {
	broker := &fakeBroker{}
	c := newClient(broker, "pi", 1)
	c.GetPublisher("Tank", HassSensorTemperature, make(chan smoother.Sample))
	require.NoError(t, c.HomeAssistant())
	status := broker.handler("homeassistant/status")
	require.NotNil(t, status)

	// re-announcements keep arriving from the paho callback while we shut down
	stop := make(chan struct{})
	announcing := make(chan struct{})
	go func() {
		defer close(announcing)
		for {
			select {
			case <-stop:
				return
			default:
				status(broker, fakeMessage{payload: []byte("online")})
			}
		}
	}()
	time.Sleep(5 * time.Millisecond)
	c.Disconnect()
	close(stop)
	<-announcing

	before := len(broker.messages())
	status(broker, fakeMessage{payload: []byte("online")})
	c.Publish("swma/pi/late", "1")
	assert.Equal(t, before, len(broker.messages()))
}

func TestAnnounceAll(t *testing.T) {
	broker := &fakeBroker{}
	c := newClient(broker, "pi", 1)
	c.GetPublisher("Tank", HassSensorTemperature, make(chan smoother.Sample))
	c.HassAnnounceAll()
	c.Disconnect()

	var topics []string
	for _, m := range broker.messages() {
		topics = append(topics, m.topic)
	}
	assert.ElementsMatch(t, []string{
		"homeassistant/sensor/pi_tank_raw/config",
		"homeassistant/sensor/pi_tank_average/config",
		"homeassistant/sensor/pi_tank_std_dev/config",
		"homeassistant/sensor/pi_tank_slope/config",
		"homeassistant/sensor/pi_tank_spread/config",
	}, topics)
}

func TestPausedPublisher(t *testing.T) {
	broker := &fakeBroker{}
	c := newClient(broker, "pi", 1)
	c.Pause()
	assert.False(t, c.Publishing())

	samples := make(chan smoother.Sample, 2)
	samples <- smoother.Sample{Raw: 1, Filled: true}
	samples <- smoother.Sample{Raw: 2, Filled: true}
	close(samples)
	require.NoError(t, c.GetPublisher("Tank", HassSensorTemperature, samples)())
	c.Disconnect()
	assert.Empty(t, broker.messages())
}

func TestSwitch(t *testing.T) {
	broker := &fakeBroker{}
	c := newClient(broker, "pi", 1)

	ctx, cancel := context.WithCancel(context.Background())
	loop := c.SwitchFn(ctx, "publish", c.Resume, c.Pause, c.Publishing)
	done := make(chan error, 1)
	go func() { done <- loop() }()

	topic := "swma/pi/switch/publish/command"
	require.Eventually(t, func() bool { return broker.handler(topic) != nil }, time.Second, time.Millisecond)
	handle := broker.handler(topic)

	handle(broker, fakeMessage{payload: []byte("OFF")})
	assert.False(t, c.Publishing())
	handle(broker, fakeMessage{payload: []byte("ON")})
	assert.True(t, c.Publishing())

	cancel()
	assert.NoError(t, <-done)
	assert.Equal(t, "ON", switchState(true))
	assert.Equal(t, "OFF", switchState(false))
}

func TestPublishStateUnknownSensor(t *testing.T) {
	broker := &fakeBroker{}
	c := newClient(broker, "pi", 1)
	assert.NotPanics(t, func() { c.publishState("pi_missing", "1") })
	c.Disconnect()
	assert.Empty(t, broker.messages())
}
