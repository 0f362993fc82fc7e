package mqtt

import (
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/mikesmitty/swma/pkg/smoother"
)

const publishTimeout = 5 * time.Second

type Client struct {
	client      paho.Client
	clientID    string
	topicPrefix string
	qos         byte
	retained    bool
	sampleRate  int
	hassSensors map[string]HassSensor
	paused      atomic.Bool
	mu          sync.Mutex

	// pubMu orders the wg.Add in Publish against Disconnect.
	pubMu  sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewClient(broker *url.URL, sampleRate int) *Client {
	hostname, _ := os.Hostname()
	hostname = strings.Split(hostname, ".")[0]
	clientID := hostname
	if clientID == "" {
		now := time.Now().UnixNano()
		sum := md5.Sum([]byte(strconv.FormatInt(now, 10)))
		clientID = hex.EncodeToString(sum[:])
	}

	slog.Info("connecting to mqtt", "url", broker, "clientid", clientID, "module", "mqtt")
	pc := paho.NewClient(&paho.ClientOptions{
		Servers:        []*url.URL{broker},
		ClientID:       clientID,
		ConnectRetry:   true,
		ConnectTimeout: 30 * time.Second,
	})
	return newClient(pc, clientID, sampleRate)
}

func newClient(pc paho.Client, clientID string, sampleRate int) *Client {
	return &Client{
		client:      pc,
		clientID:    clientID,
		topicPrefix: "swma/" + clientID,
		qos:         1,
		sampleRate:  sampleRate,
		hassSensors: make(map[string]HassSensor),
	}
}

func (c *Client) Connect() error {
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		slog.Error("mqtt connection failed", "error", token.Error(), "module", "mqtt")
		return token.Error()
	}
	return nil
}

// Disconnect drops any further publishes, waits for the in-flight ones,
// then closes the connection.
func (c *Client) Disconnect() {
	c.pubMu.Lock()
	c.closed = true
	c.pubMu.Unlock()
	c.wg.Wait()
	c.client.Disconnect(250)
}

func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	if token := c.client.Subscribe(topic, c.qos, handler); token.Wait() && token.Error() != nil {
		slog.Error("mqtt subscription failed", "error", token.Error(), "topic", topic, "module", "mqtt")
		return token.Error()
	}
	return nil
}

// GetPublisher registers the Home Assistant sensors for one smoothed stream
// and returns the loop publishing every sampleRate-th sample once the
// window has filled. The loop returns when samples is closed.
func (c *Client) GetPublisher(name string, sensorType HassSensorType, samples <-chan smoother.Sample) func() error {
	raw := c.RegisterHassSensor(c.NewHassSensor(name+" Raw", sensorType))
	average := c.RegisterHassSensor(c.NewHassSensor(name+" Average", sensorType))
	stdDev := c.RegisterHassSensor(c.NewHassSensor(name+" Std Dev", HassSensorGeneric))
	slope := c.RegisterHassSensor(c.NewHassSensor(name+" Slope", HassSensorGeneric))
	spread := c.RegisterHassSensor(c.NewHassSensor(name+" Spread", HassSensorGeneric))

	sampler := NewSampler(c.sampleRate)

	return func() error {
		for s := range samples {
			if !s.Filled || !c.Publishing() || !sampler.Ready() {
				continue
			}
			slog.Debug("mqtt publishing", "field", name, "value", s, "module", "mqtt")
			c.publishState(raw, strconv.FormatFloat(s.Raw, 'f', 4, 64))
			c.publishState(average, strconv.FormatFloat(s.Average, 'f', 4, 64))
			c.publishState(stdDev, strconv.FormatFloat(s.StdDev, 'f', 4, 64))
			c.publishState(slope, strconv.FormatFloat(s.Slope, 'f', 6, 64))
			c.publishState(spread, strconv.FormatFloat(s.Spread, 'f', 4, 64))
		}
		return nil
	}
}

func (c *Client) publishState(uniqueID, state string) {
	if err := c.HassPublishSensor(uniqueID, state); err != nil {
		slog.Error("mqtt state publish failed", "error", err, "module", "mqtt")
	}
}

func (c *Client) Publish(topic string, msg string) {
	c.pubMu.Lock()
	if c.closed {
		c.pubMu.Unlock()
		slog.Debug("mqtt client disconnected, dropping message", "topic", topic, "module", "mqtt")
		return
	}
	c.wg.Add(1)
	c.pubMu.Unlock()

	t := c.client.Publish(topic, c.qos, c.retained, msg)
	go func() {
		defer c.wg.Done()
		_ = t.WaitTimeout(publishTimeout)
		if t.Error() != nil {
			slog.Error("mqtt message publish failed", "error", t.Error(), "topic", topic, "module", "mqtt")
		}
	}()
}
