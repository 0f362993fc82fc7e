package daemon

import (
	"errors"
	"fmt"
	"time"

	"github.com/mikesmitty/swma/pkg/sensor"
	"github.com/mikesmitty/swma/pkg/swma"
	"github.com/spf13/viper"
)

type Config struct {
	Debug              bool
	Sensor             string
	Metric             string
	SPIBus             string
	I2CBus             string
	Interval           time.Duration
	Window             int
	MQTTBroker         string
	MQTTSampleInterval int
	WatchdogTimeout    time.Duration
}

func ConfigFromViper(v *viper.Viper) Config {
	return Config{
		Debug:              v.GetBool("debug"),
		Sensor:             v.GetString("sensor"),
		Metric:             v.GetString("metric"),
		SPIBus:             v.GetString("spibus"),
		I2CBus:             v.GetString("i2cbus"),
		Interval:           v.GetDuration("interval"),
		Window:             v.GetInt("window"),
		MQTTBroker:         v.GetString("mqtt-broker"),
		MQTTSampleInterval: v.GetInt("mqtt-sample-interval"),
		WatchdogTimeout:    v.GetDuration("watchdog-timeout"),
	}
}

// Validate checks the settings and resolves Metric to what the sensor
// actually reports.
func (c *Config) Validate() error {
	metric, err := sensor.Metric(c.Sensor, c.Metric)
	if err != nil {
		return err
	}
	c.Metric = metric

	var errs []error
	if c.Window <= 0 {
		errs = append(errs, fmt.Errorf("window: %w: %d", swma.ErrInvalidSize, c.Window))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive: %s", c.Interval))
	}
	if c.MQTTSampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("mqtt-sample-interval must be positive: %d", c.MQTTSampleInterval))
	}
	if c.WatchdogTimeout < 0 {
		errs = append(errs, fmt.Errorf("watchdog-timeout must not be negative: %s", c.WatchdogTimeout))
	}
	return errors.Join(errs...)
}
