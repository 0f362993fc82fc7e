// Package sensor turns periph.io devices into channels of readings.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	MAX31865 = "max31865"
	SHT4x    = "sht4x"
	TSL2591  = "tsl2591"

	MetricTemperature = "temperature"
	MetricHumidity    = "humidity"
	MetricDewpoint    = "dewpoint"
	MetricInfrared    = "infrared"
)

var (
	ErrUnknownSensor = errors.New("unknown sensor")
	ErrUnknownMetric = errors.New("unknown metric")
)

// Metric returns the metric a sensor reports. Only the sht4x offers a
// choice; the other devices ignore requested.
func Metric(sensor, requested string) (string, error) {
	switch sensor {
	case MAX31865:
		return MetricTemperature, nil
	case TSL2591:
		return MetricInfrared, nil
	case SHT4x:
		switch requested {
		case MetricTemperature, MetricHumidity, MetricDewpoint:
			return requested, nil
		}
		return "", fmt.Errorf("%w for %s: %q", ErrUnknownMetric, sensor, requested)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSensor, sensor)
}

// poll calls read every interval and sends the result on a buffered
// channel, which is closed when ctx is done or read fails.
func poll(ctx context.Context, module string, interval time.Duration, read func() (float64, error)) (<-chan float64, func() error) {
	c := make(chan float64, 1)
	return c, func() error {
		defer close(c)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		done := ctx.Done()
		for {
			select {
			case <-done:
				return nil
			case <-ticker.C:
				v, err := read()
				if err != nil {
					return fmt.Errorf("%s: %w", module, err)
				}
				slog.Debug("publishing reading", "value", v, "module", module)
				select {
				case c <- v:
				case <-done:
					return nil
				}
			}
		}
	}
}
