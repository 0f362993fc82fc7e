package sensor

import (
	"context"
	"time"

	"github.com/mikesmitty/sht4x"
	"periph.io/x/conn/v3/physic"
)

// SHT4xChannel polls a temperature/humidity sensor and reports metric,
// one of MetricTemperature, MetricHumidity or MetricDewpoint.
func SHT4xChannel(ctx context.Context, dev *sht4x.Dev, metric string, interval time.Duration) (<-chan float64, func() error) {
	return poll(ctx, SHT4x, interval, func() (float64, error) {
		var e physic.Env
		if err := dev.Sense(&e); err != nil {
			return 0, err
		}
		return FromPhysic(e).Value(metric)
	})
}

func FromPhysic(e physic.Env) Env {
	return NewEnv(e.Temperature.Celsius(), float64(e.Humidity)/float64(physic.PercentRH))
}
