package sensor

import (
	"context"
	"time"

	tsl2591 "github.com/JenswBE/golang-tsl2591"
)

// TSL2591Channel polls the infrared channel of a light sensor.
func TSL2591Channel(ctx context.Context, dev *tsl2591.TSL2591, interval time.Duration) (<-chan float64, func() error) {
	return poll(ctx, TSL2591, interval, func() (float64, error) {
		ir, err := dev.Infrared()
		if err != nil {
			return 0, err
		}
		return float64(ir), nil
	})
}
