package sensor

import (
	"context"
	"time"

	"github.com/mikesmitty/max31865"
	"periph.io/x/conn/v3/physic"
)

// Max31865Channel polls an RTD amplifier for the RTD temperature in
// celsius.
func Max31865Channel(ctx context.Context, dev *max31865.Dev, interval time.Duration) (<-chan float64, func() error) {
	return poll(ctx, MAX31865, interval, func() (float64, error) {
		var e physic.Env
		if err := dev.Sense(&e); err != nil {
			return 0, err
		}
		return e.Temperature.Celsius(), nil
	})
}
