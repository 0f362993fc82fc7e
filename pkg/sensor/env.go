package sensor

import (
	"fmt"
	"math"
)

// Env is a combined temperature and relative humidity reading.
type Env struct {
	Temperature float64
	Humidity    float64
	Dewpoint    float64
}

func NewEnv(temp, humidity float64) Env {
	return Env{
		Temperature: temp,
		Humidity:    humidity,
		Dewpoint:    Dewpoint(temp, humidity),
	}
}

// Dewpoint uses the Magnus formula with the Alduchov-Eskridge constants.
// t is in celsius, rh in percent.
func Dewpoint(t, rh float64) float64 {
	gamma := math.Log(rh/100) + (17.625*t)/(243.04+t)
	return 243.04 * gamma / (17.625 - gamma)
}

// Value picks metric out of the reading.
func (e Env) Value(metric string) (float64, error) {
	switch metric {
	case MetricTemperature:
		return e.Temperature, nil
	case MetricHumidity:
		return e.Humidity, nil
	case MetricDewpoint:
		return e.Dewpoint, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
}
