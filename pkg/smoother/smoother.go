// Package smoother runs a moving average over a stream of readings.
package smoother

import (
	"encoding/json"
	"log/slog"

	"github.com/mikesmitty/swma/pkg/stats"
	"github.com/mikesmitty/swma/pkg/swma"
)

// Sample is one reading together with the state of the window after it
// was added.
type Sample struct {
	Raw     float64
	Average float64
	StdDev  float64
	Slope   float64
	Spread  float64
	Count   uint64
	// Filled is false while the average still includes zero padding.
	Filled bool
}

// spreadQuantile picks the residual quantile reported as Spread.
const spreadQuantile = 0.9

func (s Sample) String() string {
	out, err := json.Marshal(s)
	if err != nil {
		slog.Error("json marshal error", "error", err, "module", "smoother")
	}
	return string(out)
}

// New returns the output channel and the loop that feeds it. The window is
// only touched from the loop goroutine. The output is closed once input is.
func New(name string, size int, input <-chan float64) (<-chan Sample, func() error, error) {
	window, err := swma.NewSlidingWindow[float64](size)
	if err != nil {
		return nil, nil, err
	}
	st := stats.NewStats(size)

	c := make(chan Sample, 1)
	return c, func() error {
		defer close(c)
		var count uint64
		for v := range input {
			count++
			avg := window.Add(v)
			values := window.Window()
			_, slope := st.LinearRegression(values)
			s := Sample{
				Raw:     v,
				Average: avg,
				StdDev:  st.StdDev(values),
				Slope:   slope,
				Spread:  st.QuantileSpread(values, spreadQuantile),
				Count:   count,
				Filled:  count >= uint64(size),
			}
			slog.Debug("smoothed reading", "name", name, "raw", v, "average", avg, "module", "smoother")
			c <- s
		}
		return nil
	}, nil
}
