package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Stats computes statistics over a window of evenly spaced samples. The
// x axis (1..size) and residual scratch space are allocated once.
type Stats struct {
	size int
	x    []float64
	y    []float64
}

func NewStats(size int) *Stats {
	x := make([]float64, size)
	for i := range x {
		x[i] = float64(i + 1)
	}
	return &Stats{
		size: size,
		x:    x,
		y:    make([]float64, size),
	}
}

// LinearRegression returns the intercept and slope per sample of the least
// squares fit of values. values must hold exactly size entries.
func (p *Stats) LinearRegression(values []float64) (float64, float64) {
	if p.size < 2 {
		return p.mean(values), 0
	}
	return stat.LinearRegression(p.x, values, nil, false)
}

func (p *Stats) StdDev(values []float64) float64 {
	if p.size < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// QuantileSpread returns the pct quantile of the absolute residuals around
// the linear trend.
func (p *Stats) QuantileSpread(values []float64, pct float64) float64 {
	b, m := p.LinearRegression(values)
	for i, v := range values {
		y := m*p.x[i] + b
		p.y[i] = math.Abs(v - y)
	}
	// stat.Quantile wants sorted input
	slices.Sort(p.y)
	return stat.Quantile(pct, stat.Empirical, p.y, nil)
}

func (p *Stats) mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
