// Package swma implements a simple moving average over a fixed-size
// sliding window.
package swma

import (
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
)

// ErrInvalidSize is returned by NewSlidingWindow for a size below one.
var ErrInvalidSize = errors.New("window size must be greater than zero")

// SlidingWindow keeps the last windowSize values in a ring buffer and
// reports their arithmetic mean. Slots that have not been written yet hold
// zero and count towards the mean until the window fills.
//
// A SlidingWindow is not safe for concurrent use. Callers sharing one
// between goroutines must hold their own lock around each call.
type SlidingWindow[T constraints.Float] struct {
	window []T
	size   T
	cursor int
}

// NewSlidingWindow returns a zeroed window averaging the last windowSize
// values.
func NewSlidingWindow[T constraints.Float](windowSize int) (*SlidingWindow[T], error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("swma: %w: %d", ErrInvalidSize, windowSize)
	}
	return &SlidingWindow[T]{
		window: make([]T, windowSize),
		size:   T(windowSize),
	}, nil
}

// Add overwrites the oldest value with value and returns the new average.
func (s *SlidingWindow[T]) Add(value T) T {
	s.window[s.cursor] = value
	s.cursor++
	s.cursor %= len(s.window)
	return s.Average()
}

// Average is the mean of every slot, summed in index order.
func (s *SlidingWindow[T]) Average() T {
	return s.Sum() / s.size
}

func (s *SlidingWindow[T]) Sum() T {
	var sum T
	for _, v := range s.window {
		sum += v
	}
	return sum
}

// Reset zeroes the window and rewinds the cursor.
func (s *SlidingWindow[T]) Reset() {
	clear(s.window)
	s.cursor = 0
}

// Window returns a copy of the window, oldest value first.
func (s *SlidingWindow[T]) Window() []T {
	out := make([]T, 0, len(s.window))
	out = append(out, s.window[s.cursor:]...)
	return append(out, s.window[:s.cursor]...)
}

func (s *SlidingWindow[T]) WindowSize() int {
	return len(s.window)
}
