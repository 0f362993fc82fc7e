package router

import (
	"log/slog"
	"sync"
)

// Fan copies every value from input to each subscriber. Subscribers are
// served in turn, so a slow one holds up the rest.
type Fan[T any] struct {
	debug   bool
	name    string
	mu      sync.Mutex
	done    bool
	input   <-chan T
	outputs map[string]chan T
}

func NewFan[T any](name string, input <-chan T) *Fan[T] {
	return &Fan[T]{
		name:    name,
		input:   input,
		outputs: make(map[string]chan T),
	}
}

func (f *Fan[T]) SetDebug(debug bool) {
	f.debug = debug
}

// Subscribe registers client and returns its channel. Subscribing the same
// client twice is a programming error and panics. A client subscribing
// after the input has closed gets a closed channel.
func (f *Fan[T]) Subscribe(client string) <-chan T {
	if f.debug {
		slog.Debug("subscribing to fan", "fan", f.name, "client", client)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.outputs[client]; ok {
		panic("client already subscribed: " + client)
	}
	c := make(chan T, 1)
	if f.done {
		close(c)
		return c
	}
	f.outputs[client] = c
	return c
}

// Run forwards values until input is closed, then closes every subscriber.
func (f *Fan[T]) Run() error {
	for v := range f.input {
		if f.debug {
			slog.Debug("fan received value", "fan", f.name, "value", v)
		}
		f.mu.Lock()
		for k, ch := range f.outputs {
			ch <- v
			if f.debug {
				slog.Debug("fan sent value", "subscriber", k, "fan", f.name, "value", v)
			}
		}
		f.mu.Unlock()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = true
	for k, ch := range f.outputs {
		close(ch)
		delete(f.outputs, k)
	}
	slog.Debug("fan input closed", "fan", f.name)
	return nil
}
