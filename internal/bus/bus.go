// Package bus is a typed, synchronous publish/subscribe dispatcher.
//
// Handlers run in registration order in the publishing goroutine. A handler
// that fails or panics is logged and does not stop the handlers after it.
package bus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// MaxDepth bounds re-entrant publishing on a single topic.
const MaxDepth = 16

var ErrRecursion = errors.New("bus: publish recursion limit reached")

type Topic string

// Channel identifies a topic together with the type of its payload.
type Channel[T any] struct {
	topic Topic
}

func NewChannel[T any](topic Topic) Channel[T] {
	return Channel[T]{topic: topic}
}

func (c Channel[T]) Topic() Topic {
	return c.topic
}

type handler func(payload any) error

type Bus struct {
	mu       sync.Mutex
	handlers map[Topic][]handler
	depth    map[Topic]int
}

func New() *Bus {
	return &Bus{
		handlers: make(map[Topic][]handler),
		depth:    make(map[Topic]int),
	}
}

// Subscribe registers fn for every later publish on ch.
func Subscribe[T any](b *Bus, ch Channel[T], fn func(T) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[ch.topic] = append(b.handlers[ch.topic], func(payload any) error {
		v, ok := payload.(T)
		if !ok {
			return fmt.Errorf("bus: unexpected payload %T on %s", payload, ch.topic)
		}
		return fn(v)
	})
}

// Publish runs every handler registered on ch when the call starts and
// returns the joined handler failures.
func Publish[T any](b *Bus, ch Channel[T], payload T) error {
	b.mu.Lock()
	if b.depth[ch.topic] >= MaxDepth {
		b.mu.Unlock()
		slog.Error("bus: recursion limit reached", "topic", ch.topic, "depth", MaxDepth)
		return ErrRecursion
	}
	b.depth[ch.topic]++
	hs := make([]handler, len(b.handlers[ch.topic]))
	copy(hs, b.handlers[ch.topic])
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.depth[ch.topic]--
		b.mu.Unlock()
	}()

	var errs []error
	for i, h := range hs {
		if err := invoke(h, payload); err != nil {
			slog.Error("bus: handler failed", "topic", ch.topic, "handler", i, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HandlerCount reports how many handlers are registered on topic.
func (b *Bus) HandlerCount(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[topic])
}

func invoke(h handler, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bus: handler panic: %v", r)
		}
	}()
	return h(payload)
}
