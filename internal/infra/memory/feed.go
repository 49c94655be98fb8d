package memory

import (
	"context"
	"sync"

	"expo-quiz-service/internal/domain"
)

// Feed broadcasts change events to in-process subscribers. Slow subscribers
// get their oldest pending event dropped rather than blocking the publisher;
// observers re-fetch full state anyway, so a missed event is harmless.
type Feed struct {
	mu          sync.Mutex
	subscribers map[chan domain.Event]struct{}
}

func NewFeed() *Feed {
	return &Feed{subscribers: make(map[chan domain.Event]struct{})}
}

func (f *Feed) Publish(_ context.Context, e domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- e:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- e
		}
	}
	return nil
}

func (f *Feed) Subscribe(_ context.Context) (<-chan domain.Event, func(), error) {
	ch := make(chan domain.Event, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel, nil
}
