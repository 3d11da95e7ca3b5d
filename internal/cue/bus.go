package cue

import (
	"sync"

	"github.com/Iv91/kidslearning/internal/quiz"
)

const bufferSize = 4

// Event is a cue addressed to one view
type Event struct {
	ViewID string   `json:"view_id"`
	Cue    quiz.Cue `json:"cue"`
}

type subscriber struct {
	ch chan Event
}

// Bus fans cues out to the listeners of each view. Publish never blocks:
// a slow listener loses its oldest pending cue.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[*subscriber]struct{})}
}

// Publish delivers c to every current listener of viewID
func (b *Bus) Publish(viewID string, c quiz.Cue) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ev := Event{ViewID: viewID, Cue: c}
	for sub := range b.subs[viewID] {
		for {
			select {
			case sub.ch <- ev:
			default:
				select {
				case <-sub.ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Subscribe returns a channel of cues for viewID and a func that ends the subscription
func (b *Bus) Subscribe(viewID string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, bufferSize)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	if b.subs[viewID] == nil {
		b.subs[viewID] = make(map[*subscriber]struct{})
	}
	b.subs[viewID][sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { b.remove(viewID, sub) })
	}
}

// Drop ends every subscription of a view
func (b *Bus) Drop(viewID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[viewID] {
		close(sub.ch)
	}
	delete(b.subs, viewID)
}

// Close ends every subscription
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, subs := range b.subs {
		for sub := range subs {
			close(sub.ch)
		}
	}
	b.subs = make(map[string]map[*subscriber]struct{})
	b.closed = true
}

func (b *Bus) remove(viewID string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subs[viewID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(b.subs, viewID)
	}
}
