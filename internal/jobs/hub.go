package jobs

import (
	"context"
	"sync"

	"github.com/jonathan/site-generator/internal/types"
)

const subscriberBuffer = 16

// Hub fans job snapshots out to live subscribers keyed by job id.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan *types.Job]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan *types.Job]struct{})}
}

// Subscribe returns a channel of snapshots for id and a function that
// releases it. Slow subscribers miss intermediate snapshots, never the channel.
func (h *Hub) Subscribe(id string) (<-chan *types.Job, func()) {
	ch := make(chan *types.Job, subscriberBuffer)
	h.mu.Lock()
	if h.subs[id] == nil {
		h.subs[id] = make(map[chan *types.Job]struct{})
	}
	h.subs[id][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[id]; ok {
				if _, ok := set[ch]; ok {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(h.subs, id)
				}
			}
		})
	}
}

// Publish delivers a snapshot to every subscriber of job.ID without blocking.
func (h *Hub) Publish(job *types.Job) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[job.ID] {
		select {
		case ch <- job.Clone():
		default:
		}
	}
}

// Subscribers returns the number of live subscribers for id.
func (h *Hub) Subscribers(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}

// PublishingStore decorates a Store so every successful write is published.
type PublishingStore struct {
	Store
	hub *Hub
}

// NewPublishingStore wraps store.
func NewPublishingStore(store Store, hub *Hub) *PublishingStore {
	return &PublishingStore{Store: store, hub: hub}
}

func (s *PublishingStore) Create(ctx context.Context, job *types.Job) error {
	if err := s.Store.Create(ctx, job); err != nil {
		return err
	}
	s.hub.Publish(job)
	return nil
}

func (s *PublishingStore) Merge(ctx context.Context, id string, patch Patch) (*types.Job, error) {
	job, err := s.Store.Merge(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(job)
	return job, nil
}
