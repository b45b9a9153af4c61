package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type mockEmailService struct {
	mock.Mock
}

func (m *mockEmailService) SendNotification(ctx context.Context, n *EmailNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// memoryDedupe is an in-memory Deduplicator
type memoryDedupe struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func newMemoryDedupe() *memoryDedupe {
	return &memoryDedupe{keys: map[string]bool{}}
}

func (d *memoryDedupe) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	if d.keys[key] {
		return false, nil
	}
	d.keys[key] = true
	return true, nil
}

func (d *memoryDedupe) Delete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, key)
	return nil
}

func (d *memoryDedupe) has(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.keys[key]
}

// recordingPublisher collects published envelopes; block holds Publish until closed
type recordingPublisher struct {
	mu    sync.Mutex
	envs  []Envelope
	block chan struct{}
	fail  bool
}

func (p *recordingPublisher) Publish(ctx context.Context, env Envelope) error {
	if p.block != nil {
		<-p.block
	}
	if p.fail {
		return errors.New("broker down")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs = append(p.envs, env)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Envelope, len(p.envs))
	copy(out, p.envs)
	return out
}
