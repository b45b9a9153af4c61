package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"staydesk/pkg/logger"
)

var (
	ErrBufferFull    = errors.New("notification buffer is full")
	ErrEmitterClosed = errors.New("notification emitter is closed")
)

// AsyncEmitter queues lifecycle events on a bounded buffer and publishes them
// from background workers. Emit never blocks the caller.
type AsyncEmitter struct {
	publisher      Publisher
	queue          chan Envelope
	logger         *logger.Logger
	publishTimeout time.Duration
	now            func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncEmitter starts workers goroutines draining a buffer of bufferSize envelopes
func NewAsyncEmitter(publisher Publisher, bufferSize, workers int, log *logger.Logger) *AsyncEmitter {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logger.GetDefault()
	}

	e := &AsyncEmitter{
		publisher:      publisher,
		queue:          make(chan Envelope, bufferSize),
		logger:         log.WithComponent("notifications"),
		publishTimeout: 10 * time.Second,
		now:            time.Now,
	}

	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	return e
}

// Emit enqueues the event. A full buffer drops it and returns ErrBufferFull.
func (e *AsyncEmitter) Emit(ctx context.Context, eventType string, payload interface{}) error {
	env, err := NewEnvelope(eventType, payload, e.now())
	if err != nil {
		return err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrEmitterClosed
	}

	select {
	case e.queue <- env:
		return nil
	default:
		e.logger.WarnContext(ctx, "Notification buffer full, dropping event",
			"event_type", eventType,
			"booking_id", env.BookingID,
			"buffer_size", cap(e.queue),
		)
		return ErrBufferFull
	}
}

func (e *AsyncEmitter) worker(id int) {
	defer e.wg.Done()
	for env := range e.queue {
		ctx, cancel := context.WithTimeout(context.Background(), e.publishTimeout)
		if err := e.publisher.Publish(ctx, env); err != nil {
			e.logger.LogEmitFailure(ctx, env.Type, env.BookingID, err)
		}
		cancel()
	}
	e.logger.Debug("Notification worker stopped", "worker", id)
}

// Close stops accepting events and waits for the buffer to drain or ctx to end
func (e *AsyncEmitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
