package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Handler consumes one queued item
type Handler[T any] func(item T) error

// Queue is an in-memory buffered queue that fans each item out to every
// subscribed handler on a single worker goroutine
type Queue[T any] struct {
	name     string
	items    chan T
	done     chan struct{}
	maxSize  int
	closed   bool
	started  bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []Handler[T]
}

// New creates a queue with the specified buffer size
func New[T any](name string, bufferSize int, logger *logrus.Logger) *Queue[T] {
	if logger == nil {
		logger = logrus.New()
	}
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Queue[T]{
		name:     name,
		items:    make(chan T, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]Handler[T], 0),
	}
}

// Push adds an item without blocking
func (q *Queue[T]) Push(item T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- item:
		q.logger.WithField("queue", q.name).Debug("Pushed item to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler that will be called for each item
func (q *Queue[T]) Subscribe(handler Handler[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue
func (q *Queue[T]) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	go q.process()
}

func (q *Queue[T]) process() {
	defer close(q.done)
	for item := range q.items {
		q.dispatch(item)
	}
}

func (q *Queue[T]) dispatch(item T) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(item); err != nil {
			q.logger.WithError(err).WithField("queue", q.name).Error("Handler failed to process item")
		}
	}
}

// Close stops accepting items. Items already queued are still delivered;
// Close returns once they have been handled.
func (q *Queue[T]) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.items)
	started := q.started
	q.mu.Unlock()

	if started {
		<-q.done
	}
	return nil
}

// Len returns the current number of queued items
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *Queue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
