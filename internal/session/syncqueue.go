package session

import (
	"context"
	"sync"
	"time"

	"github.com/sadopc/supadmin/internal/logger"
)

const defaultSyncTimeout = 15 * time.Second

type syncJob func(ctx context.Context) error

// syncQueue runs remote writes on a single worker. Pending jobs are keyed:
// enqueueing a key that is already waiting replaces its job, so the last
// value issued is the one written and writes never overlap.
type syncQueue struct {
	log     *logger.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]syncJob
	order   []string
	running bool
	closed  bool
	waiters []chan struct{}

	wake chan struct{}
	done chan struct{}
}

func newSyncQueue(log *logger.Logger) *syncQueue {
	q := &syncQueue{
		log:     log,
		timeout: defaultSyncTimeout,
		pending: make(map[string]syncJob),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go q.loop()
	return q
}

// enqueue schedules job under key. It reports false once the queue is closed.
func (q *syncQueue) enqueue(key string, job syncJob) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if _, ok := q.pending[key]; !ok {
		q.order = append(q.order, key)
	}
	q.pending[key] = job
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

func (q *syncQueue) loop() {
	defer close(q.done)
	for {
		key, job, ok := q.next()
		if !ok {
			q.mu.Lock()
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := job(ctx)
		cancel()
		if err != nil {
			q.log.With().Str("key", key).Err(err).Logger().Warn("settings sync failed")
		} else {
			q.log.With().Str("key", key).Logger().Debug("settings synced")
		}

		q.mu.Lock()
		q.running = false
		if len(q.order) == 0 {
			for _, w := range q.waiters {
				close(w)
			}
			q.waiters = nil
		}
		q.mu.Unlock()
	}
}

func (q *syncQueue) next() (string, syncJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.order) == 0 {
		return "", nil, false
	}
	key := q.order[0]
	q.order = q.order[1:]
	job := q.pending[key]
	delete(q.pending, key)
	q.running = true
	return key, job, true
}

// flush blocks until every queued job has run or ctx ends.
func (q *syncQueue) flush(ctx context.Context) error {
	q.mu.Lock()
	if len(q.order) == 0 && !q.running {
		q.mu.Unlock()
		return nil
	}
	w := make(chan struct{})
	q.waiters = append(q.waiters, w)
	q.mu.Unlock()

	select {
	case <-w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting jobs, drains what is pending and waits for the
// worker to exit.
func (q *syncQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.done
}
