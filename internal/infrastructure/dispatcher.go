package infrastructure

import (
	"sync"
	"time"
)

// Dispatcher runs jobs for different conversations concurrently while
// keeping FIFO order within a single conversation. Each active conversation
// gets its own queue goroutine; idle queues are torn down by the janitor.
type Dispatcher struct {
	mu        sync.Mutex
	queues    map[string]*convQueue
	queueSize int
	idleAfter time.Duration
	stopped   bool
}

type convQueue struct {
	jobs     chan func()
	lastUsed time.Time
}

func NewDispatcher(queueSize int, idleAfter time.Duration) *Dispatcher {
	d := &Dispatcher{
		queues:    make(map[string]*convQueue),
		queueSize: queueSize,
		idleAfter: idleAfter,
	}
	go d.janitor()
	return d
}

// Enqueue schedules a job on the conversation's queue. Returns false when
// the queue is full (the caller drops the message rather than blocking the
// webhook handler).
func (d *Dispatcher) Enqueue(conversationKey string, job func()) bool {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return false
	}
	q, exists := d.queues[conversationKey]
	if !exists {
		q = &convQueue{jobs: make(chan func(), d.queueSize)}
		d.queues[conversationKey] = q
		go d.run(q)
	}
	q.lastUsed = time.Now()
	d.mu.Unlock()

	select {
	case q.jobs <- job:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) run(q *convQueue) {
	for job := range q.jobs {
		job()
	}
}

func (d *Dispatcher) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return
		}
		now := time.Now()
		for key, q := range d.queues {
			if now.Sub(q.lastUsed) > d.idleAfter && len(q.jobs) == 0 {
				close(q.jobs)
				delete(d.queues, key)
			}
		}
		d.mu.Unlock()
	}
}

// Stop closes all queues. Pending jobs still drain before the workers exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	for key, q := range d.queues {
		close(q.jobs)
		delete(d.queues, key)
	}
}

// ActiveQueues returns the number of live conversation queues.
func (d *Dispatcher) ActiveQueues() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}
