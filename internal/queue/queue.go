package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/storefront-state/internal/obs"
)

// Queue holds store jobs between submission and a free worker. Waiting jobs
// with the same key collapse to the newest token, so a burst of reloads from
// one session costs a single backend call.
type Queue struct {
	mu      sync.Mutex
	backlog []Job
	notify  chan struct{}
	out     chan Job
	closed  atomic.Bool

	enqueued   atomic.Uint64
	processed  atomic.Uint64
	superseded atomic.Uint64
}

// New creates a Queue whose hand-off channel buffers outBuffer jobs.
func New(outBuffer int) *Queue {
	if outBuffer <= 0 {
		outBuffer = 64
	}
	return &Queue{
		notify: make(chan struct{}, 1),
		out:    make(chan Job, outBuffer),
	}
}

// Start runs the broker until ctx is done.
func (q *Queue) Start(ctx context.Context, highWatermark int) {
	go q.broker(ctx, highWatermark)
}

func (q *Queue) broker(ctx context.Context, highWatermark int) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		q.handOff()
		if highWatermark > 0 {
			if sz := q.BacklogSize(); sz > highWatermark {
				obs.Logger.Warn("job_backlog_high", "backlog_size", sz, "high_watermark", highWatermark)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-q.notify:
		case <-ticker.C:
		}
	}
}

// handOff moves waiting jobs to workers while the hand-off buffer has room.
// Once a job leaves the backlog it can no longer be superseded.
func (q *Queue) handOff() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.backlog) > 0 && len(q.out) < cap(q.out) {
		q.out <- q.backlog[0]
		q.backlog = q.backlog[1:]
	}
}

// Enqueue adds job to the backlog. Waiting jobs it replaces are dropped; if
// a newer job for the same key is already waiting, job itself is dropped.
// Dropped jobs have their Superseded callback run before Enqueue returns.
// It reports false once intake is closed.
func (q *Queue) Enqueue(job Job) bool {
	if q.closed.Load() {
		return false
	}
	q.enqueued.Add(1)

	var dropped []Job
	q.mu.Lock()
	keep := q.backlog[:0]
	accepted := true
	for _, w := range q.backlog {
		switch {
		case job.replaces(w):
			dropped = append(dropped, w)
		default:
			if w.replaces(job) {
				accepted = false
			}
			keep = append(keep, w)
		}
	}
	clear(q.backlog[len(keep):])
	q.backlog = keep
	if accepted {
		q.backlog = append(q.backlog, job)
	} else {
		dropped = append(dropped, job)
	}
	q.mu.Unlock()

	for _, d := range dropped {
		q.retire(d)
	}
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

func (q *Queue) retire(job Job) {
	q.superseded.Add(1)
	obs.JobsSuperseded.Inc()
	obs.Logger.Debug("job_superseded", "job", job.Name, "key", job.Key, "token", job.Token)
	if job.Superseded != nil {
		job.Superseded()
	}
}

// Out exposes jobs ready for a worker.
func (q *Queue) Out() <-chan Job { return q.out }

// BacklogSize returns the number of jobs not yet handed to workers.
func (q *Queue) BacklogSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// QueueDepth returns backlog plus jobs buffered for workers.
func (q *Queue) QueueDepth() int {
	q.mu.Lock()
	bl := len(q.backlog)
	q.mu.Unlock()
	return bl + len(q.out)
}

// MarkProcessed records a job that ran to completion.
func (q *Queue) MarkProcessed() { q.processed.Add(1) }

// Superseded returns how many jobs were dropped in favour of newer ones.
func (q *Queue) Superseded() uint64 { return q.superseded.Load() }

// Metrics returns counters and sizes for observability.
func (q *Queue) Metrics() (enq, proc uint64, backlog, depth int) {
	enq = q.enqueued.Load()
	proc = q.processed.Load()
	backlog = q.BacklogSize()
	depth = q.QueueDepth()
	return enq, proc, backlog, depth
}

// CloseIntake rejects every later Enqueue.
func (q *Queue) CloseIntake() { q.closed.Store(true) }

// IsShuttingDown reports whether intake has been closed.
func (q *Queue) IsShuttingDown() bool { return q.closed.Load() }
