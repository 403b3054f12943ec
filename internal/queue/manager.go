// Package queue implements an in-memory job queue and an autoscaled worker
// pool that executes the asynchronous backend calls of session stores.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/fairyhunter13/storefront-state/internal/config"
	"github.com/fairyhunter13/storefront-state/internal/obs"
)

// Manager coordinates workers processing queued jobs and scaling.
type Manager struct {
	cfg    config.Config
	q      *Queue
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	workerCancels []context.CancelFunc
}

// NewManager constructs a Manager with the given config and queue.
func NewManager(cfg config.Config, q *Queue) *Manager {
	return &Manager{cfg: cfg, q: q}
}

// Start begins processing and autoscaling in the background.
func (m *Manager) Start(parent context.Context) {
	m.ctx, m.cancel = context.WithCancel(parent)
	m.q.Start(m.ctx, m.cfg.QueueHighWatermark)
	m.addWorkers(m.cfg.InitialWorkerCount)
	go m.scaler()
}

// Stop cancels background routines and stops workers.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	for _, c := range m.workerCancels {
		c()
	}
	m.workerCancels = nil
	m.mu.Unlock()
	obs.WorkerCount.Set(0)
}

// scaler adjusts worker count based on backlog and configuration.
func (m *Manager) scaler() {
	t := time.NewTicker(m.cfg.ScaleInterval)
	defer t.Stop()
	idleTicks := 0
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-t.C:
			backlog := m.q.BacklogSize()
			wc := m.WorkerCount()
			if backlog > wc*m.cfg.ScaleUpBacklogPerWorker && wc < m.cfg.WorkerMax {
				m.addWorkers(1)
				idleTicks = 0
				continue
			}
			if backlog == 0 {
				idleTicks++
				if idleTicks >= m.cfg.ScaleDownIdleTicks && wc > m.cfg.WorkerMin {
					m.removeWorkers(1)
					idleTicks = 0
				}
			} else {
				idleTicks = 0
			}
		}
	}
}

// addWorkers spawns n workers.
func (m *Manager) addWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		wctx, cancel := context.WithCancel(m.ctx)
		m.workerCancels = append(m.workerCancels, cancel)
		go m.worker(wctx)
	}
	obs.WorkerCount.Set(float64(len(m.workerCancels)))
	obs.Logger.Info("workers_scaled", "worker_count", len(m.workerCancels))
}

// removeWorkers stops up to n workers.
func (m *Manager) removeWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.workerCancels) {
		n = len(m.workerCancels)
	}
	for i := 0; i < n; i++ {
		c := m.workerCancels[len(m.workerCancels)-1]
		m.workerCancels = m.workerCancels[:len(m.workerCancels)-1]
		c()
	}
	obs.WorkerCount.Set(float64(len(m.workerCancels)))
	obs.Logger.Info("workers_scaled", "worker_count", len(m.workerCancels))
}

// worker drains jobs from the queue and runs them. A job runs under the
// manager context so scaling a worker down never interrupts a call midway.
func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-m.q.Out():
			m.run(job)
			m.q.MarkProcessed()
			obs.JobsProcessed.Inc()
		}
	}
}

func (m *Manager) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			obs.Logger.Error("job_panic", "job", job.Name, "token", job.Token, "panic", r)
		}
	}()
	if job.Run != nil {
		job.Run(m.ctx)
	}
}

// Submit enqueues a job; it reports false once intake is closed.
func (m *Manager) Submit(job Job) bool { return m.q.Enqueue(job) }

// BacklogSize returns pending items in the queue.
func (m *Manager) BacklogSize() int { return m.q.BacklogSize() }

// QueueDepth returns backlog plus buffered output items.
func (m *Manager) QueueDepth() int { return m.q.QueueDepth() }

// WorkerCount returns the current number of workers.
func (m *Manager) WorkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workerCancels)
}

// IsShuttingDown reports whether new jobs are rejected.
func (m *Manager) IsShuttingDown() bool { return m.q.IsShuttingDown() }

// CloseIntake disallows future jobs.
func (m *Manager) CloseIntake() { m.q.CloseIntake() }

// QueueMetrics exposes the underlying queue metrics.
func (m *Manager) QueueMetrics() (enq, proc uint64, backlog, depth int) {
	return m.q.Metrics()
}

// Superseded returns how many queued jobs were replaced before running.
func (m *Manager) Superseded() uint64 { return m.q.Superseded() }

// DrainUntil blocks until every accepted job has run or been superseded, or
// ctx is done.
func (m *Manager) DrainUntil(ctx context.Context) bool {
	for {
		enq, proc, backlog, depth := m.q.Metrics()
		if backlog == 0 && depth == 0 && enq == proc+m.q.Superseded() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
