package poller

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ─────────────────────────────────────────────────────────────────────────────
// WorkerPool: fan-out dispatcher for PollJobs
// ─────────────────────────────────────────────────────────────────────────────

// WorkerPool runs scheduled snapshot polls on N goroutines and forwards each
// snapshot, reachable or not, to a shared output channel.
//
// At most one poll per address is in flight. A job arriving while its
// address is still being polled is skipped.
type WorkerPool struct {
	numWorkers int
	poller     Poller
	output     chan<- Result
	logger     *zap.Logger

	jobs chan PollJob
	wg   sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewWorkerPool creates a pool of numWorkers goroutines that poll with p
// and send results to output. numWorkers <= 0 selects 8.
func NewWorkerPool(numWorkers int, p Poller, output chan<- Result, logger *zap.Logger) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		numWorkers: numWorkers,
		poller:     p,
		output:     output,
		logger:     logger,
		jobs:       make(chan PollJob, numWorkers*2),
		inFlight:   make(map[string]struct{}),
	}
}

// Start launches the workers. They exit when ctx is cancelled or Stop
// closes the job queue.
func (w *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < w.numWorkers; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}
}

// Submit enqueues a job, blocking while the queue is full.
func (w *WorkerPool) Submit(job PollJob) {
	w.jobs <- job
}

// TrySubmit enqueues a job without blocking and reports whether it was
// accepted.
func (w *WorkerPool) TrySubmit(job PollJob) bool {
	select {
	case w.jobs <- job:
		return true
	default:
		return false
	}
}

// Stop closes the job queue and waits for the workers to exit. Submit must
// not be called afterwards.
func (w *WorkerPool) Stop() {
	close(w.jobs)
	w.wg.Wait()
}

// InFlight returns the number of addresses currently being polled.
func (w *WorkerPool) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.inFlight)
}

func (w *WorkerPool) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			if !w.claim(job.Address) {
				w.logger.Debug("poll already in progress, skipping",
					zap.String("device", job.Label),
					zap.String("address", job.Address),
				)
				continue
			}
			res, ok := w.poll(ctx, job)
			w.release(job.Address)
			if !ok {
				continue
			}
			select {
			case w.output <- res:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (w *WorkerPool) poll(ctx context.Context, job PollJob) (Result, bool) {
	snap, err := w.poller.Poll(ctx, job.Address, job.Community)
	if err != nil {
		w.logger.Warn("poll rejected",
			zap.String("device", job.Label),
			zap.String("address", job.Address),
			zap.Error(err),
		)
		return Result{}, false
	}
	if !snap.Reachable {
		w.logger.Info("device unreachable",
			zap.String("device", job.Label),
			zap.String("address", job.Address),
		)
	}
	return Result{Job: job, Snapshot: snap}, true
}

func (w *WorkerPool) claim(address string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inFlight[address]; busy {
		return false
	}
	w.inFlight[address] = struct{}{}
	return true
}

func (w *WorkerPool) release(address string) {
	w.mu.Lock()
	delete(w.inFlight, address)
	w.mu.Unlock()
}
