package fetcher

import (
	"context"
	"errors"
	"sync"
	"time"

	errs "butterfliy/pkg/errors"
	"butterfliy/pkg/logger"
	"butterfliy/pkg/models"
)

// ErrPoolStopped is returned by Submit once the pool is shutting down
var ErrPoolStopped = errors.New("fetch pool is shutting down")

// LocationGetter fetches one location. api.LocationService satisfies it;
// each call runs its own retry loop.
type LocationGetter interface {
	Get(ctx context.Context, id string) (*models.Location, error)
}

// Job is a single lookup; Index is the job's position in the caller's input
type Job struct {
	Index int
	ID    string
}

// Result is the outcome of a Job
type Result struct {
	Job      Job
	Location *models.Location
	Err      error
	Duration time.Duration
}

// Pool runs lookups on a fixed number of workers
type Pool struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	getter     LocationGetter
	logger     logger.Logger

	mu      sync.RWMutex
	stopped bool
}

// New creates a pool bound to ctx. Cancelling ctx aborts in-flight lookups.
func New(ctx context.Context, numWorkers int, getter LocationGetter, log logger.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numWorkers*2),
		results:    make(chan Result, numWorkers),
		ctx:        ctx,
		cancel:     cancel,
		getter:     getter,
		logger:     log,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	logger.LogComponentStart(p.logger, "fetch_pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop waits for queued jobs to finish and closes Results. Results must be
// drained concurrently or Stop blocks.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	close(p.results)
	p.cancel()

	logger.LogComponentStop(p.logger, "fetch_pool", "stopped")
}

// Cancel aborts in-flight lookups without waiting
func (p *Pool) Cancel() {
	p.cancel()
}

// Submit queues a job, blocking while the queue is full
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}
}

// Results returns the result channel; it is closed by Stop
func (p *Pool) Results() <-chan Result {
	return p.results
}

// QueueSize returns the number of jobs waiting for a worker
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		result := p.process(job, id)

		select {
		case p.results <- result:
		case <-p.ctx.Done():
			p.logger.DebugWithFields("worker stopping, context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		}
	}
}

func (p *Pool) process(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}

	if err := p.ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	location, err := p.getter.Get(p.ctx, job.ID)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		p.logger.WarnWithFields("location lookup failed", map[string]interface{}{
			"worker_id":   workerID,
			"id":          job.ID,
			"class":       string(errs.Classify(err).Class()),
			"error":       err.Error(),
			"duration_ms": result.Duration.Milliseconds(),
		})
		return result
	}

	result.Location = location
	p.logger.DebugWithFields("location lookup completed", map[string]interface{}{
		"worker_id":   workerID,
		"id":          job.ID,
		"duration_ms": result.Duration.Milliseconds(),
	})
	return result
}

// FetchAll looks up every id on numWorkers workers and returns one Result
// per id in input order. Ids never dispatched because ctx ended carry
// ctx's error.
func FetchAll(ctx context.Context, getter LocationGetter, ids []string, numWorkers int, log logger.Logger) []Result {
	return FetchEach(ctx, getter, ids, numWorkers, log, nil)
}

// FetchEach is FetchAll with a callback invoked, from the calling
// goroutine, as each lookup finishes
func FetchEach(ctx context.Context, getter LocationGetter, ids []string, numWorkers int, log logger.Logger, onResult func(Result)) []Result {
	results := make([]Result, len(ids))
	seen := make([]bool, len(ids))
	if len(ids) == 0 {
		return results
	}
	if numWorkers > len(ids) {
		numWorkers = len(ids)
	}

	pool := New(ctx, numWorkers, getter, log)
	pool.Start()

	go func() {
		defer pool.Stop()
		for i, id := range ids {
			if err := pool.Submit(ctx, Job{Index: i, ID: id}); err != nil {
				return
			}
		}
	}()

	for result := range pool.Results() {
		results[result.Job.Index] = result
		seen[result.Job.Index] = true
		if onResult != nil {
			onResult(result)
		}
	}

	for i, ok := range seen {
		if ok {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = ErrPoolStopped
		}
		results[i] = Result{Job: Job{Index: i, ID: ids[i]}, Err: err}
	}
	return results
}
