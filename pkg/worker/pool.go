package worker

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/kacperjurak/gosensorcore/pkg/models"
)

// Pool manages concurrent file loading workers
type Pool struct {
	jobs      chan models.WorkItem
	results   chan models.WorkResult
	workers   int
	shutdown  chan struct{}
	once      sync.Once
	wg        sync.WaitGroup
	processor ProcessorFunc
	quiet     bool
}

// ProcessorFunc loads the file named by a work item
type ProcessorFunc func(item models.WorkItem) (interface{}, error)

// Options holds configuration for creating a new worker pool
type Options struct {
	Workers   int
	Processor ProcessorFunc
	Quiet     bool
}

// New creates a new worker pool with specified configuration
func New(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	// do not block queueing new jobs and results while workers are busy: jobs/results * 2
	pool := &Pool{
		jobs:      make(chan models.WorkItem, opts.Workers*2),
		results:   make(chan models.WorkResult, opts.Workers*2),
		workers:   opts.Workers,
		shutdown:  make(chan struct{}),
		processor: opts.Processor,
		quiet:     opts.Quiet,
	}

	pool.start()
	return pool
}

// Workers returns the number of running workers
func (p *Pool) Workers() int {
	return p.workers
}

// start initializes and starts all workers
func (p *Pool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	if !p.quiet {
		log.Printf("🔧 Worker pool started with %d workers", p.workers)
	}
}

// worker processes jobs from the jobs channel
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobs:
			result := p.processJob(job)
			select {
			case p.results <- result:
			case <-p.shutdown:
				return
			}

		case <-p.shutdown:
			return
		}
	}
}

// processJob runs the processor and times it
func (p *Pool) processJob(job models.WorkItem) models.WorkResult {
	startTime := time.Now()
	value, err := p.processor(job)
	processingTime := time.Since(startTime)

	return models.WorkResult{
		ID:             job.ID,
		TrialID:        job.TrialID,
		Path:           job.Path,
		Value:          value,
		Err:            err,
		ProcessingTime: processingTime,
		Success:        err == nil,
	}
}

// SubmitJob submits a job to the worker pool
func (p *Pool) SubmitJob(job models.WorkItem) {
	if job.StartTime.IsZero() {
		job.StartTime = time.Now()
	}
	select {
	case p.jobs <- job:
		// Job submitted successfully
	default:
		p.jobs <- job // Block until space available
	}
}

// GetResult retrieves a result from the worker pool (non-blocking)
func (p *Pool) GetResult() (models.WorkResult, bool) {
	select {
	case result := <-p.results:
		return result, true
	default:
		return models.WorkResult{}, false
	}
}

// Collect blocks until n results have arrived and returns them ordered by job ID
func (p *Pool) Collect(n int) []models.WorkResult {
	out := make([]models.WorkResult, 0, n)
	for len(out) < n {
		out = append(out, <-p.results)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Run submits every item, waits for all results and returns them ordered by ID.
// Submission runs on its own goroutine so a full results channel cannot stall it.
func (p *Pool) Run(items []models.WorkItem) []models.WorkResult {
	go func() {
		for _, item := range items {
			p.SubmitJob(item)
		}
	}()
	return p.Collect(len(items))
}

// Shutdown stops all workers and waits for them to exit
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.shutdown)
	})
	p.wg.Wait()
	if !p.quiet {
		log.Printf("✅ Worker pool shutdown complete")
	}
}
