// Package jobs runs analyses in the background for the HTTP server.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sevigo/bug-warden/internal/config"
	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/metrics"
)

// ErrQueueFull is returned by Dispatch when no more jobs can be queued.
var ErrQueueFull = errors.New("job queue is full")

// Dispatcher implements core.JobDispatcher with a fixed pool of worker
// goroutines.
type Dispatcher struct {
	job        core.Job                   // Job implementation executed by each worker.
	jobQueue   chan *core.AnalysisRequest // Queue of accepted requests.
	maxWorkers int                        // Number of concurrent workers.
	store      *ResultStore               // Job states and results.
	ctx        context.Context            // Cancelled on Stop to interrupt running analyses.
	cancel     context.CancelFunc
	wg         sync.WaitGroup // Tracks active workers for graceful shutdown.
	logger     *slog.Logger
}

// NewDispatcher initializes a dispatcher with a worker pool.
// If MaxWorkers is 0 or negative, it defaults to 1.
func NewDispatcher(job core.Job, store *ResultStore, cfg config.ServerConfig, logger *slog.Logger) *Dispatcher {
	maxWorkers := max(1, cfg.MaxWorkers)
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		job:        job,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan *core.AnalysisRequest, max(1, cfg.QueueSize)),
		store:      store,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}
	d.startWorkers()
	return d
}

// startWorkers launches maxWorkers goroutines to process jobs from the queue.
func (d *Dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

// startWorker processes requests from the queue until it's closed.
func (d *Dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Info("starting analysis worker", "id", workerID)

	for req := range d.jobQueue {
		metrics.JobQueueDepth.Dec()
		d.process(workerID, req)
	}

	d.logger.Info("shutting down analysis worker", "id", workerID)
}

func (d *Dispatcher) process(workerID int, req *core.AnalysisRequest) {
	d.logger.Info("worker processing job", "worker_id", workerID, "job_id", req.ID, "source_root", req.SourceRoot)
	d.store.SetRunning(req.ID)

	if err := d.job.Run(d.ctx, req); err != nil {
		d.logger.Error("analysis job failed", "job_id", req.ID, "error", err)
	}
	if rec, err := d.store.Get(req.ID); err == nil {
		metrics.JobsTotal.WithLabelValues(string(rec.Status)).Inc()
	}
}

// Dispatch assigns the request an ID when it has none and queues it.
func (d *Dispatcher) Dispatch(_ context.Context, req *core.AnalysisRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	d.store.Add(req)
	d.logger.Info("queuing analysis job", "job_id", req.ID, "source_root", req.SourceRoot)

	metrics.JobQueueDepth.Inc()
	select {
	case d.jobQueue <- req:
		return nil
	default:
		metrics.JobQueueDepth.Dec()
		d.store.Remove(req.ID)
		metrics.JobsTotal.WithLabelValues("rejected").Inc()
		return ErrQueueFull
	}
}

// Store returns the result store shared with the jobs.
func (d *Dispatcher) Store() *ResultStore {
	return d.store
}

// Stop interrupts running analyses, which keep their partial results, and
// waits for all workers to finish. Requests still queued finish as cancelled.
func (d *Dispatcher) Stop() {
	d.logger.Info("stopping dispatcher and waiting for jobs to finish")
	d.cancel()
	close(d.jobQueue)
	d.wg.Wait()
	d.logger.Info("all analysis jobs have finished")
}
