package paymentgateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrQueueFull = errors.New("job queue full, please try again later")

// Job is a unit of gateway work, typically polling one payment link.
type Job struct {
	Name string
	Run  func(ctx context.Context)
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, done func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing job", "worker_id", w.ID, "job", job.Name)
				job.Run(ctx)
				done()
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Pool fans jobs out to a fixed set of workers through a dispatcher.
type Pool struct {
	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	logger     *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	pending sync.WaitGroup
	once    sync.Once
}

func NewPool(maxWorkers, queueSize int, logger *slog.Logger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobQueue:   make(chan Job, queueSize),
		workerPool: make(chan chan Job, maxWorkers),
		maxWorkers: maxWorkers,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
	p.start()
	return p
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			NewWorker(i, p.workerPool, p.logger).Start(p.ctx, &p.wg, p.pending.Done)
		}

		p.wg.Add(1)
		go p.dispatch()

		p.logger.Info("gateway worker pool started",
			"max_workers", p.maxWorkers,
			"queue_size", cap(p.jobQueue))
	})
}

func (p *Pool) dispatch() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			select {
			case jobChannel := <-p.workerPool:
				select {
				case jobChannel <- job:
				case <-p.ctx.Done():
					p.pending.Done()
					return
				}
			case <-p.ctx.Done():
				p.pending.Done()
				return
			}
		case <-p.ctx.Done():
			p.logger.Info("dispatcher shutting down")
			return
		}
	}
}

// Submit queues job without blocking.
func (p *Pool) Submit(job Job) error {
	p.pending.Add(1)
	select {
	case p.jobQueue <- job:
		return nil
	default:
		p.pending.Done()
		p.logger.Warn("job queue full, rejecting job", "job", job.Name, "queue_capacity", cap(p.jobQueue))
		return ErrQueueFull
	}
}

// Drain blocks until every submitted job has run.
func (p *Pool) Drain() {
	p.pending.Wait()
}

func (p *Pool) Shutdown() {
	p.logger.Info("shutting down gateway worker pool")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("gateway worker pool shutdown complete")
}
