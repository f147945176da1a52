package worker

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/fanfiq/fanfiq/pkg/canonical"
	"github.com/fanfiq/fanfiq/pkg/config"
	"github.com/fanfiq/fanfiq/pkg/ingest"
	"github.com/fanfiq/fanfiq/pkg/joblogs"
	"github.com/fanfiq/fanfiq/pkg/jobs"
	"github.com/fanfiq/fanfiq/pkg/metrics"
	"github.com/fanfiq/fanfiq/pkg/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/uptrace/bun"
)

// staleAfter is how long an in-progress job may go without an update before
// another process may take it over.
const staleAfter = 10 * time.Minute

const (
	outcomeCompleted = "completed"
	outcomeRetried   = "retried"
	outcomeFailed    = "failed"
)

// errPermanent marks failures that retrying cannot fix.
var errPermanent = errors.New("permanent job failure")

type processFunc func(ctx context.Context, job *models.Job, jl *joblogs.JobLogger) error

// Worker runs queued jobs with at-least-once semantics: a job is retried
// until it completes, fails permanently or runs out of attempts.
type Worker struct {
	config    *config.Config
	log       logger.Logger
	processID string

	processFuncs map[string]processFunc

	ingestService *ingest.Service
	jobService    *jobs.Service
	jobLogService *joblogs.Service

	queue          chan *models.Job
	shutdown       chan struct{}
	doneFetching   chan struct{}
	doneProcessing chan struct{}
}

func New(cfg *config.Config, db *bun.DB) *Worker {
	w := &Worker{
		config:    cfg,
		log:       logger.New(),
		processID: randStringBytes(8),

		ingestService: ingest.NewService(db),
		jobService:    jobs.NewService(db),
		jobLogService: joblogs.NewService(db),

		queue:          make(chan *models.Job, cfg.WorkerProcesses),
		shutdown:       make(chan struct{}),
		doneFetching:   make(chan struct{}),
		doneProcessing: make(chan struct{}, cfg.WorkerProcesses),
	}

	w.processFuncs = map[string]processFunc{
		models.JobTypeIngest: w.ProcessIngestJob,
	}

	return w
}

func (w *Worker) Start() {
	go w.fetchJobs()
	for i := 0; i < w.config.WorkerProcesses; i++ {
		go w.processJobs()
	}
}

func (w *Worker) fetchJobs() {
	duration := w.config.WorkerPollInterval
	timer := time.NewTimer(duration)

	for {
		select {
		case <-w.shutdown:
			// We're shutting down, so stop adding more jobs to the queue.
			timer.Stop()
			w.doneFetching <- struct{}{}
			return
		case <-timer.C:
			j, err := w.jobService.ListJobs(context.Background(), jobs.ListJobsOptions{
				Limit:       pointerutil.Int(w.config.WorkerProcesses),
				Claimable:   true,
				ProcessID:   w.processID,
				StaleBefore: time.Now().Add(-staleAfter),
			})
			if err != nil {
				w.log.Err(err).Error("list jobs error")
				timer.Reset(duration)
				continue
			}
			for _, job := range j {
				select {
				case w.queue <- job:
				case <-w.shutdown:
					w.doneFetching <- struct{}{}
					return
				}
			}
			timer.Reset(duration)
		}
	}
}

func (w *Worker) processJobs() {
	for {
		select {
		case <-w.shutdown:
			w.doneProcessing <- struct{}{}
			return
		case job := <-w.queue:
			w.RunJob(job)
		}
	}
}

// RunJob claims job, runs it and records the outcome. A job another process
// claimed first is skipped.
func (w *Worker) RunJob(job *models.Job) {
	// Prep the context to be passed down to the process function.
	id, err := uuid.NewRandom()
	if err != nil {
		w.log.Err(err).Error("new uuid error")
		return
	}
	log := w.log.ID(id.String()).Root(logger.Data{"job_id": job.ID, "type": job.Type, "process_id": w.processID})
	ctx := log.WithContext(context.Background())

	claimed, err := w.jobService.ClaimJob(ctx, job, w.processID, time.Now().Add(-staleAfter))
	if err != nil {
		log.Err(err).Error("claim job error")
		return
	}
	if !claimed {
		log.Debug("job already claimed")
		return
	}

	jl := w.jobLogService.NewJobLogger(ctx, job, log)
	jl.Info("job started", nil)

	err = w.process(ctx, job, jl)
	w.finish(ctx, job, jl, err)
}

func (w *Worker) process(ctx context.Context, job *models.Job, jl *joblogs.JobLogger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()

	// Find and invoke the appropriate process function.
	fn, ok := w.processFuncs[job.Type]
	if !ok {
		return errors.Wrapf(errPermanent, "no process function for type %q", job.Type)
	}
	return fn(ctx, job, jl)
}

// finish stores the job's new state. Validation failures fail the job at
// once; anything else goes back to pending until the attempts run out.
func (w *Worker) finish(ctx context.Context, job *models.Job, jl *joblogs.JobLogger, err error) {
	columns := []string{"status", "last_error"}
	outcome := outcomeCompleted

	switch {
	case err == nil:
		job.Status = models.JobStatusCompleted
		job.LastError = nil
		columns = append(columns, "work_id")
		jl.Info("job completed", nil)
	case canonical.IsValidationError(err) || errors.Is(err, errPermanent):
		outcome = outcomeFailed
		job.Status = models.JobStatusFailed
		job.LastError = pointerutil.String(err.Error())
		jl.Error("job failed", err, nil)
	case job.Attempts >= w.config.WorkerMaxAttempts:
		outcome = outcomeFailed
		job.Status = models.JobStatusFailed
		job.LastError = pointerutil.String(err.Error())
		jl.Error("job failed after final attempt", err, logger.Data{"attempts": job.Attempts})
	default:
		outcome = outcomeRetried
		job.Status = models.JobStatusPending
		job.LastError = pointerutil.String(err.Error())
		job.ProcessID = nil
		columns = append(columns, "process_id")
		jl.Warn("job will be retried", logger.Data{"attempts": job.Attempts, "error": err.Error()})
	}

	metrics.JobsTotal.WithLabelValues(job.Type, outcome).Inc()

	if err := w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{Columns: columns}); err != nil {
		// The claim goes stale and another process picks the job up again.
		logger.FromContext(ctx).Err(err).Error("update job error", logger.Data{"status": job.Status})
	}
}

func (w *Worker) Shutdown() {
	close(w.shutdown)

	<-w.doneFetching
	for i := 0; i < w.config.WorkerProcesses; i++ {
		<-w.doneProcessing
	}
}

const letterBytes = "abcdef0123456789"

func randStringBytes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}

func describe(job *models.Job) string {
	return fmt.Sprintf("%s job %d", job.Type, job.ID)
}
