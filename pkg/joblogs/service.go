package joblogs

import (
	"context"
	"sort"
	"time"

	"github.com/fanfiq/fanfiq/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// ListOptions selects log entries of one job in insertion order. Zero values
// select everything; Limit 0 means DefaultLimit.
type ListOptions struct {
	JobID   int
	AfterID int
	Attempt int
	Levels  []string
	Limit   int
}

// AttemptSummary describes one delivery of a job as seen through its log.
type AttemptSummary struct {
	Attempt   int       `json:"attempt"`
	Entries   int       `json:"entries"`
	Warnings  int       `json:"warnings"`
	Errors    int       `json:"errors"`
	StartedAt time.Time `json:"started_at"`
	LastError *string   `json:"last_error,omitempty"`
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// Record appends entry to its job's log.
func (svc *Service) Record(ctx context.Context, entry *models.JobLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := svc.db.NewInsert().Model(entry).Returning("id").Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) List(ctx context.Context, opts ListOptions) ([]*models.JobLog, error) {
	limit := opts.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	entries := []*models.JobLog{}
	q := svc.db.
		NewSelect().
		Model(&entries).
		Where("jl.job_id = ?", opts.JobID).
		Order("jl.id ASC").
		Limit(limit)
	if opts.AfterID > 0 {
		q = q.Where("jl.id > ?", opts.AfterID)
	}
	if opts.Attempt > 0 {
		q = q.Where("jl.attempt = ?", opts.Attempt)
	}
	if len(opts.Levels) > 0 {
		q = q.Where("jl.level IN (?)", bun.In(opts.Levels))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return entries, nil
}

// Attempts summarizes the log of jobID per attempt, oldest attempt first.
func (svc *Service) Attempts(ctx context.Context, jobID int) ([]*AttemptSummary, error) {
	entries := []*models.JobLog{}
	err := svc.db.
		NewSelect().
		Model(&entries).
		Column("jl.id", "jl.created_at", "jl.attempt", "jl.level", "jl.message").
		Where("jl.job_id = ?", jobID).
		Order("jl.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	out := []*AttemptSummary{}
	byAttempt := map[int]*AttemptSummary{}
	for _, entry := range entries {
		s, ok := byAttempt[entry.Attempt]
		if !ok {
			s = &AttemptSummary{Attempt: entry.Attempt, StartedAt: entry.CreatedAt}
			byAttempt[entry.Attempt] = s
			out = append(out, s)
		}
		s.Entries++
		switch entry.Level {
		case models.JobLogLevelWarn:
			s.Warnings++
		case models.JobLogLevelError:
			s.Errors++
			msg := entry.Message
			s.LastError = &msg
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Attempt < out[j].Attempt })
	return out, nil
}
