package main

import (
	"context"

	"github.com/fanfiq/fanfiq/pkg/canonical"
	"github.com/fanfiq/fanfiq/pkg/jobs"
	"github.com/fanfiq/fanfiq/pkg/models"
	"github.com/pkg/errors"
)

// enqueue validates doc and stores it as a pending ingest job.
func enqueue(ctx context.Context, jobService *jobs.Service, doc *canonical.Document) error {
	if _, err := canonical.Normalize(doc); err != nil {
		return err
	}
	job := &models.Job{
		Type:       models.JobTypeIngest,
		Status:     models.JobStatusPending,
		DataParsed: doc,
	}
	return errors.WithStack(jobService.CreateJob(ctx, job))
}
