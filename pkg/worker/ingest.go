package worker

import (
	"context"

	"github.com/fanfiq/fanfiq/pkg/joblogs"
	"github.com/fanfiq/fanfiq/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// ProcessIngestJob runs one queued canonical document through the ingest
// engine and links the job to the resulting work.
func (w *Worker) ProcessIngestJob(ctx context.Context, job *models.Job, jl *joblogs.JobLogger) error {
	doc, ok := job.DataParsed.(*models.JobIngestData)
	if !ok || doc == nil {
		return errors.Wrapf(errPermanent, "%s has no document", describe(job))
	}

	res, err := w.ingestService.Ingest(ctx, doc)
	if err != nil {
		return errors.WithStack(err)
	}

	job.WorkID = &res.WorkID
	jl.Info("document ingested", logger.Data{"work_id": res.WorkID, "site_id": res.SiteID, "author_id": res.AuthorID})

	return nil
}
