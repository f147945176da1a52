package joblogs

import (
	"net/http"
	"strconv"

	"github.com/fanfiq/fanfiq/pkg/errcodes"
	"github.com/fanfiq/fanfiq/pkg/jobs"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	logService *Service
	jobService *jobs.Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Job")
	}
	job, err := h.jobService.RetrieveJob(ctx, jobs.RetrieveJobOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	params := ListQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	entries, err := h.logService.List(ctx, ListOptions{
		JobID:   job.ID,
		AfterID: params.AfterID,
		Attempt: params.Attempt,
		Levels:  params.Level,
		Limit:   params.Limit,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	attempts, err := h.logService.Attempts(ctx, job.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	next := params.AfterID
	if len(entries) > 0 {
		next = entries[len(entries)-1].ID
	}

	return errors.WithStack(c.JSON(http.StatusOK, ListResponse{
		Job:         job,
		Logs:        entries,
		Attempts:    attempts,
		NextAfterID: next,
	}))
}
