package joblogs

import (
	"github.com/fanfiq/fanfiq/pkg/jobs"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup adds GET /:id/logs to the jobs group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		logService: NewService(db),
		jobService: jobs.NewService(db),
	}

	g.GET("/:id/logs", h.list)
}
