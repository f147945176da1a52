package ingest

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the synchronous ingest endpoint.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		ingestService: NewService(db),
	}

	g.POST("", h.ingest)
}
