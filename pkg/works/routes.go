package works

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		workService: NewService(db),
	}

	g.GET("/:id", h.retrieve)
	g.GET("/:id/chapters/:number", h.chapter)
	g.GET("/:id/download/txt", h.downloadText)
}
