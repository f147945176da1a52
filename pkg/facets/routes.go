package facets

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		facetService: NewService(db),
	}

	g.GET("/:facet", h.suggest)
}
