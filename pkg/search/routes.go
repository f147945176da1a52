package search

import (
	"github.com/fanfiq/fanfiq/pkg/config"
	"github.com/fanfiq/fanfiq/pkg/resultcache"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers search routes on the works group. cache
// may be nil.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cfg *config.Config, cache *resultcache.Cache) {
	h := &handler{
		searchService: NewService(db, cache, cfg.SearchCountStrategy),
	}

	g.POST("/search", h.search)
}
