package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fanfiq/fanfiq/pkg/authors"
	"github.com/fanfiq/fanfiq/pkg/binder"
	"github.com/fanfiq/fanfiq/pkg/config"
	"github.com/fanfiq/fanfiq/pkg/errcodes"
	"github.com/fanfiq/fanfiq/pkg/facets"
	"github.com/fanfiq/fanfiq/pkg/ingest"
	"github.com/fanfiq/fanfiq/pkg/joblogs"
	"github.com/fanfiq/fanfiq/pkg/jobs"
	"github.com/fanfiq/fanfiq/pkg/metrics"
	"github.com/fanfiq/fanfiq/pkg/resultcache"
	"github.com/fanfiq/fanfiq/pkg/search"
	"github.com/fanfiq/fanfiq/pkg/works"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

// New builds the HTTP server. cache may be nil to run searches uncached.
func New(cfg *config.Config, db *bun.DB, cache *resultcache.Cache) (*http.Server, error) {
	e, err := newEcho(cfg, db, cache)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func newEcho(cfg *config.Config, db *bun.DB, cache *resultcache.Cache) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	metrics.Register()
	metrics.RegisterRoutes(e)

	ingest.RegisterRoutesWithGroup(e.Group("/ingest"), db)

	worksGroup := e.Group("/works")
	search.RegisterRoutesWithGroup(worksGroup, db, cfg, cache)
	works.RegisterRoutesWithGroup(worksGroup, db)

	authors.RegisterRoutesWithGroup(e.Group("/authors"), db)
	facets.RegisterRoutesWithGroup(e.Group("/facets"), db)

	jobsGroup := e.Group("/jobs")
	jobs.RegisterRoutesWithGroup(jobsGroup, db)
	joblogs.RegisterRoutesWithGroup(jobsGroup, db)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
