package search

import (
	"context"
	"time"

	"github.com/fanfiq/fanfiq/pkg/metrics"
	"github.com/fanfiq/fanfiq/pkg/models"
	"github.com/fanfiq/fanfiq/pkg/resultcache"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const cacheNamespace = "search"

type Service struct {
	db            *bun.DB
	cache         *resultcache.Cache
	countStrategy string
}

// NewService returns a search service. cache may be nil, in which case every
// search runs against the database.
func NewService(db *bun.DB, cache *resultcache.Cache, countStrategy string) *Service {
	return &Service{db, cache, countStrategy}
}

// Search runs f, serving it from the result cache when possible. Cache
// problems are logged and never fail the search.
func (svc *Service) Search(ctx context.Context, f Filter) (*Response, error) {
	start := time.Now()
	outcome := "bypass"
	defer func() {
		metrics.SearchDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	stmt := Compile(f, svc.countStrategy)

	var key string
	if svc.cache != nil {
		var err error
		key, err = resultcache.Key(cacheNamespace+":"+stmt.CountStrategy, f.Canonical())
		if err != nil {
			logger.FromContext(ctx).Err(err).Warn("failed to build search cache key")
			key = ""
		}
	}

	if key != "" {
		if data, ok := svc.cache.Get(ctx, key); ok {
			resp := &Response{}
			err := json.Unmarshal(data, resp)
			if err == nil {
				outcome = "hit"
				return resp, nil
			}
			logger.FromContext(ctx).Err(err).Warn("failed to decode cached search result", logger.Data{"key": key})
		}
		outcome = "miss"
	}

	resp, err := svc.Run(ctx, stmt)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if key != "" {
		data, err := json.Marshal(resp)
		if err != nil {
			logger.FromContext(ctx).Err(err).Warn("failed to encode search result for cache")
		} else {
			svc.cache.Set(ctx, key, data, 0)
		}
	}

	return resp, nil
}

// Run executes a compiled statement against the database.
func (svc *Service) Run(ctx context.Context, stmt *Statement) (*Response, error) {
	works := []*models.Work{}

	q := svc.db.
		NewSelect().
		Model(&works).
		Relation("Site").
		Relation("Author").
		Relation("Fandoms", orderByValue).
		Relation("Tags", orderByValue).
		Relation("Warnings", orderByValue)
	q = stmt.Apply(q)

	var total int
	var err error
	if stmt.Estimated() {
		err = q.Scan(ctx)
	} else {
		total, err = q.ScanAndCount(ctx)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	resp := &Response{
		Page:      stmt.Page,
		PageSize:  stmt.PageSize,
		SortBy:    stmt.SortBy,
		SortOrder: stmt.SortOrder,
	}

	if stmt.Estimated() {
		hasMore := len(works) > stmt.PageSize
		if hasMore {
			works = works[:stmt.PageSize]
		}
		total = stmt.Offset + len(works)
		if hasMore {
			total++
		}
		resp.Approximate = true
	}

	resp.Total = total
	resp.TotalPages = totalPages(total, stmt.PageSize)
	resp.Works = make([]*WorkSummary, 0, len(works))
	for _, w := range works {
		resp.Works = append(resp.Works, NewWorkSummary(w))
	}

	return resp, nil
}

func orderByValue(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("value ASC")
}

func totalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
