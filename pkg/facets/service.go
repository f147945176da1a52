package facets

import (
	"context"
	"sort"
	"strings"

	"github.com/fanfiq/fanfiq/pkg/canonical"
	"github.com/fanfiq/fanfiq/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// kinds maps the URL name of a facet to its model kind.
var kinds = map[string]string{
	"fandoms":  models.FacetFandom,
	"tags":     models.FacetTag,
	"warnings": models.FacetWarning,
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

type SuggestOptions struct {
	Kind  string
	Query string
	Limit int
}

// Suggest returns the most used values of a facet, optionally narrowed to
// values containing Query. Matching ignores case and diacritics the same way
// free-text search does.
func (svc *Service) Suggest(ctx context.Context, opts SuggestOptions) ([]*models.FacetCount, error) {
	table, ok := models.FacetTables[opts.Kind]
	if !ok {
		return nil, errors.Errorf("unknown facet kind %q", opts.Kind)
	}

	counts := []*models.FacetCount{}
	q := svc.db.
		NewSelect().
		TableExpr("? AS f", bun.Ident(table)).
		ColumnExpr("f.value AS value").
		ColumnExpr("COUNT(*) AS count").
		Group("f.value").
		OrderExpr("count DESC, value ASC")

	needle := canonical.Fold(strings.TrimSpace(opts.Query))
	if needle == "" {
		q = q.Limit(opts.Limit)
	}

	if err := q.Scan(ctx, &counts); err != nil {
		return nil, errors.WithStack(err)
	}
	if needle == "" {
		return counts, nil
	}

	// Case folding beyond ASCII differs between SQLite and Postgres, so the
	// match runs here over the grouped values.
	matched := make([]*models.FacetCount, 0, opts.Limit)
	for _, fc := range counts {
		if strings.Contains(canonical.Fold(fc.Value), needle) {
			matched = append(matched, fc)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		pi := strings.HasPrefix(canonical.Fold(matched[i].Value), needle)
		pj := strings.HasPrefix(canonical.Fold(matched[j].Value), needle)
		return pi && !pj
	})
	if len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}
