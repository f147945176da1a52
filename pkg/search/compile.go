package search

import (
	"strings"
	"time"

	"github.com/fanfiq/fanfiq/pkg/config"
	"github.com/uptrace/bun"
)

type sortColumn struct {
	column      string
	defaultDesc bool
}

// sortColumns is the allow-list of sort keys. Only these column names ever
// reach an ORDER BY.
var sortColumns = map[string]sortColumn{
	SortUpdatedAt:     {"w.updated_at", true},
	SortPublishedAt:   {"w.published_at", true},
	SortWordCount:     {"w.word_count", true},
	SortLikesCount:    {"w.likes_count", true},
	SortCommentsCount: {"w.comments_count", true},
	SortTitle:         {"w.title", false},
}

// legacySorts are older combined key+direction values. They ignore
// sort_order.
var legacySorts = map[string]struct {
	key  string
	desc bool
}{
	"updated_desc":    {SortUpdatedAt, true},
	"popularity_desc": {SortLikesCount, true},
	"words_desc":      {SortWordCount, true},
	"words_asc":       {SortWordCount, false},
}

type resolvedSort struct {
	key         string
	desc        bool
	defaultDesc bool
}

// resolveSort maps a requested key and order onto the allow-list. Anything
// unrecognized resolves to relevance.
func resolveSort(sortBy, sortOrder string) resolvedSort {
	sortBy = strings.ToLower(strings.TrimSpace(sortBy))
	sortOrder = strings.ToLower(strings.TrimSpace(sortOrder))

	if legacy, ok := legacySorts[sortBy]; ok {
		return resolvedSort{key: legacy.key, desc: legacy.desc, defaultDesc: sortColumns[legacy.key].defaultDesc}
	}

	col, ok := sortColumns[sortBy]
	if !ok {
		return resolvedSort{key: SortRelevance, desc: true, defaultDesc: true}
	}

	desc := col.defaultDesc
	switch sortOrder {
	case SortOrderAsc:
		desc = false
	case SortOrderDesc:
		desc = true
	}
	return resolvedSort{key: sortBy, desc: desc, defaultDesc: col.defaultDesc}
}

func direction(desc bool) string {
	if desc {
		return SortOrderDesc
	}
	return SortOrderAsc
}

// Predicate is one WHERE condition. Expr uses ? placeholders bound to Args
// in order.
type Predicate struct {
	Name string
	Expr string
	Args []interface{}
}

// OrderTerm sorts by an allow-listed column. Nulls always sort last.
type OrderTerm struct {
	Column string
	Desc   bool
}

func (o OrderTerm) String() string {
	return o.Column + " " + strings.ToUpper(direction(o.Desc)) + " NULLS LAST"
}

// Statement is a compiled search: everything needed to run it against the
// works table without building SQL text from request values.
type Statement struct {
	Predicates []Predicate
	Order      []OrderTerm
	SortBy     string
	SortOrder  string

	Page     int
	PageSize int
	Limit    int
	Offset   int

	CountStrategy string
}

// Params returns the bound parameters keyed by predicate name.
func (s *Statement) Params() map[string][]interface{} {
	params := make(map[string][]interface{}, len(s.Predicates))
	for _, p := range s.Predicates {
		params[p.Name] = p.Args
	}
	return params
}

// OrderClause renders the ORDER BY terms. Only allow-listed columns appear in
// it.
func (s *Statement) OrderClause() string {
	terms := make([]string, 0, len(s.Order))
	for _, o := range s.Order {
		terms = append(terms, o.String())
	}
	return strings.Join(terms, ", ")
}

// Estimated reports whether the statement fetches one row past the page to
// infer the total instead of counting.
func (s *Statement) Estimated() bool {
	return s.CountStrategy == config.CountStrategyEstimate
}

// ApplyFilters adds every predicate to q. q must select from works aliased
// as w.
func (s *Statement) ApplyFilters(q *bun.SelectQuery) *bun.SelectQuery {
	for _, p := range s.Predicates {
		q = q.Where(p.Expr, p.Args...)
	}
	return q
}

// Apply adds predicates, ordering and paging to q.
func (s *Statement) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	return s.ApplyFilters(q).
		OrderExpr(s.OrderClause()).
		Limit(s.Limit).
		Offset(s.Offset)
}

// Compile turns f into a Statement. It never fails: unknown sort keys and
// unparsable date bounds degrade to the default behavior. countStrategy is
// config.CountStrategyExact or config.CountStrategyEstimate; anything else
// counts exactly.
func Compile(f Filter, countStrategy string) *Statement {
	c := f.Canonical()
	stmt := &Statement{CountStrategy: config.CountStrategyExact}
	if countStrategy == config.CountStrategyEstimate {
		stmt.CountStrategy = config.CountStrategyEstimate
	}

	if pattern := containsPattern(c.Query); pattern != "" {
		stmt.add("query", "w.search_text LIKE ? ESCAPE '"+likeEscape+"'", pattern)
	}

	if len(c.Sites) > 0 {
		stmt.add("sites", "w.site_id IN (SELECT s.id FROM sites AS s WHERE s.code IN (?))", bun.In(c.Sites))
	}
	stmt.addIn("rating", "w.rating", c.Rating)
	stmt.addIn("category", "w.category", c.Category)
	stmt.addIn("status", "w.status", c.Status)
	stmt.addIn("language", "w.language", c.Language)

	if c.WordCountMin != nil {
		stmt.add("word_count_min", "w.word_count >= ?", *c.WordCountMin)
	}
	if c.WordCountMax != nil {
		stmt.add("word_count_max", "w.word_count <= ?", *c.WordCountMax)
	}
	if c.LikesMin != nil {
		stmt.add("likes_min", "COALESCE(w.likes_count, 0) >= ?", *c.LikesMin)
	}
	if c.CommentsMin != nil {
		stmt.add("comments_min", "COALESCE(w.comments_count, 0) >= ?", *c.CommentsMin)
	}

	stmt.addFacet("fandoms", "work_fandoms", c.Fandoms, true)
	stmt.addFacet("tags", "work_tags", c.Tags, true)
	stmt.addFacet("exclude_tags", "work_tags", c.ExcludeTags, false)
	stmt.addFacet("warnings", "work_warnings", c.Warnings, true)

	if t, ok := parseBound(c.UpdatedAfter); ok {
		stmt.add("updated_after", "w.updated_at >= ?", t)
	}
	if t, ok := parseBound(c.UpdatedBefore); ok {
		stmt.add("updated_before", "w.updated_at < ?", t)
	}

	order := resolveSort(f.SortBy, f.SortOrder)
	stmt.SortBy = order.key
	stmt.SortOrder = direction(order.desc)
	if order.key == SortRelevance {
		stmt.Order = []OrderTerm{
			{Column: "w.updated_at", Desc: true},
			{Column: "w.likes_count", Desc: true},
		}
	} else {
		stmt.Order = []OrderTerm{{Column: sortColumns[order.key].column, Desc: order.desc}}
	}
	// Ties break on id so paging is stable.
	stmt.Order = append(stmt.Order, OrderTerm{Column: "w.id", Desc: true})

	stmt.Page, stmt.PageSize = clampPage(f.Page, f.PageSize)
	stmt.Offset = (stmt.Page - 1) * stmt.PageSize
	stmt.Limit = stmt.PageSize
	if stmt.Estimated() {
		stmt.Limit++
	}

	return stmt
}

func (s *Statement) add(name, expr string, args ...interface{}) {
	s.Predicates = append(s.Predicates, Predicate{Name: name, Expr: expr, Args: args})
}

func (s *Statement) addIn(name, column string, values []string) {
	if len(values) == 0 {
		return
	}
	s.add(name, column+" IN (?)", bun.In(values))
}

// addFacet matches works with at least one of values in table, or with none
// of them when include is false.
func (s *Statement) addFacet(name, table string, values []string, include bool) {
	if len(values) == 0 {
		return
	}
	expr := "EXISTS (SELECT 1 FROM " + table + " AS f WHERE f.work_id = w.id AND f.value IN (?))"
	if !include {
		expr = "NOT " + expr
	}
	s.add(name, expr, bun.In(values))
}

var boundLayouts = []string{
	time.RFC3339,
	"2006-01-02",
}

// parseBound reads a date bound as UTC.
func parseBound(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range boundLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
