package search

import (
	"sort"
	"strings"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPage keeps the row offset far from integer overflow.
	MaxPage = 1_000_000
)

const (
	SortRelevance     = "relevance"
	SortUpdatedAt     = "updated_at"
	SortPublishedAt   = "published_at"
	SortWordCount     = "word_count"
	SortLikesCount    = "likes_count"
	SortCommentsCount = "comments_count"
	SortTitle         = "title"

	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"
)

// Filter is a search request. List-valued facets match any of their values;
// separate facets are combined with AND. Every field is optional.
type Filter struct {
	Query string `json:"query,omitempty" mod:"trim" validate:"max=200"`

	Sites    []string `json:"sites,omitempty" mod:"dive,trim,lcase" validate:"dive,sitecode"`
	Rating   []string `json:"rating,omitempty" mod:"dive,trim"`
	Category []string `json:"category,omitempty" mod:"dive,trim"`
	Status   []string `json:"status,omitempty" mod:"dive,trim"`
	Language []string `json:"language,omitempty" mod:"dive,trim,lcase"`

	WordCountMin *int `json:"word_count_min,omitempty" validate:"omitempty,min=0"`
	WordCountMax *int `json:"word_count_max,omitempty" validate:"omitempty,min=0"`
	LikesMin     *int `json:"likes_min,omitempty" validate:"omitempty,min=0"`
	CommentsMin  *int `json:"comments_min,omitempty" validate:"omitempty,min=0"`

	Fandoms     []string `json:"fandoms,omitempty" mod:"dive,trim"`
	Tags        []string `json:"tags,omitempty" mod:"dive,trim"`
	ExcludeTags []string `json:"exclude_tags,omitempty" mod:"dive,trim"`
	Warnings    []string `json:"warnings,omitempty" mod:"dive,trim"`

	UpdatedAfter  string `json:"updated_after,omitempty" mod:"trim" validate:"date"`
	UpdatedBefore string `json:"updated_before,omitempty" mod:"trim" validate:"date"`

	SortBy    string `json:"sort_by,omitempty" mod:"trim,lcase"`
	SortOrder string `json:"sort_order,omitempty" mod:"trim,lcase"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
}

// clampPage returns the page and page size actually served.
func clampPage(page, size int) (int, int) {
	switch {
	case page < 1:
		page = DefaultPage
	case page > MaxPage:
		page = MaxPage
	}
	switch {
	case size == 0:
		size = DefaultPageSize
	case size < 1:
		size = 1
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}

// Canonical returns an equivalent filter in a single normal form: the query is
// folded; lists are trimmed, deduplicated and sorted; values equal to their
// default are zeroed;
// a sort_by that falls back to relevance is dropped. Two filters that search
// the same thing have equal canonical forms.
func (f Filter) Canonical() Filter {
	out := Filter{
		Query:         normalizeQuery(f.Query),
		Sites:         normalizeList(f.Sites, true),
		Rating:        normalizeList(f.Rating, false),
		Category:      normalizeList(f.Category, false),
		Status:        normalizeList(f.Status, false),
		Language:      normalizeList(f.Language, true),
		WordCountMin:  positive(f.WordCountMin),
		WordCountMax:  f.WordCountMax,
		LikesMin:      positive(f.LikesMin),
		CommentsMin:   positive(f.CommentsMin),
		Fandoms:       normalizeList(f.Fandoms, false),
		Tags:          normalizeList(f.Tags, false),
		ExcludeTags:   normalizeList(f.ExcludeTags, false),
		Warnings:      normalizeList(f.Warnings, false),
		UpdatedAfter:  dateBound(f.UpdatedAfter),
		UpdatedBefore: dateBound(f.UpdatedBefore),
	}

	order := resolveSort(f.SortBy, f.SortOrder)
	if order.key != SortRelevance {
		out.SortBy = order.key
		if order.desc != order.defaultDesc {
			out.SortOrder = direction(order.desc)
		}
	}

	page, size := clampPage(f.Page, f.PageSize)
	if page != DefaultPage {
		out.Page = page
	}
	if size != DefaultPageSize {
		out.PageSize = size
	}

	return out
}

func normalizeList(values []string, lower bool) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// positive drops lower bounds that cannot exclude anything.
func positive(n *int) *int {
	if n == nil || *n <= 0 {
		return nil
	}
	v := *n
	return &v
}

// dateBound keeps a bound only if it parses; an invalid bound filters nothing.
func dateBound(s string) string {
	s = strings.TrimSpace(s)
	if _, ok := parseBound(s); !ok {
		return ""
	}
	return s
}
