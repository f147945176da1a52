package search

import (
	"time"

	"github.com/fanfiq/fanfiq/pkg/models"
)

// Response is one page of search results. Total is exact unless Approximate
// is set, in which case it only tells whether another page exists.
type Response struct {
	Works       []*WorkSummary `json:"works"`
	Total       int            `json:"total"`
	Page        int            `json:"page"`
	PageSize    int            `json:"page_size"`
	TotalPages  int            `json:"total_pages"`
	SortBy      string         `json:"sort_by"`
	SortOrder   string         `json:"sort_order"`
	Approximate bool           `json:"approximate,omitempty"`
}

// WorkSummary is a work as listed in search results, without chapter
// content.
type WorkSummary struct {
	ID            int        `json:"id"`
	Site          string     `json:"site"`
	SiteName      string     `json:"site_name"`
	SiteWorkID    string     `json:"site_work_id"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary"`
	AuthorID      int        `json:"author_id"`
	AuthorName    string     `json:"author_name"`
	Language      string     `json:"language"`
	Rating        string     `json:"rating"`
	Category      *string    `json:"category"`
	Status        string     `json:"status"`
	WordCount     int        `json:"word_count"`
	LikesCount    *int       `json:"likes_count"`
	CommentsCount *int       `json:"comments_count"`
	PublishedAt   *time.Time `json:"published_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
	OriginalURL   *string    `json:"original_url"`
	Fandoms       []string   `json:"fandoms"`
	Tags          []string   `json:"tags"`
	Warnings      []string   `json:"warnings"`
}

// NewWorkSummary flattens a work loaded with its Site, Author and facet
// relations.
func NewWorkSummary(w *models.Work) *WorkSummary {
	s := &WorkSummary{
		ID:            w.ID,
		SiteWorkID:    w.SiteWorkID,
		Title:         w.Title,
		Summary:       w.Summary,
		AuthorID:      w.AuthorID,
		Language:      w.Language,
		Rating:        w.Rating,
		Category:      w.Category,
		Status:        w.Status,
		WordCount:     w.WordCount,
		LikesCount:    w.LikesCount,
		CommentsCount: w.CommentsCount,
		PublishedAt:   w.PublishedAt,
		UpdatedAt:     w.UpdatedAt,
		OriginalURL:   w.OriginalURL,
		Fandoms:       make([]string, 0, len(w.Fandoms)),
		Tags:          make([]string, 0, len(w.Tags)),
		Warnings:      make([]string, 0, len(w.Warnings)),
	}
	if w.Site != nil {
		s.Site = w.Site.Code
		s.SiteName = w.Site.Name
	}
	if w.Author != nil {
		s.AuthorName = w.Author.Name
	}
	for _, f := range w.Fandoms {
		s.Fandoms = append(s.Fandoms, f.Value)
	}
	for _, t := range w.Tags {
		s.Tags = append(s.Tags, t.Value)
	}
	for _, ww := range w.Warnings {
		s.Warnings = append(s.Warnings, ww.Value)
	}
	return s
}
