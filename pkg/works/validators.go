package works

import (
	"github.com/fanfiq/fanfiq/pkg/models"
	"github.com/fanfiq/fanfiq/pkg/search"
)

// Detail is a work with its author link and table of contents.
type Detail struct {
	*search.WorkSummary
	AuthorURL *string           `json:"author_url"`
	Chapters  []*ChapterSummary `json:"chapters"`
}

// ChapterSummary is a table-of-contents entry.
type ChapterSummary struct {
	ChapterNumber int    `json:"chapter_number"`
	Title         string `json:"title"`
}

func newDetail(w *models.Work) *Detail {
	d := &Detail{
		WorkSummary: search.NewWorkSummary(w),
		Chapters:    make([]*ChapterSummary, 0, len(w.Chapters)),
	}
	if w.Author != nil {
		d.AuthorURL = w.Author.URL
	}
	for _, ch := range w.Chapters {
		d.Chapters = append(d.Chapters, &ChapterSummary{
			ChapterNumber: ch.ChapterNumber,
			Title:         ch.Title,
		})
	}
	return d
}
