package works

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fanfiq/fanfiq/pkg/errcodes"
	"github.com/fanfiq/fanfiq/pkg/htmlutil"
	"github.com/fanfiq/fanfiq/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

type RetrieveWorkOptions struct {
	ID int
	// WithContent loads chapter bodies as well as their titles.
	WithContent bool
}

func (svc *Service) RetrieveWork(ctx context.Context, opts RetrieveWorkOptions) (*models.Work, error) {
	work := &models.Work{}

	q := svc.db.
		NewSelect().
		Model(work).
		Relation("Site").
		Relation("Author").
		Relation("Fandoms", orderByValue).
		Relation("Tags", orderByValue).
		Relation("Warnings", orderByValue).
		Relation("Chapters", func(sq *bun.SelectQuery) *bun.SelectQuery {
			if !opts.WithContent {
				sq = sq.ExcludeColumn("content")
			}
			return sq.Order("ch.chapter_number ASC")
		}).
		Where("w.id = ?", opts.ID)

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Work")
		}
		return nil, errors.WithStack(err)
	}

	return work, nil
}

func (svc *Service) RetrieveChapter(ctx context.Context, workID, number int) (*models.Chapter, error) {
	chapter := &models.Chapter{}

	err := svc.db.
		NewSelect().
		Model(chapter).
		Where("ch.work_id = ?", workID).
		Where("ch.chapter_number = ?", number).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Chapter")
		}
		return nil, errors.WithStack(err)
	}

	return chapter, nil
}

// PlainText renders a work as a text file: a header block, then every
// chapter with its HTML stripped.
func PlainText(w *models.Work) string {
	var b strings.Builder

	b.WriteString(w.Title)
	b.WriteString("\n")
	if w.Author != nil {
		b.WriteString(w.Author.Name)
		b.WriteString("\n")
	}
	if w.OriginalURL != nil {
		b.WriteString(*w.OriginalURL)
		b.WriteString("\n")
	}
	if summary := htmlutil.StripTags(w.Summary); summary != "" {
		b.WriteString("\n")
		b.WriteString(summary)
		b.WriteString("\n")
	}

	for _, ch := range w.Chapters {
		b.WriteString("\n\n")
		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", ch.ChapterNumber)
		}
		b.WriteString(title)
		b.WriteString("\n\n")
		if text := htmlutil.StripTags(ch.Content); text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func orderByValue(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("value ASC")
}
