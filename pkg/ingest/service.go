package ingest

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"unicode"

	"github.com/fanfiq/fanfiq/pkg/canonical"
	"github.com/fanfiq/fanfiq/pkg/metrics"
	"github.com/fanfiq/fanfiq/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

const (
	resultIngested = "ingested"
	resultInvalid  = "invalid"
	resultError    = "error"
)

// Result identifies the rows a document resolved to.
type Result struct {
	WorkID   int `json:"work_id"`
	SiteID   int `json:"site_id"`
	AuthorID int `json:"author_id"`
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// Ingest validates doc and writes it to the catalog. A document whose
// identity is already stored updates that work in place.
func (svc *Service) Ingest(ctx context.Context, doc *canonical.Document) (*Result, error) {
	rec, err := canonical.Normalize(doc)
	if err != nil {
		metrics.IngestTotal.WithLabelValues(resultInvalid).Inc()
		return nil, err
	}
	return svc.IngestRecord(ctx, rec)
}

// IngestRecord writes an already normalized record. Every write for the
// record happens in a single transaction.
func (svc *Service) IngestRecord(ctx context.Context, rec *canonical.Record) (*Result, error) {
	start := time.Now()
	res := &Result{}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error

		res.SiteID, err = ensureSite(ctx, tx, rec.SiteCode)
		if err != nil {
			return err
		}

		res.AuthorID, err = resolveAuthor(ctx, tx, res.SiteID, rec)
		if err != nil {
			return err
		}

		res.WorkID, err = upsertWork(ctx, tx, res.SiteID, res.AuthorID, rec)
		if err != nil {
			return err
		}

		if rec.HasChapters {
			if err := replaceChapters(ctx, tx, res.WorkID, rec.Chapters); err != nil {
				return err
			}
		}

		err = replaceFacet(ctx, tx, res.WorkID, rec.Fandoms, func(workID int, value string) *models.WorkFandom {
			return &models.WorkFandom{WorkID: workID, Value: value}
		})
		if err != nil {
			return err
		}
		err = replaceFacet(ctx, tx, res.WorkID, rec.Tags, func(workID int, value string) *models.WorkTag {
			return &models.WorkTag{WorkID: workID, Value: value}
		})
		if err != nil {
			return err
		}
		return replaceFacet(ctx, tx, res.WorkID, rec.Warnings, func(workID int, value string) *models.WorkWarning {
			return &models.WorkWarning{WorkID: workID, Value: value}
		})
	})
	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.IngestTotal.WithLabelValues(resultError).Inc()
		return nil, errors.WithStack(err)
	}
	metrics.IngestTotal.WithLabelValues(resultIngested).Inc()

	logger.FromContext(ctx).Debug("work ingested", logger.Data{
		"site":         rec.SiteCode,
		"site_work_id": rec.SiteWorkID,
		"work_id":      res.WorkID,
	})

	return res, nil
}

// DisplayName derives a human-readable site name from its code, capitalizing
// each letter that follows a non-letter.
func DisplayName(code string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range code {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

func ensureSite(ctx context.Context, tx bun.Tx, code string) (int, error) {
	site := &models.Site{
		Code: code,
		Name: DisplayName(code),
	}
	// The no-op update makes RETURNING produce the existing row on conflict.
	_, err := tx.NewInsert().
		Model(site).
		On("CONFLICT (code) DO UPDATE").
		Set("code = EXCLUDED.code").
		Returning("id, name").
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to upsert site")
	}
	return site.ID, nil
}

func resolveAuthor(ctx context.Context, tx bun.Tx, siteID int, rec *canonical.Record) (int, error) {
	author := &models.Author{
		SiteID: siteID,
		Name:   rec.AuthorName,
		URL:    rec.AuthorURL.Value,
	}

	q := tx.NewInsert().
		Model(author).
		On("CONFLICT (site_id, name) DO UPDATE")
	if rec.AuthorURL.Set {
		q = q.Set("url = EXCLUDED.url")
	} else {
		q = q.Set("name = EXCLUDED.name")
	}

	_, err := q.Returning("id").Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to upsert author")
	}
	return author.ID, nil
}

// workColumns lists the columns overwritten when a work already exists.
// Optional columns the document omitted keep their stored values.
func workColumns(rec *canonical.Record) []string {
	columns := []string{
		"title",
		"summary",
		"language",
		"rating",
		"status",
		"word_count",
		"author_id",
		"search_text",
	}
	if rec.Category.Set {
		columns = append(columns, "category")
	}
	if rec.LikesCount.Set {
		columns = append(columns, "likes_count")
	}
	if rec.CommentsCount.Set {
		columns = append(columns, "comments_count")
	}
	if rec.PublishedAt.Set {
		columns = append(columns, "published_at")
	}
	if rec.UpdatedAt.Set {
		columns = append(columns, "updated_at")
	}
	if rec.OriginalURL.Set {
		columns = append(columns, "original_url")
	}
	return columns
}

func upsertWork(ctx context.Context, tx bun.Tx, siteID, authorID int, rec *canonical.Record) (int, error) {
	work := &models.Work{
		SiteID:        siteID,
		SiteWorkID:    rec.SiteWorkID,
		Title:         rec.Title,
		Summary:       rec.Summary,
		Language:      rec.Language,
		Rating:        rec.Rating,
		Category:      rec.Category.Value,
		Status:        rec.Status,
		WordCount:     rec.WordCount,
		LikesCount:    rec.LikesCount.Value,
		CommentsCount: rec.CommentsCount.Value,
		PublishedAt:   utc(rec.PublishedAt.Value),
		UpdatedAt:     utc(rec.UpdatedAt.Value),
		OriginalURL:   rec.OriginalURL.Value,
		AuthorID:      authorID,
		SearchText:    rec.SearchText,
	}

	q := tx.NewInsert().
		Model(work).
		On("CONFLICT (site_id, site_work_id) DO UPDATE")
	for _, col := range workColumns(rec) {
		q = q.Set("? = EXCLUDED.?", bun.Ident(col), bun.Ident(col))
	}

	_, err := q.Returning("id").Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to upsert work")
	}
	return work.ID, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func replaceChapters(ctx context.Context, tx bun.Tx, workID int, chapters []canonical.Chapter) error {
	_, err := tx.NewDelete().
		Model((*models.Chapter)(nil)).
		Where("work_id = ?", workID).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to delete chapters")
	}
	if len(chapters) == 0 {
		return nil
	}

	rows := make([]*models.Chapter, 0, len(chapters))
	for _, ch := range chapters {
		rows = append(rows, &models.Chapter{
			WorkID:        workID,
			ChapterNumber: ch.Number,
			Title:         ch.Title,
			Content:       ch.Content,
		})
	}
	_, err = tx.NewInsert().Model(&rows).Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to insert chapters")
	}
	return nil
}

// replaceFacet swaps the full set of values of one facet kind for a work.
func replaceFacet[T any](ctx context.Context, tx bun.Tx, workID int, values []string, build func(workID int, value string) *T) error {
	_, err := tx.NewDelete().
		Model((*T)(nil)).
		Where("work_id = ?", workID).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to delete facet values")
	}
	if len(values) == 0 {
		return nil
	}

	rows := make([]*T, 0, len(values))
	for _, v := range values {
		rows = append(rows, build(workID, v))
	}
	_, err = tx.NewInsert().Model(&rows).Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to insert facet values")
	}
	return nil
}
