package authors

import (
	"context"
	"database/sql"

	"github.com/fanfiq/fanfiq/pkg/errcodes"
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

// RetrieveAuthor loads an author with their site and works, most recently
// updated first.
func (svc *Service) RetrieveAuthor(ctx context.Context, id int) (*models.Author, error) {
	author := &models.Author{}

	err := svc.db.
		NewSelect().
		Model(author).
		Relation("Site").
		Relation("Works", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				ExcludeColumn("search_text").
				OrderExpr("w.updated_at DESC NULLS LAST").
				Order("w.id DESC")
		}).
		Where("a.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Author")
		}
		return nil, errors.WithStack(err)
	}

	return author, nil
}
