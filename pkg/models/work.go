package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	WorkStatusInProgress = "In Progress"
)

type Work struct {
	bun.BaseModel `bun:"table:works,alias:w"`

	ID            int        `bun:",pk,nullzero" json:"id"`
	SiteID        int        `bun:",notnull" json:"site_id"`
	SiteWorkID    string     `bun:",notnull" json:"site_work_id"`
	Title         string     `bun:",notnull" json:"title"`
	Summary       string     `bun:",notnull" json:"summary"`
	Language      string     `bun:",notnull" json:"language"`
	Rating        string     `bun:",notnull" json:"rating"`
	Category      *string    `json:"category"`
	Status        string     `bun:",notnull" json:"status"`
	WordCount     int        `bun:",notnull" json:"word_count"`
	LikesCount    *int       `json:"likes_count"`
	CommentsCount *int       `json:"comments_count"`
	PublishedAt   *time.Time `json:"published_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
	OriginalURL   *string    `bun:"original_url" json:"original_url"`
	AuthorID      int        `bun:",notnull" json:"author_id"`
	// SearchText is the case- and diacritic-folded title and summary that
	// free-text search matches against.
	SearchText string `bun:",notnull" json:"-"`

	Site     *Site          `bun:"rel:belongs-to,join:site_id=id" json:"-"`
	Author   *Author        `bun:"rel:belongs-to,join:author_id=id" json:"-"`
	Chapters []*Chapter     `bun:"rel:has-many,join:id=work_id" json:"-"`
	Fandoms  []*WorkFandom  `bun:"rel:has-many,join:id=work_id" json:"-"`
	Tags     []*WorkTag     `bun:"rel:has-many,join:id=work_id" json:"-"`
	Warnings []*WorkWarning `bun:"rel:has-many,join:id=work_id" json:"-"`
}
