package models

import (
	"github.com/uptrace/bun"
)

type Chapter struct {
	bun.BaseModel `bun:"table:chapters,alias:ch"`

	ID            int    `bun:",pk,nullzero" json:"id"`
	WorkID        int    `bun:",notnull" json:"work_id"`
	ChapterNumber int    `bun:",notnull" json:"chapter_number"`
	Title         string `bun:",notnull" json:"title"`
	Content       string `bun:",notnull" json:"content,omitempty"`
}
