package models

import (
	"github.com/uptrace/bun"
)

// Author is scoped to a single site. The same pen name on two sites is two
// authors.
type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	ID     int     `bun:",pk,nullzero" json:"id"`
	SiteID int     `bun:",notnull" json:"site_id"`
	Name   string  `bun:",notnull" json:"name"`
	URL    *string `bun:"url" json:"url"`

	Site  *Site   `bun:"rel:belongs-to,join:site_id=id" json:"site,omitempty"`
	Works []*Work `bun:"rel:has-many,join:id=author_id" json:"works,omitempty"`
}
