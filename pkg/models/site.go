package models

import (
	"github.com/uptrace/bun"
)

type Site struct {
	bun.BaseModel `bun:"table:sites,alias:s"`

	ID   int    `bun:",pk,nullzero" json:"id"`
	Code string `bun:",notnull" json:"code"`
	Name string `bun:",notnull" json:"name"`
}
