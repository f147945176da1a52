package models

import (
	"github.com/uptrace/bun"
)

const (
	FacetFandom  = "fandom"
	FacetTag     = "tag"
	FacetWarning = "warning"
)

// FacetTables maps a facet kind to its association table.
var FacetTables = map[string]string{
	FacetFandom:  "work_fandoms",
	FacetTag:     "work_tags",
	FacetWarning: "work_warnings",
}

type WorkFandom struct {
	bun.BaseModel `bun:"table:work_fandoms,alias:wf"`

	ID     int    `bun:",pk,nullzero" json:"id"`
	WorkID int    `bun:",notnull" json:"work_id"`
	Value  string `bun:",notnull" json:"value"`
}

type WorkTag struct {
	bun.BaseModel `bun:"table:work_tags,alias:wt"`

	ID     int    `bun:",pk,nullzero" json:"id"`
	WorkID int    `bun:",notnull" json:"work_id"`
	Value  string `bun:",notnull" json:"value"`
}

type WorkWarning struct {
	bun.BaseModel `bun:"table:work_warnings,alias:ww"`

	ID     int    `bun:",pk,nullzero" json:"id"`
	WorkID int    `bun:",notnull" json:"work_id"`
	Value  string `bun:",notnull" json:"value"`
}

// FacetCount is a facet value with the number of works carrying it.
type FacetCount struct {
	Value string `bun:"value" json:"value"`
	Count int    `bun:"count" json:"count"`
}
