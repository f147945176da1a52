package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		id := idColumn(db)

		return execAll(ctx, db,
			fmt.Sprintf(`CREATE TABLE sites (
				%s,
				code TEXT NOT NULL,
				name TEXT NOT NULL
			)`, id),
			`CREATE UNIQUE INDEX ux_sites_code ON sites(code)`,

			fmt.Sprintf(`CREATE TABLE authors (
				%s,
				site_id BIGINT NOT NULL REFERENCES sites(id),
				name TEXT NOT NULL,
				url TEXT
			)`, id),
			// Authors are resolved by (site, name); there is no cross-site identity.
			`CREATE UNIQUE INDEX ux_authors_site_id_name ON authors(site_id, name)`,

			fmt.Sprintf(`CREATE TABLE works (
				%s,
				site_id BIGINT NOT NULL REFERENCES sites(id),
				site_work_id TEXT NOT NULL,
				title TEXT NOT NULL,
				summary TEXT NOT NULL DEFAULT '',
				language TEXT NOT NULL,
				rating TEXT NOT NULL DEFAULT '',
				category TEXT,
				status TEXT NOT NULL,
				word_count BIGINT NOT NULL DEFAULT 0,
				likes_count BIGINT,
				comments_count BIGINT,
				published_at TIMESTAMPTZ,
				updated_at TIMESTAMPTZ,
				original_url TEXT,
				author_id BIGINT NOT NULL REFERENCES authors(id),
				search_text TEXT NOT NULL DEFAULT ''
			)`, id),
			// The identity constraint. Upserts resolve against it.
			`CREATE UNIQUE INDEX ux_works_site_id_site_work_id ON works(site_id, site_work_id)`,
			`CREATE INDEX ix_works_author_id ON works(author_id)`,
			`CREATE INDEX ix_works_updated_at ON works(updated_at)`,
			`CREATE INDEX ix_works_word_count ON works(word_count)`,
			`CREATE INDEX ix_works_likes_count ON works(likes_count)`,

			fmt.Sprintf(`CREATE TABLE chapters (
				%s,
				work_id BIGINT NOT NULL REFERENCES works(id) ON DELETE CASCADE,
				chapter_number INTEGER NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				content TEXT NOT NULL DEFAULT ''
			)`, id),
			`CREATE UNIQUE INDEX ux_chapters_work_id_chapter_number ON chapters(work_id, chapter_number)`,

			fmt.Sprintf(`CREATE TABLE work_fandoms (
				%s,
				work_id BIGINT NOT NULL REFERENCES works(id) ON DELETE CASCADE,
				value TEXT NOT NULL
			)`, id),
			`CREATE UNIQUE INDEX ux_work_fandoms_work_id_value ON work_fandoms(work_id, value)`,
			`CREATE INDEX ix_work_fandoms_value ON work_fandoms(value, work_id)`,

			fmt.Sprintf(`CREATE TABLE work_tags (
				%s,
				work_id BIGINT NOT NULL REFERENCES works(id) ON DELETE CASCADE,
				value TEXT NOT NULL
			)`, id),
			`CREATE UNIQUE INDEX ux_work_tags_work_id_value ON work_tags(work_id, value)`,
			`CREATE INDEX ix_work_tags_value ON work_tags(value, work_id)`,

			fmt.Sprintf(`CREATE TABLE work_warnings (
				%s,
				work_id BIGINT NOT NULL REFERENCES works(id) ON DELETE CASCADE,
				value TEXT NOT NULL
			)`, id),
			`CREATE UNIQUE INDEX ux_work_warnings_work_id_value ON work_warnings(work_id, value)`,
			`CREATE INDEX ix_work_warnings_value ON work_warnings(value, work_id)`,
		)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db,
			`DROP TABLE IF EXISTS work_warnings`,
			`DROP TABLE IF EXISTS work_tags`,
			`DROP TABLE IF EXISTS work_fandoms`,
			`DROP TABLE IF EXISTS chapters`,
			`DROP TABLE IF EXISTS works`,
			`DROP TABLE IF EXISTS authors`,
			`DROP TABLE IF EXISTS sites`,
		)
	}

	Migrations.MustRegister(up, down)
}
