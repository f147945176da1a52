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
			fmt.Sprintf(`CREATE TABLE jobs (
				%s,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL,
				type TEXT NOT NULL,
				status TEXT NOT NULL,
				data TEXT,
				attempts INTEGER NOT NULL DEFAULT 0,
				last_error TEXT,
				process_id TEXT,
				work_id BIGINT REFERENCES works(id) ON DELETE SET NULL
			)`, id),
			`CREATE INDEX ix_jobs_status_created_at ON jobs(status, created_at)`,

			fmt.Sprintf(`CREATE TABLE job_logs (
				%s,
				created_at TIMESTAMPTZ NOT NULL,
				job_id BIGINT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
				attempt INTEGER NOT NULL DEFAULT 0,
				level TEXT NOT NULL,
				message TEXT NOT NULL,
				data TEXT,
				stack_trace TEXT
			)`, id),
			`CREATE INDEX ix_job_logs_job_id ON job_logs(job_id)`,
		)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db,
			`DROP TABLE IF EXISTS job_logs`,
			`DROP TABLE IF EXISTS jobs`,
		)
	}

	Migrations.MustRegister(up, down)
}
