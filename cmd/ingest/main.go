package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fanfiq/fanfiq/pkg/canonical"
	"github.com/fanfiq/fanfiq/pkg/config"
	"github.com/fanfiq/fanfiq/pkg/database"
	"github.com/fanfiq/fanfiq/pkg/ingest"
	"github.com/fanfiq/fanfiq/pkg/jobs"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	app := &cli.App{
		Name:      "ingest",
		Usage:     "load canonical documents into the catalog",
		ArgsUsage: "FILE... (use - for stdin)",
		Description: "Each file holds one document, a JSON array of documents, or one document per line. " +
			"Documents are written directly unless --enqueue is set, in which case they become ingest jobs " +
			"for the API's worker.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "enqueue",
				Usage: "create ingest jobs instead of writing directly",
			},
			&cli.BoolFlag{
				Name:  "keep-going",
				Usage: "skip invalid documents instead of stopping at the first one",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("at least one file is required", 1)
			}

			cfg, err := config.New()
			if err != nil {
				return errors.WithStack(err)
			}
			db, err := database.New(cfg)
			if err != nil {
				return errors.WithStack(err)
			}
			defer db.Close()

			ingestService := ingest.NewService(db)
			jobService := jobs.NewService(db)
			ctx := log.WithContext(c.Context)

			var written, invalid int
			for _, path := range c.Args().Slice() {
				entries, err := readFile(path)
				if err != nil {
					return errors.Wrap(err, path)
				}

				for _, entry := range entries {
					err := entry.Err
					if err == nil {
						if c.Bool("enqueue") {
							err = enqueue(ctx, jobService, entry.Document)
						} else {
							_, err = ingestService.Ingest(ctx, entry.Document)
						}
					}
					if err == nil {
						written++
						continue
					}
					// Store failures always stop the run.
					skippable := entry.Err != nil || canonical.IsValidationError(err)
					if !skippable || !c.Bool("keep-going") {
						if entry.Err != nil {
							return errors.Wrap(err, path)
						}
						return errors.Wrapf(err, "%s: document %d", path, entry.Index)
					}
					invalid++
					log.Err(err).Warn("skipping invalid document", logger.Data{"file": path, "index": entry.Index})
				}
			}

			verb := "ingested"
			if c.Bool("enqueue") {
				verb = "enqueued"
			}
			fmt.Printf("%s %d documents, skipped %d invalid\n", verb, written, invalid)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("ingest error")
	}
}

func readFile(path string) ([]ingest.Entry, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		defer f.Close()
		r = f
	}
	entries, err := ingest.ReadDocuments(r)
	return entries, errors.WithStack(err)
}
