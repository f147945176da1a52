package joblogs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/fanfiq/fanfiq/pkg/binder"
	"github.com/fanfiq/fanfiq/pkg/errcodes"
	"github.com/fanfiq/fanfiq/pkg/jobs"
	"github.com/fanfiq/fanfiq/pkg/models"
	"github.com/fanfiq/fanfiq/pkg/testutils"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newJob(t *testing.T, db *bun.DB) *models.Job {
	t.Helper()
	job := &models.Job{
		Type:       models.JobTypeIngest,
		Status:     models.JobStatusInProgress,
		DataParsed: testutils.Document("ficbook", "1"),
		Attempts:   1,
	}
	require.NoError(t, jobs.NewService(db).CreateJob(context.Background(), job))
	return job
}

func TestJobLogger(t *testing.T) {
	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()
	job := newJob(t, db)

	l := svc.NewJobLogger(ctx, job, logger.New())
	l.Info("starting", nil)
	l.Warn("odd value", logger.Data{"payload": strings.Repeat("x", 5000)})
	l.Error("store failed", errors.New("disk full"), logger.Data{"site": "ficbook"})

	job.Attempts = 2
	svc.NewJobLogger(ctx, job, logger.New()).Info("retrying", nil)

	logs, err := svc.List(ctx, ListOptions{JobID: job.ID})
	require.NoError(t, err)
	require.Len(t, logs, 4)

	assert.Equal(t, models.JobLogLevelInfo, logs[0].Level)
	assert.Nil(t, logs[0].Data)
	assert.Equal(t, 1, logs[0].Attempt)

	require.NotNil(t, logs[1].Data)
	assert.Contains(t, *logs[1].Data, " ... ")
	assert.Less(t, len(*logs[1].Data), 1200)

	require.NotNil(t, logs[2].Data)
	assert.Contains(t, *logs[2].Data, `"error":"disk full"`)
	assert.Contains(t, *logs[2].Data, `"site":"ficbook"`)
	assert.NotNil(t, logs[2].StackTrace)

	assert.Equal(t, 2, logs[3].Attempt)

	t.Run("filters", func(t *testing.T) {
		logs, err := svc.List(ctx, ListOptions{JobID: job.ID, Attempt: 2})
		require.NoError(t, err)
		assert.Len(t, logs, 1)

		logs, err = svc.List(ctx, ListOptions{JobID: job.ID, Levels: []string{models.JobLogLevelError}})
		require.NoError(t, err)
		assert.Len(t, logs, 1)
	})

	t.Run("pages with after_id", func(t *testing.T) {
		first, err := svc.List(ctx, ListOptions{JobID: job.ID, Limit: 3})
		require.NoError(t, err)
		require.Len(t, first, 3)

		rest, err := svc.List(ctx, ListOptions{JobID: job.ID, AfterID: first[2].ID})
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Equal(t, "retrying", rest[0].Message)
	})

	t.Run("summarizes attempts", func(t *testing.T) {
		attempts, err := svc.Attempts(ctx, job.ID)
		require.NoError(t, err)
		require.Len(t, attempts, 2)

		assert.Equal(t, 1, attempts[0].Attempt)
		assert.Equal(t, 3, attempts[0].Entries)
		assert.Equal(t, 1, attempts[0].Warnings)
		assert.Equal(t, 1, attempts[0].Errors)
		require.NotNil(t, attempts[0].LastError)
		assert.Equal(t, "store failed", *attempts[0].LastError)

		assert.Equal(t, 2, attempts[1].Attempt)
		assert.Equal(t, 1, attempts[1].Entries)
		assert.Nil(t, attempts[1].LastError)
	})
}

func TestTruncateMiddle(t *testing.T) {
	assert.Equal(t, "short", truncateMiddle("short", 10))
	assert.Equal(t, "abc ... xyz", truncateMiddle("abcdefghijklmnopqrstuvwxyz", 11))
}

func TestListHandler(t *testing.T) {
	db := testutils.NewDB(t)
	job := newJob(t, db)
	jl := NewService(db).NewJobLogger(context.Background(), job, logger.New())
	jl.Info("hello", nil)
	jl.Info("world", nil)

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	RegisterRoutesWithGroup(e.Group("/jobs"), db)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}
	base := "/jobs/" + strconv.Itoa(job.ID) + "/logs"

	rec := get(base + "?limit=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := struct {
		Logs        []*models.JobLog  `json:"logs"`
		Attempts    []*AttemptSummary `json:"attempts"`
		NextAfterID int               `json:"next_after_id"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Logs, 1)
	assert.Equal(t, "hello", body.Logs[0].Message)
	assert.Equal(t, body.Logs[0].ID, body.NextAfterID)
	require.Len(t, body.Attempts, 1)
	assert.Equal(t, 2, body.Attempts[0].Entries)

	rec = get(base + "?after_id=" + strconv.Itoa(body.NextAfterID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Logs, 1)
	assert.Equal(t, "world", body.Logs[0].Message)

	assert.Equal(t, http.StatusNotFound, get("/jobs/99999/logs").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, get(base+"?level=fatal").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, get(base+"?limit=501").Code)
}
