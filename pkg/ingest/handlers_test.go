package ingest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fanfiq/fanfiq/pkg/errcodes"
	"github.com/fanfiq/fanfiq/pkg/models"
	"github.com/fanfiq/fanfiq/pkg/testutils"
	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*echo.Echo, *Service) {
	t.Helper()
	db := testutils.NewDB(t)
	e := echo.New()
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	RegisterRoutesWithGroup(e.Group("/ingest"), db)
	return e, NewService(db)
}

func post(e *echo.Echo, body, ctype string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body))
	if ctype != "" {
		req.Header.Set(echo.HeaderContentType, ctype)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestIngestHandler(t *testing.T) {
	e, svc := newTestServer(t)

	t.Run("ingests a document", func(t *testing.T) {
		rec := post(e, `{
			"source_site": "ficbook",
			"id": "100",
			"title": "Ёжик в тумане",
			"author_name": "someone",
			"word_count": "12 345",
			"tags": ["angst", "angst", " fluff "],
			"chapters": [{"title": "One", "content_html": "<p>hi</p>"}]
		}`, echo.MIMEApplicationJSON)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		res := Result{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.NotZero(t, res.WorkID)

		work := &models.Work{}
		err := svc.db.NewSelect().Model(work).Where("w.id = ?", res.WorkID).Scan(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "100", work.SiteWorkID)
		assert.Equal(t, 12345, work.WordCount)
	})

	t.Run("rejects an invalid document", func(t *testing.T) {
		rec := post(e, `{"source_site": "ficbook", "id": "101", "author_name": "someone"}`, echo.MIMEApplicationJSON)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid_document")
		assert.Contains(t, rec.Body.String(), "title")
	})

	t.Run("rejects a non-list facet", func(t *testing.T) {
		rec := post(e, `{"source_site": "ficbook", "id": "102", "title": "t", "author_name": "a", "tags": "angst"}`, echo.MIMEApplicationJSON)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "tags")
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		rec := post(e, `{"source_site": `, echo.MIMEApplicationJSON)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "malformed_payload")
	})

	t.Run("rejects an empty body", func(t *testing.T) {
		rec := post(e, "", echo.MIMEApplicationJSON)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects other content types", func(t *testing.T) {
		rec := post(e, "source_site=ficbook", echo.MIMEApplicationForm)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})
}
