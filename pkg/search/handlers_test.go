package search

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fanfiq/fanfiq/pkg/binder"
	"github.com/fanfiq/fanfiq/pkg/canonical"
	"github.com/fanfiq/fanfiq/pkg/config"
	"github.com/fanfiq/fanfiq/pkg/errcodes"
	"github.com/fanfiq/fanfiq/pkg/testutils"
	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*echo.Echo, *seeder) {
	t.Helper()
	db := testutils.NewDB(t)

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	RegisterRoutesWithGroup(e.Group("/works"), db, config.NewForTest(), nil)
	return e, newSeeder(t, db)
}

func postSearch(e *echo.Echo, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/works/search", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestSearchHandler(t *testing.T) {
	e, seed := newTestServer(t)

	for _, id := range []string{"1", "2", "3"} {
		doc := testutils.Document("Ficbook", id)
		doc.WordCount = canonical.Int(len(id) * 100)
		doc.Tags = []string{"angst"}
		seed.add(doc)
	}

	t.Run("empty body searches everything", func(t *testing.T) {
		rec := postSearch(e, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := &Response{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, 1, resp.Page)
		assert.Equal(t, DefaultPageSize, resp.PageSize)
		assert.Equal(t, SortRelevance, resp.SortBy)
	})

	t.Run("filters and normalizes site codes", func(t *testing.T) {
		rec := postSearch(e, `{"sites": [" FICBOOK "], "tags": ["angst"], "page_size": 2}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := &Response{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, 2, resp.TotalPages)
		assert.Len(t, resp.Works, 2)
		assert.Equal(t, "ficbook", resp.Works[0].Site)
		assert.Equal(t, "Ficbook", resp.Works[0].SiteName)
	})

	t.Run("unknown sort falls back to relevance", func(t *testing.T) {
		rec := postSearch(e, `{"sort_by": "random"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := &Response{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
		assert.Equal(t, SortRelevance, resp.SortBy)
	})

	t.Run("rejects unknown parameters", func(t *testing.T) {
		rec := postSearch(e, `{"author": "someone"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "unknown_parameter", errorCode(t, rec))
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		rec := postSearch(e, `{"updated_after": "last tuesday"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "validation_error", errorCode(t, rec))
	})

	t.Run("rejects negative bounds", func(t *testing.T) {
		rec := postSearch(e, `{"likes_min": -1}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "validation_error", errorCode(t, rec))
	})

	t.Run("rejects wrong types", func(t *testing.T) {
		rec := postSearch(e, `{"tags": "angst"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "validation_type_error", errorCode(t, rec))
	})
}
