package server

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/fanfiq/fanfiq/pkg/config"
	"github.com/fanfiq/fanfiq/pkg/resultcache"
	"github.com/fanfiq/fanfiq/pkg/testutils"
	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Routes(t *testing.T) {
	db := testutils.NewDB(t)
	e, err := newEcho(config.NewForTest(), db, nil)
	require.NoError(t, err)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if body != "" {
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/ingest", `{"source_site": "ficbook", "id": "1", "title": "T", "author_name": "A", "tags": ["angst"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := struct {
		WorkID int `json:"work_id"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	rec = do(http.MethodPost, "/works/search", `{"tags": ["angst"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total":1`)

	for _, path := range []string{
		"/metrics",
		"/works/" + strconv.Itoa(res.WorkID),
		"/facets/tags",
		"/jobs",
	} {
		assert.Equal(t, http.StatusOK, do(http.MethodGet, path, "").Code, path)
	}

	rec = do(http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestServer_SearchWithUnreachableCache(t *testing.T) {
	db := testutils.NewDB(t)
	cfg := config.NewForTest()
	cfg.SearchCacheEnabled = true
	cfg.RedisAddrs = []string{"127.0.0.1:1"}

	store, err := resultcache.NewRedisStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	e, err := newEcho(cfg, db, resultcache.New(store, cfg.SearchCacheTTL))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/works/search", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"total":0`)
	}
}
