package facets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/fanfiq/fanfiq/pkg/binder"
	"github.com/fanfiq/fanfiq/pkg/errcodes"
	"github.com/fanfiq/fanfiq/pkg/ingest"
	"github.com/fanfiq/fanfiq/pkg/models"
	"github.com/fanfiq/fanfiq/pkg/testutils"
	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func seed(t *testing.T, db *bun.DB) {
	t.Helper()
	svc := ingest.NewService(db)
	sets := [][]string{
		{"Ангст", "fluff"},
		{"ангст", "Fluff"},
		{"Ангст", "hurt/comfort"},
		{"fluff"},
	}
	for i, tags := range sets {
		doc := testutils.Document("ficbook", string(rune('a'+i)))
		doc.Tags = tags
		doc.Fandoms = []string{"Naruto"}
		_, err := svc.Ingest(context.Background(), doc)
		require.NoError(t, err)
	}
}

func values(counts []*models.FacetCount) []string {
	out := []string{}
	for _, c := range counts {
		out = append(out, c.Value)
	}
	return out
}

func TestSuggest(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	seed(t, db)
	svc := NewService(db)
	ctx := context.Background()

	t.Run("most used first", func(t *testing.T) {
		counts, err := svc.Suggest(ctx, SuggestOptions{Kind: models.FacetTag, Limit: 10})
		require.NoError(t, err)
		require.NotEmpty(t, counts)
		assert.Equal(t, "fluff", counts[0].Value)
		assert.Equal(t, 2, counts[0].Count)
		assert.Equal(t, "Ангст", counts[1].Value)
		assert.Len(t, counts, 5)
	})

	t.Run("limit", func(t *testing.T) {
		counts, err := svc.Suggest(ctx, SuggestOptions{Kind: models.FacetTag, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, counts, 2)
	})

	t.Run("query folds case", func(t *testing.T) {
		counts, err := svc.Suggest(ctx, SuggestOptions{Kind: models.FacetTag, Query: "АНГ", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"Ангст", "ангст"}, values(counts))
	})

	t.Run("prefix matches rank first", func(t *testing.T) {
		counts, err := svc.Suggest(ctx, SuggestOptions{Kind: models.FacetTag, Query: "f", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"fluff", "Fluff", "hurt/comfort"}, values(counts))
	})

	t.Run("other facet", func(t *testing.T) {
		counts, err := svc.Suggest(ctx, SuggestOptions{Kind: models.FacetFandom, Limit: 10})
		require.NoError(t, err)
		require.Len(t, counts, 1)
		assert.Equal(t, 4, counts[0].Count)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := svc.Suggest(ctx, SuggestOptions{Kind: "genre", Limit: 10})
		assert.Error(t, err)
	})
}

func TestSuggestHandler(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	seed(t, db)

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	RegisterRoutesWithGroup(e.Group("/facets"), db)

	do := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := do("/facets/tags?q=" + url.QueryEscape("анг") + "&limit=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	counts := []*models.FacetCount{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Equal(t, []string{"Ангст"}, values(counts))

	rec = do("/facets/fandoms")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do("/facets/genres").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do("/facets/tags?limit=500").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do("/facets/tags?sort=x").Code)
}
