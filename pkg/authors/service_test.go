package authors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/fanfiq/fanfiq/pkg/canonical"
	"github.com/fanfiq/fanfiq/pkg/errcodes"
	"github.com/fanfiq/fanfiq/pkg/ingest"
	"github.com/fanfiq/fanfiq/pkg/testutils"
	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrieveAuthor(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	ctx := context.Background()
	ingestService := ingest.NewService(db)

	var authorID int
	for _, tc := range []struct{ id, updated string }{
		{"1", "2024-01-01T00:00:00Z"},
		{"2", "2024-05-01T00:00:00Z"},
		{"3", ""},
	} {
		doc := testutils.Document("ficbook", tc.id)
		if tc.updated != "" {
			doc.UpdatedAt = canonical.String(tc.updated)
		}
		res, err := ingestService.Ingest(ctx, doc)
		require.NoError(t, err)
		authorID = res.AuthorID
	}

	// same pen name, different site
	other, err := ingestService.Ingest(ctx, testutils.Document("ao3", "1"))
	require.NoError(t, err)
	require.NotEqual(t, authorID, other.AuthorID)

	author, err := NewService(db).RetrieveAuthor(ctx, authorID)
	require.NoError(t, err)
	assert.Equal(t, "ficbook", author.Site.Code)

	ids := []string{}
	for _, w := range author.Works {
		ids = append(ids, w.SiteWorkID)
	}
	assert.Equal(t, []string{"2", "1", "3"}, ids)

	_, err = NewService(db).RetrieveAuthor(ctx, other.AuthorID+100)
	assert.ErrorIs(t, err, errcodes.NotFound("Author"))
}

func TestAuthorHandler(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)

	res, err := ingest.NewService(db).Ingest(context.Background(), testutils.Document("ficbook", "1"))
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	RegisterRoutesWithGroup(e.Group("/authors"), db)

	req := httptest.NewRequest(http.MethodGet, "/authors/"+strconv.Itoa(res.AuthorID), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := struct {
		Name  string `json:"name"`
		Works []struct {
			Title string `json:"title"`
		} `json:"works"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "author", body.Name)
	require.Len(t, body.Works, 1)
	assert.Equal(t, "Work 1", body.Works[0].Title)

	req = httptest.NewRequest(http.MethodGet, "/authors/nope", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
