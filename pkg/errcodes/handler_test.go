package errcodes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fanfiq/fanfiq/pkg/canonical"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorBody struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		StatusCode int    `json:"status_code"`
	} `json:"error"`
}

func handle(t *testing.T, err error) (int, errorBody) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHandler().Handle(err, c)

	body := errorBody{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"custom error", NotFound("Work"), http.StatusNotFound, "not_found", "Work not found."},
		{"wrapped custom error", errors.WithStack(ValidationError("bad")), http.StatusUnprocessableEntity, "validation_error", "bad"},
		{
			"document validation error",
			errors.WithStack(&canonical.ValidationError{Field: "title", Reason: "is required"}),
			http.StatusUnprocessableEntity,
			"invalid_document",
			`invalid document: "title" is required`,
		},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"), http.StatusMethodNotAllowed, "method_not_allowed", "Method Not Allowed"},
		{"generic error", errors.New("boom"), http.StatusInternalServerError, "internal_server_error", "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := handle(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.status, body.Error.StatusCode)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.message, body.Error.Message)
		})
	}
}
