package ingest

import (
	"io"
	"net/http"
	"strings"

	"github.com/fanfiq/fanfiq/pkg/canonical"
	"github.com/fanfiq/fanfiq/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// maxDocumentSize bounds a single document body, chapters included.
const maxDocumentSize = 64 << 20

type handler struct {
	ingestService *Service
}

// ingest writes one canonical document synchronously. The body bypasses the
// binder and goes straight to canonical.Document's decoder.
func (h *handler) ingest(c echo.Context) error {
	ctx := c.Request().Context()
	req := c.Request()

	if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return errcodes.UnsupportedMediaType()
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, maxDocumentSize))
	if err != nil {
		return errors.WithStack(err)
	}
	if len(body) == 0 {
		return errcodes.EmptyRequestBody()
	}

	doc := &canonical.Document{}
	if err := json.Unmarshal(body, doc); err != nil {
		if canonical.IsValidationError(err) {
			return errors.WithStack(err)
		}
		return errcodes.MalformedPayload()
	}

	res, err := h.ingestService.Ingest(ctx, doc)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, res))
}
