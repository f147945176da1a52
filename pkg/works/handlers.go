package works

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/fanfiq/fanfiq/pkg/errcodes"
	"github.com/fanfiq/fanfiq/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	workService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Work")
	}

	work, err := h.workService.RetrieveWork(ctx, RetrieveWorkOptions{ID: id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, newDetail(work)))
}

func (h *handler) chapter(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Work")
	}
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		return errcodes.NotFound("Chapter")
	}

	chapter, err := h.workService.RetrieveChapter(ctx, id, number)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, chapter))
}

func (h *handler) downloadText(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Work")
	}

	work, err := h.workService.RetrieveWork(ctx, RetrieveWorkOptions{ID: id, WithContent: true})
	if err != nil {
		return errors.WithStack(err)
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": textFilename(work)})
	c.Response().Header().Set(echo.HeaderContentDisposition, disposition)

	return errors.WithStack(c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, []byte(PlainText(work))))
}

// textFilename names the export after the work's site identity, keeping only
// characters that are safe in a filename.
func textFilename(w *models.Work) string {
	name := strconv.Itoa(w.ID)
	if w.Site != nil {
		name = w.Site.Code + "-" + w.SiteWorkID
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, name)
	return name + ".txt"
}
