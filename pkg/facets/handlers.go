package facets

import (
	"net/http"

	"github.com/fanfiq/fanfiq/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	facetService *Service
}

func (h *handler) suggest(c echo.Context) error {
	ctx := c.Request().Context()

	kind, ok := kinds[c.Param("facet")]
	if !ok {
		return errcodes.NotFound("Facet")
	}

	params := SuggestQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	values, err := h.facetService.Suggest(ctx, SuggestOptions{
		Kind:  kind,
		Query: params.Query,
		Limit: params.Limit,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, values))
}
