package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/uxfolio/portfolio-cms/internal/core/ports"
)

type ActivityHandler struct {
	service ports.ContentService
}

func NewActivityHandler(service ports.ContentService) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// List handles GET /api/admin/activity.
//
// @Summary      Read the activity log, newest first
// @Tags         admin-activity
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page, from 1"
// @Param        limit  query     int  false  "Page size, max 100"
// @Success      200    {object}  object
// @Failure      401    {object}  ErrorBody
// @Failure      403    {object}  ErrorBody
// @Router       /api/admin/activity [get]
func (h *ActivityHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var page, limit int
	if err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("limit", &limit).
		BindError(); err != nil {
		return err
	}

	res, err := h.service.ListActivity(c.Request().Context(), actor, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPageResponse(res))
}
