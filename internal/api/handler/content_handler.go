package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/uxfolio/portfolio-cms/internal/core/ports"
)

// ContentHandler serves the public and admin views of every content collection.
type ContentHandler struct {
	service ports.ContentService
}

func NewContentHandler(service ports.ContentService) *ContentHandler {
	return &ContentHandler{service: service}
}

type reorderRequest struct {
	IDs []string `json:"ids" validate:"required,dive,required"`
}

// PublicList handles GET /api/:entity.
//
// @Summary      List visible records of a collection
// @Tags         content
// @Produce      json
// @Param        entity  path      string  true  "Collection, e.g. case-studies"
// @Success      200     {array}   object
// @Failure      404     {object}  ErrorBody
// @Router       /api/{entity} [get]
func (h *ContentHandler) PublicList(c echo.Context) error {
	t, err := entityParam(c)
	if err != nil {
		return err
	}

	records, err := h.service.PublicList(c.Request().Context(), t)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// List handles GET /api/admin/:entity, hidden records included.
//
// @Summary      List all records of a collection
// @Tags         admin-content
// @Produce      json
// @Security     BearerAuth
// @Param        entity  path      string  true  "Collection"
// @Success      200     {array}   object
// @Failure      401     {object}  ErrorBody
// @Failure      404     {object}  ErrorBody
// @Router       /api/admin/{entity} [get]
func (h *ContentHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	t, err := entityParam(c)
	if err != nil {
		return err
	}

	records, err := h.service.List(c.Request().Context(), actor, t)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// Get handles GET /api/admin/:entity/:id.
//
// @Summary      Get one record
// @Tags         admin-content
// @Produce      json
// @Security     BearerAuth
// @Param        entity  path      string  true  "Collection"
// @Param        id      path      string  true  "Record id"
// @Success      200     {object}  object
// @Failure      404     {object}  ErrorBody
// @Router       /api/admin/{entity}/{id} [get]
func (h *ContentHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	t, err := entityParam(c)
	if err != nil {
		return err
	}

	record, err := h.service.Get(c.Request().Context(), actor, t, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

// Create handles POST /api/admin/:entity.
//
// @Summary      Create a record
// @Tags         admin-content
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        entity  path      string  true  "Collection"
// @Param        body    body      object  true  "Record fields; order and visible are optional"
// @Success      201     {object}  object
// @Failure      400     {object}  ValidationErrorBody
// @Failure      401     {object}  ErrorBody
// @Failure      409     {object}  ErrorBody
// @Router       /api/admin/{entity} [post]
func (h *ContentHandler) Create(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	t, err := entityParam(c)
	if err != nil {
		return err
	}
	payload, err := bindPayload(c)
	if err != nil {
		return err
	}

	record, err := h.service.Create(c.Request().Context(), actor, t, payload)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, record)
}

// Update handles PUT /api/admin/:entity/:id. The body is merged into the
// stored record; a null value removes an optional field.
//
// @Summary      Update a record
// @Tags         admin-content
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        entity  path      string  true  "Collection"
// @Param        id      path      string  true  "Record id"
// @Param        body    body      object  true  "Fields to change"
// @Success      200     {object}  object
// @Failure      400     {object}  ValidationErrorBody
// @Failure      404     {object}  ErrorBody
// @Router       /api/admin/{entity}/{id} [put]
func (h *ContentHandler) Update(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	t, err := entityParam(c)
	if err != nil {
		return err
	}
	patch, err := bindPayload(c)
	if err != nil {
		return err
	}

	record, err := h.service.Update(c.Request().Context(), actor, t, c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

// Delete handles DELETE /api/admin/:entity/:id.
//
// @Summary      Delete a record
// @Tags         admin-content
// @Security     BearerAuth
// @Param        entity  path  string  true  "Collection"
// @Param        id      path  string  true  "Record id"
// @Success      204
// @Failure      404  {object}  ErrorBody
// @Router       /api/admin/{entity}/{id} [delete]
func (h *ContentHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	t, err := entityParam(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), actor, t, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Reorder handles POST /api/admin/:entity/reorder and returns the collection
// in its new order.
//
// @Summary      Reorder a collection
// @Tags         admin-content
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        entity  path      string          true  "Collection"
// @Param        body    body      reorderRequest  true  "Every id of the collection in the new order"
// @Success      200     {array}   object
// @Failure      400     {object}  ValidationErrorBody
// @Failure      409     {object}  ErrorBody
// @Router       /api/admin/{entity}/reorder [post]
func (h *ContentHandler) Reorder(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	t, err := entityParam(c)
	if err != nil {
		return err
	}
	var req reorderRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.service.Reorder(ctx, actor, t, req.IDs); err != nil {
		return err
	}
	records, err := h.service.List(ctx, actor, t)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// Compact handles POST /api/admin/:entity/compact.
//
// @Summary      Renumber a collection to 0..n-1
// @Tags         admin-content
// @Produce      json
// @Security     BearerAuth
// @Param        entity  path      string  true  "Collection"
// @Success      200     {array}   object
// @Router       /api/admin/{entity}/compact [post]
func (h *ContentHandler) Compact(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	t, err := entityParam(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.service.Compact(ctx, actor, t); err != nil {
		return err
	}
	records, err := h.service.List(ctx, actor, t)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}
