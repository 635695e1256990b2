package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
)

// ContactHandler accepts public contact form posts and serves the admin inbox.
type ContactHandler struct {
	intake  ports.ContactService
	service ports.ContentService
}

func NewContactHandler(intake ports.ContactService, service ports.ContentService) *ContactHandler {
	return &ContactHandler{intake: intake, service: service}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Company string `json:"company"`
	Message string `json:"message"`
}

type contactResponse struct {
	ID     string               `json:"id"`
	Status domain.ContactStatus `json:"status"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Submit handles POST /api/contact.
//
// @Summary      Send a contact message
// @Tags         contact
// @Accept       json
// @Produce      json
// @Param        body  body      contactRequest  true  "Contact form"
// @Success      201   {object}  contactResponse
// @Failure      400   {object}  ValidationErrorBody
// @Failure      429   {object}  ErrorBody
// @Router       /api/contact [post]
func (h *ContactHandler) Submit(c echo.Context) error {
	var req contactRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}

	id, err := h.intake.Submit(c.Request().Context(), c.RealIP(), ports.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Company: req.Company,
		Message: req.Message,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, contactResponse{ID: id, Status: domain.ContactNew})
}

// List handles GET /api/admin/contact.
//
// @Summary      List contact submissions, newest first
// @Tags         admin-contact
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "new, read or archived"
// @Param        page    query     int     false  "Page, from 1"
// @Param        limit   query     int     false  "Page size, max 100"
// @Success      200     {object}  object
// @Failure      400     {object}  ValidationErrorBody
// @Router       /api/admin/contact [get]
func (h *ContactHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var in ports.ListSubmissionsInput
	if err := echo.QueryParamsBinder(c).
		String("status", &in.Status).
		Int("page", &in.Page).
		Int("limit", &in.Limit).
		BindError(); err != nil {
		return err
	}

	page, err := h.service.ListSubmissions(c.Request().Context(), actor, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPageResponse(page))
}

// Get handles GET /api/admin/contact/:id.
//
// @Summary      Get a contact submission
// @Tags         admin-contact
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Submission id"
// @Success      200  {object}  domain.ContactSubmission
// @Failure      404  {object}  ErrorBody
// @Router       /api/admin/contact/{id} [get]
func (h *ContactHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	sub, err := h.service.GetSubmission(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sub)
}

// UpdateStatus handles PATCH /api/admin/contact/:id/status.
//
// @Summary      Move a submission through new, read and archived
// @Tags         admin-contact
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Submission id"
// @Param        body  body      statusRequest  true  "Target status"
// @Success      200   {object}  domain.ContactSubmission
// @Failure      400   {object}  ValidationErrorBody
// @Failure      404   {object}  ErrorBody
// @Failure      409   {object}  ErrorBody
// @Router       /api/admin/contact/{id}/status [patch]
func (h *ContactHandler) UpdateStatus(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}

	sub, err := h.service.SetSubmissionStatus(c.Request().Context(), actor, c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sub)
}

// Delete handles DELETE /api/admin/contact/:id.
//
// @Summary      Delete a contact submission
// @Tags         admin-contact
// @Security     BearerAuth
// @Param        id  path  string  true  "Submission id"
// @Success      204
// @Failure      404  {object}  ErrorBody
// @Router       /api/admin/contact/{id} [delete]
func (h *ContactHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteSubmission(c.Request().Context(), actor, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
