package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/logger"
	formmodel "github.com/NomadCrew/formflow-backend/models/form"
	"github.com/NomadCrew/formflow-backend/services"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// maxInvitations bounds one invitation request.
const maxInvitations = 50

type FormHandler struct {
	forms       FormService
	submissions SubmissionService
	email       types.EmailService
	jobs        Dispatcher
	exporter    Exporter
}

func NewFormHandler(forms FormService, submissions SubmissionService, email types.EmailService, jobs Dispatcher, exporter Exporter) *FormHandler {
	return &FormHandler{
		forms:       forms,
		submissions: submissions,
		email:       email,
		jobs:        jobs,
		exporter:    exporter,
	}
}

// ListFormsHandler godoc
// @Summary Search forms
// @Description Case-insensitive search over title and description, filtered by status and creator, newest first.
// @Tags forms
// @Produce json
// @Param query query string false "Search text"
// @Param status query string false "Form status"
// @Param createdBy query string false "Creator user ID"
// @Param page query int false "Page (1-based)"
// @Param perPage query int false "Page size"
// @Success 200 {object} types.FormPage
// @Failure 400 {object} types.ErrorResponse
// @Router /forms [get]
// @Security BearerAuth
func (h *FormHandler) ListFormsHandler(c *gin.Context) {
	var q types.FormSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abort(c, apperrors.ValidationFailed("Invalid query parameters", err.Error()))
		return
	}
	if q.Status != "" && !q.Status.IsValid() {
		abort(c, apperrors.ValidationFailed("Invalid form status", string(q.Status)))
		return
	}
	c.JSON(http.StatusOK, h.forms.Search(c.Request.Context(), q))
}

// GetFormHandler godoc
// @Summary Get a form
// @Tags forms
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} types.Form
// @Failure 404 {object} types.ErrorResponse
// @Router /forms/{id} [get]
// @Security BearerAuth
func (h *FormHandler) GetFormHandler(c *gin.Context) {
	f, err := h.forms.GetForm(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// CreateFormHandler godoc
// @Summary Create a draft form
// @Tags forms
// @Accept json
// @Produce json
// @Param request body types.FormInput true "Form definition"
// @Success 201 {object} types.MutationResponse
// @Failure 400 {object} types.ErrorResponse
// @Router /forms [post]
// @Security BearerAuth
func (h *FormHandler) CreateFormHandler(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var input types.FormInput
	if !bindJSON(c, &input) {
		return
	}
	f, persistence, err := h.forms.CreateForm(c.Request.Context(), actor, input)
	if err != nil {
		abort(c, err)
		return
	}
	respondMutation(c, http.StatusCreated, f, persistence)
}

// UpdateFormHandler godoc
// @Summary Replace a form's title, description and fields
// @Tags forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param request body types.FormInput true "Form definition"
// @Success 200 {object} types.MutationResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 403 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse "Form is approved or rejected"
// @Router /forms/{id} [put]
// @Security BearerAuth
func (h *FormHandler) UpdateFormHandler(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var input types.FormInput
	if !bindJSON(c, &input) {
		return
	}
	f, persistence, err := h.forms.UpdateForm(c.Request.Context(), actor, c.Param("id"), input)
	if err != nil {
		abort(c, err)
		return
	}
	respondMutation(c, http.StatusOK, f, persistence)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateFormStatusHandler godoc
// @Summary Move a form through review
// @Description draft to pending by the creator or an admin; pending to approved or rejected by an admin.
// @Tags forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param request body statusRequest true "Target status"
// @Success 200 {object} types.MutationResponse
// @Failure 403 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse
// @Router /forms/{id}/status [patch]
// @Security BearerAuth
func (h *FormHandler) UpdateFormStatusHandler(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	next := types.FormStatus(strings.ToLower(req.Status))
	if !next.IsValid() {
		abort(c, apperrors.ValidationFailed("Invalid form status", req.Status))
		return
	}

	current, err := h.forms.GetForm(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	if err := formmodel.CheckStatusChange(actor, current, next); err != nil {
		abort(c, err)
		return
	}

	f, persistence, err := h.forms.UpdateFormStatus(c.Request.Context(), actor, current.ID, next)
	if err != nil {
		abort(c, err)
		return
	}
	respondMutation(c, http.StatusOK, f, persistence)
}

// CloneFormHandler godoc
// @Summary Copy a form into a new draft
// @Tags forms
// @Produce json
// @Param id path string true "Form ID"
// @Success 201 {object} types.MutationResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /forms/{id}/clone [post]
// @Security BearerAuth
func (h *FormHandler) CloneFormHandler(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	f, persistence, err := h.forms.CloneForm(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	respondMutation(c, http.StatusCreated, f, persistence)
}

// StatsHandler returns form and submission counts per status.
func (h *FormHandler) StatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.forms.Stats())
}

type invitationRequest struct {
	Emails []string `json:"emails" binding:"required,min=1"`
}

type invitationResponse struct {
	Queued   []string `json:"queued"`
	Rejected []string `json:"rejected,omitempty"`
}

// SendInvitationsHandler godoc
// @Summary Email the public link of an approved form
// @Tags forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param request body invitationRequest true "Recipients"
// @Success 202 {object} invitationResponse
// @Failure 403 {object} types.ErrorResponse
// @Router /forms/{id}/invitations [post]
// @Security BearerAuth
func (h *FormHandler) SendInvitationsHandler(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req invitationRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(req.Emails) > maxInvitations {
		abort(c, apperrors.ValidationFailed(fmt.Sprintf("At most %d invitations per request", maxInvitations), "emails"))
		return
	}

	f, err := h.forms.GetForm(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	if !canManage(actor, f) {
		abort(c, apperrors.Forbidden("Only the form owner or an admin can send invitations", f.ID))
		return
	}
	if f.Status != types.FormStatusApproved {
		abort(c, apperrors.FormUnavailable(f.Slug))
		return
	}
	if h.email == nil || h.jobs == nil {
		abort(c, apperrors.ExternalService("email", fmt.Errorf("email delivery is not configured")))
		return
	}

	resp := invitationResponse{Queued: []string{}}
	seen := make(map[string]bool, len(req.Emails))
	for _, raw := range req.Emails {
		email := strings.ToLower(strings.TrimSpace(raw))
		if !strings.Contains(email, "@") || seen[email] {
			resp.Rejected = append(resp.Rejected, raw)
			continue
		}
		seen[email] = true

		inv := types.FormInvitation{Email: email, FormSlug: f.Slug, FormTitle: f.Title}
		queued := h.jobs.Go("form invitation", func(ctx context.Context) error {
			return h.email.SendFormInvitation(ctx, inv)
		})
		if !queued {
			resp.Rejected = append(resp.Rejected, raw)
			continue
		}
		resp.Queued = append(resp.Queued, email)
	}

	logger.GetLogger().Infow("Queued form invitations", "formID", f.ID, "queued", len(resp.Queued), "rejected", len(resp.Rejected))
	c.JSON(http.StatusAccepted, resp)
}

// ExportDefinitionHandler godoc
// @Summary Download a form as a YAML template
// @Tags forms
// @Produce application/yaml
// @Param id path string true "Form ID"
// @Success 200 {string} string "YAML definition"
// @Router /forms/{id}/definition [get]
// @Security BearerAuth
func (h *FormHandler) ExportDefinitionHandler(c *gin.Context) {
	f, err := h.forms.GetForm(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	data, err := services.ExportDefinition(f)
	if err != nil {
		abort(c, apperrors.Wrap(err, apperrors.ServerError, "Failed to export form definition"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Slug+".yaml"))
	c.Data(http.StatusOK, "application/yaml", data)
}

// ImportFormHandler godoc
// @Summary Create a draft form from a YAML or JSON template
// @Tags forms
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Definition file"
// @Success 201 {object} types.MutationResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 415 {object} types.ErrorResponse
// @Router /forms/import [post]
// @Security BearerAuth
func (h *FormHandler) ImportFormHandler(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		abort(c, apperrors.ValidationFailed("A definition file is required", err.Error()))
		return
	}
	file, err := header.Open()
	if err != nil {
		abort(c, apperrors.ValidationFailed("Could not read the uploaded file", err.Error()))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxDefinitionSize+1))
	if err != nil {
		abort(c, apperrors.ValidationFailed("Could not read the uploaded file", err.Error()))
		return
	}

	mtype := mimetype.Detect(data)
	isJSON := mtype.Is("application/json")
	if !isJSON && !strings.HasPrefix(mtype.String(), "text/") {
		abort(c, &apperrors.AppError{
			Type:       apperrors.ValidationError,
			Message:    "Definition must be a YAML or JSON text file",
			Detail:     mtype.String(),
			HTTPStatus: http.StatusUnsupportedMediaType,
		})
		return
	}

	input, err := services.ParseDefinition(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), isJSON)
	if err != nil {
		abort(c, err)
		return
	}
	f, persistence, err := h.forms.CreateForm(c.Request.Context(), actor, input)
	if err != nil {
		abort(c, err)
		return
	}
	respondMutation(c, http.StatusCreated, f, persistence)
}

// ExportSubmissionsHandler godoc
// @Summary Export a form's submissions as CSV
// @Description Uploads the CSV to object storage and returns a link valid for 15 minutes.
// @Tags forms
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} services.ExportResult
// @Failure 403 {object} types.ErrorResponse
// @Failure 502 {object} types.ErrorResponse
// @Router /forms/{id}/export [post]
// @Security BearerAuth
func (h *FormHandler) ExportSubmissionsHandler(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	f, err := h.forms.GetForm(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	if !canManage(actor, f) {
		abort(c, apperrors.Forbidden("Only the form owner or an admin can export submissions", f.ID))
		return
	}
	if h.exporter == nil {
		abort(c, apperrors.ExternalService("storage", services.ErrExportDisabled))
		return
	}

	result, err := h.exporter.ExportSubmissions(c.Request.Context(), f, h.submissions.SubmissionsForForm(f.ID))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
