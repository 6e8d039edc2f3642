package handlers

import (
	"net/http"
	"strings"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/internal/audit"
	formmodel "github.com/NomadCrew/formflow-backend/models/form"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/gin-gonic/gin"
)

type SubmissionHandler struct {
	forms       FormService
	submissions SubmissionService
}

func NewSubmissionHandler(forms FormService, submissions SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{forms: forms, submissions: submissions}
}

// ListSubmissionsHandler godoc
// @Summary List submissions
// @Description Filters by form, status and a case-insensitive match on any value. Newest first.
// @Tags submissions
// @Produce json
// @Param formId query string false "Form ID"
// @Param status query string false "Submission status"
// @Param query query string false "Search text"
// @Param page query int false "Page (1-based)"
// @Param perPage query int false "Page size"
// @Success 200 {object} types.SubmissionPage
// @Router /submissions [get]
// @Security BearerAuth
func (h *SubmissionHandler) ListSubmissionsHandler(c *gin.Context) {
	var filter types.SubmissionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		abort(c, apperrors.ValidationFailed("Invalid query parameters", err.Error()))
		return
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		abort(c, apperrors.ValidationFailed("Invalid submission status", string(filter.Status)))
		return
	}
	c.JSON(http.StatusOK, h.submissions.ListSubmissions(filter))
}

// GetSubmissionHandler godoc
// @Summary Get a submission
// @Tags submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} types.Submission
// @Failure 404 {object} types.ErrorResponse
// @Router /submissions/{id} [get]
// @Security BearerAuth
func (h *SubmissionHandler) GetSubmissionHandler(c *gin.Context) {
	sub, err := h.submissions.GetSubmission(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// UpdateSubmissionStatusHandler godoc
// @Summary Approve or reject a pending submission
// @Tags submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param request body statusRequest true "Decision"
// @Success 200 {object} types.MutationResponse
// @Failure 403 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse
// @Router /submissions/{id}/status [patch]
// @Security BearerAuth
func (h *SubmissionHandler) UpdateSubmissionStatusHandler(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	next := types.SubmissionStatus(strings.ToLower(req.Status))
	if !next.IsValid() {
		abort(c, apperrors.ValidationFailed("Invalid submission status", req.Status))
		return
	}

	current, err := h.submissions.GetSubmission(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	if err := formmodel.CheckReview(actor, current, next); err != nil {
		abort(c, err)
		return
	}

	sub, persistence, err := h.submissions.UpdateSubmissionStatus(c.Request.Context(), actor, current.ID, next)
	if err != nil {
		abort(c, err)
		return
	}
	respondMutation(c, http.StatusOK, sub, persistence)
}

// FormAuditHandler returns the history of one form, oldest first.
func (h *SubmissionHandler) FormAuditHandler(c *gin.Context) {
	f, err := h.forms.GetForm(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, audit.Views(h.forms.AuditTrail(f.ID)))
}

// SubmissionAuditHandler returns the history of one submission, oldest first.
func (h *SubmissionHandler) SubmissionAuditHandler(c *gin.Context) {
	sub, err := h.submissions.GetSubmission(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, audit.Views(h.forms.AuditTrail(sub.ID)))
}
