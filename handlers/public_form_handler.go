package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/internal/publicflow"
	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/gin-gonic/gin"
)

// SessionHeader carries the respondent session token.
const SessionHeader = "X-Form-Session"

// PublicForm is what a respondent sees of an approved form.
type PublicForm struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Slug         string            `json:"slug"`
	Fields       []types.FormField `json:"fields"`
	TotalSteps   int               `json:"totalSteps"`
	StepsPerPage int               `json:"stepsPerPage"`
}

type sessionResponse struct {
	Token     string     `json:"token"`
	StartTime time.Time  `json:"startTime"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type valuesRequest struct {
	Values map[string]interface{} `json:"values"`
}

type draftResponse struct {
	Values    types.FieldValues `json:"values"`
	StartTime time.Time         `json:"startTime"`
	LastSaved time.Time         `json:"lastSaved"`
}

type PublicFormHandler struct {
	forms        FormService
	submissions  SubmissionService
	sessions     Sessions
	autosave     DraftSaver
	drafts       publicflow.DraftStore
	stepsPerPage int
	now          func() time.Time
}

func NewPublicFormHandler(forms FormService, submissions SubmissionService, sessions Sessions, autosave DraftSaver, drafts publicflow.DraftStore, stepsPerPage int) *PublicFormHandler {
	if stepsPerPage <= 0 {
		stepsPerPage = publicflow.DefaultStepsPerPage
	}
	return &PublicFormHandler{
		forms:        forms,
		submissions:  submissions,
		sessions:     sessions,
		autosave:     autosave,
		drafts:       drafts,
		stepsPerPage: stepsPerPage,
		now:          time.Now,
	}
}

// approvedForm resolves a slug to a form that accepts submissions.
func (h *PublicFormHandler) approvedForm(c *gin.Context) (*types.Form, bool) {
	slug := c.Param("slug")
	f, err := h.forms.GetFormBySlug(slug)
	if err != nil {
		abort(c, err)
		return nil, false
	}
	if f.Status != types.FormStatusApproved {
		abort(c, apperrors.FormUnavailable(slug))
		return nil, false
	}
	return f, true
}

func (h *PublicFormHandler) session(c *gin.Context, f *types.Form) (*publicflow.SessionClaims, bool) {
	token := c.GetHeader(SessionHeader)
	if token == "" {
		abort(c, apperrors.Unauthorized("missing_session", "Respondent session required"))
		return nil, false
	}
	claims, err := h.sessions.Verify(token, f.ID)
	if err != nil {
		abort(c, err)
		return nil, false
	}
	return claims, true
}

// GetPublicFormHandler godoc
// @Summary Fetch an approved form by slug
// @Tags public
// @Produce json
// @Param slug path string true "Form slug"
// @Success 200 {object} PublicForm
// @Failure 403 {object} types.ErrorResponse "Form is not approved"
// @Failure 404 {object} types.ErrorResponse
// @Router /form/{slug} [get]
func (h *PublicFormHandler) GetPublicFormHandler(c *gin.Context) {
	f, ok := h.approvedForm(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, PublicForm{
		ID:           f.ID,
		Title:        f.Title,
		Description:  f.Description,
		Slug:         f.Slug,
		Fields:       f.Fields,
		TotalSteps:   publicflow.TotalSteps(len(f.Fields), h.stepsPerPage),
		StepsPerPage: h.stepsPerPage,
	})
}

// StartSessionHandler godoc
// @Summary Start a respondent session
// @Description Records the start time used in the submission metadata.
// @Tags public
// @Produce json
// @Param slug path string true "Form slug"
// @Success 201 {object} sessionResponse
// @Router /form/{slug}/session [post]
func (h *PublicFormHandler) StartSessionHandler(c *gin.Context) {
	f, ok := h.approvedForm(c)
	if !ok {
		return
	}
	token, claims, err := h.sessions.Issue(f.ID)
	if err != nil {
		abort(c, apperrors.Wrap(err, apperrors.ServerError, "Failed to start session"))
		return
	}
	resp := sessionResponse{Token: token, StartTime: claims.StartTime()}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time.UTC()
		resp.ExpiresAt = &exp
	}
	c.JSON(http.StatusCreated, resp)
}

// SaveDraftHandler godoc
// @Summary Autosave in-progress answers
// @Description Writes are debounced; the latest values win.
// @Tags public
// @Accept json
// @Param slug path string true "Form slug"
// @Param X-Form-Session header string true "Respondent session"
// @Param request body valuesRequest true "Current values"
// @Success 202
// @Router /form/{slug}/draft [put]
func (h *PublicFormHandler) SaveDraftHandler(c *gin.Context) {
	f, ok := h.approvedForm(c)
	if !ok {
		return
	}
	claims, ok := h.session(c, f)
	if !ok {
		return
	}
	var req valuesRequest
	if !bindJSON(c, &req) {
		return
	}
	values, _ := publicflow.Sanitize(f, req.Values)
	h.autosave.Save(claims.Key(), values, claims.StartTime())
	c.Status(http.StatusAccepted)
}

// GetDraftHandler godoc
// @Summary Restore in-progress answers
// @Tags public
// @Produce json
// @Param slug path string true "Form slug"
// @Param X-Form-Session header string true "Respondent session"
// @Success 200 {object} draftResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /form/{slug}/draft [get]
func (h *PublicFormHandler) GetDraftHandler(c *gin.Context) {
	f, ok := h.approvedForm(c)
	if !ok {
		return
	}
	claims, ok := h.session(c, f)
	if !ok {
		return
	}
	draft, err := h.loadDraft(c, claims.Key())
	if err != nil {
		if errors.Is(err, publicflow.ErrNoDraft) {
			abort(c, apperrors.NotFound("Draft", f.Slug))
			return
		}
		abort(c, apperrors.Wrap(err, apperrors.ServerError, "Failed to load draft"))
		return
	}
	c.JSON(http.StatusOK, draftResponse{Values: draft.Values, StartTime: draft.StartTime, LastSaved: draft.LastSaved})
}

// loadDraft prefers a write still waiting on the debounce timer.
func (h *PublicFormHandler) loadDraft(c *gin.Context, key publicflow.DraftKey) (*publicflow.Draft, error) {
	if pending, ok := h.autosave.Pending(key); ok {
		return &pending, nil
	}
	return h.drafts.Load(c.Request.Context(), key)
}

type stepResult struct {
	Step       int  `json:"step"`
	TotalSteps int  `json:"totalSteps"`
	Valid      bool `json:"valid"`
}

// ValidateStepHandler godoc
// @Summary Check one step before moving on
// @Tags public
// @Accept json
// @Produce json
// @Param slug path string true "Form slug"
// @Param step path int true "1-based step"
// @Param request body valuesRequest true "Current values"
// @Success 200 {object} stepResult
// @Failure 400 {object} types.ErrorResponse "First invalid field"
// @Router /form/{slug}/steps/{step}/validate [post]
func (h *PublicFormHandler) ValidateStepHandler(c *gin.Context) {
	f, ok := h.approvedForm(c)
	if !ok {
		return
	}
	total := publicflow.TotalSteps(len(f.Fields), h.stepsPerPage)
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil || step < 1 || step > total {
		abort(c, apperrors.ValidationFailed("Invalid step", c.Param("step")))
		return
	}
	var req valuesRequest
	if !bindJSON(c, &req) {
		return
	}
	values, _ := publicflow.Sanitize(f, req.Values)
	if err := publicflow.ValidateStep(f.Fields, values, step, h.stepsPerPage); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, stepResult{Step: step, TotalSteps: total, Valid: true})
}

// SubmitHandler godoc
// @Summary Submit a completed form
// @Description Validates every field, stores a pending submission and clears the draft.
// @Tags public
// @Accept json
// @Produce json
// @Param slug path string true "Form slug"
// @Param X-Form-Session header string true "Respondent session"
// @Param request body valuesRequest true "Final values"
// @Success 201 {object} types.MutationResponse
// @Failure 400 {object} types.ErrorResponse
// @Router /form/{slug}/submissions [post]
func (h *PublicFormHandler) SubmitHandler(c *gin.Context) {
	f, ok := h.approvedForm(c)
	if !ok {
		return
	}
	claims, ok := h.session(c, f)
	if !ok {
		return
	}
	var req valuesRequest
	if !bindJSON(c, &req) {
		return
	}

	key := claims.Key()
	draft := publicflow.Draft{StartTime: claims.StartTime()}
	if saved, err := h.loadDraft(c, key); err == nil {
		draft.LastSaved = saved.LastSaved
	}
	values, _ := publicflow.Sanitize(f, req.Values)

	sub, persistence, err := h.submissions.CreateSubmission(c.Request.Context(), "", f.ID, values, draft.Metadata(h.now().UTC()))
	if err != nil {
		abort(c, err)
		return
	}

	if err := h.autosave.Cancel(c.Request.Context(), key); err != nil {
		logger.GetLogger().Warnw("Gave up waiting for draft autosave", "formID", f.ID, "error", err)
	}
	if err := h.drafts.Delete(c.Request.Context(), key); err != nil && !errors.Is(err, publicflow.ErrNoDraft) {
		logger.GetLogger().Warnw("Failed to clear draft after submit", "formID", f.ID, "error", err)
	}
	respondMutation(c, http.StatusCreated, sub, persistence)
}
