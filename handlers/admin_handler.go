package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/internal/audit"
	"github.com/NomadCrew/formflow-backend/internal/store/reports"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/gin-gonic/gin"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
	defaultTopForms   = 10
)

var errReportsDisabled = errors.New("reporting database is not configured")

// Reports is implemented by *reports.Store.
type Reports interface {
	Stats(ctx context.Context) (types.FormStats, error)
	TopForms(ctx context.Context, limit int) ([]reports.FormActivity, error)
}

// AdminHandler serves the admin dashboard: audit log, reports and users.
type AdminHandler struct {
	forms   FormService
	users   UserAdmin
	reports Reports
}

func NewAdminHandler(forms FormService, users UserAdmin, rep Reports) *AdminHandler {
	return &AdminHandler{forms: forms, users: users, reports: rep}
}

func queryLimit(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// AuditLogHandler godoc
// @Summary Recent audit entries across all forms and submissions
// @Tags admin
// @Produce json
// @Param limit query int false "Maximum entries (default 100)"
// @Success 200 {array} types.AuditLogView
// @Router /audit-logs [get]
// @Security BearerAuth
func (h *AdminHandler) AuditLogHandler(c *gin.Context) {
	c.JSON(http.StatusOK, audit.Views(h.forms.RecentAudit(queryLimit(c, defaultAuditLimit, maxAuditLimit))))
}

// ReportStatsHandler godoc
// @Summary Status counts computed by the database
// @Description Falls back to in-memory counts when reporting is not configured.
// @Tags admin
// @Produce json
// @Success 200 {object} types.FormStats
// @Router /stats/report [get]
// @Security BearerAuth
func (h *AdminHandler) ReportStatsHandler(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusOK, h.forms.Stats())
		return
	}
	stats, err := h.reports.Stats(c.Request.Context())
	if err != nil {
		abort(c, apperrors.NewDatabaseError(err))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TopFormsHandler godoc
// @Summary Forms with the most submissions
// @Tags admin
// @Produce json
// @Param limit query int false "Maximum forms (default 10)"
// @Success 200 {array} reports.FormActivity
// @Failure 502 {object} types.ErrorResponse
// @Router /stats/top-forms [get]
// @Security BearerAuth
func (h *AdminHandler) TopFormsHandler(c *gin.Context) {
	if h.reports == nil {
		abort(c, apperrors.ExternalService("reports", errReportsDisabled))
		return
	}
	top, err := h.reports.TopForms(c.Request.Context(), queryLimit(c, defaultTopForms, 100))
	if err != nil {
		abort(c, apperrors.NewDatabaseError(err))
		return
	}
	c.JSON(http.StatusOK, top)
}

// MeHandler returns the caller with their resolved role.
func (h *AdminHandler) MeHandler(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, actor)
}

// ListUsersHandler godoc
// @Summary List staff accounts
// @Tags users
// @Produce json
// @Success 200 {array} types.ManagedUser
// @Router /users [get]
// @Security BearerAuth
func (h *AdminHandler) ListUsersHandler(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

type inviteUserRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role"`
}

// InviteUserHandler godoc
// @Summary Invite a staff member or admin
// @Tags users
// @Accept json
// @Produce json
// @Param request body inviteUserRequest true "Invitee"
// @Success 201 {object} types.ManagedUser
// @Failure 409 {object} types.ErrorResponse "Already registered"
// @Router /users/invite [post]
// @Security BearerAuth
func (h *AdminHandler) InviteUserHandler(c *gin.Context) {
	var req inviteUserRequest
	if !bindJSON(c, &req) {
		return
	}
	role := types.UserRoleStaff
	if req.Role != "" {
		role = types.UserRole(strings.ToLower(req.Role))
	}
	user, err := h.users.InviteUser(c.Request.Context(), req.Email, role)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateUserRoleHandler godoc
// @Summary Change a user's role
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body roleRequest true "New role"
// @Success 200 {object} types.ManagedUser
// @Router /users/{id}/role [patch]
// @Security BearerAuth
func (h *AdminHandler) UpdateUserRoleHandler(c *gin.Context) {
	var req roleRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.UpdateRole(c.Request.Context(), c.Param("id"), types.UserRole(strings.ToLower(req.Role)))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUserHandler godoc
// @Summary Remove a user account
// @Tags users
// @Param id path string true "User ID"
// @Success 204
// @Router /users/{id} [delete]
// @Security BearerAuth
func (h *AdminHandler) DeleteUserHandler(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.users.DeleteUser(c.Request.Context(), actor, c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	noContent(c)
}
