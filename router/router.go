package router

import (
	"time"

	"github.com/NomadCrew/formflow-backend/config"
	"github.com/NomadCrew/formflow-backend/handlers"
	"github.com/NomadCrew/formflow-backend/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies holds everything the routes need.
type Dependencies struct {
	Config            *config.Config
	JWTValidator      middleware.Validator
	Roles             middleware.RoleResolver
	RateLimiter       middleware.Limiter
	FormHandler       *handlers.FormHandler
	SubmissionHandler *handlers.SubmissionHandler
	PublicHandler     *handlers.PublicFormHandler
	AdminHandler      *handlers.AdminHandler
	HealthHandler     *handlers.HealthHandler
	EventStream       *handlers.EventStreamHandler
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))
	r.Use(middleware.SecurityHeadersMiddleware(deps.Config))

	r.GET("/health", deps.HealthHandler.DetailedHealthHandler)
	r.GET("/health/live", deps.HealthHandler.LivenessHandler)
	r.GET("/health/ready", deps.HealthHandler.ReadinessHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if !deps.Config.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	limits := deps.Config.RateLimit
	window := time.Duration(limits.WindowSeconds) * time.Second

	// Public respondent flow.
	public := r.Group("/form/:slug")
	{
		public.GET("", deps.PublicHandler.GetPublicFormHandler)
		public.POST("/session", deps.PublicHandler.StartSessionHandler)
		public.GET("/draft", deps.PublicHandler.GetDraftHandler)
		public.PUT("/draft",
			middleware.RateLimit(deps.RateLimiter, "autosave", limits.AutosavesPerWindow, window),
			deps.PublicHandler.SaveDraftHandler)
		public.POST("/steps/:step/validate", deps.PublicHandler.ValidateStepHandler)
		public.POST("/submissions",
			middleware.RateLimit(deps.RateLimiter, "submit", limits.SubmissionsPerWindow, window),
			deps.PublicHandler.SubmitHandler)
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.JWTValidator, deps.Roles))
	{
		v1.GET("/me", deps.AdminHandler.MeHandler)
		v1.GET("/stats", deps.FormHandler.StatsHandler)

		formRoutes := v1.Group("/forms")
		{
			formRoutes.GET("", deps.FormHandler.ListFormsHandler)
			formRoutes.POST("", deps.FormHandler.CreateFormHandler)
			formRoutes.POST("/import", deps.FormHandler.ImportFormHandler)
			formRoutes.GET("/:id", deps.FormHandler.GetFormHandler)
			formRoutes.PUT("/:id", deps.FormHandler.UpdateFormHandler)
			formRoutes.PATCH("/:id/status", deps.FormHandler.UpdateFormStatusHandler)
			formRoutes.POST("/:id/clone", deps.FormHandler.CloneFormHandler)
			formRoutes.GET("/:id/audit", deps.SubmissionHandler.FormAuditHandler)
			formRoutes.POST("/:id/invitations", deps.FormHandler.SendInvitationsHandler)
			formRoutes.GET("/:id/definition", deps.FormHandler.ExportDefinitionHandler)
			formRoutes.POST("/:id/export", deps.FormHandler.ExportSubmissionsHandler)
		}

		submissionRoutes := v1.Group("/submissions")
		{
			submissionRoutes.GET("", deps.SubmissionHandler.ListSubmissionsHandler)
			submissionRoutes.GET("/:id", deps.SubmissionHandler.GetSubmissionHandler)
			submissionRoutes.GET("/:id/audit", deps.SubmissionHandler.SubmissionAuditHandler)
			submissionRoutes.PATCH("/:id/status", middleware.RequireAdmin(), deps.SubmissionHandler.UpdateSubmissionStatusHandler)
		}

		admin := v1.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/audit-logs", deps.AdminHandler.AuditLogHandler)
			admin.GET("/stats/report", deps.AdminHandler.ReportStatsHandler)
			admin.GET("/stats/top-forms", deps.AdminHandler.TopFormsHandler)
			admin.GET("/events/ws", deps.EventStream.HandleWebSocket)

			userRoutes := admin.Group("/users")
			{
				userRoutes.GET("", deps.AdminHandler.ListUsersHandler)
				userRoutes.POST("/invite", deps.AdminHandler.InviteUserHandler)
				userRoutes.PATCH("/:id/role", deps.AdminHandler.UpdateUserRoleHandler)
				userRoutes.DELETE("/:id", deps.AdminHandler.DeleteUserHandler)
			}
		}
	}

	return r
}
