package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tutoria-app/tutoria-api/internal/middleware"
	"github.com/tutoria-app/tutoria-api/internal/models"
	"github.com/tutoria-app/tutoria-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Professors   *ProfessorHandler
	Subjects     *SubjectHandler
	Availability *AvailabilityHandler
	Schedule     *ScheduleHandler
	Tutorships   *TutorshipHandler
	Payments     *PaymentHandler
	Reviews      *ReviewHandler
	Media        *MediaHandler
	Metrics      *MetricsHandler
}

// RegisterRoutes attaches the API surface under the prefix.
func RegisterRoutes(r *gin.Engine, prefix string, authService *service.AuthService, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	// Slot listings are the marketplace storefront; prospective students
	// browse them before they have an account. The email check serves the
	// registration form the same way.
	api.GET("/teachers/:teacher_id/available-slots", h.Availability.AvailableSlots)
	api.GET("/users/check-email/:email", h.Users.CheckEmail)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))
	{
		authed.POST("/auth/logout", h.Auth.Logout)
		authed.GET("/auth/me", h.Auth.Me)
		authed.POST("/auth/change-password", h.Auth.ChangePassword)

		users := authed.Group("/users")
		{
			users.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleModerator), h.Users.List)
			users.GET("/:id", middleware.RBAC("ADMIN", "MOD", "SELF"), h.Users.Get)
			users.PUT("/:id", middleware.RBAC("ADMIN", "SELF"), h.Users.Update)
			users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.Users.Deactivate)
		}

		professors := authed.Group("/professors")
		{
			professors.GET("", h.Professors.List)
			professors.GET("/:id", h.Professors.Get)
			professors.GET("/:id/reviews", h.Professors.ListReviews)
			professors.PUT("/:id/profile", middleware.RBAC("ADMIN", "SELF"), h.Professors.UpsertProfile)
			professors.PUT("/:id/subjects/:subject_id", middleware.RBAC("ADMIN", "SELF"), h.Professors.AttachSubject)
			professors.DELETE("/:id/subjects/:subject_id", middleware.RBAC("ADMIN", "SELF"), h.Professors.DetachSubject)
		}

		subjects := authed.Group("/subjects")
		{
			subjects.GET("", h.Subjects.List)
			subjects.GET("/:id", h.Subjects.Get)
			subjects.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleModerator), h.Subjects.Create)
			subjects.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleModerator), h.Subjects.Update)
			subjects.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.Subjects.Delete)
		}

		teachers := authed.Group("/teachers/:teacher_id")
		{
			teachers.GET("/availability", h.Availability.List)
			teachers.GET("/schedule", h.Schedule.List)
			teachers.GET("/media", h.Media.List)

			owned := teachers.Group("")
			owned.Use(middleware.OwnTeacherResource())
			{
				owned.POST("/availability", h.Availability.Create)
				owned.PUT("/availability/:id", h.Availability.Update)
				owned.DELETE("/availability/:id", h.Availability.Delete)

				owned.POST("/schedule", h.Schedule.Create)
				owned.PUT("/schedule/:id", h.Schedule.Update)
				owned.DELETE("/schedule/:id", h.Schedule.Delete)
				owned.GET("/schedule/export", h.Schedule.Export)

				owned.POST("/media", h.Media.Upload)
				owned.DELETE("/media/:id", h.Media.Delete)
			}
		}

		tutorships := authed.Group("/tutorships")
		{
			tutorships.POST("", h.Tutorships.Create)
			tutorships.GET("", h.Tutorships.List)
			tutorships.GET("/:id", h.Tutorships.Get)
			tutorships.PATCH("/:id/status", h.Tutorships.UpdateStatus)
			tutorships.GET("/:id/payments", h.Payments.ListByTutorship)
		}

		authed.POST("/payments", h.Payments.Create)
		authed.POST("/reviews", h.Reviews.Create)
		authed.GET("/media/:id/signed-url", h.Media.SignedURL)
	}

	// Download validates its own signed token, so it stays outside the JWT
	// group: links must work from plain <a> tags.
	api.GET("/media/download", h.Media.Download)
}
