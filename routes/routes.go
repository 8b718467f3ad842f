package routes

import (
	"time"

	"bookingdesk-backend/config"
	"bookingdesk-backend/controllers"
	"bookingdesk-backend/metrics"
	"bookingdesk-backend/middleware"
	"bookingdesk-backend/models"
	"bookingdesk-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRouter(deps *controllers.Deps, limiter middleware.Limiter, corsOrigins, trustedProxies []string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// rate limits key on ClientIP, so forwarded headers count only from known proxies
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		logger.Error("invalid trusted proxies, trusting none", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", config.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", config.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(config.PerformanceLogger(logger))
	r.Use(metrics.Middleware())

	health := controllers.HealthController{Deps: deps}
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	authController := controllers.AuthController{Deps: deps}
	auth := r.Group("/auth")
	{
		auth.POST("/register", middleware.RateLimit(limiter, "auth", logger), authController.Register)
		auth.POST("/login", middleware.RateLimit(limiter, "auth", logger), authController.Login)

		auth.Use(utils.AuthMiddleware(deps.JWTSecret))
		auth.GET("/me", authController.Me)
		auth.PUT("/profile", authController.UpdateProfile)
		auth.PUT("/password", authController.ChangePassword)
	}

	billingController := controllers.BillingController{Deps: deps}
	r.POST("/webhooks/stripe", billingController.StripeWebhook)

	publicController := controllers.PublicController{Deps: deps}
	public := r.Group("/public")
	public.Use(middleware.RateLimit(limiter, "public", logger))
	{
		public.GET("/workspaces/:slug", publicController.GetWorkspacePage)
		public.POST("/workspaces/:slug/appointments", publicController.BookAppointment)
		public.GET("/appointments/:id/reschedule", publicController.GetReschedule)
		public.POST("/appointments/:id/reschedule/confirm", publicController.ConfirmReschedule)
		public.POST("/appointments/:id/reschedule/reject", publicController.RejectReschedule)
	}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware(deps.JWTSecret))
	{
		workspaceController := controllers.WorkspaceController{Deps: deps}
		invitationController := controllers.InvitationController{Deps: deps}
		joinRequestController := controllers.JoinRequestController{Deps: deps}

		api.GET("/plans", billingController.ListPlans)
		api.POST("/workspaces", workspaceController.CreateWorkspace)
		api.GET("/workspaces", workspaceController.ListWorkspaces)
		api.POST("/invitations/accept", invitationController.AcceptInvitation)
		api.POST("/join-requests", joinRequestController.CreateJoinRequest)

		anyRole := middleware.RequireWorkspaceRole(deps.Store.Members, logger, models.RoleOwner, models.RoleStaff)
		ownerOnly := middleware.RequireWorkspaceRole(deps.Store.Members, logger, models.RoleOwner)

		ws := api.Group("/workspaces/:workspaceId")
		{
			ws.GET("", anyRole, workspaceController.GetWorkspace)
			ws.PUT("", ownerOnly, workspaceController.UpdateWorkspace)
			ws.DELETE("", ownerOnly, workspaceController.DeleteWorkspace)

			ws.GET("/members", anyRole, workspaceController.ListMembers)
			ws.PUT("/members/:userId", ownerOnly, workspaceController.UpdateMemberRole)
			ws.DELETE("/members/:userId", ownerOnly, workspaceController.RemoveMember)

			dashboardController := controllers.DashboardController{Deps: deps}
			ws.GET("/dashboard", anyRole, dashboardController.GetDashboardOverview)

			//Reports routes
			reportController := controllers.ReportController{Deps: deps}
			ws.GET("/reports", ownerOnly, reportController.GetReportAnalytics)

			// Team routes
			teamController := controllers.TeamController{Deps: deps}
			team := ws.Group("/team")
			{
				team.GET("", anyRole, teamController.ListTeamMembers)
				team.POST("", ownerOnly, teamController.CreateTeamMember)
				team.GET("/:id", anyRole, teamController.GetTeamMember)
				team.PUT("/:id", ownerOnly, teamController.UpdateTeamMember)
				team.DELETE("/:id", ownerOnly, teamController.DeleteTeamMember)
			}

			// Service routes
			serviceController := controllers.ServiceController{Deps: deps}
			services := ws.Group("/services")
			{
				services.GET("", anyRole, serviceController.GetServices)
				services.POST("", ownerOnly, serviceController.CreateService)
				services.GET("/:id", anyRole, serviceController.GetService)
				services.PUT("/:id", ownerOnly, serviceController.UpdateService)
				services.DELETE("/:id", ownerOnly, serviceController.DeleteService)
				services.POST("/:id/variants", ownerOnly, serviceController.CreateVariant)
				services.PUT("/:id/variants/:variantId", ownerOnly, serviceController.UpdateVariant)
				services.DELETE("/:id/variants/:variantId", ownerOnly, serviceController.DeleteVariant)
			}

			// Appointment routes
			appointmentController := controllers.AppointmentController{Deps: deps}
			appointments := ws.Group("/appointments")
			{
				appointments.GET("", anyRole, appointmentController.ListAppointments)
				appointments.POST("", anyRole, appointmentController.CreateAppointment)
				appointments.GET("/:id", anyRole, appointmentController.GetAppointment)
				appointments.PUT("/:id", anyRole, appointmentController.UpdateAppointment)
				appointments.DELETE("/:id", ownerOnly, appointmentController.DeleteAppointment)
				appointments.POST("/:id/confirm", anyRole, appointmentController.ConfirmAppointment)
				appointments.POST("/:id/cancel", anyRole, appointmentController.CancelAppointment)
				appointments.POST("/:id/reschedule", anyRole, appointmentController.ProposeReschedule)
				appointments.POST("/:id/reschedule/complete", anyRole, appointmentController.CompleteReschedule)
			}

			ws.GET("/invitations", ownerOnly, invitationController.ListInvitations)
			ws.POST("/invitations", ownerOnly, invitationController.CreateInvitation)
			ws.DELETE("/invitations/:id", ownerOnly, invitationController.RevokeInvitation)

			ws.GET("/join-requests", ownerOnly, joinRequestController.ListJoinRequests)
			ws.POST("/join-requests/:id/approve", ownerOnly, joinRequestController.ApproveJoinRequest)
			ws.POST("/join-requests/:id/reject", ownerOnly, joinRequestController.RejectJoinRequest)

			// Billing routes
			ws.GET("/subscription", anyRole, billingController.GetSubscription)
			ws.POST("/subscription/checkout", ownerOnly, billingController.Checkout)
			ws.POST("/subscription/cancel", ownerOnly, billingController.CancelSubscription)
		}
	}

	return r
}
