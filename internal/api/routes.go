package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/api/handlers"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/middleware"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
)

// Dependencies is everything the route table needs. Images may be nil when
// no storage bucket is configured; Redis may be nil when the API runs
// without it.
type Dependencies struct {
	Users      handlers.UserAPI
	Roles      handlers.RoleAPI
	Counselors handlers.CounselorAPI
	Bookings   handlers.BookingAPI
	Images     handlers.ImageAPI

	Database handlers.HealthChecker
	Redis    handlers.HealthChecker

	Auth       *middleware.AuthMiddleware
	OTPLimiter *middleware.RateLimiter

	Cookies        handlers.CookieConfig
	MaxUploadBytes int64
	Version        string
	Logger         *logging.StandardLogger
}

// SetupRoutes registers the probes and the /api/v1 surface on router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	health := handlers.NewHealthHandler(deps.Database, deps.Redis, deps.Version)
	probes := router.Group("/")
	probes.Use(middleware.TagProbe())
	{
		probes.GET("/health", health.HealthCheck)
		probes.HEAD("/health", health.HealthCheck)
		probes.GET("/ready", health.ReadinessCheck)
		probes.GET("/live", health.LivenessCheck)
	}

	auth := deps.Auth.RequireAuth()
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	otpLimit := func(c *gin.Context) { c.Next() }
	if deps.OTPLimiter != nil {
		otpLimit = deps.OTPLimiter.Middleware()
	}

	v1 := router.Group("/api/v1")

	userHandler := handlers.NewUserHandler(deps.Users, deps.Cookies, deps.Logger)
	user := v1.Group("/user")
	{
		user.POST("/signup", otpLimit, userHandler.SignUp)
		user.POST("/signin", userHandler.SignIn)
		user.POST("/refresh-token", userHandler.RefreshToken)
		user.POST("/logout", auth, userHandler.Logout)
		user.GET("/me", auth, userHandler.Me)
		user.GET("/loggedin-user-details", auth, userHandler.Me)
		user.GET("/all-users", auth, userHandler.List)
		user.GET("/:id", auth, userHandler.GetByID)
		user.PUT("/profile", auth, userHandler.UpdateProfile)
		user.POST("/verify-email", otpLimit, userHandler.VerifyEmail)
		user.POST("/resend-email-otp", otpLimit, userHandler.ResendEmailOTP)
		user.POST("/forgot-password/request-otp", otpLimit, userHandler.RequestPasswordReset)
		user.POST("/forgot-password/verify-otp", otpLimit, userHandler.VerifyPasswordResetOTP)
		user.POST("/reset-password", otpLimit, userHandler.ResetPassword)
		user.POST("/google-auth", userHandler.GoogleAuth)
	}

	roleHandler := handlers.NewRoleHandler(deps.Roles, deps.Logger)
	role := v1.Group("/role")
	{
		role.POST("", auth, adminOnly, roleHandler.Create)
		role.GET("", roleHandler.List)
		role.GET("/:id", roleHandler.GetByID)
		role.PUT("/:id", auth, adminOnly, roleHandler.Update)
		role.DELETE("/:id", auth, adminOnly, roleHandler.Delete)
	}

	counselorHandler := handlers.NewCounselorHandler(deps.Counselors, deps.Logger)
	counselor := v1.Group("/counselor")
	{
		counselor.POST("", auth, counselorHandler.Create)
		counselor.GET("", counselorHandler.List)
		counselor.GET("/:id", counselorHandler.GetByID)
		counselor.PUT("/:id", auth, counselorHandler.Update)
		counselor.DELETE("/:id", auth, counselorHandler.Delete)
	}

	bookingHandler := handlers.NewBookingHandler(deps.Bookings, deps.Logger)
	booking := v1.Group("/booking", auth)
	{
		booking.POST("", bookingHandler.Create)
		booking.GET("", bookingHandler.List)
		booking.GET("/upcoming", bookingHandler.Upcoming)
		booking.GET("/:id", bookingHandler.GetByID)
		booking.PUT("/:id", bookingHandler.Update)
		booking.DELETE("/:id", bookingHandler.Delete)
		booking.PUT("/:id/confirm", bookingHandler.Confirm)
		booking.PUT("/:id/complete", bookingHandler.Complete)
		booking.PUT("/:id/cancel", bookingHandler.Cancel)
	}

	image := v1.Group("/image", auth)
	if deps.Images != nil {
		imageHandler := handlers.NewImageHandler(deps.Images, deps.MaxUploadBytes, deps.Logger)
		image.POST("/:module/upload", imageHandler.Upload)
		image.DELETE("/:module", imageHandler.Delete)
	} else {
		image.POST("/:module/upload", storageUnavailable)
		image.DELETE("/:module", storageUnavailable)
	}
}

func storageUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "File storage is not configured"})
}
