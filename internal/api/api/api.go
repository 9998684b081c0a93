package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"internhub/cmd/middleware"
	"internhub/internal/auth"
	"internhub/internal/service"
)

type Routers struct {
	Service service.Service
	Guard   *auth.Guard
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())

	apiGroup := app.Group("/api")

	apiGroup.GET("/health", r.Service.Health)
	apiGroup.POST("/register-internship", r.Service.RegisterInternship)
	apiGroup.POST("/create-payment", r.Service.CreatePayment)
	apiGroup.POST("/verify-payment", r.Service.VerifyPayment)
	apiGroup.POST("/contact", r.Service.Contact)

	adminGroup := apiGroup.Group("/admin")
	adminGroup.POST("/login", r.Service.AdminLogin)

	protected := adminGroup.Group("")
	protected.Use(r.Guard.Middleware())
	protected.POST("/logout", r.Service.AdminLogout)
	protected.GET("/profile", r.Service.AdminProfile)
	protected.GET("/dashboard", r.Service.AdminDashboard)
	protected.GET("/registrations", r.Service.AdminRegistrations)
	protected.GET("/registrations/export", r.Service.AdminExportRegistrations)
	protected.PUT("/registrations/:id", r.Service.AdminUpdateRegistration)
	protected.GET("/logs", r.Service.AdminLogs)

	return app
}
