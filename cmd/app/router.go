package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"schoolpay/internal/api/controllers"
	"schoolpay/internal/config"
	"schoolpay/pkg/middleware"
	"schoolpay/pkg/utils"
)

type RouterParams struct {
	fx.In

	Config *config.Config
	Log    *zap.Logger
	Issuer *utils.TokenIssuer

	Accounts  *controllers.AccountController
	Auth      *controllers.AuthController
	Parents   *controllers.ParentController
	Payments  *controllers.PaymentController
	Staff     *controllers.StaffController
	Catalog   *controllers.CatalogController
	Dashboard *controllers.DashboardController
}

func ProvideRouter(p RouterParams) *gin.Engine {
	if p.Config.Log.Format != "console" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(p.Log.Named("http")))
	r.Use(middleware.CORSMiddleware(p.Config.AppBaseURL))

	RegisterRoutes(r, p)

	return r
}

func RegisterRoutes(r *gin.Engine, p RouterParams) {
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.POST("/webhooks/stripe", p.Payments.HandleWebhook)

	accounts := r.Group("/accounts")
	accounts.POST("", p.Accounts.Provision)
	accounts.GET("/onboarding/return", p.Accounts.OnboardingReturn)
	accounts.GET("/onboarding/refresh", p.Accounts.OnboardingRefresh)

	auth := r.Group("/auth")
	auth.POST("/parent/login", p.Auth.LoginParent)
	auth.POST("/parent/logout", p.Auth.LogoutParent)
	auth.POST("/staff/login", p.Auth.LoginStaff)
	auth.POST("/staff/logout", p.Auth.LogoutStaff)

	r.POST("/parents/signup", p.Parents.Signup)

	me := r.Group("/parents/me",
		middleware.JWTAuthMiddleware(p.Issuer, utils.RoleParent),
		middleware.RoleMiddleware(utils.RoleParent))
	me.GET("/overview", p.Parents.Overview)
	me.POST("/setup-intent", p.Payments.CreateSetupIntent)
	me.POST("/subscriptions", p.Payments.Subscribe)
	me.POST("/portal", p.Payments.Portal)
	me.POST("/students", p.Parents.AddStudent)
	me.DELETE("/students/:studentId", p.Parents.RemoveStudent)

	staff := r.Group("/staff",
		middleware.JWTAuthMiddleware(p.Issuer, utils.RoleStaff),
		middleware.RoleMiddleware(utils.RoleStaff))
	staff.GET("/account", p.Accounts.GetAccount)
	staff.GET("/dashboard", p.Dashboard.GetDashboard)
	staff.GET("/reconciliation", p.Dashboard.Reconcile)

	staff.GET("/parents", p.Staff.ListParents)
	staff.POST("/parents", p.Staff.CreateParent)
	staff.GET("/parents/:parentId/overview", p.Staff.ParentOverview)
	staff.POST("/parents/:parentId/purchases", p.Staff.AddPurchases)
	staff.POST("/parents/:parentId/items", p.Staff.AddItem)
	staff.POST("/parents/:parentId/invoices", p.Staff.CreateInvoice)

	staff.GET("/catalog", p.Catalog.GetCatalog)
	staff.POST("/catalog/tuition", p.Catalog.CreateTuition)
	staff.POST("/catalog/products", p.Catalog.CreateProduct)
	staff.POST("/catalog/populate", p.Catalog.Populate)
}
