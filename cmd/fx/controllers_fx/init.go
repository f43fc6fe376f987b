package controllers_fx

import (
	"go.uber.org/fx"

	"schoolpay/internal/api/controllers"
	"schoolpay/internal/config"
	"schoolpay/internal/services"
)

var Module = fx.Options(
	fx.Provide(provideAccountController),
	fx.Provide(provideAuthController),
	fx.Provide(controllers.NewParentController),
	fx.Provide(controllers.NewPaymentController),
	fx.Provide(controllers.NewStaffController),
	fx.Provide(controllers.NewCatalogController),
	fx.Provide(controllers.NewDashboardController))

func provideAccountController(accounts services.AccountService, cfg *config.Config) *controllers.AccountController {
	return controllers.NewAccountController(accounts, cfg.AppBaseURL)
}

func provideAuthController(auth services.AuthService, cfg *config.Config) *controllers.AuthController {
	return controllers.NewAuthController(auth, cfg.CookieSecure)
}
