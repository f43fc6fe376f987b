package account_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"schoolpay/internal/config"
	"schoolpay/internal/repositories"
	"schoolpay/internal/services"
	"schoolpay/pkg/utils"
)

var Module = fx.Provide(
	provideAccountRepo, provideStaffRepo, provideTokenIssuer,
	provideAccountService, provideAuthService)

func provideAccountRepo(db *gorm.DB) repositories.AccountRepository {
	return repositories.NewAccountRepository(db)
}

func provideStaffRepo(db *gorm.DB) repositories.StaffRepository {
	return repositories.NewStaffRepository(db)
}

func provideTokenIssuer(cfg *config.Config) *utils.TokenIssuer {
	return utils.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL)
}

func provideAccountService(
	accountRepo repositories.AccountRepository,
	staffRepo repositories.StaffRepository,
	catalog services.CatalogService,
	processor services.PaymentProcessor,
	mail services.MailService,
	cfg *config.Config,
	log *zap.Logger,
) services.AccountService {
	return services.NewAccountService(accountRepo, staffRepo, catalog, processor, mail, services.AccountConfig{
		AppBaseURL: cfg.AppBaseURL,
		APIBaseURL: cfg.APIBaseURL,
		Country:    cfg.Stripe.Country,
	}, log)
}

func provideAuthService(
	parentRepo repositories.ParentRepository,
	staffRepo repositories.StaffRepository,
	issuer *utils.TokenIssuer,
	log *zap.Logger,
) services.AuthService {
	return services.NewAuthService(parentRepo, staffRepo, issuer, log)
}
