package payment_service_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"schoolpay/internal/config"
	"schoolpay/internal/repositories"
	"schoolpay/internal/services"
	mem "schoolpay/pkg/memcache"
)

var Module = fx.Provide(
	provideStripeProcessor,
	provideBillingRepo, provideWebhookEventRepo,
	provideBillingService, providePurchaseService, provideWebhookService,
)

func provideStripeProcessor(cfg *config.Config, log *zap.Logger) services.PaymentProcessor {
	return services.NewStripeProcessor(services.StripeConfig{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Currency:      cfg.Stripe.Currency,
		Country:       cfg.Stripe.Country,
	}, log)
}

func provideBillingRepo(db *gorm.DB) repositories.BillingRepository {
	return repositories.NewBillingRepository(db)
}

func provideWebhookEventRepo(db *gorm.DB) repositories.WebhookEventRepository {
	return repositories.NewWebhookEventRepository(db)
}

func provideBillingService(
	accountRepo repositories.AccountRepository,
	parentRepo repositories.ParentRepository,
	catalogRepo repositories.CatalogRepository,
	billingRepo repositories.BillingRepository,
	parents services.ParentService,
	processor services.PaymentProcessor,
	cfg *config.Config,
	log *zap.Logger,
) services.BillingService {
	return services.NewBillingService(accountRepo, parentRepo, catalogRepo, billingRepo, parents, processor,
		services.BillingConfig{AppBaseURL: cfg.AppBaseURL}, log)
}

func providePurchaseService(
	accountRepo repositories.AccountRepository,
	parentRepo repositories.ParentRepository,
	catalogRepo repositories.CatalogRepository,
	billingRepo repositories.BillingRepository,
	parents services.ParentService,
	processor services.PaymentProcessor,
	log *zap.Logger,
) services.PurchaseService {
	return services.NewPurchaseService(accountRepo, parentRepo, catalogRepo, billingRepo, parents, processor, log)
}

func provideWebhookService(
	processor services.PaymentProcessor,
	accounts services.AccountService,
	accountRepo repositories.AccountRepository,
	parentRepo repositories.ParentRepository,
	eventRepo repositories.WebhookEventRepository,
	guard mem.EventGuard,
	log *zap.Logger,
) services.WebhookService {
	return services.NewWebhookService(processor, accounts, accountRepo, parentRepo, eventRepo, guard, log)
}
