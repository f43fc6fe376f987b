package parent_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"schoolpay/internal/repositories"
	"schoolpay/internal/services"
)

var Module = fx.Provide(provideParentRepo, provideParentService)

func provideParentRepo(db *gorm.DB) repositories.ParentRepository {
	return repositories.NewParentRepository(db)
}

func provideParentService(
	accountRepo repositories.AccountRepository,
	parentRepo repositories.ParentRepository,
	processor services.PaymentProcessor,
	log *zap.Logger,
) services.ParentService {
	return services.NewParentService(accountRepo, parentRepo, processor, log)
}
