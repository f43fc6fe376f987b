package catalog_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"schoolpay/internal/config"
	"schoolpay/internal/repositories"
	"schoolpay/internal/services"
)

var Module = fx.Provide(provideCatalogRepo, provideCatalogService)

func provideCatalogRepo(db *gorm.DB) repositories.CatalogRepository {
	return repositories.NewCatalogRepository(db)
}

func provideCatalogService(
	accountRepo repositories.AccountRepository,
	catalogRepo repositories.CatalogRepository,
	processor services.PaymentProcessor,
	cfg *config.Config,
	log *zap.Logger,
) services.CatalogService {
	return services.NewCatalogService(accountRepo, catalogRepo, processor, services.CatalogConfig{
		CSVPath: cfg.Catalog.CSVPath,
	}, log)
}
