package dashboard

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"schoolpay/internal/repositories"
	"schoolpay/internal/services"
)

var Module = fx.Provide(
	provideDashboardRepo, provideDashboardService,
)

func provideDashboardRepo(db *gorm.DB) repositories.DashboardRepository {
	return repositories.NewDashboardRepository(db)
}

func provideDashboardService(
	dashboardRepo repositories.DashboardRepository,
	accountRepo repositories.AccountRepository,
	parentRepo repositories.ParentRepository,
	billingRepo repositories.BillingRepository,
	log *zap.Logger,
) services.DashboardService {
	return services.NewDashboardService(dashboardRepo, accountRepo, parentRepo, billingRepo, log)
}
