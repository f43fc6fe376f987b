package reconcile_fx

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"schoolpay/internal/config"
	"schoolpay/internal/infra"
	"schoolpay/internal/repositories"
	"schoolpay/internal/services"
)

var Module = fx.Provide(provideReconcileService)

// Scheduler runs reconciliation for every onboarded school on RECONCILE_SCHEDULE.
var Scheduler = fx.Invoke(registerScheduler)

func provideReconcileService(
	accountRepo repositories.AccountRepository,
	parentRepo repositories.ParentRepository,
	billingRepo repositories.BillingRepository,
	processor services.PaymentProcessor,
	log *zap.Logger,
) services.ReconcileService {
	return services.NewReconcileService(accountRepo, parentRepo, billingRepo, processor, log)
}

func registerScheduler(lc fx.Lifecycle, cfg *config.Config, svc services.ReconcileService, log *zap.Logger) error {
	log = log.Named("scheduler")
	if !cfg.Reconcile.Enabled {
		log.Info("reconciliation schedule disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := infra.NewScheduler(log)
	_, err := c.AddFunc(cfg.Reconcile.Schedule, func() {
		reports, err := svc.ReconcileAll(ctx)
		if err != nil {
			log.Error("scheduled reconciliation failed", zap.Error(err))
			return
		}
		anomalies := 0
		for _, r := range reports {
			anomalies += len(r.Anomalies)
		}
		log.Info("scheduled reconciliation finished",
			zap.Int("accounts", len(reports)),
			zap.Int("anomalies", anomalies))
	})
	if err != nil {
		cancel()
		return fmt.Errorf("reconcile schedule %q: %w", cfg.Reconcile.Schedule, err)
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			c.Start()
			log.Info("reconciliation scheduled", zap.String("schedule", cfg.Reconcile.Schedule))
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-c.Stop().Done():
			case <-stopCtx.Done():
			}
			return nil
		},
	})
	return nil
}
