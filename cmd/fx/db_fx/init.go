package db_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"schoolpay/internal/config"
	"schoolpay/internal/infra"
)

var Module = fx.Provide(
	provideDB)

func provideDB(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := infra.InitPostgresql(cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	if err := infra.Migrate(db); err != nil {
		infra.ClosePostgresql(db, log)
		return nil, err
	}

	lc.Append(fx.StopHook(func() {
		infra.ClosePostgresql(db, log)
	}))
	return db, nil
}
