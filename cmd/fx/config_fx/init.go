package config_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"schoolpay/internal/config"
	"schoolpay/internal/infra"
)

var Module = fx.Provide(provideConfig, provideLogger)

func provideConfig() (*config.Config, error) {
	return config.Load()
}

func provideLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	log, err := infra.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	// HandleServiceError logs through the global logger.
	undo := zap.ReplaceGlobals(log)
	lc.Append(fx.StopHook(func() {
		_ = log.Sync()
		undo()
	}))
	return log, nil
}
