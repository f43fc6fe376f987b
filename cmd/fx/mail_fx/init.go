package mail_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"schoolpay/internal/config"
	"schoolpay/internal/services"
)

var Module = fx.Provide(provideMailService)

func provideMailService(cfg *config.Config, log *zap.Logger) services.MailService {
	return services.NewMailService(services.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		UseSSL:   cfg.SMTP.UseSSL,
	}, log)
}
