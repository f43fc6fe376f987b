package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"schoolpay/cmd/fx/account_fx"
	"schoolpay/cmd/fx/catalog_fx"
	"schoolpay/cmd/fx/config_fx"
	"schoolpay/cmd/fx/controllers_fx"
	"schoolpay/cmd/fx/dashboard"
	"schoolpay/cmd/fx/db_fx"
	"schoolpay/cmd/fx/mail_fx"
	"schoolpay/cmd/fx/memcache_fx"
	"schoolpay/cmd/fx/parent_fx"
	"schoolpay/cmd/fx/payment_service_fx"
	"schoolpay/cmd/fx/reconcile_fx"
	"schoolpay/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "schoolpay",
		Short:        "Multi-tenant school billing portal",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), populateCatalogCmd(), reconcileCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// coreModules wires everything except the HTTP surface and the scheduler.
func coreModules() fx.Option {
	return fx.Options(
		config_fx.Module,
		db_fx.Module,
		memcache_fx.Module,
		mail_fx.Module,
		payment_service_fx.Module,
		account_fx.Module,
		parent_fx.Module,
		catalog_fx.Module,
		dashboard.Module,
		reconcile_fx.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reconciliation schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				coreModules(),
				controllers_fx.Module,
				reconcile_fx.Scheduler,
				fx.Invoke(func(cfg *config.Config) error { return cfg.Validate() }),
				fx.Provide(ProvideRouter),
				fx.Invoke(StartServer),
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func StartServer(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("starting HTTP server", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("HTTP server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}
