package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"schoolpay/internal/services"
)

// runWith starts the core graph, fills targets, runs fn and stops the graph.
func runWith(cmd *cobra.Command, fn func(ctx context.Context) error, targets ...interface{}) error {
	app := fx.New(coreModules(), fx.Populate(targets...))

	startCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(cmd.Context())
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func populateCatalogCmd() *cobra.Command {
	var accountID string
	cmd := &cobra.Command{
		Use:   "populate-catalog",
		Short: "Create the default catalog for an onboarded school",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(accountID)
			if err != nil {
				return fmt.Errorf("--account: %w", err)
			}
			var accounts services.AccountService
			return runWith(cmd, func(ctx context.Context) error {
				res, err := accounts.PopulateCatalog(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			}, &accounts)
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "account id")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func reconcileCmd() *cobra.Command {
	var accountID string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Report drift between the processor and local records",
		Long:  "Reconciles one school with --account, or every onboarded school without it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var reconcile services.ReconcileService
			return runWith(cmd, func(ctx context.Context) error {
				if accountID == "" {
					reports, err := reconcile.ReconcileAll(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd, reports)
				}
				id, err := uuid.Parse(accountID)
				if err != nil {
					return fmt.Errorf("--account: %w", err)
				}
				report, err := reconcile.ReconcileAccount(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, report)
			}, &reconcile)
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "account id (all onboarded schools when empty)")
	return cmd
}
