package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	dbm "schoolpay/internal/models/db_models"
	resp "schoolpay/internal/models/response_models"
	"schoolpay/internal/repositories"
	"schoolpay/pkg/utils"
)

// Anomaly kinds reported by reconciliation.
const (
	AnomalyUnlinkedSubscription  = "unlinked_remote_subscription"
	AnomalyCurrentSubscription   = "current_subscription_not_active"
	AnomalyUnrecordedPaidInvoice = "paid_invoice_without_purchases"
)

// ReconcileService diffs remote subscriptions and invoices against local rows.
// It only reports; nothing is repaired.
type ReconcileService interface {
	ReconcileAccount(ctx context.Context, accountID uuid.UUID) (*resp.ReconcileReport, error)
	ReconcileAll(ctx context.Context) ([]resp.ReconcileReport, error)
}

type reconcileService struct {
	accountRepo repositories.AccountRepository
	parentRepo  repositories.ParentRepository
	billingRepo repositories.BillingRepository
	processor   PaymentProcessor
	log         *zap.Logger
}

func NewReconcileService(
	accountRepo repositories.AccountRepository,
	parentRepo repositories.ParentRepository,
	billingRepo repositories.BillingRepository,
	processor PaymentProcessor,
	log *zap.Logger,
) ReconcileService {
	return &reconcileService{
		accountRepo: accountRepo,
		parentRepo:  parentRepo,
		billingRepo: billingRepo,
		processor:   processor,
		log:         log.Named("reconcile"),
	}
}

func (s *reconcileService) ReconcileAll(ctx context.Context) ([]resp.ReconcileReport, error) {
	accounts, err := s.accountRepo.ListOnboarded(ctx)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}

	reports := make([]resp.ReconcileReport, 0, len(accounts))
	for i := range accounts {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := s.reconcile(ctx, &accounts[i])
		if err != nil {
			s.log.Error("tenant reconciliation failed", zap.String("tenant_id", accounts[i].ID.String()), zap.Error(err))
			continue
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

func (s *reconcileService) ReconcileAccount(ctx context.Context, accountID uuid.UUID) (*resp.ReconcileReport, error) {
	acct, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, acct)
}

func (s *reconcileService) reconcile(ctx context.Context, acct *dbm.Account) (*resp.ReconcileReport, error) {
	parents, err := s.parentRepo.ListWithCustomer(ctx, acct.ID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}

	report := &resp.ReconcileReport{
		AccountID: acct.ID.String(),
		Anomalies: []resp.ReconcileAnomaly{},
	}
	for i := range parents {
		anomalies, err := s.reconcileParent(ctx, acct, &parents[i])
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("parent %s: %v", parents[i].ID, err))
			continue
		}
		report.ParentsChecked++
		report.Anomalies = append(report.Anomalies, anomalies...)
	}

	logger := s.log.With(zap.String("tenant_id", acct.ID.String()))
	for _, a := range report.Anomalies {
		logger.Warn("billing anomaly",
			zap.String("kind", a.Kind),
			zap.String("parent_id", a.ParentID),
			zap.String("remote_id", a.RemoteID),
			zap.String("detail", a.Detail))
	}
	logger.Info("reconciliation finished",
		zap.Int("parents_checked", report.ParentsChecked),
		zap.Int("anomalies", len(report.Anomalies)),
		zap.Int("errors", len(report.Errors)))
	return report, nil
}

func (s *reconcileService) reconcileParent(ctx context.Context, acct *dbm.Account, parent *dbm.Parent) ([]resp.ReconcileAnomaly, error) {
	customerID := parent.CustomerID()
	remoteSubs, err := s.processor.ListCustomerSubscriptions(ctx, acct.StripeAccountID, customerID)
	if err != nil {
		return nil, err
	}
	remoteInvoices, err := s.processor.ListCustomerInvoices(ctx, acct.StripeAccountID, customerID)
	if err != nil {
		return nil, err
	}
	linked, err := s.billingRepo.LinkedSubscriptionIDs(ctx, parent.ID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	purchased, err := s.billingRepo.PurchasedInvoiceIDs(ctx, parent.ID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}

	return diffParent(parent, remoteSubs, remoteInvoices, toSet(linked), toSet(purchased)), nil
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// diffParent compares one parent's remote objects with the local projection.
func diffParent(parent *dbm.Parent, subs []RemoteSubscription, invoices []RemoteInvoice, linked, purchased map[string]bool) []resp.ReconcileAnomaly {
	var out []resp.ReconcileAnomaly
	add := func(kind, remoteID, detail string) {
		out = append(out, resp.ReconcileAnomaly{Kind: kind, ParentID: parent.ID.String(), RemoteID: remoteID, Detail: detail})
	}

	statusByID := make(map[string]string, len(subs))
	for _, sub := range subs {
		statusByID[sub.ID] = sub.Status
		if sub.Active() && !linked[sub.ID] {
			add(AnomalyUnlinkedSubscription, sub.ID, "status "+sub.Status)
		}
	}

	if current := parent.CurrentSubscriptionID; current != "" {
		status, found := statusByID[current]
		switch {
		case !found:
			add(AnomalyCurrentSubscription, current, "not found remotely")
		case !(RemoteSubscription{Status: status}).Active():
			add(AnomalyCurrentSubscription, current, "status "+status)
		}
	}

	for _, inv := range invoices {
		// Subscription invoices carry tuition and pending items, which are not keyed by invoice id.
		if inv.Status != "paid" || inv.SubscriptionID != "" {
			continue
		}
		if !purchased[inv.ID] {
			add(AnomalyUnrecordedPaidInvoice, inv.ID, fmt.Sprintf("amount_paid %d", inv.AmountPaid))
		}
	}
	return out
}
