package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	dbm "schoolpay/internal/models/db_models"
	resp "schoolpay/internal/models/response_models"
	"schoolpay/internal/repositories"
	"schoolpay/pkg/utils"
)

const recentPurchaseLimit = 10

type DashboardService interface {
	BuildDashboard(ctx context.Context, accountID uuid.UUID) (*resp.DashboardReport, error)
	// ParentOverview returns the parent's profile, students, subscription links and purchases.
	ParentOverview(ctx context.Context, accountID, parentID uuid.UUID) (*resp.ParentOverview, error)
}

type dashboardService struct {
	repo        repositories.DashboardRepository
	accountRepo repositories.AccountRepository
	parentRepo  repositories.ParentRepository
	billingRepo repositories.BillingRepository
	log         *zap.Logger
}

func NewDashboardService(
	repo repositories.DashboardRepository,
	accountRepo repositories.AccountRepository,
	parentRepo repositories.ParentRepository,
	billingRepo repositories.BillingRepository,
	log *zap.Logger,
) DashboardService {
	return &dashboardService{
		repo:        repo,
		accountRepo: accountRepo,
		parentRepo:  parentRepo,
		billingRepo: billingRepo,
		log:         log.Named("dashboard"),
	}
}

func (s *dashboardService) BuildDashboard(ctx context.Context, accountID uuid.UUID) (*resp.DashboardReport, error) {
	acct, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}

	var (
		kpis   resp.KPIBlock
		totals *repositories.PurchaseTotals
		recent []repositories.RecentPurchaseRow
	)
	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, fn func(context.Context, uuid.UUID) (int64, error)) {
		g.Go(func() error {
			n, err := fn(gctx, acct.ID)
			*dst = n
			return err
		})
	}
	count(&kpis.Parents, s.repo.CountParents)
	count(&kpis.Students, s.repo.CountStudents)
	count(&kpis.SubscribedParents, s.repo.CountSubscribedParents)
	count(&kpis.ParentsWithPaymentMethod, s.repo.CountParentsWithPaymentMethod)
	g.Go(func() error {
		var err error
		totals, err = s.repo.PurchaseTotals(gctx, acct.ID)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.repo.RecentPurchases(gctx, acct.ID, recentPurchaseLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("dashboard query failed", zap.String("tenant_id", acct.ID.String()), zap.Error(err))
		return nil, utils.ErrDatabaseError
	}

	if totals != nil {
		kpis.Purchases = totals.Count
		kpis.PurchaseAmountMinor = totals.AmountMinor
	}
	out := &resp.DashboardReport{
		Account:         toAccountResponse(acct),
		KPIs:            kpis,
		RecentPurchases: make([]resp.RecentPurchase, 0, len(recent)),
	}
	for _, r := range recent {
		out.RecentPurchases = append(out.RecentPurchases, resp.RecentPurchase{
			ParentID:    r.ParentID,
			ParentName:  r.ParentName,
			ProductName: r.ProductName,
			Quantity:    r.Quantity,
			AmountMinor: r.AmountMinor,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out, nil
}

func (s *dashboardService) ParentOverview(ctx context.Context, accountID, parentID uuid.UUID) (*resp.ParentOverview, error) {
	parent, err := loadParent(ctx, s.parentRepo, accountID, parentID)
	if err != nil {
		return nil, err
	}

	var (
		students  []dbm.Student
		links     []dbm.ParentSubscription
		purchases []dbm.ParentPurchase
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		students, err = s.parentRepo.ListStudents(gctx, parent.ID)
		return err
	})
	g.Go(func() error {
		var err error
		links, err = s.billingRepo.ListSubscriptionLinks(gctx, parent.ID)
		return err
	})
	g.Go(func() error {
		var err error
		purchases, err = s.billingRepo.ListPurchases(gctx, parent.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("parent overview query failed",
			zap.String("tenant_id", accountID.String()),
			zap.String("parent_id", parent.ID.String()),
			zap.Error(err))
		return nil, utils.ErrDatabaseError
	}

	out := &resp.ParentOverview{
		Parent:        toParentResponse(parent, students),
		Subscriptions: make([]resp.SubscriptionLinkResponse, 0, len(links)),
		Purchases:     toPurchaseResponses(purchases),
	}
	for _, l := range links {
		out.Subscriptions = append(out.Subscriptions, resp.SubscriptionLinkResponse{
			ID:                   l.ID.String(),
			StudentID:            optionalID(l.StudentID),
			SubscriptionID:       l.SubscriptionID.String(),
			StripeSubscriptionID: l.StripeSubscriptionID,
			Description:          l.Description,
		})
	}
	return out, nil
}
