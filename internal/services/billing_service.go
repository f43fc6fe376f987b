package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	dbm "schoolpay/internal/models/db_models"
	"schoolpay/internal/models/request_models"
	resp "schoolpay/internal/models/response_models"
	"schoolpay/internal/repositories"
	"schoolpay/pkg/utils"
)

type BillingService interface {
	// Subscribe bills the parent's students on one remote subscription, one item per distinct price.
	Subscribe(ctx context.Context, accountID, parentID uuid.UUID, req request_models.SubscribeRequest) (*resp.SubscribeResponse, error)
	CreatePortalSession(ctx context.Context, accountID, parentID uuid.UUID, returnURL string) (*resp.PortalResponse, error)
}

type BillingConfig struct {
	AppBaseURL string
}

type billingService struct {
	accountRepo repositories.AccountRepository
	parentRepo  repositories.ParentRepository
	catalogRepo repositories.CatalogRepository
	billingRepo repositories.BillingRepository
	parents     ParentService
	processor   PaymentProcessor
	cfg         BillingConfig
	log         *zap.Logger
}

func NewBillingService(
	accountRepo repositories.AccountRepository,
	parentRepo repositories.ParentRepository,
	catalogRepo repositories.CatalogRepository,
	billingRepo repositories.BillingRepository,
	parents ParentService,
	processor PaymentProcessor,
	cfg BillingConfig,
	log *zap.Logger,
) BillingService {
	return &billingService{
		accountRepo: accountRepo,
		parentRepo:  parentRepo,
		catalogRepo: catalogRepo,
		billingRepo: billingRepo,
		parents:     parents,
		processor:   processor,
		cfg:         cfg,
		log:         log.Named("billing"),
	}
}

// priceGroup is one subscription item: every student billed at the same price.
type priceGroup struct {
	price    *dbm.SubscriptionPrice
	students []dbm.Student
}

func (g priceGroup) description(period dbm.BillingPeriod) string {
	names := make([]string, 0, len(g.students))
	for i := range g.students {
		names = append(names, g.students[i].FullName())
	}
	name := "Tuition"
	if g.price.Subscription != nil {
		name = g.price.Subscription.Name
	}
	return fmt.Sprintf("%s (%s): %s", name, period, strings.Join(names, ", "))
}

type priceResolver func(ctx context.Context, yearLevel int) (*dbm.SubscriptionPrice, error)

// groupStudentsByPrice groups students by resolved price id in first-seen order.
// Students whose year has no price are returned as skipped.
func groupStudentsByPrice(ctx context.Context, students []dbm.Student, resolve priceResolver) ([]priceGroup, []dbm.Student, error) {
	byYear := map[int]*dbm.SubscriptionPrice{}
	index := map[uuid.UUID]int{}
	var groups []priceGroup
	var skipped []dbm.Student

	for _, st := range students {
		price, seen := byYear[st.YearLevel]
		if !seen {
			var err error
			if price, err = resolve(ctx, st.YearLevel); err != nil {
				return nil, nil, err
			}
			byYear[st.YearLevel] = price
		}
		if price == nil {
			skipped = append(skipped, st)
			continue
		}

		if i, ok := index[price.ID]; ok {
			groups[i].students = append(groups[i].students, st)
			continue
		}
		index[price.ID] = len(groups)
		groups = append(groups, priceGroup{price: price, students: []dbm.Student{st}})
	}
	return groups, skipped, nil
}

func (s *billingService) Subscribe(ctx context.Context, accountID, parentID uuid.UUID, req request_models.SubscribeRequest) (*resp.SubscribeResponse, error) {
	period := dbm.BillingPeriod(req.Frequency)
	if !period.Valid() {
		return nil, utils.ErrInvalidInput
	}

	acct, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}
	if !acct.OnboardingComplete {
		return nil, utils.ErrAccountNotOnboarded
	}
	parent, err := loadParent(ctx, s.parentRepo, accountID, parentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkNotSubscribed(ctx, acct, parent); err != nil {
		return nil, err
	}

	students, err := s.selectStudents(ctx, parent.ID, req.StudentIDs)
	if err != nil {
		return nil, err
	}

	paymentMethodID := req.PaymentMethodID
	if paymentMethodID == "" {
		paymentMethodID = parent.DefaultPaymentMethodID
	}
	if paymentMethodID == "" {
		return nil, utils.ErrNoPaymentMethod
	}

	customerID, err := s.parents.EnsureCustomer(ctx, acct, parent)
	if err != nil {
		return nil, err
	}

	logger := s.log.With(
		zap.String("tenant_id", acct.ID.String()),
		zap.String("parent_id", parent.ID.String()),
		zap.String("customer_id", customerID))

	if err := s.processor.AttachPaymentMethod(ctx, acct.StripeAccountID, customerID, paymentMethodID); err != nil {
		return nil, err
	}
	if paymentMethodID != parent.DefaultPaymentMethodID {
		if err := s.parentRepo.SavePaymentMethod(ctx, parent.ID, paymentMethodID); err != nil {
			logger.Error("payment method attached but not stored", zap.String("payment_method_id", paymentMethodID), zap.Error(err))
		}
	}

	groups, skipped, err := groupStudentsByPrice(ctx, students, func(ctx context.Context, year int) (*dbm.SubscriptionPrice, error) {
		price, err := s.catalogRepo.FindPrice(ctx, acct.ID, year, period)
		if err != nil {
			return nil, utils.ErrDatabaseError
		}
		return price, nil
	})
	if err != nil {
		return nil, err
	}
	for _, st := range skipped {
		logger.Warn("no tuition price for student; skipped",
			zap.String("student_id", st.ID.String()),
			zap.Int("year_level", st.YearLevel),
			zap.String("period", string(period)))
	}
	if len(groups) == 0 {
		return nil, utils.ErrNoBillableItems
	}

	items := make([]SubscriptionItem, 0, len(groups))
	descriptions := make([]string, 0, len(groups))
	for _, g := range groups {
		items = append(items, SubscriptionItem{PriceID: g.price.StripePriceID, Quantity: int64(len(g.students))})
		descriptions = append(descriptions, g.description(period))
	}

	sub, err := s.processor.CreateSubscription(ctx, acct.StripeAccountID, SubscriptionParams{
		CustomerID:      customerID,
		PaymentMethodID: paymentMethodID,
		Items:           items,
		Description:     strings.Join(descriptions, "; "),
		Metadata: map[string]string{
			"parent_id": parent.ID.String(),
			"tenant_id": acct.ID.String(),
			"period":    string(period),
		},
	})
	if err != nil {
		return nil, err
	}

	out := &resp.SubscribeResponse{StripeSubscriptionID: sub.ID, Status: sub.Status}
	var links []dbm.ParentSubscription
	for i, g := range groups {
		line := resp.SubscriptionLineResponse{
			PriceID:     g.price.StripePriceID,
			Quantity:    int64(len(g.students)),
			UnitAmount:  g.price.UnitAmount,
			Description: descriptions[i],
		}
		for _, st := range g.students {
			studentID := st.ID
			links = append(links, dbm.ParentSubscription{
				ParentID:             parent.ID,
				SubscriptionID:       g.price.SubscriptionID,
				SubscriptionPriceID:  g.price.ID,
				StudentID:            &studentID,
				StripeSubscriptionID: sub.ID,
				Description:          st.FullName(),
			})
			line.StudentIDs = append(line.StudentIDs, studentID.String())
		}
		out.Lines = append(out.Lines, line)
	}
	for _, st := range skipped {
		out.SkippedStudentIDs = append(out.SkippedStudentIDs, st.ID.String())
	}

	if err := s.billingRepo.RecordSubscription(ctx, parent.ID, sub.ID, links); err != nil {
		logger.Error("remote subscription created but links not stored",
			zap.String("subscription_id", sub.ID),
			zap.Error(err))
		return nil, utils.ErrDatabaseError
	}

	logger.Info("subscription created",
		zap.String("subscription_id", sub.ID),
		zap.Int("items", len(items)),
		zap.Int("students", len(links)))
	return out, nil
}

// checkNotSubscribed rejects a parent whose current subscription is still live remotely.
// A current subscription that was cancelled through the portal may be replaced.
func (s *billingService) checkNotSubscribed(ctx context.Context, acct *dbm.Account, parent *dbm.Parent) error {
	current := parent.CurrentSubscriptionID
	if current == "" {
		return nil
	}
	if parent.CustomerID() == "" {
		return utils.ErrAlreadySubscribed
	}

	subs, err := s.processor.ListCustomerSubscriptions(ctx, acct.StripeAccountID, parent.CustomerID())
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if sub.ID == current && sub.Active() {
			return utils.ErrAlreadySubscribed
		}
	}

	s.log.Info("current subscription no longer active; replacing",
		zap.String("tenant_id", acct.ID.String()),
		zap.String("parent_id", parent.ID.String()),
		zap.String("subscription_id", current))
	return nil
}

// selectStudents returns the requested students, or all of the parent's students when none are named.
func (s *billingService) selectStudents(ctx context.Context, parentID uuid.UUID, raw []string) ([]dbm.Student, error) {
	if len(raw) == 0 {
		students, err := s.parentRepo.ListStudents(ctx, parentID)
		if err != nil {
			return nil, utils.ErrDatabaseError
		}
		if len(students) == 0 {
			return nil, utils.ErrNoBillableItems
		}
		return students, nil
	}

	ids, err := parseIDs(raw)
	if err != nil {
		return nil, err
	}
	unique := make([]uuid.UUID, 0, len(ids))
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	students, err := s.parentRepo.FindStudents(ctx, parentID, unique)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if len(students) != len(unique) {
		return nil, utils.ErrStudentNotFound
	}
	return students, nil
}

func (s *billingService) CreatePortalSession(ctx context.Context, accountID, parentID uuid.UUID, returnURL string) (*resp.PortalResponse, error) {
	returnURL, err := s.portalReturnURL(returnURL)
	if err != nil {
		return nil, err
	}
	acct, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}
	parent, err := loadParent(ctx, s.parentRepo, accountID, parentID)
	if err != nil {
		return nil, err
	}
	customerID, err := s.parents.EnsureCustomer(ctx, acct, parent)
	if err != nil {
		return nil, err
	}

	sess, err := s.processor.CreatePortalSession(ctx, acct.StripeAccountID, PortalSessionParams{
		CustomerID:      customerID,
		ConfigurationID: acct.PortalConfigurationID,
		ReturnURL:       returnURL,
	})
	if err != nil {
		return nil, err
	}
	return &resp.PortalResponse{URL: sess.URL}, nil
}

// portalReturnURL defaults to the parent dashboard and only accepts URLs on the
// portal's own scheme and host.
func (s *billingService) portalReturnURL(given string) (string, error) {
	if given == "" {
		return strings.TrimRight(s.cfg.AppBaseURL, "/") + "/parent", nil
	}
	base, err := url.Parse(s.cfg.AppBaseURL)
	if err != nil {
		return "", fmt.Errorf("app base url: %w", err)
	}
	u, err := url.Parse(given)
	if err != nil || u.Scheme != base.Scheme || !strings.EqualFold(u.Host, base.Host) {
		return "", fmt.Errorf("return url %q: %w", given, utils.ErrInvalidInput)
	}
	return u.String(), nil
}
