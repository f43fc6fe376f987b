package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	dbm "schoolpay/internal/models/db_models"
	"schoolpay/internal/repositories"
	mem "schoolpay/pkg/memcache"
	"schoolpay/pkg/utils"
)

const webhookGuardTTL = 2 * time.Minute

// WebhookHandlerFunc applies one verified event. Returning an error marks the
// delivery failed so the processor retries it.
type WebhookHandlerFunc func(ctx context.Context, event *ProcessorEvent) (dbm.WebhookOutcome, error)

type WebhookResult struct {
	EventID   string
	Type      string
	Outcome   dbm.WebhookOutcome
	Duplicate bool
}

type WebhookService interface {
	// Handle verifies and applies one delivery. Verification failures wrap utils.ErrInvalidWebhook.
	Handle(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
}

type webhookService struct {
	processor   PaymentProcessor
	accounts    AccountService
	accountRepo repositories.AccountRepository
	parentRepo  repositories.ParentRepository
	eventRepo   repositories.WebhookEventRepository
	guard       mem.EventGuard
	log         *zap.Logger

	handlers map[string]WebhookHandlerFunc
}

func NewWebhookService(
	processor PaymentProcessor,
	accounts AccountService,
	accountRepo repositories.AccountRepository,
	parentRepo repositories.ParentRepository,
	eventRepo repositories.WebhookEventRepository,
	guard mem.EventGuard,
	log *zap.Logger,
) WebhookService {
	s := &webhookService{
		processor:   processor,
		accounts:    accounts,
		accountRepo: accountRepo,
		parentRepo:  parentRepo,
		eventRepo:   eventRepo,
		guard:       guard,
		log:         log.Named("webhooks"),
	}
	s.handlers = map[string]WebhookHandlerFunc{
		"setup_intent.succeeded":        s.onSetupIntentSucceeded,
		"invoice.paid":                  s.onInvoice,
		"invoice.payment_failed":        s.onInvoice,
		"customer.subscription.created": s.onSubscriptionCreated,
		"account.updated":               s.onAccountUpdated,
	}
	return s
}

func (s *webhookService) Handle(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := s.processor.ParseWebhook(payload, signature)
	if err != nil {
		s.log.Warn("webhook rejected", zap.Error(err))
		return nil, err
	}
	result := &WebhookResult{EventID: event.ID, Type: event.Type}
	logger := s.log.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("stripe_account_id", event.Account))

	prior, err := s.eventRepo.FindByEventID(ctx, event.ID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if prior != nil && prior.Outcome != dbm.WebhookFailed {
		logger.Info("duplicate delivery acknowledged", zap.String("outcome", string(prior.Outcome)))
		result.Outcome, result.Duplicate = prior.Outcome, true
		return result, nil
	}

	acquired, err := s.guard.TryAcquire(ctx, event.ID, webhookGuardTTL)
	if err != nil {
		logger.Warn("event guard unavailable; processing anyway", zap.Error(err))
		acquired = true
	}
	if !acquired {
		logger.Info("delivery already in flight")
		result.Outcome, result.Duplicate = dbm.WebhookHandled, true
		return result, nil
	}
	defer func() {
		if err := s.guard.Release(context.WithoutCancel(ctx), event.ID); err != nil {
			logger.Warn("release event guard", zap.Error(err))
		}
	}()

	handler, ok := s.handlers[event.Type]
	var handleErr error
	if !ok {
		result.Outcome = dbm.WebhookIgnored
		logger.Info("event type not handled")
	} else {
		result.Outcome, handleErr = handler(ctx, event)
		if handleErr != nil {
			result.Outcome = dbm.WebhookFailed
			logger.Error("webhook handler failed", zap.Error(handleErr))
		}
	}

	row := &dbm.WebhookEvent{
		EventID:         event.ID,
		Type:            event.Type,
		StripeAccountID: event.Account,
		Outcome:         result.Outcome,
		Payload:         datatypes.JSON(event.Payload),
	}
	if handleErr != nil {
		row.Error = handleErr.Error()
	}
	if err := s.eventRepo.Record(ctx, row); err != nil {
		logger.Error("webhook outcome not recorded", zap.Error(err))
		if handleErr == nil {
			return nil, utils.ErrDatabaseError
		}
	}
	if handleErr != nil {
		return nil, handleErr
	}
	return result, nil
}

func decodeEventObject(event *ProcessorEvent, v any) error {
	if err := json.Unmarshal(event.Data, v); err != nil {
		return fmt.Errorf("decode %s object: %w", event.Type, err)
	}
	return nil
}

// tenant resolves the connected account an event was sent for; nil when unknown.
func (s *webhookService) tenant(ctx context.Context, event *ProcessorEvent) (*dbm.Account, error) {
	if event.Account == "" {
		return nil, nil
	}
	acct, err := s.accountRepo.FindByStripeAccountID(ctx, event.Account)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	return acct, nil
}

func (s *webhookService) onSetupIntentSucceeded(ctx context.Context, event *ProcessorEvent) (dbm.WebhookOutcome, error) {
	var si stripe.SetupIntent
	if err := decodeEventObject(event, &si); err != nil {
		return dbm.WebhookFailed, err
	}
	if si.Customer == nil || si.PaymentMethod == nil {
		s.log.Info("setup intent without customer or payment method", zap.String("setup_intent_id", si.ID))
		return dbm.WebhookIgnored, nil
	}

	acct, err := s.tenant(ctx, event)
	if err != nil {
		return dbm.WebhookFailed, err
	}
	if acct == nil {
		s.log.Warn("setup intent for unknown tenant", zap.String("stripe_account_id", event.Account))
		return dbm.WebhookIgnored, nil
	}

	parent, err := s.parentRepo.FindByCustomerID(ctx, acct.ID, si.Customer.ID)
	if err != nil {
		return dbm.WebhookFailed, utils.ErrDatabaseError
	}
	if parent == nil {
		s.log.Warn("setup intent for unknown customer",
			zap.String("tenant_id", acct.ID.String()),
			zap.String("customer_id", si.Customer.ID))
		return dbm.WebhookIgnored, nil
	}

	if err := s.parentRepo.SavePaymentMethod(ctx, parent.ID, si.PaymentMethod.ID); err != nil {
		return dbm.WebhookFailed, utils.ErrDatabaseError
	}
	if err := s.processor.AttachPaymentMethod(ctx, acct.StripeAccountID, si.Customer.ID, si.PaymentMethod.ID); err != nil {
		return dbm.WebhookFailed, err
	}

	s.log.Info("payment method saved",
		zap.String("tenant_id", acct.ID.String()),
		zap.String("parent_id", parent.ID.String()),
		zap.String("payment_method_id", si.PaymentMethod.ID))
	return dbm.WebhookHandled, nil
}

func (s *webhookService) onInvoice(_ context.Context, event *ProcessorEvent) (dbm.WebhookOutcome, error) {
	var inv stripe.Invoice
	if err := decodeEventObject(event, &inv); err != nil {
		return dbm.WebhookFailed, err
	}
	fields := []zap.Field{
		zap.String("stripe_account_id", event.Account),
		zap.String("invoice_id", inv.ID),
		zap.String("status", string(inv.Status)),
		zap.Int64("amount_due", inv.AmountDue),
		zap.Int64("amount_paid", inv.AmountPaid),
	}
	if inv.Customer != nil {
		fields = append(fields, zap.String("customer_id", inv.Customer.ID))
	}
	if event.Type == "invoice.payment_failed" {
		s.log.Warn("invoice payment failed", fields...)
	} else {
		s.log.Info("invoice paid", fields...)
	}
	return dbm.WebhookHandled, nil
}

func (s *webhookService) onSubscriptionCreated(_ context.Context, event *ProcessorEvent) (dbm.WebhookOutcome, error) {
	var sub stripe.Subscription
	if err := decodeEventObject(event, &sub); err != nil {
		return dbm.WebhookFailed, err
	}
	fields := []zap.Field{
		zap.String("stripe_account_id", event.Account),
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(sub.Status)),
	}
	if sub.Customer != nil {
		fields = append(fields, zap.String("customer_id", sub.Customer.ID))
	}
	s.log.Info("subscription created", fields...)
	return dbm.WebhookHandled, nil
}

func (s *webhookService) onAccountUpdated(ctx context.Context, event *ProcessorEvent) (dbm.WebhookOutcome, error) {
	var a stripe.Account
	if err := decodeEventObject(event, &a); err != nil {
		return dbm.WebhookFailed, err
	}
	if a.ID == "" {
		a.ID = event.Account
	}

	_, err := s.accounts.SyncRemoteAccount(ctx, toConnectedAccount(&a))
	if errors.Is(err, utils.ErrAccountNotFound) {
		s.log.Warn("account update for unknown tenant", zap.String("stripe_account_id", a.ID))
		return dbm.WebhookIgnored, nil
	}
	if err != nil {
		return dbm.WebhookFailed, err
	}
	return dbm.WebhookHandled, nil
}
