package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"schoolpay/pkg/utils"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	Country       string
}

// RemoteError carries the processor's error details without leaking them to clients.
type RemoteError struct {
	Op         string
	Code       string
	Message    string
	StatusCode int
	RequestID  string
	Err        error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("stripe %s: %s (code=%s status=%d request=%s)", e.Op, e.Message, e.Code, e.StatusCode, e.RequestID)
}

// Unwrap exposes both the processor error and utils.ErrPaymentProvider to errors.Is.
func (e *RemoteError) Unwrap() []error { return []error{utils.ErrPaymentProvider, e.Err} }

type stripeProcessor struct {
	sc  *client.API
	cfg StripeConfig
	log *zap.Logger
}

func NewStripeProcessor(cfg StripeConfig, log *zap.Logger) PaymentProcessor {
	if cfg.Currency == "" {
		cfg.Currency = "aud"
	}
	return &stripeProcessor{
		sc:  client.New(cfg.SecretKey, nil),
		cfg: cfg,
		log: log.Named("stripe"),
	}
}

type metadataSetter interface {
	AddMetadata(key, value string)
}

func addMetadata(p metadataSetter, m map[string]string) {
	for k, v := range m {
		p.AddMetadata(k, v)
	}
}

func (s *stripeProcessor) fail(op, acct string, err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		s.log.Error("request failed", zap.String("op", op), zap.String("stripe_account", acct), zap.Error(err))
		return &RemoteError{Op: op, Message: err.Error(), Err: err}
	}

	s.log.Error("request failed",
		zap.String("op", op),
		zap.String("stripe_account", acct),
		zap.String("code", string(se.Code)),
		zap.String("request_id", se.RequestID),
		zap.Int("status", se.HTTPStatusCode),
		zap.String("message", se.Msg))
	return &RemoteError{
		Op:         op,
		Code:       string(se.Code),
		Message:    se.Msg,
		StatusCode: se.HTTPStatusCode,
		RequestID:  se.RequestID,
		Err:        err,
	}
}

// ------------------- Connect -------------------

func (s *stripeProcessor) CreateConnectedAccount(ctx context.Context, params ConnectedAccountParams) (*ConnectedAccount, error) {
	businessType := params.BusinessType
	if businessType == "" {
		businessType = string(stripe.AccountBusinessTypeCompany)
	}
	country := params.Country
	if country == "" {
		country = s.cfg.Country
	}

	p := &stripe.AccountParams{
		Type:         stripe.String(string(stripe.AccountTypeStandard)),
		Country:      stripe.String(country),
		Email:        stripe.String(params.Email),
		BusinessType: stripe.String(businessType),
	}
	if params.BusinessName != "" {
		p.BusinessProfile = &stripe.AccountBusinessProfileParams{Name: stripe.String(params.BusinessName)}
	}
	p.Context = ctx

	a, err := s.sc.Accounts.New(p)
	if err != nil {
		return nil, s.fail("accounts.create", "", err)
	}
	return toConnectedAccount(a), nil
}

func (s *stripeProcessor) GetConnectedAccount(ctx context.Context, acct string) (*ConnectedAccount, error) {
	p := &stripe.AccountParams{}
	p.Context = ctx

	a, err := s.sc.Accounts.GetByID(acct, p)
	if err != nil {
		return nil, s.fail("accounts.retrieve", acct, err)
	}
	return toConnectedAccount(a), nil
}

func toConnectedAccount(a *stripe.Account) *ConnectedAccount {
	out := &ConnectedAccount{
		ID:               a.ID,
		ChargesEnabled:   a.ChargesEnabled,
		DetailsSubmitted: a.DetailsSubmitted,
		PayoutsEnabled:   a.PayoutsEnabled,
		Capabilities:     map[string]string{},
	}
	if a.Capabilities != nil {
		if a.Capabilities.CardPayments != "" {
			out.Capabilities["card_payments"] = string(a.Capabilities.CardPayments)
		}
		if a.Capabilities.Transfers != "" {
			out.Capabilities["transfers"] = string(a.Capabilities.Transfers)
		}
	}
	return out
}

func (s *stripeProcessor) CreateAccountLink(ctx context.Context, acct, refreshURL, returnURL string) (string, error) {
	p := &stripe.AccountLinkParams{
		Account:    stripe.String(acct),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	p.Context = ctx

	link, err := s.sc.AccountLinks.New(p)
	if err != nil {
		return "", s.fail("account_links.create", acct, err)
	}
	return link.URL, nil
}

func (s *stripeProcessor) CreatePortalConfiguration(ctx context.Context, acct, returnURL string) (string, error) {
	p := &stripe.BillingPortalConfigurationParams{
		BusinessProfile: &stripe.BillingPortalConfigurationBusinessProfileParams{
			Headline: stripe.String("Manage your school billing"),
		},
		DefaultReturnURL: stripe.String(returnURL),
		Features: &stripe.BillingPortalConfigurationFeaturesParams{
			InvoiceHistory: &stripe.BillingPortalConfigurationFeaturesInvoiceHistoryParams{
				Enabled: stripe.Bool(true),
			},
			PaymentMethodUpdate: &stripe.BillingPortalConfigurationFeaturesPaymentMethodUpdateParams{
				Enabled: stripe.Bool(true),
			},
		},
	}
	p.SetStripeAccount(acct)
	p.Context = ctx

	cfg, err := s.sc.BillingPortalConfigurations.New(p)
	if err != nil {
		return "", s.fail("billing_portal.configurations.create", acct, err)
	}
	return cfg.ID, nil
}

func (s *stripeProcessor) CreatePortalSession(ctx context.Context, acct string, params PortalSessionParams) (*PortalSession, error) {
	p := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(params.CustomerID),
		ReturnURL: stripe.String(params.ReturnURL),
	}
	if params.ConfigurationID != "" {
		p.Configuration = stripe.String(params.ConfigurationID)
	}
	p.SetStripeAccount(acct)
	p.Context = ctx

	sess, err := s.sc.BillingPortalSessions.New(p)
	if err != nil {
		return nil, s.fail("billing_portal.sessions.create", acct, err)
	}
	return &PortalSession{ID: sess.ID, URL: sess.URL}, nil
}

// ------------------- Customers & catalog -------------------

func (s *stripeProcessor) CreateCustomer(ctx context.Context, acct string, params CustomerParams) (*RemoteCustomer, error) {
	p := &stripe.CustomerParams{
		Email: stripe.String(params.Email),
		Name:  stripe.String(params.Name),
	}
	if !params.Address.Empty() {
		p.Address = &stripe.AddressParams{
			Line1:      stripe.String(params.Address.Line1),
			Line2:      stripe.String(params.Address.Line2),
			City:       stripe.String(params.Address.City),
			State:      stripe.String(params.Address.State),
			PostalCode: stripe.String(params.Address.PostalCode),
			Country:    stripe.String(params.Address.Country),
		}
	}
	addMetadata(p, params.Metadata)
	p.SetStripeAccount(acct)
	p.Context = ctx

	c, err := s.sc.Customers.New(p)
	if err != nil {
		return nil, s.fail("customers.create", acct, err)
	}
	return &RemoteCustomer{ID: c.ID, Email: c.Email}, nil
}

func (s *stripeProcessor) CreateProduct(ctx context.Context, acct string, params ProductParams) (*RemoteProduct, error) {
	p := &stripe.ProductParams{Name: stripe.String(params.Name)}
	addMetadata(p, params.Metadata)
	p.SetStripeAccount(acct)
	p.Context = ctx

	prod, err := s.sc.Products.New(p)
	if err != nil {
		return nil, s.fail("products.create", acct, err)
	}
	return &RemoteProduct{ID: prod.ID, Name: prod.Name}, nil
}

func (s *stripeProcessor) CreatePrice(ctx context.Context, acct string, params PriceParams) (*RemotePrice, error) {
	p := &stripe.PriceParams{
		Product:    stripe.String(params.ProductID),
		UnitAmount: stripe.Int64(params.UnitAmount),
		Currency:   stripe.String(s.cfg.Currency),
	}
	if params.Interval != "" {
		p.Recurring = &stripe.PriceRecurringParams{Interval: stripe.String(params.Interval)}
	}
	addMetadata(p, params.Metadata)
	p.SetStripeAccount(acct)
	p.Context = ctx

	price, err := s.sc.Prices.New(p)
	if err != nil {
		return nil, s.fail("prices.create", acct, err)
	}
	out := &RemotePrice{ID: price.ID, UnitAmount: price.UnitAmount}
	if price.Recurring != nil {
		out.Interval = string(price.Recurring.Interval)
	}
	return out, nil
}

// ------------------- Payment methods & subscriptions -------------------

func (s *stripeProcessor) CreateSetupIntent(ctx context.Context, acct, customerID string) (*SetupIntent, error) {
	p := &stripe.SetupIntentParams{
		Customer: stripe.String(customerID),
		Usage:    stripe.String(string(stripe.SetupIntentUsageOffSession)),
		AutomaticPaymentMethods: &stripe.SetupIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	p.SetStripeAccount(acct)
	p.Context = ctx

	si, err := s.sc.SetupIntents.New(p)
	if err != nil {
		return nil, s.fail("setup_intents.create", acct, err)
	}
	return &SetupIntent{ID: si.ID, ClientSecret: si.ClientSecret}, nil
}

func (s *stripeProcessor) AttachPaymentMethod(ctx context.Context, acct, customerID, paymentMethodID string) error {
	ap := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	ap.SetStripeAccount(acct)
	ap.Context = ctx

	if _, err := s.sc.PaymentMethods.Attach(paymentMethodID, ap); err != nil {
		var se *stripe.Error
		// Already attached to this customer is fine; anything else is not.
		if !errors.As(err, &se) || se.Code != stripe.ErrorCodeResourceAlreadyExists {
			return s.fail("payment_methods.attach", acct, err)
		}
	}

	cp := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	cp.SetStripeAccount(acct)
	cp.Context = ctx

	if _, err := s.sc.Customers.Update(customerID, cp); err != nil {
		return s.fail("customers.update", acct, err)
	}
	return nil
}

func (s *stripeProcessor) CreateSubscription(ctx context.Context, acct string, params SubscriptionParams) (*RemoteSubscription, error) {
	items := make([]*stripe.SubscriptionItemsParams, 0, len(params.Items))
	for _, it := range params.Items {
		items = append(items, &stripe.SubscriptionItemsParams{
			Price:    stripe.String(it.PriceID),
			Quantity: stripe.Int64(it.Quantity),
		})
	}

	p := &stripe.SubscriptionParams{
		Customer: stripe.String(params.CustomerID),
		Items:    items,
	}
	if params.PaymentMethodID != "" {
		p.DefaultPaymentMethod = stripe.String(params.PaymentMethodID)
	}
	if params.Description != "" {
		p.Description = stripe.String(params.Description)
	}
	addMetadata(p, params.Metadata)
	p.SetStripeAccount(acct)
	p.Context = ctx

	sub, err := s.sc.Subscriptions.New(p)
	if err != nil {
		return nil, s.fail("subscriptions.create", acct, err)
	}
	return toRemoteSubscription(sub), nil
}

func toRemoteSubscription(sub *stripe.Subscription) *RemoteSubscription {
	out := &RemoteSubscription{ID: sub.ID, Status: string(sub.Status)}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	return out
}

func (s *stripeProcessor) ListCustomerSubscriptions(ctx context.Context, acct, customerID string) ([]RemoteSubscription, error) {
	p := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	p.SetStripeAccount(acct)
	p.Context = ctx

	var out []RemoteSubscription
	it := s.sc.Subscriptions.List(p)
	for it.Next() {
		out = append(out, *toRemoteSubscription(it.Subscription()))
	}
	if err := it.Err(); err != nil {
		return nil, s.fail("subscriptions.list", acct, err)
	}
	return out, nil
}

// ------------------- Invoices -------------------

func (s *stripeProcessor) AddInvoiceItem(ctx context.Context, acct string, params InvoiceItemParams) (*RemoteInvoiceItem, error) {
	quantity := params.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	p := &stripe.InvoiceItemParams{
		Customer: stripe.String(params.CustomerID),
		Price:    stripe.String(params.PriceID),
		Quantity: stripe.Int64(quantity),
	}
	if params.SubscriptionID != "" {
		p.Subscription = stripe.String(params.SubscriptionID)
	}
	if params.InvoiceID != "" {
		p.Invoice = stripe.String(params.InvoiceID)
	}
	if params.Description != "" {
		p.Description = stripe.String(params.Description)
	}
	addMetadata(p, params.Metadata)
	p.SetStripeAccount(acct)
	p.Context = ctx

	item, err := s.sc.InvoiceItems.New(p)
	if err != nil {
		return nil, s.fail("invoice_items.create", acct, err)
	}
	return &RemoteInvoiceItem{ID: item.ID}, nil
}

func (s *stripeProcessor) CreateDraftInvoice(ctx context.Context, acct string, params InvoiceParams) (*RemoteInvoice, error) {
	p := &stripe.InvoiceParams{
		Customer:                    stripe.String(params.CustomerID),
		AutoAdvance:                 stripe.Bool(false),
		CollectionMethod:            stripe.String(string(stripe.InvoiceCollectionMethodChargeAutomatically)),
		PendingInvoiceItemsBehavior: stripe.String("exclude"),
	}
	if params.Description != "" {
		p.Description = stripe.String(params.Description)
	}
	addMetadata(p, params.Metadata)
	p.SetStripeAccount(acct)
	p.Context = ctx

	inv, err := s.sc.Invoices.New(p)
	if err != nil {
		return nil, s.fail("invoices.create", acct, err)
	}
	return toRemoteInvoice(inv), nil
}

func (s *stripeProcessor) FinalizeInvoice(ctx context.Context, acct, invoiceID string) (*RemoteInvoice, error) {
	p := &stripe.InvoiceFinalizeInvoiceParams{AutoAdvance: stripe.Bool(false)}
	p.SetStripeAccount(acct)
	p.Context = ctx

	inv, err := s.sc.Invoices.FinalizeInvoice(invoiceID, p)
	if err != nil {
		return nil, s.fail("invoices.finalize", acct, err)
	}
	return toRemoteInvoice(inv), nil
}

func (s *stripeProcessor) PayInvoice(ctx context.Context, acct, invoiceID string) (*RemoteInvoice, error) {
	p := &stripe.InvoicePayParams{}
	p.SetStripeAccount(acct)
	p.Context = ctx

	inv, err := s.sc.Invoices.Pay(invoiceID, p)
	if err != nil {
		return nil, s.fail("invoices.pay", acct, err)
	}
	return toRemoteInvoice(inv), nil
}

func (s *stripeProcessor) ListCustomerInvoices(ctx context.Context, acct, customerID string) ([]RemoteInvoice, error) {
	p := &stripe.InvoiceListParams{Customer: stripe.String(customerID)}
	p.SetStripeAccount(acct)
	p.Context = ctx

	var out []RemoteInvoice
	it := s.sc.Invoices.List(p)
	for it.Next() {
		out = append(out, *toRemoteInvoice(it.Invoice()))
	}
	if err := it.Err(); err != nil {
		return nil, s.fail("invoices.list", acct, err)
	}
	return out, nil
}

func toRemoteInvoice(inv *stripe.Invoice) *RemoteInvoice {
	out := &RemoteInvoice{
		ID:         inv.ID,
		Status:     string(inv.Status),
		AmountDue:  inv.AmountDue,
		AmountPaid: inv.AmountPaid,
		HostedURL:  inv.HostedInvoiceURL,
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	if inv.Subscription != nil {
		out.SubscriptionID = inv.Subscription.ID
	}
	return out
}

// ------------------- Webhooks -------------------

func (s *stripeProcessor) ParseWebhook(payload []byte, signature string) (*ProcessorEvent, error) {
	if s.cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: signing secret not configured", utils.ErrInvalidWebhook)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrInvalidWebhook, err)
	}
	if event.ID == "" || event.Type == "" || event.Data == nil {
		return nil, fmt.Errorf("%w: missing event fields", utils.ErrInvalidWebhook)
	}

	return &ProcessorEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		Account: event.Account,
		Data:    event.Data.Raw,
		Payload: payload,
	}, nil
}
