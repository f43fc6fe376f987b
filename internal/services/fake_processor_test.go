package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var errFakeDeclined = errors.New("card declined")

// fakeProcessor records every call and hands out sequential remote ids.
type fakeProcessor struct {
	mu    sync.Mutex
	seq   int
	calls []string

	connected map[string]*ConnectedAccount

	customers      []CustomerParams
	products       []ProductParams
	prices         []PriceParams
	attached       []string
	subscriptions  []SubscriptionParams
	invoiceItems   []InvoiceItemParams
	invoices       []InvoiceParams
	finalized      []string
	paid           []string
	portalConfigs  []string
	portalSessions []PortalSessionParams
	accountLinks   []string
	remoteSubs     map[string][]RemoteSubscription
	remoteInvoices map[string][]RemoteInvoice
	webhookEvent   *ProcessorEvent
	webhookErr     error

	// failOn maps an operation to the call number (1-based) that fails.
	failOn map[string]int
	counts map[string]int
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		connected:      map[string]*ConnectedAccount{},
		remoteSubs:     map[string][]RemoteSubscription{},
		remoteInvoices: map[string][]RemoteInvoice{},
		failOn:         map[string]int{},
		counts:         map[string]int{},
	}
}

func (f *fakeProcessor) record(op string) (string, error) {
	f.calls = append(f.calls, op)
	f.counts[op]++
	if n, ok := f.failOn[op]; ok && n == f.counts[op] {
		return "", fmt.Errorf("%s: %w", op, errFakeDeclined)
	}
	f.seq++
	return fmt.Sprintf("%d", f.seq), nil
}

func (f *fakeProcessor) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[op]
}

func (f *fakeProcessor) CreateConnectedAccount(_ context.Context, params ConnectedAccountParams) (*ConnectedAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.record("CreateConnectedAccount")
	if err != nil {
		return nil, err
	}
	a := &ConnectedAccount{ID: "acct_" + n, Capabilities: map[string]string{}}
	f.connected[a.ID] = a
	return a, nil
}

func (f *fakeProcessor) GetConnectedAccount(_ context.Context, acct string) (*ConnectedAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.record("GetConnectedAccount"); err != nil {
		return nil, err
	}
	a, ok := f.connected[acct]
	if !ok {
		return &ConnectedAccount{ID: acct}, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeProcessor) CreateAccountLink(_ context.Context, acct, refreshURL, returnURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.record("CreateAccountLink"); err != nil {
		return "", err
	}
	f.accountLinks = append(f.accountLinks, returnURL)
	return "https://connect.test/setup/" + acct, nil
}

func (f *fakeProcessor) CreatePortalConfiguration(_ context.Context, acct, returnURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.record("CreatePortalConfiguration")
	if err != nil {
		return "", err
	}
	f.portalConfigs = append(f.portalConfigs, acct)
	return "bpc_" + n, nil
}

func (f *fakeProcessor) CreatePortalSession(_ context.Context, acct string, params PortalSessionParams) (*PortalSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.record("CreatePortalSession")
	if err != nil {
		return nil, err
	}
	f.portalSessions = append(f.portalSessions, params)
	return &PortalSession{ID: "bps_" + n, URL: "https://billing.test/session/" + n}, nil
}

func (f *fakeProcessor) CreateCustomer(_ context.Context, acct string, params CustomerParams) (*RemoteCustomer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.record("CreateCustomer")
	if err != nil {
		return nil, err
	}
	f.customers = append(f.customers, params)
	return &RemoteCustomer{ID: "cus_" + n, Email: params.Email}, nil
}

func (f *fakeProcessor) CreateProduct(_ context.Context, acct string, params ProductParams) (*RemoteProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.record("CreateProduct")
	if err != nil {
		return nil, err
	}
	f.products = append(f.products, params)
	return &RemoteProduct{ID: "prod_" + n, Name: params.Name}, nil
}

func (f *fakeProcessor) CreatePrice(_ context.Context, acct string, params PriceParams) (*RemotePrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.record("CreatePrice")
	if err != nil {
		return nil, err
	}
	f.prices = append(f.prices, params)
	return &RemotePrice{ID: "price_" + n, UnitAmount: params.UnitAmount, Interval: params.Interval}, nil
}

func (f *fakeProcessor) CreateSetupIntent(_ context.Context, acct, customerID string) (*SetupIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.record("CreateSetupIntent")
	if err != nil {
		return nil, err
	}
	return &SetupIntent{ID: "seti_" + n, ClientSecret: "seti_" + n + "_secret"}, nil
}

func (f *fakeProcessor) AttachPaymentMethod(_ context.Context, acct, customerID, paymentMethodID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.record("AttachPaymentMethod"); err != nil {
		return err
	}
	f.attached = append(f.attached, customerID+":"+paymentMethodID)
	return nil
}

func (f *fakeProcessor) CreateSubscription(_ context.Context, acct string, params SubscriptionParams) (*RemoteSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.record("CreateSubscription")
	if err != nil {
		return nil, err
	}
	f.subscriptions = append(f.subscriptions, params)
	sub := RemoteSubscription{ID: "sub_" + n, CustomerID: params.CustomerID, Status: "active"}
	f.remoteSubs[params.CustomerID] = append(f.remoteSubs[params.CustomerID], sub)
	return &sub, nil
}

func (f *fakeProcessor) AddInvoiceItem(_ context.Context, acct string, params InvoiceItemParams) (*RemoteInvoiceItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.record("AddInvoiceItem")
	if err != nil {
		return nil, err
	}
	f.invoiceItems = append(f.invoiceItems, params)
	return &RemoteInvoiceItem{ID: "ii_" + n}, nil
}

func (f *fakeProcessor) CreateDraftInvoice(_ context.Context, acct string, params InvoiceParams) (*RemoteInvoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.record("CreateDraftInvoice")
	if err != nil {
		return nil, err
	}
	f.invoices = append(f.invoices, params)
	return &RemoteInvoice{ID: "in_" + n, CustomerID: params.CustomerID, Status: "draft"}, nil
}

func (f *fakeProcessor) FinalizeInvoice(_ context.Context, acct, invoiceID string) (*RemoteInvoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.record("FinalizeInvoice"); err != nil {
		return nil, err
	}
	f.finalized = append(f.finalized, invoiceID)
	return &RemoteInvoice{ID: invoiceID, Status: "open"}, nil
}

func (f *fakeProcessor) PayInvoice(_ context.Context, acct, invoiceID string) (*RemoteInvoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.record("PayInvoice"); err != nil {
		return nil, err
	}
	f.paid = append(f.paid, invoiceID)
	return &RemoteInvoice{ID: invoiceID, Status: "paid", AmountPaid: 1}, nil
}

func (f *fakeProcessor) ListCustomerSubscriptions(_ context.Context, acct, customerID string) ([]RemoteSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.record("ListCustomerSubscriptions"); err != nil {
		return nil, err
	}
	return f.remoteSubs[customerID], nil
}

func (f *fakeProcessor) ListCustomerInvoices(_ context.Context, acct, customerID string) ([]RemoteInvoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.record("ListCustomerInvoices"); err != nil {
		return nil, err
	}
	return f.remoteInvoices[customerID], nil
}

func (f *fakeProcessor) ParseWebhook(payload []byte, signature string) (*ProcessorEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.webhookErr != nil {
		return nil, f.webhookErr
	}
	return f.webhookEvent, nil
}
