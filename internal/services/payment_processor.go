package services

import (
	"context"
	"fmt"
	"strings"
)

// PaymentProcessor is the boundary to the payment processor. Every call that
// touches a school's objects is made on behalf of its connected account acct.
type PaymentProcessor interface {
	CreateConnectedAccount(ctx context.Context, params ConnectedAccountParams) (*ConnectedAccount, error)
	GetConnectedAccount(ctx context.Context, acct string) (*ConnectedAccount, error)
	CreateAccountLink(ctx context.Context, acct, refreshURL, returnURL string) (string, error)
	CreatePortalConfiguration(ctx context.Context, acct, returnURL string) (string, error)
	CreatePortalSession(ctx context.Context, acct string, params PortalSessionParams) (*PortalSession, error)

	CreateCustomer(ctx context.Context, acct string, params CustomerParams) (*RemoteCustomer, error)
	CreateProduct(ctx context.Context, acct string, params ProductParams) (*RemoteProduct, error)
	CreatePrice(ctx context.Context, acct string, params PriceParams) (*RemotePrice, error)
	CreateSetupIntent(ctx context.Context, acct, customerID string) (*SetupIntent, error)
	// AttachPaymentMethod attaches the method and makes it the invoice default.
	AttachPaymentMethod(ctx context.Context, acct, customerID, paymentMethodID string) error
	CreateSubscription(ctx context.Context, acct string, params SubscriptionParams) (*RemoteSubscription, error)

	AddInvoiceItem(ctx context.Context, acct string, params InvoiceItemParams) (*RemoteInvoiceItem, error)
	CreateDraftInvoice(ctx context.Context, acct string, params InvoiceParams) (*RemoteInvoice, error)
	FinalizeInvoice(ctx context.Context, acct, invoiceID string) (*RemoteInvoice, error)
	PayInvoice(ctx context.Context, acct, invoiceID string) (*RemoteInvoice, error)

	ListCustomerSubscriptions(ctx context.Context, acct, customerID string) ([]RemoteSubscription, error)
	ListCustomerInvoices(ctx context.Context, acct, customerID string) ([]RemoteInvoice, error)

	// ParseWebhook verifies the signature and fails closed.
	ParseWebhook(payload []byte, signature string) (*ProcessorEvent, error)
}

type ConnectedAccountParams struct {
	Country      string
	Email        string
	BusinessName string
	BusinessType string
}

type ConnectedAccount struct {
	ID               string
	ChargesEnabled   bool
	DetailsSubmitted bool
	PayoutsEnabled   bool
	Capabilities     map[string]string
}

type PortalSessionParams struct {
	CustomerID      string
	ConfigurationID string
	ReturnURL       string
}

type PortalSession struct {
	ID  string
	URL string
}

type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

func (a *Address) Empty() bool {
	return a == nil || (a.Line1 == "" && a.City == "" && a.PostalCode == "")
}

type CustomerParams struct {
	Email    string
	Name     string
	Address  *Address
	Metadata map[string]string
}

type RemoteCustomer struct {
	ID    string
	Email string
}

type ProductParams struct {
	Name     string
	Metadata map[string]string
}

type RemoteProduct struct {
	ID   string
	Name string
}

type PriceParams struct {
	ProductID  string
	UnitAmount int64
	// Interval is "week", "month" or "year"; empty creates a one-off price.
	Interval string
	Metadata map[string]string
}

type RemotePrice struct {
	ID         string
	UnitAmount int64
	Interval   string
}

type SetupIntent struct {
	ID           string
	ClientSecret string
}

type SubscriptionItem struct {
	PriceID  string
	Quantity int64
}

type SubscriptionParams struct {
	CustomerID      string
	PaymentMethodID string
	Items           []SubscriptionItem
	Description     string
	Metadata        map[string]string
}

type RemoteSubscription struct {
	ID         string
	CustomerID string
	Status     string
}

// Active reports whether the subscription still bills.
func (s RemoteSubscription) Active() bool {
	switch s.Status {
	case "active", "trialing", "past_due", "incomplete":
		return true
	}
	return false
}

type InvoiceItemParams struct {
	CustomerID     string
	SubscriptionID string
	InvoiceID      string
	PriceID        string
	Quantity       int64
	Description    string
	Metadata       map[string]string
}

type RemoteInvoiceItem struct {
	ID string
}

type InvoiceParams struct {
	CustomerID  string
	Description string
	Metadata    map[string]string
}

type RemoteInvoice struct {
	ID             string
	CustomerID     string
	SubscriptionID string
	Status         string
	AmountDue      int64
	AmountPaid     int64
	HostedURL      string
}

// ProcessorEvent is a verified webhook delivery. Data holds the raw event object.
type ProcessorEvent struct {
	ID      string
	Type    string
	Account string
	Data    []byte
	Payload []byte
}

// WorkflowError reports a multi-step remote workflow that stopped part way.
type WorkflowError struct {
	Step      string
	RemoteIDs []string
	Err       error
}

func (e *WorkflowError) Error() string {
	if len(e.RemoteIDs) == 0 {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s (created %s): %v", e.Step, strings.Join(e.RemoteIDs, ","), e.Err)
}

func (e *WorkflowError) Unwrap() error { return e.Err }

// InvoiceLine is one charge on an invoice created by CreateAndPayInvoice.
type InvoiceLine struct {
	PriceID     string
	Quantity    int64
	Description string
	Metadata    map[string]string
}

// CreateAndPayInvoice runs draft -> items -> finalize -> pay. On failure it
// returns a *WorkflowError naming the step and the remote ids created so far.
func CreateAndPayInvoice(ctx context.Context, p PaymentProcessor, acct string, params InvoiceParams, lines []InvoiceLine) (*RemoteInvoice, []string, error) {
	var created []string

	draft, err := p.CreateDraftInvoice(ctx, acct, params)
	if err != nil {
		return nil, nil, &WorkflowError{Step: "create_invoice", Err: err}
	}
	created = append(created, draft.ID)

	itemIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		item, err := p.AddInvoiceItem(ctx, acct, InvoiceItemParams{
			CustomerID:  params.CustomerID,
			InvoiceID:   draft.ID,
			PriceID:     line.PriceID,
			Quantity:    line.Quantity,
			Description: line.Description,
			Metadata:    line.Metadata,
		})
		if err != nil {
			return nil, nil, &WorkflowError{Step: "add_invoice_item", RemoteIDs: created, Err: err}
		}
		created = append(created, item.ID)
		itemIDs = append(itemIDs, item.ID)
	}

	if _, err := p.FinalizeInvoice(ctx, acct, draft.ID); err != nil {
		return nil, nil, &WorkflowError{Step: "finalize_invoice", RemoteIDs: created, Err: err}
	}

	paid, err := p.PayInvoice(ctx, acct, draft.ID)
	if err != nil {
		return nil, nil, &WorkflowError{Step: "pay_invoice", RemoteIDs: created, Err: err}
	}
	return paid, itemIDs, nil
}
