package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	dbm "schoolpay/internal/models/db_models"
	"schoolpay/internal/models/request_models"
	resp "schoolpay/internal/models/response_models"
	"schoolpay/internal/repositories"
	"schoolpay/pkg/utils"
)

// MaxPurchaseQuantity bounds a single line. Subscription mode creates one
// invoice item per unit.
const MaxPurchaseQuantity = 50

type PurchaseService interface {
	// AddPurchases expands composite-key quantities and bills them on the parent's
	// subscription or on a new invoice charged now.
	AddPurchases(ctx context.Context, accountID, parentID uuid.UUID, req request_models.AddPurchasesRequest) (*resp.AddPurchasesResponse, error)
	// AddProductToParent adds one pending item to the parent's current subscription.
	AddProductToParent(ctx context.Context, accountID, parentID, productID uuid.UUID, studentID *uuid.UUID) (*resp.PurchaseResponse, error)
	CreateParentInvoice(ctx context.Context, accountID, parentID uuid.UUID, req request_models.CreateInvoiceRequest) (*resp.InvoiceResponse, error)
}

type purchaseService struct {
	accountRepo repositories.AccountRepository
	parentRepo  repositories.ParentRepository
	catalogRepo repositories.CatalogRepository
	billingRepo repositories.BillingRepository
	parents     ParentService
	processor   PaymentProcessor
	log         *zap.Logger
}

func NewPurchaseService(
	accountRepo repositories.AccountRepository,
	parentRepo repositories.ParentRepository,
	catalogRepo repositories.CatalogRepository,
	billingRepo repositories.BillingRepository,
	parents ParentService,
	processor PaymentProcessor,
	log *zap.Logger,
) PurchaseService {
	return &purchaseService{
		accountRepo: accountRepo,
		parentRepo:  parentRepo,
		catalogRepo: catalogRepo,
		billingRepo: billingRepo,
		parents:     parents,
		processor:   processor,
		log:         log.Named("purchases"),
	}
}

// PurchaseKey is a parsed student_<studentId>_<productId> or parent_<productId> key.
type PurchaseKey struct {
	StudentID *uuid.UUID
	ProductID uuid.UUID
}

func ParsePurchaseKey(key string) (PurchaseKey, error) {
	parts := strings.Split(key, "_")
	switch {
	case len(parts) == 3 && parts[0] == "student":
		studentID, err := uuid.Parse(parts[1])
		if err != nil {
			return PurchaseKey{}, fmt.Errorf("purchase key %q: %w", key, utils.ErrInvalidPurchaseKey)
		}
		productID, err := uuid.Parse(parts[2])
		if err != nil {
			return PurchaseKey{}, fmt.Errorf("purchase key %q: %w", key, utils.ErrInvalidPurchaseKey)
		}
		return PurchaseKey{StudentID: &studentID, ProductID: productID}, nil
	case len(parts) == 2 && parts[0] == "parent":
		productID, err := uuid.Parse(parts[1])
		if err != nil {
			return PurchaseKey{}, fmt.Errorf("purchase key %q: %w", key, utils.ErrInvalidPurchaseKey)
		}
		return PurchaseKey{ProductID: productID}, nil
	}
	return PurchaseKey{}, fmt.Errorf("purchase key %q: %w", key, utils.ErrInvalidPurchaseKey)
}

// purchaseLine is one resolved product charge with its quantity.
type purchaseLine struct {
	product  *dbm.Product
	student  *dbm.Student
	quantity int64
}

func (l purchaseLine) studentID() *uuid.UUID {
	if l.student == nil {
		return nil
	}
	id := l.student.ID
	return &id
}

func (l purchaseLine) description(extra string) string {
	d := l.product.Name
	if l.student != nil {
		d += " - " + l.student.FullName()
	}
	if extra != "" {
		d += " (" + extra + ")"
	}
	return d
}

func (l purchaseLine) metadata(acct *dbm.Account, parent *dbm.Parent) map[string]string {
	md := map[string]string{
		"tenant_id":  acct.ID.String(),
		"parent_id":  parent.ID.String(),
		"product_id": l.product.ID.String(),
	}
	if l.student != nil {
		md["student_id"] = l.student.ID.String()
	}
	return md
}

type lineRef struct {
	productID uuid.UUID
	studentID *uuid.UUID
	quantity  int64
}

// resolveLines loads the products and students named by refs, scoped to the tenant and parent.
func (s *purchaseService) resolveLines(ctx context.Context, acct *dbm.Account, parent *dbm.Parent, refs []lineRef) ([]purchaseLine, error) {
	productIDs := make([]uuid.UUID, 0, len(refs))
	var studentIDs []uuid.UUID
	for _, r := range refs {
		productIDs = append(productIDs, r.productID)
		if r.studentID != nil {
			studentIDs = append(studentIDs, *r.studentID)
		}
	}

	products, err := s.catalogRepo.FindProducts(ctx, acct.ID, productIDs)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	productByID := make(map[uuid.UUID]*dbm.Product, len(products))
	for i := range products {
		productByID[products[i].ID] = &products[i]
	}

	studentByID := map[uuid.UUID]*dbm.Student{}
	if len(studentIDs) > 0 {
		students, err := s.parentRepo.FindStudents(ctx, parent.ID, studentIDs)
		if err != nil {
			return nil, utils.ErrDatabaseError
		}
		for i := range students {
			studentByID[students[i].ID] = &students[i]
		}
	}

	lines := make([]purchaseLine, 0, len(refs))
	for _, r := range refs {
		product, ok := productByID[r.productID]
		if !ok {
			return nil, utils.ErrProductNotFound
		}
		line := purchaseLine{product: product, quantity: r.quantity}
		if r.studentID != nil {
			st, ok := studentByID[*r.studentID]
			if !ok {
				return nil, utils.ErrStudentNotFound
			}
			if product.Type != dbm.ProductTypeStudentItem {
				return nil, fmt.Errorf("%s is not a student item: %w", product.Name, utils.ErrInvalidInput)
			}
			line.student = st
		} else if product.Type == dbm.ProductTypeStudentItem {
			return nil, fmt.Errorf("%s needs a student: %w", product.Name, utils.ErrInvalidInput)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *purchaseService) AddPurchases(ctx context.Context, accountID, parentID uuid.UUID, req request_models.AddPurchasesRequest) (*resp.AddPurchasesResponse, error) {
	if req.Mode != request_models.PurchaseModeSubscription && req.Mode != request_models.PurchaseModeInvoice {
		return nil, utils.ErrInvalidInput
	}

	keys := make([]string, 0, len(req.Items))
	for k := range req.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	refs := make([]lineRef, 0, len(keys))
	for _, k := range keys {
		pk, err := ParsePurchaseKey(k)
		if err != nil {
			return nil, err
		}
		qty := req.Items[k]
		if qty > MaxPurchaseQuantity {
			return nil, fmt.Errorf("quantity %d for %q over %d: %w", qty, k, MaxPurchaseQuantity, utils.ErrInvalidInput)
		}
		if qty > 0 {
			refs = append(refs, lineRef{productID: pk.ProductID, studentID: pk.StudentID, quantity: qty})
		}
	}
	if len(refs) == 0 {
		return nil, utils.ErrNoBillableItems
	}

	acct, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}
	parent, err := loadParent(ctx, s.parentRepo, accountID, parentID)
	if err != nil {
		return nil, err
	}
	lines, err := s.resolveLines(ctx, acct, parent, refs)
	if err != nil {
		return nil, err
	}

	out := &resp.AddPurchasesResponse{Mode: req.Mode}
	if req.Mode == request_models.PurchaseModeInvoice {
		invoice, err := s.chargeInvoice(ctx, acct, parent, lines, req.Description)
		if err != nil {
			return nil, err
		}
		out.Invoice = invoice
		out.Purchases = invoice.Purchases
		return out, nil
	}

	rows, err := s.addToSubscription(ctx, acct, parent, lines, req.Description)
	out.Purchases = toPurchaseResponses(rows)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *purchaseService) AddProductToParent(ctx context.Context, accountID, parentID, productID uuid.UUID, studentID *uuid.UUID) (*resp.PurchaseResponse, error) {
	acct, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}
	parent, err := loadParent(ctx, s.parentRepo, accountID, parentID)
	if err != nil {
		return nil, err
	}
	lines, err := s.resolveLines(ctx, acct, parent, []lineRef{{productID: productID, studentID: studentID, quantity: 1}})
	if err != nil {
		return nil, err
	}

	rows, err := s.addToSubscription(ctx, acct, parent, lines, "")
	if err != nil {
		return nil, err
	}
	out := toPurchaseResponse(&rows[0])
	return &out, nil
}

// addToSubscription adds one pending invoice item per unit to the parent's current
// subscription. Rows are written for every item the processor accepted, even when a
// later unit fails.
func (s *purchaseService) addToSubscription(ctx context.Context, acct *dbm.Account, parent *dbm.Parent, lines []purchaseLine, note string) ([]dbm.ParentPurchase, error) {
	if parent.CurrentSubscriptionID == "" {
		return nil, utils.ErrNoActiveSubscription
	}
	customerID, err := s.parents.EnsureCustomer(ctx, acct, parent)
	if err != nil {
		return nil, err
	}

	logger := s.log.With(
		zap.String("tenant_id", acct.ID.String()),
		zap.String("parent_id", parent.ID.String()),
		zap.String("subscription_id", parent.CurrentSubscriptionID))

	var rows []dbm.ParentPurchase
	var failure error
	for _, line := range lines {
		for i := int64(0); i < line.quantity && failure == nil; i++ {
			item, err := s.processor.AddInvoiceItem(ctx, acct.StripeAccountID, InvoiceItemParams{
				CustomerID:     customerID,
				SubscriptionID: parent.CurrentSubscriptionID,
				PriceID:        line.product.StripePriceID,
				Quantity:       1,
				Description:    line.description(note),
				Metadata:       line.metadata(acct, parent),
			})
			if err != nil {
				created := make([]string, 0, len(rows))
				for _, r := range rows {
					created = append(created, r.StripeInvoiceItemID)
				}
				failure = &WorkflowError{Step: "add_invoice_item", RemoteIDs: created, Err: err}
				break
			}
			rows = append(rows, dbm.ParentPurchase{
				ParentID:            parent.ID,
				ProductID:           line.product.ID,
				StudentID:           line.studentID(),
				StripeInvoiceItemID: item.ID,
				Quantity:            1,
				UnitAmount:          line.product.UnitAmount,
				Description:         line.description(note),
			})
		}
	}

	if failure != nil {
		logger.Error("subscription purchase stopped part way", zap.Int("items_created", len(rows)), zap.Error(failure))
	}
	if len(rows) > 0 {
		if err := s.billingRepo.CreatePurchases(ctx, rows); err != nil {
			logger.Error("invoice items created but purchases not stored", zap.Error(err))
			return nil, utils.ErrDatabaseError
		}
	}
	if failure != nil {
		return rows, failure
	}
	logger.Info("items added to subscription", zap.Int("items", len(rows)))
	return rows, nil
}

func (s *purchaseService) CreateParentInvoice(ctx context.Context, accountID, parentID uuid.UUID, req request_models.CreateInvoiceRequest) (*resp.InvoiceResponse, error) {
	if len(req.Lines) == 0 {
		return nil, utils.ErrNoBillableItems
	}
	refs := make([]lineRef, 0, len(req.Lines))
	for _, l := range req.Lines {
		productID, err := uuid.Parse(l.ProductID)
		if err != nil || l.Quantity <= 0 || l.Quantity > MaxPurchaseQuantity {
			return nil, utils.ErrInvalidInput
		}
		ref := lineRef{productID: productID, quantity: l.Quantity}
		if l.StudentID != "" {
			studentID, err := uuid.Parse(l.StudentID)
			if err != nil {
				return nil, utils.ErrInvalidInput
			}
			ref.studentID = &studentID
		}
		refs = append(refs, ref)
	}

	acct, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}
	parent, err := loadParent(ctx, s.parentRepo, accountID, parentID)
	if err != nil {
		return nil, err
	}
	lines, err := s.resolveLines(ctx, acct, parent, refs)
	if err != nil {
		return nil, err
	}
	return s.chargeInvoice(ctx, acct, parent, lines, req.Description)
}

// chargeInvoice bills lines on a new invoice and pays it now. Purchase rows are
// written only once the invoice is paid.
func (s *purchaseService) chargeInvoice(ctx context.Context, acct *dbm.Account, parent *dbm.Parent, lines []purchaseLine, description string) (*resp.InvoiceResponse, error) {
	customerID, err := s.parents.EnsureCustomer(ctx, acct, parent)
	if err != nil {
		return nil, err
	}

	invoiceLines := make([]InvoiceLine, 0, len(lines))
	for _, line := range lines {
		invoiceLines = append(invoiceLines, InvoiceLine{
			PriceID:     line.product.StripePriceID,
			Quantity:    line.quantity,
			Description: line.description(""),
			Metadata:    line.metadata(acct, parent),
		})
	}

	logger := s.log.With(
		zap.String("tenant_id", acct.ID.String()),
		zap.String("parent_id", parent.ID.String()),
		zap.String("customer_id", customerID))

	invoice, itemIDs, err := CreateAndPayInvoice(ctx, s.processor, acct.StripeAccountID, InvoiceParams{
		CustomerID:  customerID,
		Description: description,
		Metadata: map[string]string{
			"tenant_id": acct.ID.String(),
			"parent_id": parent.ID.String(),
		},
	}, invoiceLines)
	if err != nil {
		var wf *WorkflowError
		if errors.As(err, &wf) {
			logger.Error("invoice workflow failed",
				zap.String("step", wf.Step),
				zap.Strings("remote_ids", wf.RemoteIDs),
				zap.Error(wf.Err))
		}
		return nil, err
	}

	rows := make([]dbm.ParentPurchase, 0, len(lines))
	for i, line := range lines {
		rows = append(rows, dbm.ParentPurchase{
			ParentID:            parent.ID,
			ProductID:           line.product.ID,
			StudentID:           line.studentID(),
			StripeInvoiceID:     invoice.ID,
			StripeInvoiceItemID: itemIDs[i],
			Quantity:            line.quantity,
			UnitAmount:          line.product.UnitAmount,
			Description:         line.description(""),
		})
	}
	if err := s.billingRepo.CreatePurchases(ctx, rows); err != nil {
		logger.Error("invoice paid but purchases not stored",
			zap.String("invoice_id", invoice.ID),
			zap.Strings("invoice_item_ids", itemIDs),
			zap.Error(err))
		return nil, utils.ErrDatabaseError
	}

	logger.Info("invoice paid", zap.String("invoice_id", invoice.ID), zap.Int("lines", len(rows)))
	return &resp.InvoiceResponse{
		StripeInvoiceID: invoice.ID,
		Status:          invoice.Status,
		AmountPaid:      invoice.AmountPaid,
		HostedURL:       invoice.HostedURL,
		Purchases:       toPurchaseResponses(rows),
	}, nil
}
