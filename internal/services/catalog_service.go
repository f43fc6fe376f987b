package services

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	dbm "schoolpay/internal/models/db_models"
	"schoolpay/internal/models/request_models"
	resp "schoolpay/internal/models/response_models"
	"schoolpay/internal/repositories"
	"schoolpay/pkg/utils"
)

//go:embed seed/catalog.csv
var defaultCatalogCSV []byte

const catalogTypeTuition = "tuition"

type CatalogService interface {
	CreateTuition(ctx context.Context, accountID uuid.UUID, req request_models.CreateTuitionRequest) (*resp.TuitionResponse, error)
	CreateProduct(ctx context.Context, accountID uuid.UUID, req request_models.CreateProductRequest) (*resp.ProductResponse, error)
	GetCatalog(ctx context.Context, accountID uuid.UUID) (*resp.CatalogResponse, error)
	// Populate creates the configured catalog for acct, skipping entries that already exist.
	Populate(ctx context.Context, acct *dbm.Account) (*resp.PopulateResult, error)
}

type CatalogConfig struct {
	// CSVPath overrides the embedded catalog when set.
	CSVPath string
}

type catalogService struct {
	accountRepo repositories.AccountRepository
	catalogRepo repositories.CatalogRepository
	processor   PaymentProcessor
	cfg         CatalogConfig
	validate    *validator.Validate
	log         *zap.Logger
}

func NewCatalogService(
	accountRepo repositories.AccountRepository,
	catalogRepo repositories.CatalogRepository,
	processor PaymentProcessor,
	cfg CatalogConfig,
	log *zap.Logger,
) CatalogService {
	return &catalogService{
		accountRepo: accountRepo,
		catalogRepo: catalogRepo,
		processor:   processor,
		cfg:         cfg,
		validate:    validator.New(),
		log:         log.Named("catalog"),
	}
}

func (s *catalogService) CreateTuition(ctx context.Context, accountID uuid.UUID, req request_models.CreateTuitionRequest) (*resp.TuitionResponse, error) {
	acct, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}

	sub, err := s.createTuition(ctx, acct, req.Name, req.YearLevel, req.YearlyAmount)
	if err != nil {
		return nil, err
	}
	out := toTuitionResponse(sub)
	return &out, nil
}

// createTuition creates one remote product with yearly, monthly and weekly prices, then the local rows.
func (s *catalogService) createTuition(ctx context.Context, acct *dbm.Account, name string, year int, yearly int64) (*dbm.Subscription, error) {
	if year < 1 || year > 12 || yearly < 0 || strings.TrimSpace(name) == "" {
		return nil, utils.ErrInvalidInput
	}

	product, err := s.processor.CreateProduct(ctx, acct.StripeAccountID, ProductParams{
		Name: name,
		Metadata: map[string]string{
			"type":       catalogTypeTuition,
			"year_level": strconv.Itoa(year),
		},
	})
	if err != nil {
		return nil, err
	}

	monthly, weekly := utils.PeriodAmounts(yearly)
	amounts := []struct {
		period dbm.BillingPeriod
		amount int64
	}{
		{dbm.PeriodYearly, yearly},
		{dbm.PeriodMonthly, monthly},
		{dbm.PeriodWeekly, weekly},
	}

	sub := &dbm.Subscription{
		AccountID:       acct.ID,
		Name:            name,
		YearLevel:       year,
		StripeProductID: product.ID,
	}
	for _, a := range amounts {
		price, err := s.processor.CreatePrice(ctx, acct.StripeAccountID, PriceParams{
			ProductID:  product.ID,
			UnitAmount: a.amount,
			Interval:   a.period.Interval(),
			Metadata:   map[string]string{"period": string(a.period)},
		})
		if err != nil {
			s.log.Error("tuition price creation failed",
				zap.String("tenant_id", acct.ID.String()),
				zap.String("product_id", product.ID),
				zap.String("period", string(a.period)),
				zap.Error(err))
			return nil, err
		}
		sub.Prices = append(sub.Prices, dbm.SubscriptionPrice{
			Period:        a.period,
			UnitAmount:    a.amount,
			StripePriceID: price.ID,
		})
	}

	if err := s.catalogRepo.CreateSubscription(ctx, sub); err != nil {
		s.log.Error("tuition saved remotely but not locally",
			zap.String("tenant_id", acct.ID.String()),
			zap.String("product_id", product.ID),
			zap.Error(err))
		return nil, utils.ErrDatabaseError
	}
	return sub, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, accountID uuid.UUID, req request_models.CreateProductRequest) (*resp.ProductResponse, error) {
	acct, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}

	product, err := s.createProduct(ctx, acct, req.Name, dbm.ProductType(req.Type), req.UnitAmount)
	if err != nil {
		return nil, err
	}
	out := toProductResponse(product)
	return &out, nil
}

func (s *catalogService) createProduct(ctx context.Context, acct *dbm.Account, name string, typ dbm.ProductType, amount int64) (*dbm.Product, error) {
	if typ != dbm.ProductTypeStudentItem && typ != dbm.ProductTypeParentItem {
		return nil, utils.ErrInvalidInput
	}
	if amount < 0 || strings.TrimSpace(name) == "" {
		return nil, utils.ErrInvalidInput
	}

	remote, err := s.processor.CreateProduct(ctx, acct.StripeAccountID, ProductParams{
		Name:     name,
		Metadata: map[string]string{"type": string(typ)},
	})
	if err != nil {
		return nil, err
	}

	price, err := s.processor.CreatePrice(ctx, acct.StripeAccountID, PriceParams{
		ProductID:  remote.ID,
		UnitAmount: amount,
	})
	if err != nil {
		return nil, err
	}

	product := &dbm.Product{
		AccountID:       acct.ID,
		Name:            name,
		Type:            typ,
		StripeProductID: remote.ID,
		StripePriceID:   price.ID,
		UnitAmount:      amount,
	}
	if err := s.catalogRepo.CreateProduct(ctx, product); err != nil {
		s.log.Error("product saved remotely but not locally",
			zap.String("tenant_id", acct.ID.String()),
			zap.String("product_id", remote.ID),
			zap.Error(err))
		return nil, utils.ErrDatabaseError
	}
	return product, nil
}

func (s *catalogService) GetCatalog(ctx context.Context, accountID uuid.UUID) (*resp.CatalogResponse, error) {
	subs, err := s.catalogRepo.ListSubscriptions(ctx, accountID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	products, err := s.catalogRepo.ListProducts(ctx, accountID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}

	out := &resp.CatalogResponse{
		Tuition:  make([]resp.TuitionResponse, 0, len(subs)),
		Products: make([]resp.ProductResponse, 0, len(products)),
	}
	for i := range subs {
		out.Tuition = append(out.Tuition, toTuitionResponse(&subs[i]))
	}
	for i := range products {
		out.Products = append(out.Products, toProductResponse(&products[i]))
	}
	return out, nil
}

func (s *catalogService) Populate(ctx context.Context, acct *dbm.Account) (*resp.PopulateResult, error) {
	raw, err := s.catalogSource()
	if err != nil {
		return nil, err
	}
	rows, err := ParseCatalogCSV(bytes.NewReader(raw), s.validate)
	if err != nil {
		return nil, err
	}

	subs, err := s.catalogRepo.ListSubscriptions(ctx, acct.ID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	products, err := s.catalogRepo.ListProducts(ctx, acct.ID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}

	existing := make(map[string]bool, len(subs)+len(products))
	for _, sub := range subs {
		existing[rowKey(catalogTypeTuition, sub.Name, sub.YearLevel)] = true
	}
	for _, p := range products {
		existing[rowKey(string(p.Type), p.Name, 0)] = true
	}

	result := &resp.PopulateResult{}
	for _, row := range rows {
		if existing[row.key()] {
			result.Skipped++
			continue
		}

		if row.Type == catalogTypeTuition {
			_, err = s.createTuition(ctx, acct, row.Title, row.Year, row.Amount)
		} else {
			_, err = s.createProduct(ctx, acct, row.Title, dbm.ProductType(row.Type), row.Amount)
		}
		if err != nil {
			return result, fmt.Errorf("populate %q: %w", row.Title, err)
		}
		existing[row.key()] = true
		result.Created++
	}

	s.log.Info("catalog populated",
		zap.String("tenant_id", acct.ID.String()),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (s *catalogService) catalogSource() ([]byte, error) {
	if s.cfg.CSVPath == "" {
		return defaultCatalogCSV, nil
	}
	raw, err := os.ReadFile(s.cfg.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", s.cfg.CSVPath, err)
	}
	return raw, nil
}

// ------------------- CSV -------------------

type CatalogRow struct {
	Title  string `validate:"required,max=200"`
	Type   string `validate:"required,oneof=tuition studentItem parentItem"`
	Amount int64  `validate:"gte=0"`
	Year   int    `validate:"gte=0,lte=12"`
}

func (r CatalogRow) key() string {
	if r.Type == catalogTypeTuition {
		return rowKey(r.Type, r.Title, r.Year)
	}
	return rowKey(r.Type, r.Title, 0)
}

func rowKey(typ, title string, year int) string {
	return typ + "|" + strings.ToLower(strings.TrimSpace(title)) + "|" + strconv.Itoa(year)
}

var catalogHeader = []string{"title", "type", "amount", "year"}

// ParseCatalogCSV reads and validates every row before anything is created.
func ParseCatalogCSV(r io.Reader, validate *validator.Validate) ([]CatalogRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = len(catalogHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", utils.ErrInvalidCatalog, err)
	}
	for i, h := range catalogHeader {
		if strings.TrimSpace(strings.ToLower(header[i])) != h {
			return nil, fmt.Errorf("%w: expected header %s", utils.ErrInvalidCatalog, strings.Join(catalogHeader, ","))
		}
	}

	var rows []CatalogRow
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", utils.ErrInvalidCatalog, line, err)
		}

		row := CatalogRow{Title: strings.TrimSpace(rec[0]), Type: strings.TrimSpace(rec[1])}
		if row.Amount, err = strconv.ParseInt(strings.TrimSpace(rec[2]), 10, 64); err != nil {
			return nil, fmt.Errorf("%w: line %d: amount must be an integer", utils.ErrInvalidCatalog, line)
		}
		if y := strings.TrimSpace(rec[3]); y != "" {
			if row.Year, err = strconv.Atoi(y); err != nil {
				return nil, fmt.Errorf("%w: line %d: year must be an integer", utils.ErrInvalidCatalog, line)
			}
		}
		if err := validate.Struct(row); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", utils.ErrInvalidCatalog, line, err)
		}
		if row.Type == catalogTypeTuition && row.Year == 0 {
			return nil, fmt.Errorf("%w: line %d: tuition requires a year", utils.ErrInvalidCatalog, line)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
