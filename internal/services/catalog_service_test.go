package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	dbm "schoolpay/internal/models/db_models"
	"schoolpay/internal/models/request_models"
	"schoolpay/internal/repositories"
	"schoolpay/internal/testutil"
	"schoolpay/pkg/utils"
)

func newTestCatalogService(t *testing.T, cfg CatalogConfig) (*catalogService, *fakeProcessor, repositories.CatalogRepository, *dbm.Account) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	acct := testutil.SeedAccount(t, db, "acct_school")
	fake := newFakeProcessor()
	catalogRepo := repositories.NewCatalogRepository(db)
	svc := NewCatalogService(repositories.NewAccountRepository(db), catalogRepo, fake, cfg, zap.NewNop()).(*catalogService)
	return svc, fake, catalogRepo, acct
}

// A yearly tuition amount yields three prices with derived amounts.
func TestCatalogService_CreateTuition(t *testing.T) {
	svc, fake, catalogRepo, acct := newTestCatalogService(t, CatalogConfig{})
	ctx := context.Background()

	out, err := svc.CreateTuition(ctx, acct.ID, request_models.CreateTuitionRequest{
		Name: "Year 4 Tuition", YearLevel: 4, YearlyAmount: 500000,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, fake.count("CreateProduct"))
	require.Len(t, fake.prices, 3)
	got := map[string]int64{}
	for _, p := range fake.prices {
		got[p.Interval] = p.UnitAmount
		assert.Equal(t, out.StripeProductID, p.ProductID)
	}
	assert.Equal(t, map[string]int64{"year": 500000, "month": 41667, "week": 9615}, got)

	for _, period := range []dbm.BillingPeriod{dbm.PeriodYearly, dbm.PeriodMonthly, dbm.PeriodWeekly} {
		price, err := catalogRepo.FindPrice(ctx, acct.ID, 4, period)
		require.NoError(t, err)
		require.NotNil(t, price, "period %s", period)
		assert.NotEmpty(t, price.StripePriceID)
	}
	monthly, err := catalogRepo.FindPrice(ctx, acct.ID, 4, dbm.PeriodMonthly)
	require.NoError(t, err)
	assert.Equal(t, int64(41667), monthly.UnitAmount)
}

func TestCatalogService_CreateTuitionRemoteFailureWritesNothing(t *testing.T) {
	svc, fake, catalogRepo, acct := newTestCatalogService(t, CatalogConfig{})
	fake.failOn["CreatePrice"] = 2
	ctx := context.Background()

	_, err := svc.CreateTuition(ctx, acct.ID, request_models.CreateTuitionRequest{
		Name: "Year 3 Tuition", YearLevel: 3, YearlyAmount: 500000,
	})
	require.ErrorIs(t, err, errFakeDeclined)

	subs, err := catalogRepo.ListSubscriptions(ctx, acct.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestCatalogService_CreateProduct(t *testing.T) {
	svc, fake, _, acct := newTestCatalogService(t, CatalogConfig{})
	ctx := context.Background()

	out, err := svc.CreateProduct(ctx, acct.ID, request_models.CreateProductRequest{
		Name: "School Hat", Type: "studentItem", UnitAmount: 2500,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), out.UnitAmount)
	require.Len(t, fake.prices, 1)
	assert.Empty(t, fake.prices[0].Interval, "one-off items have no interval")

	_, err = svc.CreateProduct(ctx, acct.ID, request_models.CreateProductRequest{
		Name: "Bad", Type: "tuition", UnitAmount: 1,
	})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestCatalogService_PopulateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"title,type,amount,year",
		"Year 1 Tuition,tuition,480000,1",
		"Year 2 Tuition,tuition,480000,2",
		"School Hat,studentItem,2500,",
		"Building Fund,parentItem,15000,",
	}, "\n")), 0o600))

	svc, fake, _, acct := newTestCatalogService(t, CatalogConfig{CSVPath: path})
	ctx := context.Background()

	first, err := svc.Populate(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Created)
	productCalls := fake.count("CreateProduct")

	second, err := svc.Populate(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 4, second.Skipped)
	assert.Equal(t, productCalls, fake.count("CreateProduct"), "second run makes no remote calls")

	catalog, err := svc.GetCatalog(ctx, acct.ID)
	require.NoError(t, err)
	assert.Len(t, catalog.Tuition, 2)
	assert.Len(t, catalog.Products, 2)
}

func TestCatalogService_PopulateDefaultCatalog(t *testing.T) {
	svc, _, _, acct := newTestCatalogService(t, CatalogConfig{})

	result, err := svc.Populate(context.Background(), acct)
	require.NoError(t, err)
	assert.Greater(t, result.Created, 12)
}

func TestParseCatalogCSV(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name    string
		csv     string
		wantErr bool
		rows    int
	}{
		{"valid", "title,type,amount,year\nYear 1,tuition,100,1\nHat,studentItem,5,\n", false, 2},
		{"bad header", "name,type,amount,year\nYear 1,tuition,100,1\n", true, 0},
		{"unknown type", "title,type,amount,year\nThing,gadget,100,\n", true, 0},
		{"tuition without year", "title,type,amount,year\nYear 1,tuition,100,\n", true, 0},
		{"year out of range", "title,type,amount,year\nYear 13,tuition,100,13\n", true, 0},
		{"non numeric amount", "title,type,amount,year\nHat,studentItem,1.50,\n", true, 0},
		{"negative amount", "title,type,amount,year\nHat,studentItem,-1,\n", true, 0},
		{"wrong column count", "title,type,amount,year\nHat,studentItem\n", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ParseCatalogCSV(strings.NewReader(tt.csv), v)
			if tt.wantErr {
				assert.ErrorIs(t, err, utils.ErrInvalidCatalog)
				return
			}
			require.NoError(t, err)
			assert.Len(t, rows, tt.rows)
		})
	}
}
