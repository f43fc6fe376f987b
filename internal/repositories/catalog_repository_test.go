package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbm "schoolpay/internal/models/db_models"
	"schoolpay/internal/testutil"
)

func TestCatalogRepository_FindPrice(t *testing.T) {
	db := testutil.OpenTestDB(t)
	acct := testutil.SeedAccount(t, db, "acct_1")
	other := testutil.SeedAccount(t, db, "acct_2")
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	sub := testutil.SeedTuition(t, db, acct.ID, 3, 500000, 41667, 9615)
	testutil.SeedTuition(t, db, other.ID, 3, 1, 1, 1)

	price, err := repo.FindPrice(ctx, acct.ID, 3, dbm.PeriodMonthly)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, int64(41667), price.UnitAmount)
	assert.Equal(t, sub.ID, price.SubscriptionID)
	require.NotNil(t, price.Subscription)
	assert.Equal(t, 3, price.Subscription.YearLevel)

	missing, err := repo.FindPrice(ctx, acct.ID, 7, dbm.PeriodMonthly)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCatalogRepository_AmountsRoundTrip(t *testing.T) {
	db := testutil.OpenTestDB(t)
	acct := testutil.SeedAccount(t, db, "acct_1")
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	for _, amount := range []int64{0, 1, 9615, 41667, 500000, 9_007_199_254_740_993} {
		p := &dbm.Product{
			AccountID: acct.ID, Name: "Item", Type: dbm.ProductTypeParentItem,
			StripeProductID: "prod", StripePriceID: "price", UnitAmount: amount,
		}
		require.NoError(t, repo.CreateProduct(ctx, p))

		got, err := repo.FindProduct(ctx, acct.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, amount, got.UnitAmount)
	}
}
