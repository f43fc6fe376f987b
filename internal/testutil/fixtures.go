package testutil

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbm "schoolpay/internal/models/db_models"
)

// SeedAccount inserts an onboarded tenant.
func SeedAccount(t testing.TB, db *gorm.DB, stripeAccountID string) *dbm.Account {
	t.Helper()
	acct := &dbm.Account{
		Name:                  "Hillview Primary",
		Email:                 "office@hillview.test",
		Country:               "AU",
		StripeAccountID:       stripeAccountID,
		ChargesEnabled:        true,
		DetailsSubmitted:      true,
		OnboardingComplete:    true,
		PortalConfigurationID: "bpc_" + stripeAccountID,
	}
	if err := db.Create(acct).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acct
}

// SeedParent inserts a parent with one student per year level given.
func SeedParent(t testing.TB, db *gorm.DB, accountID uuid.UUID, email string, years ...int) *dbm.Parent {
	t.Helper()
	parent := &dbm.Parent{
		AccountID: accountID,
		Email:     email,
		FirstName: "Pat",
		LastName:  "Nguyen",
	}
	if err := db.Omit("Students").Create(parent).Error; err != nil {
		t.Fatalf("seed parent: %v", err)
	}
	for i, y := range years {
		st := dbm.Student{
			AccountID: accountID,
			ParentID:  parent.ID,
			FirstName: []string{"Ada", "Ben", "Cy", "Dee", "Eli"}[i%5],
			LastName:  "Nguyen",
			YearLevel: y,
		}
		if err := db.Create(&st).Error; err != nil {
			t.Fatalf("seed student: %v", err)
		}
		parent.Students = append(parent.Students, st)
	}
	return parent
}

// SeedTuition inserts a tuition entry with all three prices for a year level.
func SeedTuition(t testing.TB, db *gorm.DB, accountID uuid.UUID, year int, yearly, monthly, weekly int64) *dbm.Subscription {
	t.Helper()
	suffix := uuid.NewString()[:8]
	sub := &dbm.Subscription{
		AccountID:       accountID,
		Name:            "Tuition",
		YearLevel:       year,
		StripeProductID: "prod_" + suffix,
		Prices: []dbm.SubscriptionPrice{
			{Period: dbm.PeriodYearly, UnitAmount: yearly, StripePriceID: "price_y_" + suffix},
			{Period: dbm.PeriodMonthly, UnitAmount: monthly, StripePriceID: "price_m_" + suffix},
			{Period: dbm.PeriodWeekly, UnitAmount: weekly, StripePriceID: "price_w_" + suffix},
		},
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("seed tuition: %v", err)
	}
	return sub
}

// SeedProduct inserts a one-off product.
func SeedProduct(t testing.TB, db *gorm.DB, accountID uuid.UUID, name string, typ dbm.ProductType, amount int64) *dbm.Product {
	t.Helper()
	suffix := uuid.NewString()[:8]
	p := &dbm.Product{
		AccountID:       accountID,
		Name:            name,
		Type:            typ,
		StripeProductID: "prod_" + suffix,
		StripePriceID:   "price_" + suffix,
		UnitAmount:      amount,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}
