package db_models

import "github.com/google/uuid"

type BillingPeriod string

const (
	PeriodWeekly  BillingPeriod = "weekly"
	PeriodMonthly BillingPeriod = "monthly"
	PeriodYearly  BillingPeriod = "yearly"
)

func (p BillingPeriod) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// Interval is the processor's recurring interval for the period.
func (p BillingPeriod) Interval() string {
	switch p {
	case PeriodWeekly:
		return "week"
	case PeriodMonthly:
		return "month"
	default:
		return "year"
	}
}

// Subscription is a tuition catalog entry for one year level.
type Subscription struct {
	BaseModel
	AccountID       uuid.UUID `gorm:"type:uuid;not null;index:idx_subscription_account_year"`
	Name            string    `gorm:"not null"`
	YearLevel       int       `gorm:"not null;index:idx_subscription_account_year"`
	StripeProductID string    `gorm:"not null"`

	Prices []SubscriptionPrice `gorm:"foreignKey:SubscriptionID"`
}

func (s *Subscription) Price(period BillingPeriod) *SubscriptionPrice {
	for i := range s.Prices {
		if s.Prices[i].Period == period {
			return &s.Prices[i]
		}
	}
	return nil
}

type SubscriptionPrice struct {
	BaseModel
	SubscriptionID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_subscription_price_period"`
	Period         BillingPeriod `gorm:"not null;uniqueIndex:idx_subscription_price_period"`
	StripePriceID  string        `gorm:"not null"`
	UnitAmount     int64         `gorm:"not null"`

	Subscription *Subscription `gorm:"foreignKey:SubscriptionID"`
}

type ProductType string

const (
	ProductTypeStudentItem ProductType = "studentItem"
	ProductTypeParentItem  ProductType = "parentItem"
)

// Product is a one-off item sold per student or per parent.
type Product struct {
	BaseModel
	AccountID       uuid.UUID   `gorm:"type:uuid;not null;index"`
	Name            string      `gorm:"not null"`
	Type            ProductType `gorm:"not null"`
	StripeProductID string      `gorm:"not null"`
	StripePriceID   string      `gorm:"not null"`
	UnitAmount      int64       `gorm:"not null"`
}
