package db_models

import "gorm.io/datatypes"

// Account is a school (tenant) and its connected merchant account.
type Account struct {
	BaseModel
	Name            string `gorm:"not null"`
	Email           string `gorm:"not null"`
	LogoURL         string
	Country         string `gorm:"size:2"`
	StripeAccountID string `gorm:"uniqueIndex;not null"`

	ChargesEnabled     bool
	DetailsSubmitted   bool
	PayoutsEnabled     bool
	OnboardingComplete bool              `gorm:"index"`
	Capabilities       datatypes.JSONMap `gorm:"type:jsonb"`

	CatalogPopulated      bool
	PortalConfigurationID string
}

// OnboardingReady is the only rule for flipping OnboardingComplete.
func OnboardingReady(chargesEnabled, detailsSubmitted bool) bool {
	return chargesEnabled && detailsSubmitted
}
