package db_models

import (
	"strings"

	"github.com/google/uuid"
)

type Parent struct {
	BaseModel
	AccountID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_parent_account_email"`
	Email        string    `gorm:"not null;uniqueIndex:idx_parent_account_email"`
	FirstName    string
	LastName     string
	Emoji        string
	PasswordHash string `json:"-"`

	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string `gorm:"size:2"`

	// StripeCustomerID is written once; see ParentRepository.SetCustomerID.
	StripeCustomerID       *string `gorm:"uniqueIndex"`
	DefaultPaymentMethodID string
	HasPaymentMethod       bool
	CurrentSubscriptionID  string `gorm:"index"`
	Onboarded              bool

	Students []Student `gorm:"foreignKey:ParentID"`
}

func (p *Parent) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Parent) CustomerID() string {
	if p.StripeCustomerID == nil {
		return ""
	}
	return *p.StripeCustomerID
}

type Student struct {
	BaseModel
	AccountID uuid.UUID `gorm:"type:uuid;not null;index"`
	ParentID  uuid.UUID `gorm:"type:uuid;not null;index"`
	FirstName string
	LastName  string
	YearLevel int `gorm:"not null"`
	Onboarded bool
}

func (s *Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}
