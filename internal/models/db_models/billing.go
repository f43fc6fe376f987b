package db_models

import "github.com/google/uuid"

// ParentSubscription links one student to a remote subscription. Rows are append-only.
type ParentSubscription struct {
	BaseModel
	ParentID             uuid.UUID  `gorm:"type:uuid;not null;index"`
	SubscriptionID       uuid.UUID  `gorm:"type:uuid;not null"`
	SubscriptionPriceID  uuid.UUID  `gorm:"type:uuid;not null"`
	StudentID            *uuid.UUID `gorm:"type:uuid;index"`
	StripeSubscriptionID string     `gorm:"not null;index"`
	Description          string
}

// ParentPurchase records a one-off item billed to a parent. Rows are append-only.
type ParentPurchase struct {
	BaseModel
	ParentID            uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID           uuid.UUID  `gorm:"type:uuid;not null"`
	StudentID           *uuid.UUID `gorm:"type:uuid"`
	StripeInvoiceID     string     `gorm:"index"`
	StripeInvoiceItemID string
	Quantity            int64 `gorm:"not null;default:1"`
	UnitAmount          int64 `gorm:"not null"`
	Description         string
}
