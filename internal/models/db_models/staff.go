package db_models

import "github.com/google/uuid"

type Staff struct {
	BaseModel
	AccountID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_staff_account_email"`
	Email        string    `gorm:"not null;uniqueIndex:idx_staff_account_email"`
	FirstName    string
	LastName     string
	Emoji        string
	PasswordHash string `json:"-"`
}
