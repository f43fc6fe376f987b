package utils

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDatabaseError      = errors.New("database error")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyExists = errors.New("email already exists")

	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountNotOnboarded = errors.New("account onboarding is not complete")
	ErrParentNotFound      = errors.New("parent not found")
	ErrStudentNotFound     = errors.New("student not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrLastStudent         = errors.New("a parent must keep at least one student")

	ErrNoBillableItems      = errors.New("no billable items")
	ErrNoActiveSubscription = errors.New("parent has no active subscription")
	ErrNoPaymentMethod      = errors.New("no payment method on file")
	ErrAlreadySubscribed    = errors.New("parent already has an active subscription")
	ErrInvalidPurchaseKey   = errors.New("invalid purchase key")
	ErrInvalidCatalog       = errors.New("invalid catalog")

	ErrPaymentProvider = errors.New("payment provider error")
	ErrInvalidWebhook  = errors.New("invalid webhook signature or payload")
)
