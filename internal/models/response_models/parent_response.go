package response_models

type StudentResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	YearLevel int    `json:"year_level"`
	Onboarded bool   `json:"onboarded"`
}

type ParentResponse struct {
	ID                    string            `json:"id"`
	FirstName             string            `json:"first_name"`
	LastName              string            `json:"last_name"`
	Email                 string            `json:"email"`
	Emoji                 string            `json:"emoji,omitempty"`
	HasPaymentMethod      bool              `json:"has_payment_method"`
	Onboarded             bool              `json:"onboarded"`
	CurrentSubscriptionID string            `json:"current_subscription_id,omitempty"`
	Students              []StudentResponse `json:"students,omitempty"`
}

type CreatedParentResponse struct {
	Parent            ParentResponse `json:"parent"`
	TemporaryPassword string         `json:"temporary_password,omitempty"`
}

type SetupIntentResponse struct {
	SetupIntentID string `json:"setup_intent_id"`
	ClientSecret  string `json:"client_secret"`
}
