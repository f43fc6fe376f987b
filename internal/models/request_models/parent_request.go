package request_models

type AddressRequest struct {
	Line1      string `json:"line1" binding:"omitempty,max=200"`
	Line2      string `json:"line2" binding:"omitempty,max=200"`
	City       string `json:"city" binding:"omitempty,max=100"`
	State      string `json:"state" binding:"omitempty,max=100"`
	PostalCode string `json:"postal_code" binding:"omitempty,max=20"`
	Country    string `json:"country" binding:"omitempty,len=2"`
}

type StudentRequest struct {
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	YearLevel int    `json:"year_level" binding:"required,min=1,max=12"`
}

type ParentSignupRequest struct {
	AccountID string           `json:"account_id" binding:"required,uuid"`
	FirstName string           `json:"first_name" binding:"required,max=100"`
	LastName  string           `json:"last_name" binding:"required,max=100"`
	Email     string           `json:"email" binding:"required,email"`
	Password  string           `json:"password" binding:"required,min=8"`
	Emoji     string           `json:"emoji" binding:"omitempty,max=16"`
	Address   AddressRequest   `json:"address"`
	Students  []StudentRequest `json:"students" binding:"required,min=1,dive"`
}

// CreateParentRequest is the staff variant; a temporary password is generated when empty.
type CreateParentRequest struct {
	FirstName string           `json:"first_name" binding:"required,max=100"`
	LastName  string           `json:"last_name" binding:"required,max=100"`
	Email     string           `json:"email" binding:"required,email"`
	Password  string           `json:"password" binding:"omitempty,min=8"`
	Emoji     string           `json:"emoji" binding:"omitempty,max=16"`
	Address   AddressRequest   `json:"address"`
	Students  []StudentRequest `json:"students" binding:"required,min=1,dive"`
}
