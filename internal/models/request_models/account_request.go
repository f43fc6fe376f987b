package request_models

type StaffPerson struct {
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Emoji     string `json:"emoji" binding:"omitempty,max=16"`
}

type ProvisionAccountRequest struct {
	SchoolName string      `json:"school_name" binding:"required,min=2,max=200"`
	Email      string      `json:"email" binding:"required,email"`
	LogoURL    string      `json:"logo_url" binding:"omitempty,url"`
	Country    string      `json:"country" binding:"omitempty,len=2"`
	Staff      StaffPerson `json:"staff" binding:"required"`
}
