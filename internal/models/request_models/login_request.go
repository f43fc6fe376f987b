package request_models

type LoginRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
}
