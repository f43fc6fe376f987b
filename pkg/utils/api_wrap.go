package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	RespondStatus(c, http.StatusOK, data, message)
}

func RespondStatus(c *gin.Context, code int, data interface{}, message string) {
	c.JSON(code, APIResponse{
		Success: true,
		Message: message,
		TraceID: c.GetString("trace_id"),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Success: false,
		Message: message,
		TraceID: c.GetString("trace_id"),
	})
}

type errorMapping struct {
	target  error
	code    int
	message string
}

var serviceErrors = []errorMapping{
	{ErrInvalidInput, http.StatusBadRequest, "Invalid request"},
	{ErrInvalidPurchaseKey, http.StatusBadRequest, "Invalid purchase item"},
	{ErrInvalidCatalog, http.StatusBadRequest, "Invalid catalog"},
	{ErrNoBillableItems, http.StatusBadRequest, "No billable items for the selected students"},
	{ErrInvalidWebhook, http.StatusBadRequest, "Invalid webhook"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	{ErrAccountNotFound, http.StatusNotFound, "Account not found"},
	{ErrParentNotFound, http.StatusNotFound, "Parent not found"},
	{ErrStudentNotFound, http.StatusNotFound, "Student not found"},
	{ErrProductNotFound, http.StatusNotFound, "Product not found"},
	{ErrEmailAlreadyExists, http.StatusConflict, "Email already exists"},
	{ErrAccountNotOnboarded, http.StatusConflict, "School onboarding is not complete"},
	{ErrNoActiveSubscription, http.StatusConflict, "Parent has no active subscription"},
	{ErrNoPaymentMethod, http.StatusConflict, "No payment method on file"},
	{ErrAlreadySubscribed, http.StatusConflict, "Parent already has an active subscription"},
	{ErrLastStudent, http.StatusConflict, "A parent must keep at least one student"},
	{ErrPaymentProvider, http.StatusBadGateway, "Payment provider error"},
}

// HandleServiceError maps sentinel service errors onto the response envelope.
func HandleServiceError(c *gin.Context, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			if m.code >= http.StatusInternalServerError {
				zap.L().Error(m.message, zap.String("trace_id", c.GetString("trace_id")), zap.Error(err))
			}
			RespondError(c, m.code, m.message)
			return
		}
	}

	zap.L().Error("unhandled service error", zap.String("trace_id", c.GetString("trace_id")), zap.Error(err))
	RespondError(c, http.StatusInternalServerError, "Internal server error")
}
