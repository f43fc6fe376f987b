package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schoolpay/internal/models/request_models"
	"schoolpay/internal/services"
	"schoolpay/pkg/utils"
)

// maxWebhookBody matches the processor's documented payload ceiling.
const maxWebhookBody = 65536

type PaymentController struct {
	billingService services.BillingService
	parentService  services.ParentService
	webhookService services.WebhookService
	log            *zap.Logger
}

func NewPaymentController(
	billingService services.BillingService,
	parentService services.ParentService,
	webhookService services.WebhookService,
	log *zap.Logger,
) *PaymentController {
	return &PaymentController{
		billingService: billingService,
		parentService:  parentService,
		webhookService: webhookService,
		log:            log.Named("payments"),
	}
}

// CreateSetupIntent godoc
// @Summary Start saving a payment method
// @Description Returns the client secret the payment element needs to collect a card
// @Tags Payments
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /parents/me/setup-intent [post]
func (p *PaymentController) CreateSetupIntent(c *gin.Context) {
	tenantID, parentID, ok := sessionIDs(c)
	if !ok {
		return
	}

	out, err := p.parentService.CreateSetupIntent(c.Request.Context(), tenantID, parentID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, out, "Setup intent created")
}

// Subscribe godoc
// @Summary Subscribe students to tuition
// @Description Creates one subscription billing each selected student at their year level's price
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.SubscribeRequest true "Frequency and students"
// @Success 201 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Security BearerAuth
// @Router /parents/me/subscriptions [post]
func (p *PaymentController) Subscribe(c *gin.Context) {
	tenantID, parentID, ok := sessionIDs(c)
	if !ok {
		return
	}

	var req request_models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	out, err := p.billingService.Subscribe(c.Request.Context(), tenantID, parentID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondStatus(c, http.StatusCreated, out, "Subscription created")
}

// Portal godoc
// @Summary Billing portal session
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.PortalRequest false "Return URL on the portal host"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /parents/me/portal [post]
func (p *PaymentController) Portal(c *gin.Context) {
	tenantID, parentID, ok := sessionIDs(c)
	if !ok {
		return
	}

	var req request_models.PortalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
			return
		}
	}

	out, err := p.billingService.CreatePortalSession(c.Request.Context(), tenantID, parentID, req.ReturnURL)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, out, "Portal session created")
}

// HandleWebhook godoc
// @Summary Payment processor webhook
// @Description Verifies the Stripe-Signature header over the raw body and applies the event
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 400 {object} utils.APIResponse
// @Failure 500 {object} utils.APIResponse
// @Router /webhooks/stripe [post]
func (p *PaymentController) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid webhook")
		return
	}

	result, err := p.webhookService.Handle(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case errors.Is(err, utils.ErrInvalidWebhook):
		p.log.Warn("webhook rejected", zap.String("trace_id", c.GetString("trace_id")), zap.Error(err))
		utils.RespondError(c, http.StatusBadRequest, "Invalid webhook")
		return
	case err != nil:
		// a 5xx makes the processor redeliver
		utils.RespondError(c, http.StatusInternalServerError, "Webhook processing failed")
		return
	}

	p.log.Debug("webhook processed",
		zap.String("event_id", result.EventID),
		zap.String("type", result.Type),
		zap.String("outcome", string(result.Outcome)),
		zap.Bool("duplicate", result.Duplicate))
	c.JSON(http.StatusOK, gin.H{"received": true})
}
