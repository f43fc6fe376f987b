package controllers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"schoolpay/internal/models/request_models"
	"schoolpay/internal/services"
	"schoolpay/pkg/utils"
)

type AccountController struct {
	accountService services.AccountService
	appBaseURL     string
}

func NewAccountController(accountService services.AccountService, appBaseURL string) *AccountController {
	return &AccountController{
		accountService: accountService,
		appBaseURL:     appBaseURL,
	}
}

// Provision godoc
// @Summary Provision a school
// @Description Create the connected account, the local tenant and its first staff user, and return the onboarding link
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body request_models.ProvisionAccountRequest true "School and staff details"
// @Success 201 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 502 {object} utils.APIResponse
// @Router /accounts [post]
func (a *AccountController) Provision(c *gin.Context) {
	var req request_models.ProvisionAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	out, err := a.accountService.Provision(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondStatus(c, http.StatusCreated, out, "Account created, continue with onboarding")
}

// OnboardingReturn godoc
// @Summary Onboarding return URL
// @Description Re-reads the connected account after hosted onboarding and redirects to the staff portal
// @Tags Accounts
// @Param accountId query string true "Account ID"
// @Success 303
// @Router /accounts/onboarding/return [get]
func (a *AccountController) OnboardingReturn(c *gin.Context) {
	accountID, err := uuid.Parse(c.Query("accountId"))
	if err != nil {
		a.redirectFailed(c)
		return
	}

	if _, err := a.accountService.CompleteOnboardingReturn(c.Request.Context(), accountID); err != nil {
		a.redirectFailed(c)
		return
	}

	c.Redirect(http.StatusSeeOther, a.appBaseURL+"/staff?accountId="+url.QueryEscape(accountID.String()))
}

// OnboardingRefresh godoc
// @Summary Onboarding refresh URL
// @Description Issues a fresh onboarding link when the previous one expired
// @Tags Accounts
// @Param accountId query string true "Account ID"
// @Success 303
// @Router /accounts/onboarding/refresh [get]
func (a *AccountController) OnboardingRefresh(c *gin.Context) {
	accountID, err := uuid.Parse(c.Query("accountId"))
	if err != nil {
		a.redirectFailed(c)
		return
	}

	link, err := a.accountService.RefreshOnboardingLink(c.Request.Context(), accountID)
	if err != nil {
		a.redirectFailed(c)
		return
	}

	c.Redirect(http.StatusSeeOther, link)
}

// GetAccount godoc
// @Summary Current school
// @Description Onboarding and catalog state of the signed-in staff member's school
// @Tags Accounts
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /staff/account [get]
func (a *AccountController) GetAccount(c *gin.Context) {
	tenantID, _, ok := sessionIDs(c)
	if !ok {
		return
	}

	acct, err := a.accountService.Get(c.Request.Context(), tenantID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, acct, "Account fetched successfully")
}

func (a *AccountController) redirectFailed(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, a.appBaseURL+"/onboarding?error=onboarding_failed")
}
