package controllers

import (
	"github.com/gin-gonic/gin"

	"schoolpay/internal/services"
	"schoolpay/pkg/utils"
)

type DashboardController struct {
	dashboardService services.DashboardService
	reconcileService services.ReconcileService
}

func NewDashboardController(dashboardService services.DashboardService, reconcileService services.ReconcileService) *DashboardController {
	return &DashboardController{
		dashboardService: dashboardService,
		reconcileService: reconcileService,
	}
}

// GetDashboard godoc
// @Summary Staff dashboard
// @Description KPI counts for the school and the most recent purchases
// @Tags Dashboard
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Failure 500 {object} utils.APIResponse
// @Security BearerAuth
// @Router /staff/dashboard [get]
func (d *DashboardController) GetDashboard(c *gin.Context) {
	tenantID, _, ok := sessionIDs(c)
	if !ok {
		return
	}

	report, err := d.dashboardService.BuildDashboard(c.Request.Context(), tenantID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, report, "Dashboard fetched successfully")
}

// Reconcile godoc
// @Summary Reconcile with the payment processor
// @Description Compares remote subscriptions and invoices with local records and reports drift; nothing is repaired
// @Tags Dashboard
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Failure 502 {object} utils.APIResponse
// @Security BearerAuth
// @Router /staff/reconciliation [get]
func (d *DashboardController) Reconcile(c *gin.Context) {
	tenantID, _, ok := sessionIDs(c)
	if !ok {
		return
	}

	report, err := d.reconcileService.ReconcileAccount(c.Request.Context(), tenantID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, report, "Reconciliation complete")
}
