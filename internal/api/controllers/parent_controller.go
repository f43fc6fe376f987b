package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolpay/internal/models/request_models"
	"schoolpay/internal/services"
	"schoolpay/pkg/utils"
)

type ParentController struct {
	parentService    services.ParentService
	dashboardService services.DashboardService
}

func NewParentController(parentService services.ParentService, dashboardService services.DashboardService) *ParentController {
	return &ParentController{
		parentService:    parentService,
		dashboardService: dashboardService,
	}
}

// Signup godoc
// @Summary Parent signup
// @Description Registers a parent and at least one student with a school
// @Tags Parents
// @Accept json
// @Produce json
// @Param request body request_models.ParentSignupRequest true "Parent and students"
// @Success 201 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Router /parents/signup [post]
func (p *ParentController) Signup(c *gin.Context) {
	var req request_models.ParentSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	parent, err := p.parentService.Signup(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondStatus(c, http.StatusCreated, parent, "Signup successful")
}

// Overview godoc
// @Summary Signed-in parent's overview
// @Description Profile, students, subscription links and purchases
// @Tags Parents
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /parents/me/overview [get]
func (p *ParentController) Overview(c *gin.Context) {
	tenantID, parentID, ok := sessionIDs(c)
	if !ok {
		return
	}

	out, err := p.dashboardService.ParentOverview(c.Request.Context(), tenantID, parentID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, out, "Overview fetched successfully")
}

// AddStudent godoc
// @Summary Add a student
// @Tags Parents
// @Accept json
// @Produce json
// @Param request body request_models.StudentRequest true "Student"
// @Success 201 {object} utils.APIResponse
// @Security BearerAuth
// @Router /parents/me/students [post]
func (p *ParentController) AddStudent(c *gin.Context) {
	tenantID, parentID, ok := sessionIDs(c)
	if !ok {
		return
	}

	var req request_models.StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	student, err := p.parentService.AddStudent(c.Request.Context(), tenantID, parentID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondStatus(c, http.StatusCreated, student, "Student added")
}

// RemoveStudent godoc
// @Summary Remove a student
// @Description A parent keeps at least one student
// @Tags Parents
// @Param studentId path string true "Student ID"
// @Success 200 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Security BearerAuth
// @Router /parents/me/students/{studentId} [delete]
func (p *ParentController) RemoveStudent(c *gin.Context) {
	tenantID, parentID, ok := sessionIDs(c)
	if !ok {
		return
	}
	studentID, ok := pathUUID(c, "studentId")
	if !ok {
		return
	}

	if err := p.parentService.RemoveStudent(c.Request.Context(), tenantID, parentID, studentID); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Student removed")
}
