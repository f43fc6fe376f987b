package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolpay/internal/models/request_models"
	resp "schoolpay/internal/models/response_models"
	"schoolpay/internal/services"
	"schoolpay/pkg/utils"
)

type AuthController struct {
	authService  services.AuthService
	cookieSecure bool
}

func NewAuthController(authService services.AuthService, cookieSecure bool) *AuthController {
	return &AuthController{
		authService:  authService,
		cookieSecure: cookieSecure,
	}
}

type loginFunc func(ctx context.Context, req request_models.LoginRequest) (*resp.LoginResponse, error)

// LoginParent godoc
// @Summary Parent login
// @Description Checks the parent's password within the school and sets the parent session cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body request_models.LoginRequest true "Login payload"
// @Success 200 {object} utils.APIResponse
// @Failure 401 {object} utils.APIResponse
// @Router /auth/parent/login [post]
func (a *AuthController) LoginParent(c *gin.Context) {
	a.login(c, utils.RoleParent, a.authService.LoginParent)
}

// LoginStaff godoc
// @Summary Staff login
// @Description Checks the staff member's password within the school and sets the staff session cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body request_models.LoginRequest true "Login payload"
// @Success 200 {object} utils.APIResponse
// @Failure 401 {object} utils.APIResponse
// @Router /auth/staff/login [post]
func (a *AuthController) LoginStaff(c *gin.Context) {
	a.login(c, utils.RoleStaff, a.authService.LoginStaff)
}

// LogoutParent godoc
// @Summary Parent logout
// @Tags Auth
// @Success 200 {object} utils.APIResponse
// @Router /auth/parent/logout [post]
func (a *AuthController) LogoutParent(c *gin.Context) {
	a.setSession(c, utils.RoleParent, "", -1)
	utils.RespondSuccess(c, nil, "Logged out")
}

// LogoutStaff godoc
// @Summary Staff logout
// @Tags Auth
// @Success 200 {object} utils.APIResponse
// @Router /auth/staff/logout [post]
func (a *AuthController) LogoutStaff(c *gin.Context) {
	a.setSession(c, utils.RoleStaff, "", -1)
	utils.RespondSuccess(c, nil, "Logged out")
}

func (a *AuthController) login(c *gin.Context, role utils.Role, fn loginFunc) {
	var req request_models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	out, err := fn(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	a.setSession(c, role, out.Token, int(out.ExpiresIn))
	utils.RespondSuccess(c, out, "Login successful")
}

func (a *AuthController) setSession(c *gin.Context, role utils.Role, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(utils.SessionCookieName(role), token, maxAge, "/", "", a.cookieSecure, true)
}
