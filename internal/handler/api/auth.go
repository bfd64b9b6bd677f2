package api

import (
	"net/http"

	reqdto "checkin-core/internal/handler/dto/request"
	resdto "checkin-core/internal/handler/dto/response"
	"checkin-core/internal/handler/httperr"
	"checkin-core/internal/handler/middleware"
	"checkin-core/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUseCase commands.AuthCommands
}

func NewAuthHandler(authUseCase commands.AuthCommands) *AuthHandler {
	return &AuthHandler{authUseCase: authUseCase}
}

// @Summary Staff login
// @Description Authenticate a staff member and issue a staff token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body reqdto.LoginRequest true "Login request"
// @Success 200 {object} resdto.LoginResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req reqdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	result, err := h.authUseCase.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromLoginResult(result))
}

// @Summary Issue kiosk token
// @Description Mint a lane-bound kiosk credential (manager only)
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.KioskTokenRequest true "Kiosk token request"
// @Success 200 {object} resdto.KioskTokenResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Router /auth/kiosk [post]
func (h *AuthHandler) IssueKioskToken(c *gin.Context) {
	staffID, ok := middleware.GetStaffID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, errMissingStaffContext, "Internal server error", nil)
		return
	}

	var req reqdto.KioskTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	result, err := h.authUseCase.IssueKioskToken(c.Request.Context(), staffID, req.LaneID)
	if err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromKioskTokenResult(result))
}
