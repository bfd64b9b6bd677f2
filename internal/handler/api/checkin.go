package api

import (
	"errors"
	"net/http"
	"strconv"

	"checkin-core/internal/domain/lane"
	reqdto "checkin-core/internal/handler/dto/request"
	resdto "checkin-core/internal/handler/dto/response"
	"checkin-core/internal/handler/httperr"
	"checkin-core/internal/handler/middleware"
	"checkin-core/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var errMissingStaffContext = errors.New("staff context missing after auth middleware")

type CheckinHandler struct {
	scanUseCase       commands.ScanCommands
	checkinUseCase    commands.CheckinCommands
	assignUseCase     commands.AssignCommands
	paymentUseCase    commands.PaymentCommands
	completionUseCase commands.CompletionCommands
}

func NewCheckinHandler(
	scanUseCase commands.ScanCommands,
	checkinUseCase commands.CheckinCommands,
	assignUseCase commands.AssignCommands,
	paymentUseCase commands.PaymentCommands,
	completionUseCase commands.CompletionCommands,
) *CheckinHandler {
	return &CheckinHandler{
		scanUseCase:       scanUseCase,
		checkinUseCase:    checkinUseCase,
		assignUseCase:     assignUseCase,
		paymentUseCase:    paymentUseCase,
		completionUseCase: completionUseCase,
	}
}

func laneParam(c *gin.Context) (int, bool) {
	laneID, err := strconv.Atoi(c.Param("laneId"))
	if err != nil || laneID < 1 {
		httperr.AbortWithError(c, http.StatusBadRequest, errors.New("invalid lane id"), "Invalid lane ID", nil)
		return 0, false
	}
	return laneID, true
}

// requireActorCredential rejects an EMPLOYEE actor tag coming over a kiosk
// credential. The lane middleware lets both credential classes through, so
// the actor claim has to be checked against what actually authenticated.
func requireActorCredential(c *gin.Context, actor lane.Actor) bool {
	if actor != lane.ActorEmployee {
		return true
	}
	if _, ok := middleware.GetStaffID(c); !ok {
		httperr.AbortWithError(c, http.StatusForbidden, errors.New("employee actor over kiosk credential"), "Staff credential required for employee actions", nil)
		return false
	}
	return true
}

// @Summary Resolve ID or membership scan
// @Description Run the customer matching pipeline for a raw barcode payload
// @Tags checkin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.ScanRequest true "Scan request"
// @Success 200 {object} resdto.ScanResponse
// @Failure 400 {object} httperr.Response
// @Router /checkin/scan [post]
func (h *CheckinHandler) Scan(c *gin.Context) {
	var req reqdto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	result, err := h.scanUseCase.ResolveScan(c.Request.Context(), req.LaneID, req.RawScanText, req.SelectedCustomerID)
	if err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromScanResult(result))
}

// @Summary Start lane session
// @Description Resolve or create the customer and open a fresh session on the lane
// @Tags checkin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param laneId path int true "Lane ID"
// @Param request body reqdto.StartSessionRequest true "Start request"
// @Success 200 {object} queries.SessionView
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /checkin/lane/{laneId}/start [post]
func (h *CheckinHandler) StartSession(c *gin.Context) {
	laneID, ok := laneParam(c)
	if !ok {
		return
	}
	var req reqdto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	in := commands.StartSessionInput{
		LaneID:              laneID,
		CustomerID:          req.CustomerID,
		IDScanValue:         req.IDScanValue,
		MembershipScanValue: req.MembershipScanValue,
		VisitID:             req.VisitID,
	}
	if staffID, ok := middleware.GetStaffID(c); ok {
		in.StaffID = &staffID
	}

	view, err := h.checkinUseCase.StartSession(c.Request.Context(), in)
	if err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// @Summary Propose tier selection
// @Tags checkin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param laneId path int true "Lane ID"
// @Param request body reqdto.ProposeSelectionRequest true "Proposal"
// @Success 200 {object} queries.SessionView
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /checkin/lane/{laneId}/propose-selection [post]
func (h *CheckinHandler) ProposeSelection(c *gin.Context) {
	laneID, ok := laneParam(c)
	if !ok {
		return
	}
	var req reqdto.ProposeSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}
	if !requireActorCredential(c, req.ToActor()) {
		return
	}

	view, err := h.checkinUseCase.ProposeSelection(c.Request.Context(), commands.SelectionInput{
		LaneID: laneID,
		Actor:  req.ToActor(),
		Tier:   req.ToTier(),
		Ref:    req.Ref(),
	})
	if err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// @Summary Confirm tier selection
// @Tags checkin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param laneId path int true "Lane ID"
// @Param request body reqdto.SelectionActionRequest true "Confirmation"
// @Success 200 {object} resdto.ConfirmSelectionResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /checkin/lane/{laneId}/confirm-selection [post]
func (h *CheckinHandler) ConfirmSelection(c *gin.Context) {
	laneID, ok := laneParam(c)
	if !ok {
		return
	}
	var req reqdto.SelectionActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}
	if !requireActorCredential(c, req.ToActor()) {
		return
	}

	result, err := h.checkinUseCase.ConfirmSelection(c.Request.Context(), laneID, req.ToActor(), req.Ref())
	if err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromConfirmSelectionResult(result))
}

// @Summary Acknowledge locked selection
// @Tags checkin
// @Accept json
// @Security BearerAuth
// @Param laneId path int true "Lane ID"
// @Param request body reqdto.SelectionActionRequest true "Acknowledgement"
// @Success 204
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /checkin/lane/{laneId}/acknowledge-selection [post]
func (h *CheckinHandler) AcknowledgeSelection(c *gin.Context) {
	laneID, ok := laneParam(c)
	if !ok {
		return
	}
	var req reqdto.SelectionActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}
	if !requireActorCredential(c, req.ToActor()) {
		return
	}

	if err := h.checkinUseCase.AcknowledgeSelection(c.Request.Context(), laneID, req.ToActor(), req.Ref()); err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Assign room or locker
// @Description Soft-reserve a resource for the lane's session
// @Tags checkin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param laneId path int true "Lane ID"
// @Param request body reqdto.AssignRequest true "Assignment"
// @Success 200 {object} resdto.AssignResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /checkin/lane/{laneId}/assign [post]
func (h *CheckinHandler) Assign(c *gin.Context) {
	laneID, ok := laneParam(c)
	if !ok {
		return
	}
	var req reqdto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	result, err := h.assignUseCase.AssignResource(c.Request.Context(), commands.AssignInput{
		LaneID:       laneID,
		ResourceType: req.ToType(),
		ResourceID:   req.ResourceID,
		Ref:          req.Ref(),
	})
	if err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromAssignResult(result))
}

// @Summary Create payment intent
// @Description Quote the locked selection and open the session's DUE intent
// @Tags checkin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param laneId path int true "Lane ID"
// @Param request body reqdto.CreatePaymentIntentRequest true "Intent request"
// @Success 201 {object} resdto.PaymentIntentResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /checkin/lane/{laneId}/create-payment-intent [post]
func (h *CheckinHandler) CreatePaymentIntent(c *gin.Context) {
	laneID, ok := laneParam(c)
	if !ok {
		return
	}
	var req reqdto.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	result, err := h.paymentUseCase.CreatePaymentIntent(c.Request.Context(), commands.CreatePaymentIntentInput{
		LaneID:           laneID,
		MembershipChoice: req.ToChoice(),
		Ref:              req.Ref(),
	})
	if err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.JSON(http.StatusCreated, resdto.FromPaymentIntentResult(result))
}

// @Summary Mark payment intent paid
// @Description Record tender against the intent; idempotent on repeat calls
// @Tags checkin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment intent ID"
// @Success 200 {object} resdto.MarkPaidResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /checkin/payments/{id}/mark-paid [post]
func (h *CheckinHandler) MarkPaid(c *gin.Context) {
	intentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid payment intent ID format", nil)
		return
	}

	result, err := h.paymentUseCase.MarkPaid(c.Request.Context(), intentID)
	if err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromMarkPaidResult(result))
}

// @Summary Sign agreement and complete check-in
// @Description Capture the signature and run the atomic check-in commit
// @Tags checkin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param laneId path int true "Lane ID"
// @Param request body reqdto.SignAgreementRequest true "Signature"
// @Success 200 {object} resdto.CompletionResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /checkin/lane/{laneId}/sign-agreement [post]
func (h *CheckinHandler) SignAgreement(c *gin.Context) {
	h.completeWithSignature(c, false)
}

// @Summary Manual signature override
// @Description Complete check-in with a staff-attested signature when the pad fails
// @Tags checkin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param laneId path int true "Lane ID"
// @Param request body reqdto.SignAgreementRequest true "Signature"
// @Success 200 {object} resdto.CompletionResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /checkin/lane/{laneId}/manual-signature-override [post]
func (h *CheckinHandler) ManualSignatureOverride(c *gin.Context) {
	h.completeWithSignature(c, true)
}

func (h *CheckinHandler) completeWithSignature(c *gin.Context, manualOverride bool) {
	laneID, ok := laneParam(c)
	if !ok {
		return
	}
	var req reqdto.SignAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	result, err := h.completionUseCase.SignAgreement(c.Request.Context(), commands.SignAgreementInput{
		LaneID:         laneID,
		SignedBy:       req.SignedBy,
		ManualOverride: manualOverride,
		Ref:            req.Ref(),
	})
	if err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromCompletionResult(result))
}

// @Summary Customer accept/decline cross-tier assignment
// @Tags checkin
// @Accept json
// @Security BearerAuth
// @Param laneId path int true "Lane ID"
// @Param request body reqdto.CustomerConfirmRequest true "Decision"
// @Success 204
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /checkin/lane/{laneId}/customer-confirm [post]
func (h *CheckinHandler) CustomerConfirm(c *gin.Context) {
	laneID, ok := laneParam(c)
	if !ok {
		return
	}
	var req reqdto.CustomerConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	if err := h.checkinUseCase.CustomerConfirm(c.Request.Context(), laneID, *req.Accept, req.Ref()); err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Reset lane
// @Description Force the lane back to idle; safe to call at any time
// @Tags checkin
// @Security BearerAuth
// @Param laneId path int true "Lane ID"
// @Success 204
// @Failure 400 {object} httperr.Response
// @Router /checkin/lane/{laneId}/reset [post]
func (h *CheckinHandler) Reset(c *gin.Context) {
	laneID, ok := laneParam(c)
	if !ok {
		return
	}

	if err := h.checkinUseCase.Reset(c.Request.Context(), laneID); err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Kiosk acknowledgement
// @Description Kiosk confirms it displayed the completed check-in
// @Tags checkin
// @Accept json
// @Security BearerAuth
// @Param laneId path int true "Lane ID"
// @Success 204
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /checkin/lane/{laneId}/kiosk-ack [post]
func (h *CheckinHandler) KioskAck(c *gin.Context) {
	laneID, ok := laneParam(c)
	if !ok {
		return
	}
	var req reqdto.KioskAckRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
			return
		}
	}

	if err := h.checkinUseCase.KioskAck(c.Request.Context(), laneID, req.Ref()); err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Bypass past-due gate
// @Description Manager PIN override for the past-due balance hold
// @Tags checkin
// @Accept json
// @Security BearerAuth
// @Param laneId path int true "Lane ID"
// @Param request body reqdto.BypassPastDueRequest true "PIN"
// @Success 204
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /checkin/lane/{laneId}/bypass-past-due [post]
func (h *CheckinHandler) BypassPastDue(c *gin.Context) {
	laneID, ok := laneParam(c)
	if !ok {
		return
	}
	staffID, ok := middleware.GetStaffID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, errMissingStaffContext, "Internal server error", nil)
		return
	}
	var req reqdto.BypassPastDueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	if err := h.checkinUseCase.BypassPastDue(c.Request.Context(), laneID, staffID, req.Pin, req.Ref()); err != nil {
		httperr.AbortWithDomain(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
