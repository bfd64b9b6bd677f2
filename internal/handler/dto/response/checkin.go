package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"checkin-core/internal/domain/pricing"
	"checkin-core/internal/usecase/commands"
)

type CustomerSummaryResponse struct {
	ID               uuid.UUID  `json:"id"`
	DisplayName      string     `json:"displayName"`
	DateOfBirth      time.Time  `json:"dateOfBirth"`
	MembershipNumber *string    `json:"membershipNumber,omitempty"`
	IsMember         bool       `json:"isMember"`
	PastDueCents     int64      `json:"pastDueCents"`
	BanExpiresAt     *time.Time `json:"banExpiresAt,omitempty"`
}

type ExtractedFieldsResponse struct {
	FirstName     string     `json:"firstName,omitempty"`
	LastName      string     `json:"lastName,omitempty"`
	DateOfBirth   *time.Time `json:"dateOfBirth,omitempty"`
	LicenseNumber string     `json:"licenseNumber,omitempty"`
}

type ScanResponse struct {
	Result          string                    `json:"result"`
	Customer        *CustomerSummaryResponse  `json:"customer,omitempty"`
	Candidates      []CustomerSummaryResponse `json:"candidates,omitempty"`
	ExtractedFields *ExtractedFieldsResponse  `json:"extractedFields,omitempty"`
	CandidateNumber string                    `json:"candidateNumber,omitempty"`
	ErrorCode       string                    `json:"errorCode,omitempty"`
}

func FromScanResult(r *commands.ScanResult) *ScanResponse {
	var res ScanResponse
	_ = copier.Copy(&res, r)
	res.Result = string(r.Outcome)
	return &res
}

type AssignResponse struct {
	ResourceID        uuid.UUID `json:"resourceId"`
	ResourceNumber    int       `json:"resourceNumber"`
	Tier              string    `json:"tier"`
	NeedsConfirmation bool      `json:"needsConfirmation"`
}

func FromAssignResult(r *commands.AssignResult) *AssignResponse {
	var res AssignResponse
	_ = copier.Copy(&res, r)
	return &res
}

type ConfirmSelectionResponse struct {
	Tier        string    `json:"tier"`
	ConfirmedBy string    `json:"confirmedBy"`
	LockedAt    time.Time `json:"lockedAt"`
}

func FromConfirmSelectionResult(r *commands.ConfirmSelectionResult) *ConfirmSelectionResponse {
	return &ConfirmSelectionResponse{
		Tier:        r.Tier.String(),
		ConfirmedBy: string(r.ConfirmedBy),
		LockedAt:    r.LockedAt,
	}
}

type PaymentIntentResponse struct {
	IntentID    uuid.UUID     `json:"intentId"`
	AmountCents int64         `json:"amountCents"`
	Quote       pricing.Quote `json:"quote"`
}

func FromPaymentIntentResult(r *commands.PaymentIntentResult) *PaymentIntentResponse {
	var res PaymentIntentResponse
	_ = copier.Copy(&res, r)
	return &res
}

type MarkPaidResponse struct {
	Status      string `json:"status"`
	AlreadyPaid bool   `json:"alreadyPaid"`
}

func FromMarkPaidResult(r *commands.MarkPaidResult) *MarkPaidResponse {
	return &MarkPaidResponse{Status: "PAID", AlreadyPaid: r.AlreadyPaid}
}

type CompletionResponse struct {
	SessionID      uuid.UUID `json:"sessionId"`
	VisitID        uuid.UUID `json:"visitId"`
	BlockID        uuid.UUID `json:"blockId"`
	ResourceNumber int       `json:"resourceNumber"`
	Tier           string    `json:"tier"`
	BlockEndsAt    time.Time `json:"blockEndsAt"`
}

func FromCompletionResult(r *commands.CompletionResult) *CompletionResponse {
	var res CompletionResponse
	_ = copier.Copy(&res, r)
	return &res
}
