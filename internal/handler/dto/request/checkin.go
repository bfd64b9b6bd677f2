package request

import (
	"strings"

	"checkin-core/internal/domain/lane"
	"checkin-core/internal/domain/pricing"
	"checkin-core/internal/domain/resource"
	"checkin-core/internal/usecase/commands"

	"github.com/google/uuid"
)

type StartSessionRequest struct {
	CustomerID          *uuid.UUID `json:"customerId,omitempty"`
	IDScanValue         *string    `json:"idScanValue,omitempty"`
	MembershipScanValue *string    `json:"membershipScanValue,omitempty"`
	VisitID             *uuid.UUID `json:"visitId,omitempty"`
}

type ScanRequest struct {
	LaneID             int        `json:"laneId" binding:"required,min=1"`
	RawScanText        string     `json:"rawScanText" binding:"required"`
	SelectedCustomerID *uuid.UUID `json:"selectedCustomerId,omitempty"`
}

// sessionHints are the optional session-resolution fields most lane requests
// may carry.
type sessionHints struct {
	SessionID    *uuid.UUID `json:"sessionId,omitempty"`
	CustomerName string     `json:"customerName,omitempty"`
}

func (h sessionHints) Ref() commands.SessionRef {
	return commands.SessionRef{
		SessionID:    h.SessionID,
		CustomerName: strings.TrimSpace(h.CustomerName),
	}
}

type ProposeSelectionRequest struct {
	Actor string `json:"actor" binding:"required,oneof=CUSTOMER EMPLOYEE"`
	Tier  string `json:"tier" binding:"required,oneof=STANDARD DOUBLE SPECIAL LOCKER"`
	sessionHints
}

func (r ProposeSelectionRequest) ToActor() lane.Actor { return lane.Actor(r.Actor) }
func (r ProposeSelectionRequest) ToTier() resource.Tier { return resource.Tier(r.Tier) }

type SelectionActionRequest struct {
	Actor string `json:"actor" binding:"required,oneof=CUSTOMER EMPLOYEE"`
	sessionHints
}

func (r SelectionActionRequest) ToActor() lane.Actor { return lane.Actor(r.Actor) }

type AssignRequest struct {
	ResourceType string     `json:"resourceType" binding:"required,oneof=ROOM LOCKER"`
	ResourceID   *uuid.UUID `json:"resourceId,omitempty"`
	sessionHints
}

func (r AssignRequest) ToType() resource.Type { return resource.Type(r.ResourceType) }

type CreatePaymentIntentRequest struct {
	MembershipChoice *string `json:"membershipChoice,omitempty" binding:"omitempty,oneof=SIX_MONTH ANNUAL"`
	sessionHints
}

func (r CreatePaymentIntentRequest) ToChoice() *pricing.MembershipChoice {
	if r.MembershipChoice == nil {
		return nil
	}
	c := pricing.MembershipChoice(*r.MembershipChoice)
	return &c
}

type SignAgreementRequest struct {
	SignedBy string `json:"signedBy" binding:"required"`
	sessionHints
}

type CustomerConfirmRequest struct {
	Accept *bool `json:"accept" binding:"required"`
	sessionHints
}

type BypassPastDueRequest struct {
	Pin string `json:"pin" binding:"required"`
	sessionHints
}

type KioskAckRequest struct {
	sessionHints
}
