package lane

import (
	"time"

	"checkin-core/internal/domain/pricing"
	"checkin-core/internal/domain/resource"

	"github.com/google/uuid"
)

// ReconstructParams mirrors the persisted row shape; the repository maps rows
// through this explicitly instead of casting.
type ReconstructParams struct {
	ID          uuid.UUID
	LaneID      int
	Status      Status
	CustomerID  uuid.UUID
	StaffID     *uuid.UUID
	CheckinMode CheckinMode
	VisitID     *uuid.UUID

	ProposedTier *resource.Tier
	ProposedBy   *Actor
	DesiredTier  *resource.Tier

	SelectionConfirmed   bool
	SelectionConfirmedBy *Actor
	SelectionLockedAt    *time.Time
	SelectionAckedBy     *Actor

	AssignedResourceID    *uuid.UUID
	AssignedResourceType  *resource.Type
	AssignmentNeedsAccept bool

	WaitlistDesiredTier *resource.Tier
	WaitlistBackupTier  *resource.Tier

	PaymentIntentID  *uuid.UUID
	Quote            *pricing.Quote
	PastDueBypass    bool
	MembershipChoice *pricing.MembershipChoice
	KioskAcked       bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func Reconstruct(p ReconstructParams) *Session {
	return &Session{
		id:                    p.ID,
		laneID:                p.LaneID,
		status:                p.Status,
		customerID:            p.CustomerID,
		staffID:               p.StaffID,
		checkinMode:           p.CheckinMode,
		visitID:               p.VisitID,
		proposedTier:          p.ProposedTier,
		proposedBy:            p.ProposedBy,
		desiredTier:           p.DesiredTier,
		selectionConfirmed:    p.SelectionConfirmed,
		selectionConfirmedBy:  p.SelectionConfirmedBy,
		selectionLockedAt:     p.SelectionLockedAt,
		selectionAckedBy:      p.SelectionAckedBy,
		assignedResourceID:    p.AssignedResourceID,
		assignedResourceType:  p.AssignedResourceType,
		assignmentNeedsAccept: p.AssignmentNeedsAccept,
		waitlistDesiredTier:   p.WaitlistDesiredTier,
		waitlistBackupTier:    p.WaitlistBackupTier,
		paymentIntentID:       p.PaymentIntentID,
		quote:                 p.Quote,
		pastDueBypass:         p.PastDueBypass,
		membershipChoice:      p.MembershipChoice,
		kioskAcked:            p.KioskAcked,
		createdAt:             p.CreatedAt,
		updatedAt:             p.UpdatedAt,
	}
}
