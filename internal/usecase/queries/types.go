package queries

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Read models (DTO for read side)

type SessionCustomerView struct {
	ID                   uuid.UUID  `json:"id"`
	DisplayName          string     `json:"displayName"`
	Language             string     `json:"language,omitempty"`
	IsMember             bool       `json:"isMember"`
	MembershipValidUntil *time.Time `json:"membershipValidUntil,omitempty"`
	PastDueCents         int64      `json:"pastDueCents"`
	BanExpiresAt         *time.Time `json:"banExpiresAt,omitempty"`
}

type SessionAssignmentView struct {
	ResourceID     uuid.UUID `json:"resourceId"`
	ResourceType   string    `json:"resourceType"`
	ResourceNumber int       `json:"resourceNumber"`
	NeedsAccept    bool      `json:"needsAccept"`
}

type SessionPaymentView struct {
	IntentID    uuid.UUID `json:"intentId"`
	AmountCents int64     `json:"amountCents"`
	Status      string    `json:"status"`
}

// SessionView is the full lane snapshot pushed to kiosk and register screens
// on every change.
type SessionView struct {
	ID                   uuid.UUID              `json:"id"`
	LaneID               int                    `json:"laneId"`
	Status               string                 `json:"status"`
	CheckinMode          string                 `json:"checkinMode"`
	Customer             SessionCustomerView    `json:"customer"`
	ProposedTier         *string                `json:"proposedTier,omitempty"`
	ProposedBy           *string                `json:"proposedBy,omitempty"`
	DesiredTier          *string                `json:"desiredTier,omitempty"`
	SelectionConfirmed   bool                   `json:"selectionConfirmed"`
	SelectionConfirmedBy *string                `json:"selectionConfirmedBy,omitempty"`
	SelectionAckedBy     *string                `json:"selectionAckedBy,omitempty"`
	Assignment           *SessionAssignmentView `json:"assignment,omitempty"`
	WaitlistDesiredTier  *string                `json:"waitlistDesiredTier,omitempty"`
	WaitlistBackupTier   *string                `json:"waitlistBackupTier,omitempty"`
	Payment              *SessionPaymentView    `json:"payment,omitempty"`
	Quote                json.RawMessage        `json:"quote,omitempty"`
	PastDueBypass        bool                   `json:"pastDueBypass"`
	MembershipChoice     *string                `json:"membershipChoice,omitempty"`
	KioskAcked           bool                   `json:"kioskAcked"`
	UpdatedAt            time.Time              `json:"updatedAt"`
}

// LaneView pairs a lane with its current session, nil when idle.
type LaneView struct {
	LaneID  int          `json:"laneId"`
	Session *SessionView `json:"session,omitempty"`
}

type RoomAvailabilityView struct {
	Tier      string `json:"tier"`
	Available int    `json:"available"`
}
