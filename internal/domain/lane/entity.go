package lane

import (
	"errors"
	"time"

	"checkin-core/internal/domain/pricing"
	"checkin-core/internal/domain/resource"

	"github.com/google/uuid"
)

var (
	// ErrStaleSession is the universal guard failure: the session is not in
	// any of the statuses a transition expects. Callers surface it as 404.
	ErrStaleSession = errors.New("no active session in expected status")

	ErrSelectionLocked     = errors.New("selection already locked")
	ErrNoProposal          = errors.New("no rental proposal to confirm")
	ErrNoAssignment        = errors.New("no resource assignment on session")
	ErrNoPendingConfirm    = errors.New("no assignment awaiting customer confirmation")
	ErrSessionCancelled    = errors.New("session is cancelled")
	ErrAssignmentHeld      = errors.New("assignment already held")
	ErrSelectionNotLocked  = errors.New("selection not locked")
)

// SelectionLock is the frozen outcome of the two-phase selection handshake.
type SelectionLock struct {
	Tier        resource.Tier
	ConfirmedBy Actor
	LockedAt    time.Time
}

// Session is the per-lane state machine instance coordinating one check-in.
// At most one non-terminal session exists per lane; that invariant is enforced
// by query predicate in the repository, not here.
type Session struct {
	id          uuid.UUID
	laneID      int
	status      Status
	customerID  uuid.UUID
	staffID     *uuid.UUID
	checkinMode CheckinMode
	visitID     *uuid.UUID

	proposedTier *resource.Tier
	proposedBy   *Actor
	desiredTier  *resource.Tier

	selectionConfirmed   bool
	selectionConfirmedBy *Actor
	selectionLockedAt    *time.Time
	selectionAckedBy     *Actor

	assignedResourceID    *uuid.UUID
	assignedResourceType  *resource.Type
	assignmentNeedsAccept bool

	waitlistDesiredTier *resource.Tier
	waitlistBackupTier  *resource.Tier

	paymentIntentID  *uuid.UUID
	quote            *pricing.Quote
	pastDueBypass    bool
	membershipChoice *pricing.MembershipChoice
	kioskAcked       bool

	createdAt time.Time
	updatedAt time.Time
}

func NewSession(laneID int, customerID uuid.UUID, staffID *uuid.UUID, mode CheckinMode, visitID *uuid.UUID) *Session {
	return &Session{
		id:          uuid.New(),
		laneID:      laneID,
		status:      StatusActive,
		customerID:  customerID,
		staffID:     staffID,
		checkinMode: mode,
		visitID:     visitID,
	}
}

func (s *Session) ID() uuid.UUID { return s.id }
func (s *Session) LaneID() int { return s.laneID }
func (s *Session) Status() Status { return s.status }
func (s *Session) CustomerID() uuid.UUID { return s.customerID }
func (s *Session) StaffID() *uuid.UUID { return s.staffID }
func (s *Session) CheckinMode() CheckinMode { return s.checkinMode }
func (s *Session) VisitID() *uuid.UUID { return s.visitID }

func (s *Session) ProposedTier() *resource.Tier { return s.proposedTier }
func (s *Session) ProposedBy() *Actor { return s.proposedBy }
func (s *Session) DesiredTier() *resource.Tier { return s.desiredTier }

func (s *Session) SelectionConfirmed() bool { return s.selectionConfirmed }
func (s *Session) SelectionConfirmedBy() *Actor { return s.selectionConfirmedBy }
func (s *Session) SelectionLockedAt() *time.Time { return s.selectionLockedAt }
func (s *Session) SelectionAckedBy() *Actor { return s.selectionAckedBy }

func (s *Session) AssignedResourceID() *uuid.UUID { return s.assignedResourceID }
func (s *Session) AssignedResourceType() *resource.Type { return s.assignedResourceType }
func (s *Session) AssignmentNeedsAccept() bool { return s.assignmentNeedsAccept }

func (s *Session) WaitlistDesiredTier() *resource.Tier { return s.waitlistDesiredTier }
func (s *Session) WaitlistBackupTier() *resource.Tier { return s.waitlistBackupTier }

func (s *Session) PaymentIntentID() *uuid.UUID { return s.paymentIntentID }
func (s *Session) Quote() *pricing.Quote { return s.quote }
func (s *Session) PastDueBypass() bool { return s.pastDueBypass }
func (s *Session) MembershipChoice() *pricing.MembershipChoice { return s.membershipChoice }
func (s *Session) KioskAcked() bool { return s.kioskAcked }
func (s *Session) CreatedAt() time.Time { return s.createdAt }
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

func (s *Session) IsTerminal() bool { return s.status.IsTerminal() }

func (s *Session) requireStatus(want ...Status) error {
	for _, w := range want {
		if s.status == w {
			return nil
		}
	}
	return ErrStaleSession
}

// Propose records a rental proposal from either party. Proposals do not lock
// anything; they are superseded freely until the first confirmation.
func (s *Session) Propose(actor Actor, tier resource.Tier) error {
	if err := s.requireStatus(StatusActive, StatusAwaitingAssignment); err != nil {
		return err
	}
	if s.selectionConfirmed {
		return ErrSelectionLocked
	}
	t := tier
	a := actor
	s.proposedTier = &t
	s.proposedBy = &a
	return nil
}

// Confirm locks the selection. Idempotent: re-confirming an already-locked
// selection returns the existing lock, because two parties may race to
// confirm the same proposal.
func (s *Session) Confirm(actor Actor, now time.Time) (SelectionLock, error) {
	if err := s.requireStatus(StatusActive, StatusAwaitingAssignment); err != nil {
		return SelectionLock{}, err
	}
	if s.selectionConfirmed {
		return SelectionLock{
			Tier:        *s.desiredTier,
			ConfirmedBy: *s.selectionConfirmedBy,
			LockedAt:    *s.selectionLockedAt,
		}, nil
	}
	if s.proposedTier == nil {
		return SelectionLock{}, ErrNoProposal
	}
	tier := *s.proposedTier
	a := actor
	s.desiredTier = &tier
	s.selectionConfirmed = true
	s.selectionConfirmedBy = &a
	s.selectionLockedAt = &now
	s.status = StatusAwaitingAssignment
	return SelectionLock{Tier: tier, ConfirmedBy: a, LockedAt: now}, nil
}

// Acknowledge records that the other party has seen the current proposal.
func (s *Session) Acknowledge(actor Actor) error {
	if err := s.requireStatus(StatusActive, StatusAwaitingAssignment); err != nil {
		return err
	}
	if s.proposedTier == nil && !s.selectionConfirmed {
		return ErrNoProposal
	}
	a := actor
	s.selectionAckedBy = &a
	return nil
}

// Assign places a soft reservation on the session. When the resource tier
// differs from the locked selection the assignment stays pending until the
// customer accepts or declines.
func (s *Session) Assign(typ resource.Type, id uuid.UUID, needsAccept bool) error {
	if err := s.requireStatus(StatusAwaitingAssignment, StatusAwaitingPayment); err != nil {
		return err
	}
	if !s.selectionConfirmed {
		return ErrSelectionNotLocked
	}
	rid := id
	rt := typ
	s.assignedResourceID = &rid
	s.assignedResourceType = &rt
	s.assignmentNeedsAccept = needsAccept
	if !needsAccept && s.status == StatusAwaitingAssignment {
		s.status = StatusAwaitingPayment
	}
	return nil
}

// AcceptAssignment resolves a cross-tier assignment. Accepting a tier below
// the locked selection records the waitlist desired/backup pair consumed at
// completion.
func (s *Session) AcceptAssignment(actualTier resource.Tier) error {
	if err := s.requireStatus(StatusAwaitingAssignment); err != nil {
		return err
	}
	if !s.assignmentNeedsAccept || s.assignedResourceID == nil {
		return ErrNoPendingConfirm
	}
	s.assignmentNeedsAccept = false
	if s.desiredTier != nil && actualTier != *s.desiredTier {
		desired := *s.desiredTier
		backup := actualTier
		s.waitlistDesiredTier = &desired
		s.waitlistBackupTier = &backup
	}
	s.status = StatusAwaitingPayment
	return nil
}

// DeclineAssignment releases the soft reservation; the session returns to
// awaiting a fresh assignment.
func (s *Session) DeclineAssignment() error {
	if err := s.requireStatus(StatusAwaitingAssignment); err != nil {
		return err
	}
	if !s.assignmentNeedsAccept || s.assignedResourceID == nil {
		return ErrNoPendingConfirm
	}
	s.clearAssignment()
	return nil
}

func (s *Session) clearAssignment() {
	s.assignedResourceID = nil
	s.assignedResourceType = nil
	s.assignmentNeedsAccept = false
}

// AttachPaymentIntent stores the intent id and the authoritative quote
// snapshot. Requires the selection lock; the quote is frozen with it.
func (s *Session) AttachPaymentIntent(intentID uuid.UUID, quote pricing.Quote) error {
	if err := s.requireStatus(StatusAwaitingAssignment, StatusAwaitingPayment); err != nil {
		return err
	}
	if !s.selectionConfirmed {
		return ErrSelectionNotLocked
	}
	id := intentID
	q := quote
	s.paymentIntentID = &id
	s.quote = &q
	if s.status == StatusAwaitingAssignment {
		s.status = StatusAwaitingPayment
	}
	return nil
}

// AdvanceToSignature moves the session forward after the first DUE→PAID
// transition of its payment intent.
func (s *Session) AdvanceToSignature() error {
	if err := s.requireStatus(StatusAwaitingPayment); err != nil {
		return err
	}
	s.status = StatusAwaitingSignature
	return nil
}

func (s *Session) Complete() error {
	if err := s.requireStatus(StatusAwaitingSignature); err != nil {
		return err
	}
	s.status = StatusCompleted
	return nil
}

func (s *Session) Cancel() error {
	if s.status.IsTerminal() {
		return ErrStaleSession
	}
	s.status = StatusCancelled
	return nil
}

// Reset forces the session back to a clean slate regardless of current
// status, so a malfunctioning lane can always recover. Idempotent; only a
// cancelled session is left untouched.
func (s *Session) Reset() {
	if s.status == StatusCancelled {
		return
	}
	s.proposedTier = nil
	s.proposedBy = nil
	s.desiredTier = nil
	s.selectionConfirmed = false
	s.selectionConfirmedBy = nil
	s.selectionLockedAt = nil
	s.selectionAckedBy = nil
	s.clearAssignment()
	s.waitlistDesiredTier = nil
	s.waitlistBackupTier = nil
	s.paymentIntentID = nil
	s.quote = nil
	s.pastDueBypass = false
	s.membershipChoice = nil
	s.kioskAcked = false
	s.status = StatusCompleted
}

// AttachVisit links the visit opened (or reused) at completion.
func (s *Session) AttachVisit(id uuid.UUID) {
	v := id
	s.visitID = &v
}

func (s *Session) SetPastDueBypass() {
	s.pastDueBypass = true
}

func (s *Session) SetMembershipChoice(choice *pricing.MembershipChoice) {
	s.membershipChoice = choice
}

func (s *Session) AckKiosk() {
	s.kioskAcked = true
}

// ReleaseAssignment clears the soft reservation outside the customer
// decline path (completion conflict recovery, reset).
func (s *Session) ReleaseAssignment() {
	s.clearAssignment()
}
