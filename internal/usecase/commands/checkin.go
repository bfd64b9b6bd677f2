package commands

import (
	"context"
	"errors"
	"time"

	"checkin-core/internal/domain/customer"
	"checkin-core/internal/domain/lane"
	"checkin-core/internal/domain/resource"
	"checkin-core/internal/infra"
	"checkin-core/internal/pkg/clock"
	"checkin-core/internal/pkg/errs"
	"checkin-core/internal/scan"
	"checkin-core/internal/usecase/queries"
	"checkin-core/internal/usecase/shared"

	"github.com/google/uuid"
)

type StartSessionInput struct {
	LaneID              int
	CustomerID          *uuid.UUID
	IDScanValue         *string
	MembershipScanValue *string
	VisitID             *uuid.UUID
	StaffID             *uuid.UUID
}

type SelectionInput struct {
	LaneID int
	Actor  lane.Actor
	Tier   resource.Tier
	Ref    SessionRef
}

type ConfirmSelectionResult struct {
	Tier        resource.Tier `json:"tier"`
	ConfirmedBy lane.Actor    `json:"confirmedBy"`
	LockedAt    time.Time     `json:"lockedAt"`
}

// ActiveCheckinSnapshot rides on the ALREADY_CHECKED_IN conflict so the
// register can show where the customer already is.
type ActiveCheckinSnapshot struct {
	VisitID                uuid.UUID `json:"visitId"`
	ResourceType           string    `json:"resourceType"`
	AssignedResourceNumber int       `json:"assignedResourceNumber"`
	Tier                   string    `json:"tier"`
	BlockEndsAt            time.Time `json:"blockEndsAt"`
}

type CheckinCommands interface {
	// StartSession resolves or creates the customer and opens a fresh lane
	// session. An open visit for the customer is rejected with
	// ALREADY_CHECKED_IN unless the caller names that visit for a renewal.
	StartSession(ctx context.Context, in StartSessionInput) (*queries.SessionView, error)
	ProposeSelection(ctx context.Context, in SelectionInput) (*queries.SessionView, error)
	ConfirmSelection(ctx context.Context, laneID int, actor lane.Actor, ref SessionRef) (*ConfirmSelectionResult, error)
	AcknowledgeSelection(ctx context.Context, laneID int, actor lane.Actor, ref SessionRef) error
	// CustomerConfirm resolves a pending cross-tier assignment.
	CustomerConfirm(ctx context.Context, laneID int, accept bool, ref SessionRef) error
	// Reset forces the lane back to a clean slate. Always succeeds, even
	// when the lane has no active session.
	Reset(ctx context.Context, laneID int) error
	KioskAck(ctx context.Context, laneID int, ref SessionRef) error
	// BypassPastDue sets the manager-override flag after PIN verification.
	BypassPastDue(ctx context.Context, laneID int, staffID uuid.UUID, pin string, ref SessionRef) error
}

type checkinUseCaseImpl struct {
	uow         shared.UnitOfWork
	resolver    SessionResolver
	views       SessionViewSource
	broadcaster *Broadcaster
	clock       clock.Clock
}

func NewCheckinUseCase(
	uow shared.UnitOfWork,
	resolver SessionResolver,
	views SessionViewSource,
	broadcaster *Broadcaster,
	clk clock.Clock,
) CheckinCommands {
	return &checkinUseCaseImpl{
		uow:         uow,
		resolver:    resolver,
		views:       views,
		broadcaster: broadcaster,
		clock:       clk,
	}
}

func (u *checkinUseCaseImpl) StartSession(ctx context.Context, in StartSessionInput) (*queries.SessionView, error) {
	if in.CustomerID == nil && in.IDScanValue == nil {
		return nil, errs.Validation("MISSING_IDENTITY", "customerId or idScanValue is required")
	}

	var sessionID uuid.UUID
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		cust, err := u.resolveStartCustomer(ctx, tx, in)
		if err != nil {
			return err
		}
		if cust.IsBanned(u.clock.Now()) {
			return errs.Forbidden("BANNED", "customer is banned")
		}
		if in.MembershipScanValue != nil {
			if err := u.attachMembershipCard(ctx, tx, cust, *in.MembershipScanValue); err != nil {
				return err
			}
		}

		mode := lane.ModeInitial
		var visitID *uuid.UUID
		if in.VisitID != nil {
			v, err := tx.Visits().FindByID(ctx, *in.VisitID)
			if err != nil {
				if infra.IsKind(err, infra.KindNotFound) {
					return errs.NotFound("VISIT_NOT_FOUND", "visit not found")
				}
				return err
			}
			if !v.IsOpen() {
				return errs.Validation("VISIT_ENDED", "visit already ended")
			}
			mode = lane.ModeRenewal
			id := v.ID()
			visitID = &id
		} else if err := u.guardAlreadyCheckedIn(ctx, tx, cust.ID()); err != nil {
			return err
		}

		// A lingering non-terminal session on this lane is superseded, not
		// reused; the previous customer walked away.
		if prev, err := tx.Sessions().FindActiveByLane(ctx, in.LaneID); err == nil {
			if cerr := prev.Cancel(); cerr == nil {
				if uerr := tx.Sessions().Update(ctx, prev); uerr != nil {
					return uerr
				}
			}
		} else if !infra.IsKind(err, infra.KindNotFound) {
			return err
		}

		s := lane.NewSession(in.LaneID, cust.ID(), in.StaffID, mode, visitID)
		if err := tx.Sessions().Create(ctx, s); err != nil {
			return err
		}
		sessionID = s.ID()
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.broadcaster.SessionUpdated(ctx, in.LaneID)
	view, err := u.views.FindActiveByLane(ctx, in.LaneID)
	if err != nil {
		return nil, errs.Wrap(err, "session created but snapshot load failed")
	}
	if view.ID != sessionID {
		return nil, errs.Newf("lane %d snapshot races a newer session", in.LaneID)
	}
	return view, nil
}

func (u *checkinUseCaseImpl) resolveStartCustomer(ctx context.Context, tx shared.Tx, in StartSessionInput) (*customer.Customer, error) {
	if in.CustomerID != nil {
		c, err := tx.Customers().FindByID(ctx, *in.CustomerID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil, errs.NotFound("CUSTOMER_NOT_FOUND", "customer not found")
			}
			return nil, err
		}
		return c, nil
	}

	raw := *in.IDScanValue
	normalized := scan.Normalize(raw)
	hash := scan.Hash(raw)
	c, err := tx.Customers().FindByScan(ctx, hash, normalized)
	if err == nil {
		if c.NeedsScanEnrichment() {
			if err := tx.Customers().EnrichScan(ctx, c.ID(), hash, normalized); err != nil {
				return nil, err
			}
		}
		return c, nil
	}
	if !infra.IsKind(err, infra.KindNotFound) {
		return nil, err
	}

	// This is the one place a scan may create a customer.
	fields, perr := scan.Parse(raw)
	if perr != nil {
		return nil, errs.Validation("UNPARSABLE_SCAN", "scan did not match and could not be parsed for enrollment")
	}
	c, cerr := customer.NewCustomer(fields.FirstName, fields.LastName, fields.DateOfBirth)
	if cerr != nil {
		return nil, errs.Validation("INVALID_IDENTITY", "scan payload missing a usable name or date of birth")
	}
	if err := tx.Customers().Create(ctx, c); err != nil {
		return nil, err
	}
	if err := tx.Customers().EnrichScan(ctx, c.ID(), hash, normalized); err != nil {
		return nil, err
	}
	return c, nil
}

// attachMembershipCard links a membership card scanned alongside the ID to
// the resolved customer. Best effort: a customer who already carries a
// number, or a card registered to a different record, leaves the row alone
// rather than failing the check-in.
func (u *checkinUseCaseImpl) attachMembershipCard(ctx context.Context, tx shared.Tx, cust *customer.Customer, rawCard string) error {
	number := scan.ParseMembershipNumber(rawCard)
	if number == "" || cust.MembershipNumber() != nil {
		return nil
	}
	if _, err := tx.Customers().FindByMembershipNumber(ctx, number); err == nil {
		return nil
	} else if !infra.IsKind(err, infra.KindNotFound) {
		return err
	}
	return tx.Customers().AttachMembershipNumber(ctx, cust.ID(), number)
}

func (u *checkinUseCaseImpl) guardAlreadyCheckedIn(ctx context.Context, tx shared.Tx, customerID uuid.UUID) error {
	v, err := tx.Visits().FindOpenByCustomer(ctx, customerID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil
		}
		return err
	}
	snapshot := ActiveCheckinSnapshot{VisitID: v.ID()}
	if b, berr := tx.Visits().FindCurrentBlockByVisit(ctx, v.ID()); berr == nil {
		snapshot.Tier = b.RentalTier().String()
		snapshot.ResourceType = b.ResourceType().String()
		snapshot.BlockEndsAt = b.EndsAt()
		if res, rerr := tx.Resources().FindByID(ctx, b.ResourceType(), b.ResourceID()); rerr == nil {
			snapshot.AssignedResourceNumber = res.Number()
		}
	}
	return errs.Conflict("ALREADY_CHECKED_IN", "customer already has an active check-in").
		WithDetail(map[string]any{"activeCheckin": snapshot})
}

func (u *checkinUseCaseImpl) ProposeSelection(ctx context.Context, in SelectionInput) (*queries.SessionView, error) {
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		s, err := u.activeSession(ctx, tx, in.LaneID, in.Ref)
		if err != nil {
			return err
		}
		if err := u.gatePastDue(ctx, tx, s, in.Actor); err != nil {
			return err
		}
		if err := s.Propose(in.Actor, in.Tier); err != nil {
			return mapSessionErr(err)
		}
		return tx.Sessions().Update(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	u.broadcaster.SessionUpdated(ctx, in.LaneID)
	return u.views.FindActiveByLane(ctx, in.LaneID)
}

func (u *checkinUseCaseImpl) ConfirmSelection(ctx context.Context, laneID int, actor lane.Actor, ref SessionRef) (*ConfirmSelectionResult, error) {
	var result *ConfirmSelectionResult
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		s, err := u.activeSession(ctx, tx, laneID, ref)
		if err != nil {
			return err
		}
		if err := u.gatePastDue(ctx, tx, s, actor); err != nil {
			return err
		}
		lock, err := s.Confirm(actor, u.clock.Now())
		if err != nil {
			return mapSessionErr(err)
		}
		result = &ConfirmSelectionResult{
			Tier:        lock.Tier,
			ConfirmedBy: lock.ConfirmedBy,
			LockedAt:    lock.LockedAt,
		}
		return tx.Sessions().Update(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	u.broadcaster.SessionUpdated(ctx, laneID)
	return result, nil
}

func (u *checkinUseCaseImpl) AcknowledgeSelection(ctx context.Context, laneID int, actor lane.Actor, ref SessionRef) error {
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		s, err := u.activeSession(ctx, tx, laneID, ref)
		if err != nil {
			return err
		}
		if err := s.Acknowledge(actor); err != nil {
			return mapSessionErr(err)
		}
		return tx.Sessions().Update(ctx, s)
	})
	if err != nil {
		return err
	}
	u.broadcaster.SessionUpdated(ctx, laneID)
	return nil
}

func (u *checkinUseCaseImpl) CustomerConfirm(ctx context.Context, laneID int, accept bool, ref SessionRef) error {
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		s, err := u.activeSession(ctx, tx, laneID, ref)
		if err != nil {
			return err
		}
		if !accept {
			if err := s.DeclineAssignment(); err != nil {
				return mapSessionErr(err)
			}
			return tx.Sessions().Update(ctx, s)
		}
		if s.AssignedResourceID() == nil || s.AssignedResourceType() == nil {
			return errs.NotFound("NO_ASSIGNMENT", "no assignment awaiting confirmation")
		}
		res, err := tx.Resources().FindByID(ctx, *s.AssignedResourceType(), *s.AssignedResourceID())
		if err != nil {
			return err
		}
		if err := s.AcceptAssignment(res.Tier()); err != nil {
			return mapSessionErr(err)
		}
		return tx.Sessions().Update(ctx, s)
	})
	if err != nil {
		return err
	}
	u.broadcaster.SessionUpdated(ctx, laneID)
	return nil
}

func (u *checkinUseCaseImpl) Reset(ctx context.Context, laneID int) error {
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		s, err := tx.Sessions().FindActiveByLane(ctx, laneID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				// Nothing to reset; still a success.
				return nil
			}
			return err
		}
		s.Reset()
		return tx.Sessions().Update(ctx, s)
	})
	if err != nil {
		return err
	}
	u.broadcaster.SessionUpdated(ctx, laneID)
	return nil
}

func (u *checkinUseCaseImpl) KioskAck(ctx context.Context, laneID int, ref SessionRef) error {
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		s, err := u.activeSession(ctx, tx, laneID, ref)
		if err != nil {
			return err
		}
		s.AckKiosk()
		return tx.Sessions().Update(ctx, s)
	})
	if err != nil {
		return err
	}
	u.broadcaster.SessionUpdated(ctx, laneID)
	return nil
}

func (u *checkinUseCaseImpl) BypassPastDue(ctx context.Context, laneID int, staffID uuid.UUID, pin string, ref SessionRef) error {
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		st, err := tx.Staff().FindByID(ctx, staffID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Unauthorized("UNKNOWN_STAFF", "staff not found")
			}
			return err
		}
		if err := st.VerifyPin(pin); err != nil {
			return errs.Forbidden("INVALID_PIN", "manager PIN verification failed")
		}
		s, err := u.activeSession(ctx, tx, laneID, ref)
		if err != nil {
			return err
		}
		s.SetPastDueBypass()
		return tx.Sessions().Update(ctx, s)
	})
	if err != nil {
		return err
	}
	u.broadcaster.SessionUpdated(ctx, laneID)
	return nil
}

func (u *checkinUseCaseImpl) activeSession(ctx context.Context, tx shared.Tx, laneID int, ref SessionRef) (*lane.Session, error) {
	s, err := u.resolver.Resolve(ctx, tx, laneID, ref)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.NotFound("NO_ACTIVE_SESSION", "no active session for lane")
		}
		return nil, err
	}
	return s, nil
}

// gatePastDue blocks customer-initiated selection actions while a balance is
// outstanding and no manager bypass is set. Employee actions pass through.
func (u *checkinUseCaseImpl) gatePastDue(ctx context.Context, tx shared.Tx, s *lane.Session, actor lane.Actor) error {
	if actor != lane.ActorCustomer || s.PastDueBypass() {
		return nil
	}
	c, err := tx.Customers().FindByID(ctx, s.CustomerID())
	if err != nil {
		return err
	}
	if c.HasPastDue() {
		return errs.Forbidden("PAST_DUE", "past-due balance must be settled or bypassed first").
			WithDetail(map[string]any{"pastDueCents": c.PastDueCents()})
	}
	return nil
}

// mapSessionErr translates state-machine sentinels into the closed domain
// error set surfaced at the HTTP boundary.
func mapSessionErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lane.ErrStaleSession):
		return errs.NotFound("NO_ACTIVE_SESSION", "no active session in expected status")
	case errors.Is(err, lane.ErrSelectionLocked):
		return errs.Conflict("SELECTION_LOCKED", "selection already locked")
	case errors.Is(err, lane.ErrNoProposal):
		return errs.Validation("NO_PROPOSAL", "no rental proposal to act on")
	case errors.Is(err, lane.ErrSelectionNotLocked):
		return errs.Validation("SELECTION_NOT_LOCKED", "selection must be confirmed first")
	case errors.Is(err, lane.ErrNoPendingConfirm):
		return errs.NotFound("NO_PENDING_CONFIRM", "no assignment awaiting customer confirmation")
	case errors.Is(err, lane.ErrNoAssignment):
		return errs.Validation("NO_ASSIGNMENT", "no resource assignment on session")
	default:
		return err
	}
}
