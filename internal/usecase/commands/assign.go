package commands

import (
	"context"

	"checkin-core/internal/domain/lane"
	"checkin-core/internal/domain/resource"
	"checkin-core/internal/infra"
	"checkin-core/internal/pkg/clock"
	"checkin-core/internal/pkg/errs"
	"checkin-core/internal/usecase/shared"

	"github.com/google/uuid"
)

type AssignInput struct {
	LaneID       int
	ResourceType resource.Type
	// ResourceID pins a specific room/locker; nil lets the engine pick the
	// next available one under waitlist-fair ordering.
	ResourceID *uuid.UUID
	Ref        SessionRef
}

type AssignResult struct {
	ResourceID        uuid.UUID `json:"resourceId"`
	ResourceNumber    int       `json:"resourceNumber"`
	Tier              string    `json:"tier"`
	NeedsConfirmation bool      `json:"needsConfirmation"`
}

type AssignCommands interface {
	// AssignResource soft-reserves a room or locker for the lane's session.
	// Contention (another session holds it, or it is no longer clean)
	// returns a conflict; the operator retries against fresh state.
	AssignResource(ctx context.Context, in AssignInput) (*AssignResult, error)
}

type assignUseCaseImpl struct {
	uow         shared.UnitOfWork
	resolver    SessionResolver
	broadcaster *Broadcaster
	clock       clock.Clock
}

func NewAssignUseCase(uow shared.UnitOfWork, resolver SessionResolver, broadcaster *Broadcaster, clk clock.Clock) AssignCommands {
	return &assignUseCaseImpl{uow: uow, resolver: resolver, broadcaster: broadcaster, clock: clk}
}

func (u *assignUseCaseImpl) AssignResource(ctx context.Context, in AssignInput) (*AssignResult, error) {
	var result *AssignResult
	err := u.uow.WithinSerializable(ctx, func(ctx context.Context, tx shared.Tx) error {
		s, err := u.resolver.Resolve(ctx, tx, in.LaneID, in.Ref)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.NotFound("NO_ACTIVE_SESSION", "no active session for lane")
			}
			return err
		}

		ref, err := u.pickResource(ctx, tx, s, in)
		if err != nil {
			return err
		}

		needsAccept := in.ResourceType == resource.TypeRoom &&
			s.DesiredTier() != nil && ref.Tier != *s.DesiredTier()

		if err := s.Assign(ref.Type, ref.ID, needsAccept); err != nil {
			return mapSessionErr(err)
		}
		if err := tx.Sessions().Update(ctx, s); err != nil {
			return err
		}
		result = &AssignResult{
			ResourceID:        ref.ID,
			ResourceNumber:    ref.Number,
			Tier:              ref.Tier.String(),
			NeedsConfirmation: needsAccept,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.broadcaster.SessionUpdated(ctx, in.LaneID)
	return result, nil
}

func (u *assignUseCaseImpl) pickResource(ctx context.Context, tx shared.Tx, s *lane.Session, in AssignInput) (*shared.ResourceRef, error) {
	if in.ResourceID == nil {
		return u.autoSelect(ctx, tx, s, in.ResourceType)
	}

	res, err := tx.Resources().LockByID(ctx, in.ResourceType, *in.ResourceID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.NotFound("RESOURCE_NOT_FOUND", "resource not found")
		}
		return nil, err
	}
	if err := validateReservable(ctx, tx, res, s.ID()); err != nil {
		return nil, err
	}
	return &shared.ResourceRef{ID: res.ID(), Number: res.Number(), Tier: res.Tier(), Type: res.Type()}, nil
}

func (u *assignUseCaseImpl) autoSelect(ctx context.Context, tx shared.Tx, s *lane.Session, typ resource.Type) (*shared.ResourceRef, error) {
	if typ == resource.TypeLocker {
		ref, err := tx.Resources().SelectLocker(ctx)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil, errs.Conflict("NO_RESOURCE_AVAILABLE", "no locker available")
			}
			return nil, err
		}
		return ref, nil
	}

	if s.DesiredTier() == nil {
		return nil, errs.Validation("SELECTION_NOT_LOCKED", "selection must be confirmed before auto-assignment")
	}
	tier := *s.DesiredTier()
	demand, err := tx.Waitlist().CountActiveDemand(ctx, tier, u.clock.Now())
	if err != nil {
		return nil, err
	}
	ref, err := tx.Resources().SelectRoomForNewCheckin(ctx, tier, demand)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Conflict("NO_RESOURCE_AVAILABLE", "no room available for tier").
				WithDetail(map[string]any{"tier": tier.String(), "waitlistDemand": demand})
		}
		return nil, err
	}
	return ref, nil
}

// validateReservable re-checks, under a fresh row lock, that nothing claimed
// the resource since the client last looked at availability.
func validateReservable(ctx context.Context, tx shared.Tx, res *resource.Resource, sessionID uuid.UUID) error {
	if !res.IsAvailable() {
		return errs.Conflict("RESOURCE_UNAVAILABLE", "resource is not available").
			WithDetail(map[string]any{"resourceId": res.ID(), "status": res.Status().String()})
	}
	held, err := tx.Sessions().ExistsActiveHold(ctx, res.Type(), res.ID(), sessionID)
	if err != nil {
		return err
	}
	if held {
		return errs.Conflict("RESOURCE_HELD", "resource is reserved by another session").
			WithDetail(map[string]any{"resourceId": res.ID()})
	}
	return nil
}
