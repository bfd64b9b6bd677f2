package commands

import (
	"context"

	"checkin-core/internal/domain/lane"
	"checkin-core/internal/infra"
	"checkin-core/internal/usecase/shared"

	"github.com/google/uuid"
)

// SessionRef carries the hints a client may send to locate its session.
type SessionRef struct {
	SessionID    *uuid.UUID
	CustomerName string
}

// SessionResolver locates the session a lane request refers to. The default
// strategy tries the explicit id, then the lane's active session, then a
// best-effort lookup by customer display name. The name fallback is known to
// mis-resolve when two same-named customers share a lane; it is kept behind
// this interface so it can be swapped out without touching call sites.
type SessionResolver interface {
	Resolve(ctx context.Context, tx shared.Tx, laneID int, ref SessionRef) (*lane.Session, error)
}

type laneSessionResolver struct{}

func NewLaneSessionResolver() SessionResolver {
	return &laneSessionResolver{}
}

func (r *laneSessionResolver) Resolve(ctx context.Context, tx shared.Tx, laneID int, ref SessionRef) (*lane.Session, error) {
	if ref.SessionID != nil {
		s, err := tx.Sessions().FindByID(ctx, *ref.SessionID)
		if err == nil && !s.IsTerminal() {
			return s, nil
		}
		if err != nil && !infra.IsKind(err, infra.KindNotFound) {
			return nil, err
		}
	}

	s, err := tx.Sessions().FindActiveByLane(ctx, laneID)
	if err == nil {
		return s, nil
	}
	if !infra.IsKind(err, infra.KindNotFound) {
		return nil, err
	}

	if ref.CustomerName != "" {
		return tx.Sessions().FindActiveByCustomerName(ctx, laneID, ref.CustomerName)
	}
	return nil, err
}
