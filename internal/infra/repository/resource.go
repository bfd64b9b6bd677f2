package repository

import (
	"context"

	"checkin-core/internal/domain/resource"
	"checkin-core/internal/infra"
	"checkin-core/internal/infra/db"
	"checkin-core/internal/pkg/pgconv"
	"checkin-core/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type ResourceRepository struct {
	db db.DBTX
}

func NewResourceRepository(dbtx db.DBTX) *ResourceRepository {
	return &ResourceRepository{db: dbtx}
}

// SelectRoomForNewCheckin returns the next clean, unassigned room of the tier
// in number order, skipping the first `skip` candidates so waitlisted
// customers keep their place in line. The one query excludes:
//   - rows locked by a concurrent selection (SKIP LOCKED),
//   - rooms softly held by another non-terminal lane session,
//   - rooms currently offered to a waitlist entry.
//
// Must run inside a serializable transaction; the row lock is held until
// commit so racing lanes cannot be handed the same room.
func (r *ResourceRepository) SelectRoomForNewCheckin(ctx context.Context, tier resource.Tier, skip int) (*shared.ResourceRef, error) {
	row := r.db.QueryRow(ctx,
		`SELECT rm.id, rm.number
		 FROM rooms rm
		 WHERE rm.tier = $1
		   AND rm.status = 'CLEAN'
		   AND rm.assigned_to IS NULL
		   AND NOT EXISTS (
		       SELECT 1 FROM lane_sessions ls
		       WHERE ls.assigned_resource_id = rm.id
		         AND ls.assigned_resource_type = 'ROOM'
		         AND ls.status NOT IN ('COMPLETED','CANCELLED')
		   )
		   AND NOT EXISTS (
		       SELECT 1 FROM waitlist_entries we
		       WHERE we.offered_room_id = rm.id
		         AND we.status = 'OFFERED'
		   )
		 ORDER BY rm.number
		 OFFSET $2
		 LIMIT 1
		 FOR UPDATE OF rm SKIP LOCKED`, tier.String(), skip)

	var (
		id     uuid.UUID
		number int
	)
	if err := row.Scan(&id, &number); err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("no room available for tier", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to select room", err)
	}
	return &shared.ResourceRef{ID: id, Number: number, Tier: tier, Type: resource.TypeRoom}, nil
}

func (r *ResourceRepository) SelectLocker(ctx context.Context) (*shared.ResourceRef, error) {
	row := r.db.QueryRow(ctx,
		`SELECT lk.id, lk.number
		 FROM lockers lk
		 WHERE lk.status = 'CLEAN'
		   AND lk.assigned_to IS NULL
		   AND NOT EXISTS (
		       SELECT 1 FROM lane_sessions ls
		       WHERE ls.assigned_resource_id = lk.id
		         AND ls.assigned_resource_type = 'LOCKER'
		         AND ls.status NOT IN ('COMPLETED','CANCELLED')
		   )
		 ORDER BY lk.number
		 LIMIT 1
		 FOR UPDATE OF lk SKIP LOCKED`)

	var (
		id     uuid.UUID
		number int
	)
	if err := row.Scan(&id, &number); err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("no locker available", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to select locker", err)
	}
	return &shared.ResourceRef{ID: id, Number: number, Tier: resource.TierLocker, Type: resource.TypeLocker}, nil
}

func (r *ResourceRepository) LockByID(ctx context.Context, typ resource.Type, id uuid.UUID) (*resource.Resource, error) {
	return r.load(ctx, typ, id, true)
}

func (r *ResourceRepository) FindByID(ctx context.Context, typ resource.Type, id uuid.UUID) (*resource.Resource, error) {
	return r.load(ctx, typ, id, false)
}

func (r *ResourceRepository) load(ctx context.Context, typ resource.Type, id uuid.UUID, forUpdate bool) (*resource.Resource, error) {
	table, err := tableFor(typ)
	if err != nil {
		return nil, err
	}
	query := `SELECT id, number, tier, status, assigned_to FROM ` + table + ` WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		resID      uuid.UUID
		number     int
		tierStr    string
		statusStr  string
		assignedTo pgtype.UUID
	)
	if err := r.db.QueryRow(ctx, query, id).Scan(&resID, &number, &tierStr, &statusStr, &assignedTo); err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("resource not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to load resource", err)
	}

	tier, err := resource.NewTier(tierStr)
	if err != nil {
		return nil, infra.WrapRepoErr("invalid tier in storage", err)
	}
	status, err := resource.NewStatus(statusStr)
	if err != nil {
		return nil, infra.WrapRepoErr("invalid status in storage", err)
	}
	return resource.Reconstruct(resID, number, tier, typ, status, pgconv.UUIDPtrFromPgtype(assignedTo)), nil
}

func (r *ResourceRepository) MarkOccupied(ctx context.Context, typ resource.Type, id, customerID uuid.UUID) error {
	table, err := tableFor(typ)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE `+table+` SET status = 'OCCUPIED', assigned_to = $2, updated_at = now() WHERE id = $1`,
		id, customerID)
	if err != nil {
		return infra.WrapRepoErr("failed to mark resource occupied", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("resource not found for occupy", nil, infra.KindNotFound)
	}
	return nil
}

func tableFor(typ resource.Type) (string, error) {
	switch typ {
	case resource.TypeRoom:
		return "rooms", nil
	case resource.TypeLocker:
		return "lockers", nil
	}
	return "", infra.WrapRepoErr("unknown resource type", resource.ErrInvalidType)
}
