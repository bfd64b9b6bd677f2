package readstore

import (
	"context"

	"checkin-core/internal/infra"
	"checkin-core/internal/infra/db"
	"checkin-core/internal/usecase/queries"
)

type RoomReadStore struct {
	db db.DBTX
}

func NewRoomReadStore(dbtx db.DBTX) *RoomReadStore {
	return &RoomReadStore{db: dbtx}
}

// CountAvailableByTier applies the same exclusions as room selection so the
// dashboard number matches what an assignment could actually get.
func (r *RoomReadStore) CountAvailableByTier(ctx context.Context) ([]*queries.RoomAvailabilityView, error) {
	rows, err := r.db.Query(ctx,
		`SELECT rm.tier, count(*)
		 FROM rooms rm
		 WHERE rm.status = 'CLEAN'
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
		 GROUP BY rm.tier
		 ORDER BY rm.tier`)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to count room availability", err)
	}
	defer rows.Close()

	var views []*queries.RoomAvailabilityView
	for rows.Next() {
		var v queries.RoomAvailabilityView
		if err := rows.Scan(&v.Tier, &v.Available); err != nil {
			return nil, infra.WrapRepoErr("failed to scan room availability", err)
		}
		views = append(views, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate room availability", err)
	}
	return views, nil
}
