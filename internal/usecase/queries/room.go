package queries

import (
	"context"
)

type RoomQueries interface {
	// AvailabilityByTier counts rooms each lane could be assigned right now,
	// net of soft holds and waitlist offers.
	AvailabilityByTier(ctx context.Context) ([]*RoomAvailabilityView, error)
}

type RoomViewRepo interface {
	CountAvailableByTier(ctx context.Context) ([]*RoomAvailabilityView, error)
}

type roomQueriesImpl struct {
	repo RoomViewRepo
}

func NewRoomQueries(repo RoomViewRepo) RoomQueries {
	return &roomQueriesImpl{repo: repo}
}

func (q *roomQueriesImpl) AvailabilityByTier(ctx context.Context) ([]*RoomAvailabilityView, error) {
	return q.repo.CountAvailableByTier(ctx)
}
