package queries

import (
	"context"
)

type LaneQueries interface {
	// GetLaneSession returns the active session snapshot for the lane, or
	// NotFound when the lane is idle.
	GetLaneSession(ctx context.Context, laneID int) (*SessionView, error)
	// ListLanes returns every configured lane with its session, for the
	// front-desk dashboard.
	ListLanes(ctx context.Context) ([]*LaneView, error)
}

type LaneViewRepo interface {
	FindActiveByLane(ctx context.Context, laneID int) (*SessionView, error)
	FindAllActive(ctx context.Context) ([]*SessionView, error)
}

type laneQueriesImpl struct {
	repo      LaneViewRepo
	laneCount int
}

func NewLaneQueries(repo LaneViewRepo, laneCount int) LaneQueries {
	return &laneQueriesImpl{repo: repo, laneCount: laneCount}
}

func (q *laneQueriesImpl) GetLaneSession(ctx context.Context, laneID int) (*SessionView, error) {
	return q.repo.FindActiveByLane(ctx, laneID)
}

func (q *laneQueriesImpl) ListLanes(ctx context.Context) ([]*LaneView, error) {
	active, err := q.repo.FindAllActive(ctx)
	if err != nil {
		return nil, err
	}
	byLane := make(map[int]*SessionView, len(active))
	for _, s := range active {
		byLane[s.LaneID] = s
	}
	lanes := make([]*LaneView, 0, q.laneCount)
	for i := 1; i <= q.laneCount; i++ {
		lanes = append(lanes, &LaneView{LaneID: i, Session: byLane[i]})
	}
	return lanes, nil
}
