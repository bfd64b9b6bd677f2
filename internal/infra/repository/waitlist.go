package repository

import (
	"context"
	"time"

	"checkin-core/internal/domain/resource"
	"checkin-core/internal/infra"
	"checkin-core/internal/infra/db"
	"checkin-core/internal/pkg/pgconv"
	"checkin-core/internal/usecase/shared"
)

type WaitlistRepository struct {
	db db.DBTX
}

func NewWaitlistRepository(dbtx db.DBTX) *WaitlistRepository {
	return &WaitlistRepository{db: dbtx}
}

// CountActiveDemand counts customers still waiting on the tier. An entry only
// counts while its check-in block is running; expired blocks mean the
// customer has left and their place need not be held.
func (r *WaitlistRepository) CountActiveDemand(ctx context.Context, tier resource.Tier, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT count(*)
		 FROM waitlist_entries we
		 JOIN checkin_blocks cb ON cb.id = we.block_id
		 WHERE we.desired_tier = $1
		   AND we.status = 'ACTIVE'
		   AND cb.ends_at > $2`, tier.String(), pgconv.TimeToPgtype(now)).Scan(&count)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to count waitlist demand", err)
	}
	return count, nil
}

func (r *WaitlistRepository) Create(ctx context.Context, e *shared.WaitlistEntry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO waitlist_entries (id, customer_id, block_id, desired_tier, backup_tier, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())`,
		e.ID, e.CustomerID, e.BlockID, e.DesiredTier.String(), e.BackupTier.String(), e.Status)
	if err != nil {
		return infra.WrapRepoErr("failed to create waitlist entry", err)
	}
	return nil
}
