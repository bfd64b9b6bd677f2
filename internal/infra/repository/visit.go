package repository

import (
	"context"

	"checkin-core/internal/domain/resource"
	"checkin-core/internal/domain/visit"
	"checkin-core/internal/infra"
	"checkin-core/internal/infra/db"
	"checkin-core/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type VisitRepository struct {
	db db.DBTX
}

func NewVisitRepository(dbtx db.DBTX) *VisitRepository {
	return &VisitRepository{db: dbtx}
}

func (r *VisitRepository) FindByID(ctx context.Context, id uuid.UUID) (*visit.Visit, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, customer_id, started_at, ended_at FROM visits WHERE id = $1`, id)
	v, err := scanVisit(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("visit not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find visit", err)
	}
	return v, nil
}

func (r *VisitRepository) FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) (*visit.Visit, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, customer_id, started_at, ended_at FROM visits
		 WHERE customer_id = $1 AND ended_at IS NULL
		 ORDER BY started_at DESC
		 LIMIT 1`, customerID)
	v, err := scanVisit(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("no open visit for customer", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find open visit", err)
	}
	return v, nil
}

func (r *VisitRepository) FindCurrentBlockByVisit(ctx context.Context, visitID uuid.UUID) (*visit.Block, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, visit_id, rental_tier, resource_type, resource_id, starts_at, ends_at, agreement_id
		 FROM checkin_blocks
		 WHERE visit_id = $1
		 ORDER BY ends_at DESC
		 LIMIT 1`, visitID)
	b, err := scanBlock(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("no block for visit", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find current block", err)
	}
	return b, nil
}

func (r *VisitRepository) CreateVisit(ctx context.Context, v *visit.Visit) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO visits (id, customer_id, started_at, ended_at) VALUES ($1, $2, $3, $4)`,
		v.ID(), v.CustomerID(), pgconv.TimeToPgtype(v.StartedAt()), pgconv.TimePtrToPgtype(v.EndedAt()))
	if err != nil {
		return infra.WrapRepoErr("failed to create visit", err)
	}
	return nil
}

func (r *VisitRepository) CreateBlock(ctx context.Context, b *visit.Block) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO checkin_blocks (id, visit_id, rental_tier, resource_type, resource_id, starts_at, ends_at, agreement_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID(), b.VisitID(), b.RentalTier().String(), b.ResourceType().String(), b.ResourceID(),
		pgconv.TimeToPgtype(b.StartsAt()), pgconv.TimeToPgtype(b.EndsAt()),
		pgconv.UUIDPtrToPgtype(b.AgreementID()))
	if err != nil {
		return infra.WrapRepoErr("failed to create check-in block", err)
	}
	return nil
}

func (r *VisitRepository) SetBlockAgreement(ctx context.Context, blockID, agreementID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE checkin_blocks SET agreement_id = $2 WHERE id = $1`, blockID, agreementID)
	if err != nil {
		return infra.WrapRepoErr("failed to attach agreement to block", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("block not found for agreement", nil, infra.KindNotFound)
	}
	return nil
}

func scanVisit(row pgx.Row) (*visit.Visit, error) {
	var (
		id         uuid.UUID
		customerID uuid.UUID
		startedAt  pgtype.Timestamptz
		endedAt    pgtype.Timestamptz
	)
	if err := row.Scan(&id, &customerID, &startedAt, &endedAt); err != nil {
		return nil, err
	}
	return visit.ReconstructVisit(id, customerID,
		pgconv.TimeFromPgtype(startedAt), pgconv.TimePtrFromPgtype(endedAt)), nil
}

func scanBlock(row pgx.Row) (*visit.Block, error) {
	var (
		id          uuid.UUID
		visitID     uuid.UUID
		tierStr     string
		typStr      string
		resourceID  uuid.UUID
		startsAt    pgtype.Timestamptz
		endsAt      pgtype.Timestamptz
		agreementID pgtype.UUID
	)
	if err := row.Scan(&id, &visitID, &tierStr, &typStr, &resourceID, &startsAt, &endsAt, &agreementID); err != nil {
		return nil, err
	}
	tier, err := resource.NewTier(tierStr)
	if err != nil {
		return nil, err
	}
	typ, err := resource.NewType(typStr)
	if err != nil {
		return nil, err
	}
	return visit.ReconstructBlock(id, visitID, tier, typ, resourceID,
		pgconv.TimeFromPgtype(startsAt), pgconv.TimeFromPgtype(endsAt),
		pgconv.UUIDPtrFromPgtype(agreementID)), nil
}
