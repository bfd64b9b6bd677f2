package repository

import (
	"context"

	"checkin-core/internal/infra"
	"checkin-core/internal/infra/db"
	"checkin-core/internal/pkg/pgconv"
	"checkin-core/internal/usecase/shared"
)

type AgreementRepository struct {
	db db.DBTX
}

func NewAgreementRepository(dbtx db.DBTX) *AgreementRepository {
	return &AgreementRepository{db: dbtx}
}

func (r *AgreementRepository) Create(ctx context.Context, rec *shared.AgreementRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO agreements (id, session_id, block_id, customer_id, signed_by, manual_override, signed_at, pdf, sha256)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.SessionID, rec.BlockID, rec.CustomerID, rec.SignedBy,
		rec.ManualOverride, pgconv.TimeToPgtype(rec.SignedAt), rec.PDF, rec.SHA256)
	if err != nil {
		return infra.WrapRepoErr("failed to store agreement", err)
	}
	return nil
}
