package repository

import (
	"context"
	"encoding/json"

	"checkin-core/internal/domain/payment"
	"checkin-core/internal/domain/pricing"
	"checkin-core/internal/infra"
	"checkin-core/internal/infra/db"
	"checkin-core/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, session_id, customer_id, amount_cents, quote, status, created_at, paid_at`

type PaymentRepository struct {
	db db.DBTX
}

func NewPaymentRepository(dbtx db.DBTX) *PaymentRepository {
	return &PaymentRepository{db: dbtx}
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Intent, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payment_intents WHERE id = $1`, id)
	i, err := scanIntent(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("payment intent not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find payment intent", err)
	}
	return i, nil
}

func (r *PaymentRepository) FindDueBySession(ctx context.Context, sessionID uuid.UUID) ([]*payment.Intent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payment_intents
		 WHERE session_id = $1 AND status = 'DUE'
		 ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list due intents", err)
	}
	defer rows.Close()

	var intents []*payment.Intent
	for rows.Next() {
		i, err := scanIntent(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan payment intent", err)
		}
		intents = append(intents, i)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate due intents", err)
	}
	return intents, nil
}

func (r *PaymentRepository) Create(ctx context.Context, i *payment.Intent) error {
	quote, err := json.Marshal(i.Quote())
	if err != nil {
		return infra.WrapRepoErr("failed to marshal quote", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO payment_intents (id, session_id, customer_id, amount_cents, quote, status, created_at, paid_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), $7)`,
		i.ID(), i.SessionID(), i.CustomerID(), i.AmountCents(), quote,
		i.Status().String(), pgconv.TimePtrToPgtype(i.PaidAt()))
	if err != nil {
		return infra.WrapRepoErr("failed to create payment intent", err)
	}
	return nil
}

func (r *PaymentRepository) Update(ctx context.Context, i *payment.Intent) error {
	quote, err := json.Marshal(i.Quote())
	if err != nil {
		return infra.WrapRepoErr("failed to marshal quote", err)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE payment_intents
		 SET amount_cents = $2, quote = $3, status = $4, paid_at = $5
		 WHERE id = $1`,
		i.ID(), i.AmountCents(), quote, i.Status().String(), pgconv.TimePtrToPgtype(i.PaidAt()))
	if err != nil {
		return infra.WrapRepoErr("failed to update payment intent", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("payment intent vanished during update", nil, infra.KindNotFound)
	}
	return nil
}

func scanIntent(row pgx.Row) (*payment.Intent, error) {
	var (
		id          uuid.UUID
		sessionID   uuid.UUID
		customerID  uuid.UUID
		amountCents int64
		quoteRaw    []byte
		status      string
		createdAt   pgtype.Timestamptz
		paidAt      pgtype.Timestamptz
	)
	if err := row.Scan(&id, &sessionID, &customerID, &amountCents, &quoteRaw, &status, &createdAt, &paidAt); err != nil {
		return nil, err
	}
	var quote pricing.Quote
	if len(quoteRaw) > 0 {
		if err := json.Unmarshal(quoteRaw, &quote); err != nil {
			return nil, err
		}
	}
	return payment.Reconstruct(id, sessionID, customerID, amountCents, quote,
		payment.Status(status), pgconv.TimeFromPgtype(createdAt), pgconv.TimePtrFromPgtype(paidAt)), nil
}
