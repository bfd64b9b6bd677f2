package repository

import (
	"context"
	"time"

	"checkin-core/internal/domain/customer"
	"checkin-core/internal/infra"
	"checkin-core/internal/infra/db"
	"checkin-core/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const customerColumns = `
	id, first_name, last_name, date_of_birth, primary_language,
	membership_number, membership_valid_until, ban_expires_at, past_due_cents,
	id_scan_hash, id_scan_value, notes, created_at, updated_at`

type CustomerRepository struct {
	db db.DBTX
}

func NewCustomerRepository(dbtx db.DBTX) *CustomerRepository {
	return &CustomerRepository{db: dbtx}
}

func (r *CustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	row := r.db.QueryRow(ctx, `SELECT`+customerColumns+` FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("customer not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find customer by id", err)
	}
	return c, nil
}

func (r *CustomerRepository) FindByScan(ctx context.Context, hash, normalizedValue string) (*customer.Customer, error) {
	row := r.db.QueryRow(ctx,
		`SELECT`+customerColumns+` FROM customers
		 WHERE id_scan_hash = $1 OR id_scan_value = $2
		 ORDER BY updated_at DESC
		 LIMIT 1`, hash, normalizedValue)
	c, err := scanCustomer(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("no customer for scan", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find customer by scan", err)
	}
	return c, nil
}

func (r *CustomerRepository) FindByDOB(ctx context.Context, dob time.Time) ([]*customer.Customer, error) {
	rows, err := r.db.Query(ctx,
		`SELECT`+customerColumns+` FROM customers WHERE date_of_birth = $1`, pgconv.DateToPgtype(dob))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find customers by date of birth", err)
	}
	defer rows.Close()

	var result []*customer.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan customer row", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate customer rows", err)
	}
	return result, nil
}

func (r *CustomerRepository) FindByMembershipNumber(ctx context.Context, number string) (*customer.Customer, error) {
	row := r.db.QueryRow(ctx,
		`SELECT`+customerColumns+` FROM customers WHERE membership_number = $1`, number)
	c, err := scanCustomer(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("no customer for membership number", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find customer by membership number", err)
	}
	return c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO customers (
			id, first_name, last_name, date_of_birth, primary_language,
			membership_number, membership_valid_until, ban_expires_at, past_due_cents,
			id_scan_hash, id_scan_value, notes, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())`,
		c.ID(), c.FirstName(), c.LastName(), pgconv.DateToPgtype(c.DateOfBirth()),
		c.PrimaryLanguage(),
		pgconv.StringPtrToPgtype(c.MembershipNumber()),
		pgconv.TimePtrToPgtype(c.MembershipValid()),
		pgconv.TimePtrToPgtype(c.BanExpiresAt()),
		c.PastDueCents(),
		pgconv.StringPtrToPgtype(c.IDScanHash()),
		pgconv.StringPtrToPgtype(c.IDScanValue()),
		c.Notes(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create customer", err)
	}
	return nil
}

// EnrichScan fills missing scan-identity fields only; COALESCE keeps the call
// idempotent and never overwrites an existing hash/value.
func (r *CustomerRepository) EnrichScan(ctx context.Context, id uuid.UUID, hash, value string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE customers
		 SET id_scan_hash = COALESCE(id_scan_hash, $2),
		     id_scan_value = COALESCE(id_scan_value, $3),
		     updated_at = now()
		 WHERE id = $1`, id, hash, value)
	if err != nil {
		return infra.WrapRepoErr("failed to enrich customer scan fields", err)
	}
	return nil
}

// AttachMembershipNumber follows the EnrichScan pattern: COALESCE leaves an
// already-set membership number alone.
func (r *CustomerRepository) AttachMembershipNumber(ctx context.Context, id uuid.UUID, number string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE customers
		 SET membership_number = COALESCE(membership_number, $2),
		     updated_at = now()
		 WHERE id = $1`, id, number)
	if err != nil {
		return infra.WrapRepoErr("failed to attach membership number", err)
	}
	return nil
}

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var (
		id              uuid.UUID
		firstName       string
		lastName        string
		dob             pgtype.Date
		language        string
		memberNumber    pgtype.Text
		memberValid     pgtype.Timestamptz
		banExpiresAt    pgtype.Timestamptz
		pastDueCents    int64
		idScanHash      pgtype.Text
		idScanValue     pgtype.Text
		notes           string
		createdAt       pgtype.Timestamptz
		updatedAt       pgtype.Timestamptz
	)
	if err := row.Scan(
		&id, &firstName, &lastName, &dob, &language,
		&memberNumber, &memberValid, &banExpiresAt, &pastDueCents,
		&idScanHash, &idScanValue, &notes, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	return customer.Reconstruct(
		id, firstName, lastName,
		pgconv.DateFromPgtype(dob),
		language,
		pgconv.StringPtrFromPgtype(memberNumber),
		pgconv.TimePtrFromPgtype(memberValid),
		pgconv.TimePtrFromPgtype(banExpiresAt),
		pastDueCents,
		pgconv.StringPtrFromPgtype(idScanHash),
		pgconv.StringPtrFromPgtype(idScanValue),
		notes,
		pgconv.TimeFromPgtype(createdAt),
		pgconv.TimeFromPgtype(updatedAt),
	), nil
}
