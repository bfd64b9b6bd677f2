package repository

import (
	"context"
	"time"

	"checkin-core/internal/domain/staff"
	"checkin-core/internal/infra"
	"checkin-core/internal/infra/db"
	"checkin-core/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const staffColumns = `id, username, password_hash, pin_hash, role, is_active, last_login`

type StaffRepository struct {
	db db.DBTX
}

func NewStaffRepository(dbtx db.DBTX) *StaffRepository {
	return &StaffRepository{db: dbtx}
}

func (r *StaffRepository) FindByID(ctx context.Context, id uuid.UUID) (*staff.Staff, error) {
	row := r.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id)
	s, err := scanStaff(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("staff not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find staff by id", err)
	}
	return s, nil
}

func (r *StaffRepository) FindByUsername(ctx context.Context, username string) (*staff.Staff, error) {
	row := r.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE username = $1`, username)
	s, err := scanStaff(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("staff not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find staff by username", err)
	}
	return s, nil
}

func (r *StaffRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE staff SET last_login = $2 WHERE id = $1`, id, pgconv.TimeToPgtype(at))
	if err != nil {
		return infra.WrapRepoErr("failed to update last login", err)
	}
	return nil
}

func scanStaff(row pgx.Row) (*staff.Staff, error) {
	var (
		id           uuid.UUID
		username     string
		passwordHash string
		pinHash      pgtype.Text
		roleStr      string
		isActive     bool
		lastLogin    pgtype.Timestamptz
	)
	if err := row.Scan(&id, &username, &passwordHash, &pinHash, &roleStr, &isActive, &lastLogin); err != nil {
		return nil, err
	}
	role, err := staff.NewRole(roleStr)
	if err != nil {
		return nil, err
	}
	return staff.Reconstruct(id, username, passwordHash,
		pgconv.StringPtrFromPgtype(pinHash), role, isActive,
		pgconv.TimePtrFromPgtype(lastLogin)), nil
}
