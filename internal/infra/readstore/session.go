package readstore

import (
	"context"

	"checkin-core/internal/infra"
	"checkin-core/internal/infra/db"
	"checkin-core/internal/pkg/pgconv"
	"checkin-core/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// sessionViewQuery assembles the snapshot in one round trip: the session row,
// the customer, the assigned room or locker number, and the newest payment
// intent. The resource number comes from whichever table the assignment
// points at.
const sessionViewQuery = `
	SELECT
		s.id, s.lane_id, s.status, s.checkin_mode,
		c.id, c.first_name || ' ' || c.last_name, c.primary_language,
		c.membership_valid_until, c.past_due_cents, c.ban_expires_at,
		s.proposed_tier, s.proposed_by, s.desired_tier,
		s.selection_confirmed, s.selection_confirmed_by, s.selection_acked_by,
		s.assigned_resource_id, s.assigned_resource_type, s.assignment_needs_accept,
		COALESCE(rm.number, lk.number),
		s.waitlist_desired_tier, s.waitlist_backup_tier,
		pi.id, pi.amount_cents, pi.status,
		s.quote, s.past_due_bypass, s.membership_choice, s.kiosk_acked,
		s.updated_at, now()
	FROM lane_sessions s
	JOIN customers c ON c.id = s.customer_id
	LEFT JOIN rooms rm ON s.assigned_resource_type = 'ROOM' AND rm.id = s.assigned_resource_id
	LEFT JOIN lockers lk ON s.assigned_resource_type = 'LOCKER' AND lk.id = s.assigned_resource_id
	LEFT JOIN LATERAL (
		SELECT id, amount_cents, status FROM payment_intents
		WHERE session_id = s.id AND status <> 'CANCELLED'
		ORDER BY created_at DESC
		LIMIT 1
	) pi ON true`

type SessionReadStore struct {
	db db.DBTX
}

func NewSessionReadStore(dbtx db.DBTX) *SessionReadStore {
	return &SessionReadStore{db: dbtx}
}

func (r *SessionReadStore) FindActiveByLane(ctx context.Context, laneID int) (*queries.SessionView, error) {
	row := r.db.QueryRow(ctx, sessionViewQuery+`
		WHERE s.lane_id = $1 AND s.status NOT IN ('COMPLETED','CANCELLED')
		ORDER BY s.updated_at DESC
		LIMIT 1`, laneID)
	v, err := scanSessionView(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("no active session for lane", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to load lane session view", err)
	}
	return v, nil
}

func (r *SessionReadStore) FindBySessionID(ctx context.Context, id uuid.UUID) (*queries.SessionView, error) {
	row := r.db.QueryRow(ctx, sessionViewQuery+` WHERE s.id = $1`, id)
	v, err := scanSessionView(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("session view not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to load session view", err)
	}
	return v, nil
}

func (r *SessionReadStore) FindAllActive(ctx context.Context) ([]*queries.SessionView, error) {
	rows, err := r.db.Query(ctx, sessionViewQuery+`
		WHERE s.status NOT IN ('COMPLETED','CANCELLED')
		ORDER BY s.lane_id, s.updated_at DESC`)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list active session views", err)
	}
	defer rows.Close()

	var views []*queries.SessionView
	for rows.Next() {
		v, err := scanSessionView(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan session view", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate session views", err)
	}
	return views, nil
}

func scanSessionView(row pgx.Row) (*queries.SessionView, error) {
	var (
		v                    queries.SessionView
		language             pgtype.Text
		membershipValidUntil pgtype.Date
		banExpiresAt         pgtype.Timestamptz
		proposedTier         pgtype.Text
		proposedBy           pgtype.Text
		desiredTier          pgtype.Text
		selectionConfirmedBy pgtype.Text
		selectionAckedBy     pgtype.Text
		assignedResourceID   pgtype.UUID
		assignedResourceType pgtype.Text
		needsAccept          bool
		resourceNumber       pgtype.Int4
		waitlistDesired      pgtype.Text
		waitlistBackup       pgtype.Text
		intentID             pgtype.UUID
		intentAmount         pgtype.Int8
		intentStatus         pgtype.Text
		quoteRaw             []byte
		membershipChoice     pgtype.Text
		updatedAt            pgtype.Timestamptz
		dbNow                pgtype.Timestamptz
	)
	if err := row.Scan(
		&v.ID, &v.LaneID, &v.Status, &v.CheckinMode,
		&v.Customer.ID, &v.Customer.DisplayName, &language,
		&membershipValidUntil, &v.Customer.PastDueCents, &banExpiresAt,
		&proposedTier, &proposedBy, &desiredTier,
		&v.SelectionConfirmed, &selectionConfirmedBy, &selectionAckedBy,
		&assignedResourceID, &assignedResourceType, &needsAccept,
		&resourceNumber,
		&waitlistDesired, &waitlistBackup,
		&intentID, &intentAmount, &intentStatus,
		&quoteRaw, &v.PastDueBypass, &membershipChoice, &v.KioskAcked,
		&updatedAt, &dbNow,
	); err != nil {
		return nil, err
	}

	if language.Valid {
		v.Customer.Language = language.String
	}
	if membershipValidUntil.Valid {
		t := pgconv.DateFromPgtype(membershipValidUntil)
		v.Customer.MembershipValidUntil = &t
		v.Customer.IsMember = !t.Before(pgconv.TimeFromPgtype(dbNow))
	}
	v.Customer.BanExpiresAt = pgconv.TimePtrFromPgtype(banExpiresAt)

	v.ProposedTier = pgconv.StringPtrFromPgtype(proposedTier)
	v.ProposedBy = pgconv.StringPtrFromPgtype(proposedBy)
	v.DesiredTier = pgconv.StringPtrFromPgtype(desiredTier)
	v.SelectionConfirmedBy = pgconv.StringPtrFromPgtype(selectionConfirmedBy)
	v.SelectionAckedBy = pgconv.StringPtrFromPgtype(selectionAckedBy)

	if assignedResourceID.Valid && assignedResourceType.Valid && resourceNumber.Valid {
		v.Assignment = &queries.SessionAssignmentView{
			ResourceID:     uuid.UUID(assignedResourceID.Bytes),
			ResourceType:   assignedResourceType.String,
			ResourceNumber: int(resourceNumber.Int32),
			NeedsAccept:    needsAccept,
		}
	}
	v.WaitlistDesiredTier = pgconv.StringPtrFromPgtype(waitlistDesired)
	v.WaitlistBackupTier = pgconv.StringPtrFromPgtype(waitlistBackup)

	if intentID.Valid {
		v.Payment = &queries.SessionPaymentView{
			IntentID:    uuid.UUID(intentID.Bytes),
			AmountCents: intentAmount.Int64,
			Status:      intentStatus.String,
		}
	}
	v.Quote = quoteRaw
	v.MembershipChoice = pgconv.StringPtrFromPgtype(membershipChoice)
	v.UpdatedAt = pgconv.TimeFromPgtype(updatedAt)
	return &v, nil
}
