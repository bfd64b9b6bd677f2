package repository

import (
	"context"
	"encoding/json"

	"checkin-core/internal/domain/lane"
	"checkin-core/internal/domain/pricing"
	"checkin-core/internal/domain/resource"
	"checkin-core/internal/infra"
	"checkin-core/internal/infra/db"
	"checkin-core/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const sessionColumns = `
	id, lane_id, status, customer_id, staff_id, checkin_mode, visit_id,
	proposed_tier, proposed_by, desired_tier,
	selection_confirmed, selection_confirmed_by, selection_locked_at, selection_acked_by,
	assigned_resource_id, assigned_resource_type, assignment_needs_accept,
	waitlist_desired_tier, waitlist_backup_tier,
	payment_intent_id, quote, past_due_bypass, membership_choice, kiosk_acked,
	created_at, updated_at`

type SessionRepository struct {
	db db.DBTX
}

func NewSessionRepository(dbtx db.DBTX) *SessionRepository {
	return &SessionRepository{db: dbtx}
}

func (r *SessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*lane.Session, error) {
	row := r.db.QueryRow(ctx, `SELECT`+sessionColumns+` FROM lane_sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("session not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find session by id", err)
	}
	return s, nil
}

func (r *SessionRepository) FindActiveByLane(ctx context.Context, laneID int) (*lane.Session, error) {
	row := r.db.QueryRow(ctx,
		`SELECT`+sessionColumns+` FROM lane_sessions
		 WHERE lane_id = $1 AND status NOT IN ('COMPLETED','CANCELLED')
		 ORDER BY updated_at DESC
		 LIMIT 1`, laneID)
	s, err := scanSession(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("no active session for lane", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find active session for lane", err)
	}
	return s, nil
}

// FindActiveByCustomerName joins on the customer display name. Known fragile:
// two customers sharing a display name on the same lane resolve to the most
// recently updated session.
func (r *SessionRepository) FindActiveByCustomerName(ctx context.Context, laneID int, displayName string) (*lane.Session, error) {
	row := r.db.QueryRow(ctx,
		`SELECT`+prefixedSessionColumns("s")+`
		 FROM lane_sessions s
		 JOIN customers c ON c.id = s.customer_id
		 WHERE s.lane_id = $1
		   AND s.status NOT IN ('COMPLETED','CANCELLED')
		   AND lower(c.first_name || ' ' || c.last_name) = lower($2)
		 ORDER BY s.updated_at DESC
		 LIMIT 1`, laneID, displayName)
	s, err := scanSession(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("no active session for customer name", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find session by customer name", err)
	}
	return s, nil
}

func (r *SessionRepository) Create(ctx context.Context, s *lane.Session) error {
	quote, err := marshalQuote(s.Quote())
	if err != nil {
		return infra.WrapRepoErr("failed to marshal quote snapshot", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO lane_sessions (
			id, lane_id, status, customer_id, staff_id, checkin_mode, visit_id,
			proposed_tier, proposed_by, desired_tier,
			selection_confirmed, selection_confirmed_by, selection_locked_at, selection_acked_by,
			assigned_resource_id, assigned_resource_type, assignment_needs_accept,
			waitlist_desired_tier, waitlist_backup_tier,
			payment_intent_id, quote, past_due_bypass, membership_choice, kiosk_acked,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,now(),now())`,
		sessionArgs(s, quote)...,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create session", err)
	}
	return nil
}

func (r *SessionRepository) Update(ctx context.Context, s *lane.Session) error {
	quote, err := marshalQuote(s.Quote())
	if err != nil {
		return infra.WrapRepoErr("failed to marshal quote snapshot", err)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE lane_sessions SET
			lane_id = $2, status = $3, customer_id = $4, staff_id = $5,
			checkin_mode = $6, visit_id = $7,
			proposed_tier = $8, proposed_by = $9, desired_tier = $10,
			selection_confirmed = $11, selection_confirmed_by = $12,
			selection_locked_at = $13, selection_acked_by = $14,
			assigned_resource_id = $15, assigned_resource_type = $16,
			assignment_needs_accept = $17,
			waitlist_desired_tier = $18, waitlist_backup_tier = $19,
			payment_intent_id = $20, quote = $21, past_due_bypass = $22,
			membership_choice = $23, kiosk_acked = $24,
			updated_at = now()
		 WHERE id = $1`,
		sessionArgs(s, quote)...,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update session", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("session vanished during update", nil, infra.KindNotFound)
	}
	return nil
}

func (r *SessionRepository) ExistsActiveHold(ctx context.Context, typ resource.Type, resourceID uuid.UUID, excludeSessionID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM lane_sessions
			WHERE assigned_resource_id = $1
			  AND assigned_resource_type = $2
			  AND status NOT IN ('COMPLETED','CANCELLED')
			  AND id <> $3
		)`, resourceID, typ.String(), excludeSessionID).Scan(&exists)
	if err != nil {
		return false, infra.WrapRepoErr("failed to check resource hold", err)
	}
	return exists, nil
}

func sessionArgs(s *lane.Session, quote []byte) []any {
	return []any{
		s.ID(), s.LaneID(), s.Status().String(), s.CustomerID(),
		pgconv.UUIDPtrToPgtype(s.StaffID()),
		s.CheckinMode().String(),
		pgconv.UUIDPtrToPgtype(s.VisitID()),
		tierPtrToText(s.ProposedTier()),
		actorPtrToText(s.ProposedBy()),
		tierPtrToText(s.DesiredTier()),
		s.SelectionConfirmed(),
		actorPtrToText(s.SelectionConfirmedBy()),
		pgconv.TimePtrToPgtype(s.SelectionLockedAt()),
		actorPtrToText(s.SelectionAckedBy()),
		pgconv.UUIDPtrToPgtype(s.AssignedResourceID()),
		typePtrToText(s.AssignedResourceType()),
		s.AssignmentNeedsAccept(),
		tierPtrToText(s.WaitlistDesiredTier()),
		tierPtrToText(s.WaitlistBackupTier()),
		pgconv.UUIDPtrToPgtype(s.PaymentIntentID()),
		quote,
		s.PastDueBypass(),
		choicePtrToText(s.MembershipChoice()),
		s.KioskAcked(),
	}
}

func scanSession(row pgx.Row) (*lane.Session, error) {
	var (
		id                    uuid.UUID
		laneID                int
		status                string
		customerID            uuid.UUID
		staffID               pgtype.UUID
		mode                  string
		visitID               pgtype.UUID
		proposedTier          pgtype.Text
		proposedBy            pgtype.Text
		desiredTier           pgtype.Text
		selectionConfirmed    bool
		selectionConfirmedBy  pgtype.Text
		selectionLockedAt     pgtype.Timestamptz
		selectionAckedBy      pgtype.Text
		assignedResourceID    pgtype.UUID
		assignedResourceType  pgtype.Text
		assignmentNeedsAccept bool
		waitlistDesired       pgtype.Text
		waitlistBackup        pgtype.Text
		paymentIntentID       pgtype.UUID
		quoteRaw              []byte
		pastDueBypass         bool
		membershipChoice      pgtype.Text
		kioskAcked            bool
		createdAt             pgtype.Timestamptz
		updatedAt             pgtype.Timestamptz
	)
	if err := row.Scan(
		&id, &laneID, &status, &customerID, &staffID, &mode, &visitID,
		&proposedTier, &proposedBy, &desiredTier,
		&selectionConfirmed, &selectionConfirmedBy, &selectionLockedAt, &selectionAckedBy,
		&assignedResourceID, &assignedResourceType, &assignmentNeedsAccept,
		&waitlistDesired, &waitlistBackup,
		&paymentIntentID, &quoteRaw, &pastDueBypass, &membershipChoice, &kioskAcked,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	st, err := lane.NewStatus(status)
	if err != nil {
		return nil, err
	}
	cm, err := lane.NewCheckinMode(mode)
	if err != nil {
		return nil, err
	}
	quote, err := unmarshalQuote(quoteRaw)
	if err != nil {
		return nil, err
	}

	return lane.Reconstruct(lane.ReconstructParams{
		ID:                    id,
		LaneID:                laneID,
		Status:                st,
		CustomerID:            customerID,
		StaffID:               pgconv.UUIDPtrFromPgtype(staffID),
		CheckinMode:           cm,
		VisitID:               pgconv.UUIDPtrFromPgtype(visitID),
		ProposedTier:          tierPtrFromText(proposedTier),
		ProposedBy:            actorPtrFromText(proposedBy),
		DesiredTier:           tierPtrFromText(desiredTier),
		SelectionConfirmed:    selectionConfirmed,
		SelectionConfirmedBy:  actorPtrFromText(selectionConfirmedBy),
		SelectionLockedAt:     pgconv.TimePtrFromPgtype(selectionLockedAt),
		SelectionAckedBy:      actorPtrFromText(selectionAckedBy),
		AssignedResourceID:    pgconv.UUIDPtrFromPgtype(assignedResourceID),
		AssignedResourceType:  typePtrFromText(assignedResourceType),
		AssignmentNeedsAccept: assignmentNeedsAccept,
		WaitlistDesiredTier:   tierPtrFromText(waitlistDesired),
		WaitlistBackupTier:    tierPtrFromText(waitlistBackup),
		PaymentIntentID:       pgconv.UUIDPtrFromPgtype(paymentIntentID),
		Quote:                 quote,
		PastDueBypass:         pastDueBypass,
		MembershipChoice:      choicePtrFromText(membershipChoice),
		KioskAcked:            kioskAcked,
		CreatedAt:             pgconv.TimeFromPgtype(createdAt),
		UpdatedAt:             pgconv.TimeFromPgtype(updatedAt),
	}), nil
}

func prefixedSessionColumns(alias string) string {
	return `
	` + alias + `.id, ` + alias + `.lane_id, ` + alias + `.status, ` + alias + `.customer_id, ` + alias + `.staff_id, ` + alias + `.checkin_mode, ` + alias + `.visit_id,
	` + alias + `.proposed_tier, ` + alias + `.proposed_by, ` + alias + `.desired_tier,
	` + alias + `.selection_confirmed, ` + alias + `.selection_confirmed_by, ` + alias + `.selection_locked_at, ` + alias + `.selection_acked_by,
	` + alias + `.assigned_resource_id, ` + alias + `.assigned_resource_type, ` + alias + `.assignment_needs_accept,
	` + alias + `.waitlist_desired_tier, ` + alias + `.waitlist_backup_tier,
	` + alias + `.payment_intent_id, ` + alias + `.quote, ` + alias + `.past_due_bypass, ` + alias + `.membership_choice, ` + alias + `.kiosk_acked,
	` + alias + `.created_at, ` + alias + `.updated_at`
}

func marshalQuote(q *pricing.Quote) ([]byte, error) {
	if q == nil {
		return nil, nil
	}
	return json.Marshal(q)
}

func unmarshalQuote(raw []byte) (*pricing.Quote, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var q pricing.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func tierPtrToText(t *resource.Tier) pgtype.Text {
	if t == nil {
		return pgtype.Text{Valid: false}
	}
	return pgconv.StringToPgtype(t.String())
}

func tierPtrFromText(t pgtype.Text) *resource.Tier {
	if !t.Valid {
		return nil
	}
	tier := resource.Tier(t.String)
	return &tier
}

func typePtrToText(t *resource.Type) pgtype.Text {
	if t == nil {
		return pgtype.Text{Valid: false}
	}
	return pgconv.StringToPgtype(t.String())
}

func typePtrFromText(t pgtype.Text) *resource.Type {
	if !t.Valid {
		return nil
	}
	typ := resource.Type(t.String)
	return &typ
}

func actorPtrToText(a *lane.Actor) pgtype.Text {
	if a == nil {
		return pgtype.Text{Valid: false}
	}
	return pgconv.StringToPgtype(a.String())
}

func actorPtrFromText(t pgtype.Text) *lane.Actor {
	if !t.Valid {
		return nil
	}
	actor := lane.Actor(t.String)
	return &actor
}

func choicePtrToText(c *pricing.MembershipChoice) pgtype.Text {
	if c == nil {
		return pgtype.Text{Valid: false}
	}
	return pgconv.StringToPgtype(string(*c))
}

func choicePtrFromText(t pgtype.Text) *pricing.MembershipChoice {
	if !t.Valid {
		return nil
	}
	choice := pricing.MembershipChoice(t.String)
	return &choice
}
