package shared

import (
	"context"
	"time"

	"checkin-core/internal/domain/customer"
	"checkin-core/internal/domain/lane"
	"checkin-core/internal/domain/payment"
	"checkin-core/internal/domain/resource"
	"checkin-core/internal/domain/staff"
	"checkin-core/internal/domain/visit"
	"checkin-core/internal/infra/db"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: read-committed transaction for ordinary write operations.
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithinSerializable: strictest isolation, required for resource
	// selection/assignment to prevent write-skew between racing lanes.
	WithinSerializable(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithDB: single query operations using implicit transactions.
	WithDB(ctx context.Context, fn func(ctx context.Context, db db.DBTX) error) error
}

type Tx interface {
	Customers() CustomerRepository
	Sessions() SessionRepository
	Resources() ResourceRepository
	Payments() PaymentRepository
	Visits() VisitRepository
	Waitlist() WaitlistRepository
	Agreements() AgreementRepository
	Staff() StaffRepository
	DB() db.DBTX
}

type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error)
	// FindByScan matches on stored scan hash OR stored raw value.
	FindByScan(ctx context.Context, hash, normalizedValue string) (*customer.Customer, error)
	FindByDOB(ctx context.Context, dob time.Time) ([]*customer.Customer, error)
	FindByMembershipNumber(ctx context.Context, number string) (*customer.Customer, error)
	Create(ctx context.Context, c *customer.Customer) error
	// EnrichScan backfills missing hash/value fields; present fields are left
	// untouched, so repeating the call is a no-op.
	EnrichScan(ctx context.Context, id uuid.UUID, hash, value string) error
	// AttachMembershipNumber backfills a missing membership number; an
	// existing number is left untouched.
	AttachMembershipNumber(ctx context.Context, id uuid.UUID, number string) error
}

type SessionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*lane.Session, error)
	// FindActiveByLane returns the single non-terminal session for the lane.
	FindActiveByLane(ctx context.Context, laneID int) (*lane.Session, error)
	// FindActiveByCustomerName is the best-effort recovery path keyed on
	// display name; returns the most recently updated match.
	FindActiveByCustomerName(ctx context.Context, laneID int, displayName string) (*lane.Session, error)
	Create(ctx context.Context, s *lane.Session) error
	Update(ctx context.Context, s *lane.Session) error
	// ExistsActiveHold reports whether any other non-terminal session soft-
	// reserves the resource.
	ExistsActiveHold(ctx context.Context, typ resource.Type, resourceID uuid.UUID, excludeSessionID uuid.UUID) (bool, error)
}

// ResourceRef is the minimal selection result handed to the lane.
type ResourceRef struct {
	ID     uuid.UUID
	Number int
	Tier   resource.Tier
	Type   resource.Type
}

type ResourceRepository interface {
	// SelectRoomForNewCheckin picks the next available room of the tier,
	// skipping the first `skip` rooms in number order to reserve waitlisted
	// customers' turns. Locks the selected row; rooms locked by concurrent
	// transactions, softly held by other sessions, or offered to a waitlist
	// entry are excluded inside the same query.
	SelectRoomForNewCheckin(ctx context.Context, tier resource.Tier, skip int) (*ResourceRef, error)
	// SelectLocker picks the lowest-numbered free locker under lock.
	SelectLocker(ctx context.Context) (*ResourceRef, error)
	// LockByID loads the resource row FOR UPDATE for re-validation.
	LockByID(ctx context.Context, typ resource.Type, id uuid.UUID) (*resource.Resource, error)
	FindByID(ctx context.Context, typ resource.Type, id uuid.UUID) (*resource.Resource, error)
	MarkOccupied(ctx context.Context, typ resource.Type, id, customerID uuid.UUID) error
}

type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*payment.Intent, error)
	// FindDueBySession returns all DUE intents for the session, newest first.
	FindDueBySession(ctx context.Context, sessionID uuid.UUID) ([]*payment.Intent, error)
	Create(ctx context.Context, i *payment.Intent) error
	Update(ctx context.Context, i *payment.Intent) error
}

type VisitRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*visit.Visit, error)
	FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) (*visit.Visit, error)
	// FindCurrentBlockByVisit returns the visit's most recent block; renewals
	// extend from it and keep its resource.
	FindCurrentBlockByVisit(ctx context.Context, visitID uuid.UUID) (*visit.Block, error)
	CreateVisit(ctx context.Context, v *visit.Visit) error
	CreateBlock(ctx context.Context, b *visit.Block) error
	SetBlockAgreement(ctx context.Context, blockID, agreementID uuid.UUID) error
}

// WaitlistEntry tracks a customer who accepted a lesser tier while desiring a
// higher one.
type WaitlistEntry struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	BlockID     uuid.UUID
	DesiredTier resource.Tier
	BackupTier  resource.Tier
	Status      string
	CreatedAt   time.Time
}

const (
	WaitlistStatusActive  = "ACTIVE"
	WaitlistStatusOffered = "OFFERED"
)

type WaitlistRepository interface {
	// CountActiveDemand counts ACTIVE entries desiring the tier whose
	// check-in block has not yet ended.
	CountActiveDemand(ctx context.Context, tier resource.Tier, now time.Time) (int, error)
	Create(ctx context.Context, e *WaitlistEntry) error
}

// AgreementRecord is the immutable signed-agreement audit artifact.
type AgreementRecord struct {
	ID             uuid.UUID
	SessionID      uuid.UUID
	BlockID        uuid.UUID
	CustomerID     uuid.UUID
	SignedBy       string
	ManualOverride bool
	SignedAt       time.Time
	PDF            []byte
	SHA256         string
}

type AgreementRepository interface {
	Create(ctx context.Context, r *AgreementRecord) error
}

type StaffRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*staff.Staff, error)
	FindByUsername(ctx context.Context, username string) (*staff.Staff, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}
