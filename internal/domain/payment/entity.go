package payment

import (
	"errors"
	"time"

	"checkin-core/internal/domain/pricing"

	"github.com/google/uuid"
)

var (
	ErrNegativeAmount  = errors.New("intent amount cannot be negative")
	ErrIntentCancelled = errors.New("intent is cancelled")
)

type Status string

const (
	StatusDue       Status = "DUE"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) String() string { return string(s) }

// Intent is one pending charge for a lane session. At most one DUE intent may
// exist per session at a time; duplicates are collapsed by cancellation.
type Intent struct {
	id          uuid.UUID
	sessionID   uuid.UUID
	customerID  uuid.UUID
	amountCents int64
	quote       pricing.Quote
	status      Status
	createdAt   time.Time
	paidAt      *time.Time
}

func NewIntent(sessionID, customerID uuid.UUID, quote pricing.Quote) (*Intent, error) {
	if quote.TotalCents < 0 {
		return nil, ErrNegativeAmount
	}
	return &Intent{
		id:          uuid.New(),
		sessionID:   sessionID,
		customerID:  customerID,
		amountCents: quote.TotalCents,
		quote:       quote,
		status:      StatusDue,
	}, nil
}

func Reconstruct(id, sessionID, customerID uuid.UUID, amountCents int64, quote pricing.Quote, status Status, createdAt time.Time, paidAt *time.Time) *Intent {
	return &Intent{
		id:          id,
		sessionID:   sessionID,
		customerID:  customerID,
		amountCents: amountCents,
		quote:       quote,
		status:      status,
		createdAt:   createdAt,
		paidAt:      paidAt,
	}
}

func (i *Intent) ID() uuid.UUID { return i.id }
func (i *Intent) SessionID() uuid.UUID { return i.sessionID }
func (i *Intent) CustomerID() uuid.UUID { return i.customerID }
func (i *Intent) AmountCents() int64 { return i.amountCents }
func (i *Intent) Quote() pricing.Quote { return i.quote }
func (i *Intent) Status() Status { return i.status }
func (i *Intent) CreatedAt() time.Time { return i.createdAt }
func (i *Intent) PaidAt() *time.Time { return i.paidAt }

func (i *Intent) IsDue() bool { return i.status == StatusDue }
func (i *Intent) IsPaid() bool { return i.status == StatusPaid }

// Reprice updates a DUE intent in place when the quote changes before payment.
func (i *Intent) Reprice(quote pricing.Quote) error {
	if i.status == StatusCancelled {
		return ErrIntentCancelled
	}
	if quote.TotalCents < 0 {
		return ErrNegativeAmount
	}
	i.quote = quote
	i.amountCents = quote.TotalCents
	return nil
}

// MarkPaid is idempotent: marking an already-PAID intent reports alreadyPaid
// instead of erroring, because registers may double-submit.
func (i *Intent) MarkPaid(now time.Time) (alreadyPaid bool, err error) {
	switch i.status {
	case StatusPaid:
		return true, nil
	case StatusCancelled:
		return false, ErrIntentCancelled
	}
	i.status = StatusPaid
	i.paidAt = &now
	return false, nil
}

func (i *Intent) Cancel() {
	if i.status == StatusDue {
		i.status = StatusCancelled
	}
}
