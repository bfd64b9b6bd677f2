package visit

import (
	"errors"
	"time"

	"checkin-core/internal/domain/resource"

	"github.com/google/uuid"
)

var (
	ErrVisitEnded   = errors.New("visit already ended")
	ErrInvalidBlock = errors.New("block end must follow start")
)

// Visit spans a customer's continuous stay; renewal blocks reuse it until
// the visit is ended at checkout.
type Visit struct {
	id         uuid.UUID
	customerID uuid.UUID
	startedAt  time.Time
	endedAt    *time.Time
}

func NewVisit(customerID uuid.UUID, startedAt time.Time) *Visit {
	return &Visit{
		id:         uuid.New(),
		customerID: customerID,
		startedAt:  startedAt,
	}
}

func ReconstructVisit(id, customerID uuid.UUID, startedAt time.Time, endedAt *time.Time) *Visit {
	return &Visit{id: id, customerID: customerID, startedAt: startedAt, endedAt: endedAt}
}

func (v *Visit) ID() uuid.UUID { return v.id }
func (v *Visit) CustomerID() uuid.UUID { return v.customerID }
func (v *Visit) StartedAt() time.Time { return v.startedAt }
func (v *Visit) EndedAt() *time.Time { return v.endedAt }
func (v *Visit) IsOpen() bool { return v.endedAt == nil }

// Block records one paid stretch of a visit against a specific resource.
type Block struct {
	id           uuid.UUID
	visitID      uuid.UUID
	rentalTier   resource.Tier
	resourceType resource.Type
	resourceID   uuid.UUID
	startsAt     time.Time
	endsAt       time.Time
	agreementID  *uuid.UUID
}

func NewBlock(visitID uuid.UUID, tier resource.Tier, typ resource.Type, resourceID uuid.UUID, startsAt, endsAt time.Time) (*Block, error) {
	if !endsAt.After(startsAt) {
		return nil, ErrInvalidBlock
	}
	return &Block{
		id:           uuid.New(),
		visitID:      visitID,
		rentalTier:   tier,
		resourceType: typ,
		resourceID:   resourceID,
		startsAt:     startsAt,
		endsAt:       endsAt,
	}, nil
}

func ReconstructBlock(id, visitID uuid.UUID, tier resource.Tier, typ resource.Type, resourceID uuid.UUID, startsAt, endsAt time.Time, agreementID *uuid.UUID) *Block {
	return &Block{
		id:           id,
		visitID:      visitID,
		rentalTier:   tier,
		resourceType: typ,
		resourceID:   resourceID,
		startsAt:     startsAt,
		endsAt:       endsAt,
		agreementID:  agreementID,
	}
}

func (b *Block) ID() uuid.UUID { return b.id }
func (b *Block) VisitID() uuid.UUID { return b.visitID }
func (b *Block) RentalTier() resource.Tier { return b.rentalTier }
func (b *Block) ResourceType() resource.Type { return b.resourceType }
func (b *Block) ResourceID() uuid.UUID { return b.resourceID }
func (b *Block) StartsAt() time.Time { return b.startsAt }
func (b *Block) EndsAt() time.Time { return b.endsAt }
func (b *Block) AgreementID() *uuid.UUID { return b.agreementID }

func (b *Block) SetAgreement(id uuid.UUID) {
	a := id
	b.agreementID = &a
}

// BlockEnd computes a block's end time: a fixed duration from start, rounded
// up to the next quantum boundary (quarter hour in production).
func BlockEnd(startsAt time.Time, duration, quantum time.Duration) time.Time {
	end := startsAt.Add(duration)
	if quantum <= 0 {
		return end
	}
	rounded := end.Truncate(quantum)
	if rounded.Before(end) {
		rounded = rounded.Add(quantum)
	}
	return rounded
}
