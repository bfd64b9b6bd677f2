package resource

import (
	"github.com/google/uuid"
)

// Resource is a physical room or locker. Availability here only covers the
// resource row itself; soft reservations held by lane sessions are evaluated
// at query time because they live on another aggregate.
type Resource struct {
	id         uuid.UUID
	number     int
	tier       Tier
	typ        Type
	status     Status
	assignedTo *uuid.UUID
}

func Reconstruct(id uuid.UUID, number int, tier Tier, typ Type, status Status, assignedTo *uuid.UUID) *Resource {
	return &Resource{
		id:         id,
		number:     number,
		tier:       tier,
		typ:        typ,
		status:     status,
		assignedTo: assignedTo,
	}
}

func (r *Resource) ID() uuid.UUID { return r.id }
func (r *Resource) Number() int { return r.number }
func (r *Resource) Tier() Tier { return r.tier }
func (r *Resource) Type() Type { return r.typ }
func (r *Resource) Status() Status { return r.status }
func (r *Resource) AssignedTo() *uuid.UUID { return r.assignedTo }

func (r *Resource) IsAvailable() bool {
	return r.status == StatusClean && r.assignedTo == nil
}

func (r *Resource) IsAssignedTo(customerID uuid.UUID) bool {
	return r.assignedTo != nil && *r.assignedTo == customerID
}
