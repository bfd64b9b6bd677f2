package lane

import "errors"

var (
	ErrInvalidStatus = errors.New("invalid session status")
	ErrInvalidActor  = errors.New("invalid actor")
	ErrInvalidMode   = errors.New("invalid check-in mode")
)

type Status string

const (
	StatusIdle               Status = "IDLE"
	StatusActive             Status = "ACTIVE"
	StatusAwaitingAssignment Status = "AWAITING_ASSIGNMENT"
	StatusAwaitingPayment    Status = "AWAITING_PAYMENT"
	StatusAwaitingSignature  Status = "AWAITING_SIGNATURE"
	StatusCompleted          Status = "COMPLETED"
	StatusCancelled          Status = "CANCELLED"
)

func NewStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusIdle, StatusActive, StatusAwaitingAssignment, StatusAwaitingPayment,
		StatusAwaitingSignature, StatusCompleted, StatusCancelled:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

func (s Status) String() string { return string(s) }

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Actor tags which party performed a selection action.
type Actor string

const (
	ActorCustomer Actor = "CUSTOMER"
	ActorEmployee Actor = "EMPLOYEE"
)

func NewActor(s string) (Actor, error) {
	switch Actor(s) {
	case ActorCustomer, ActorEmployee:
		return Actor(s), nil
	}
	return "", ErrInvalidActor
}

func (a Actor) String() string { return string(a) }

type CheckinMode string

const (
	ModeInitial CheckinMode = "INITIAL"
	ModeRenewal CheckinMode = "RENEWAL"
)

func NewCheckinMode(s string) (CheckinMode, error) {
	switch CheckinMode(s) {
	case ModeInitial, ModeRenewal:
		return CheckinMode(s), nil
	}
	return "", ErrInvalidMode
}

func (m CheckinMode) String() string { return string(m) }
