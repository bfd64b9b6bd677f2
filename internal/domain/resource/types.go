package resource

import "errors"

var (
	ErrInvalidTier   = errors.New("invalid rental tier")
	ErrInvalidType   = errors.New("invalid resource type")
	ErrInvalidStatus = errors.New("invalid resource status")
)

// Tier is the rental category used for pricing and room-type matching.
type Tier string

const (
	TierStandard Tier = "STANDARD"
	TierDouble   Tier = "DOUBLE"
	TierSpecial  Tier = "SPECIAL"
	TierLocker   Tier = "LOCKER"
)

func NewTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierStandard, TierDouble, TierSpecial, TierLocker:
		return Tier(s), nil
	}
	return "", ErrInvalidTier
}

func (t Tier) String() string { return string(t) }

func (t Tier) IsRoom() bool { return t != TierLocker }

type Type string

const (
	TypeRoom   Type = "ROOM"
	TypeLocker Type = "LOCKER"
)

func NewType(s string) (Type, error) {
	switch Type(s) {
	case TypeRoom, TypeLocker:
		return Type(s), nil
	}
	return "", ErrInvalidType
}

func (t Type) String() string { return string(t) }

type Status string

const (
	StatusClean        Status = "CLEAN"
	StatusOccupied     Status = "OCCUPIED"
	StatusCleaning     Status = "CLEANING"
	StatusOutOfService Status = "OUT_OF_SERVICE"
)

func NewStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusClean, StatusOccupied, StatusCleaning, StatusOutOfService:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

func (s Status) String() string { return string(s) }
