package customer

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyName      = errors.New("customer name cannot be empty")
	ErrInvalidDOB     = errors.New("invalid date of birth")
	ErrFutureBan      = errors.New("ban expiry cannot precede creation")
	ErrNegativeAmount = errors.New("past-due balance cannot be negative")
)

// Customer is an identity record. Never deleted; bans and membership expiry
// provide the soft lifecycle.
type Customer struct {
	id               uuid.UUID
	firstName        string
	lastName         string
	dateOfBirth      time.Time
	primaryLanguage  string
	membershipNumber *string
	membershipValid  *time.Time
	banExpiresAt     *time.Time
	pastDueCents     int64
	idScanHash       *string
	idScanValue      *string
	notes            string
	createdAt        time.Time
	updatedAt        time.Time
}

func NewCustomer(firstName, lastName string, dateOfBirth time.Time) (*Customer, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return nil, ErrEmptyName
	}
	if dateOfBirth.IsZero() || dateOfBirth.After(time.Now()) {
		return nil, ErrInvalidDOB
	}
	return &Customer{
		id:          uuid.New(),
		firstName:   firstName,
		lastName:    lastName,
		dateOfBirth: dateOfBirth,
	}, nil
}

func Reconstruct(
	id uuid.UUID,
	firstName, lastName string,
	dateOfBirth time.Time,
	primaryLanguage string,
	membershipNumber *string,
	membershipValid *time.Time,
	banExpiresAt *time.Time,
	pastDueCents int64,
	idScanHash, idScanValue *string,
	notes string,
	createdAt, updatedAt time.Time,
) *Customer {
	return &Customer{
		id:               id,
		firstName:        firstName,
		lastName:         lastName,
		dateOfBirth:      dateOfBirth,
		primaryLanguage:  primaryLanguage,
		membershipNumber: membershipNumber,
		membershipValid:  membershipValid,
		banExpiresAt:     banExpiresAt,
		pastDueCents:     pastDueCents,
		idScanHash:       idScanHash,
		idScanValue:      idScanValue,
		notes:            notes,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

func (c *Customer) ID() uuid.UUID { return c.id }
func (c *Customer) FirstName() string { return c.firstName }
func (c *Customer) LastName() string { return c.lastName }
func (c *Customer) DateOfBirth() time.Time { return c.dateOfBirth }
func (c *Customer) PrimaryLanguage() string { return c.primaryLanguage }
func (c *Customer) MembershipNumber() *string { return c.membershipNumber }
func (c *Customer) MembershipValid() *time.Time { return c.membershipValid }
func (c *Customer) BanExpiresAt() *time.Time { return c.banExpiresAt }
func (c *Customer) PastDueCents() int64 { return c.pastDueCents }
func (c *Customer) IDScanHash() *string { return c.idScanHash }
func (c *Customer) IDScanValue() *string { return c.idScanValue }
func (c *Customer) Notes() string { return c.notes }
func (c *Customer) CreatedAt() time.Time { return c.createdAt }
func (c *Customer) UpdatedAt() time.Time { return c.updatedAt }

func (c *Customer) DisplayName() string {
	return c.firstName + " " + c.lastName
}

func (c *Customer) IsBanned(now time.Time) bool {
	return c.banExpiresAt != nil && c.banExpiresAt.After(now)
}

func (c *Customer) HasPastDue() bool {
	return c.pastDueCents > 0
}

func (c *Customer) IsMember(now time.Time) bool {
	return c.membershipNumber != nil && c.membershipValid != nil && c.membershipValid.After(now)
}

func (c *Customer) Age(now time.Time) int {
	years := now.Year() - c.dateOfBirth.Year()
	if now.YearDay() < c.dateOfBirth.YearDay() {
		years--
	}
	return years
}

// NeedsScanEnrichment reports whether a successful scan match should backfill
// the stored hash/value fields. Enrichment is idempotent: present fields are
// never overwritten.
func (c *Customer) NeedsScanEnrichment() bool {
	return c.idScanHash == nil || c.idScanValue == nil
}
