package commands

import (
	"context"
	"time"

	"checkin-core/internal/domain/customer"
	"checkin-core/internal/events"
	"checkin-core/internal/infra"
	"checkin-core/internal/pkg/clock"
	"checkin-core/internal/pkg/errs"
	"checkin-core/internal/scan"
	"checkin-core/internal/usecase/shared"

	"github.com/google/uuid"
)

type ScanOutcome string

const (
	ScanMatched         ScanOutcome = "MATCHED"
	ScanNoMatch         ScanOutcome = "NO_MATCH"
	ScanMultipleMatches ScanOutcome = "MULTIPLE_MATCHES"
	ScanError           ScanOutcome = "ERROR"
)

const ScanErrorBanned = "BANNED"

// CustomerSummary is the matched/candidate customer shape handed back to the
// register for display and re-selection.
type CustomerSummary struct {
	ID               uuid.UUID  `json:"id"`
	DisplayName      string     `json:"displayName"`
	DateOfBirth      time.Time  `json:"dateOfBirth"`
	MembershipNumber *string    `json:"membershipNumber,omitempty"`
	IsMember         bool       `json:"isMember"`
	PastDueCents     int64      `json:"pastDueCents"`
	BanExpiresAt     *time.Time `json:"banExpiresAt,omitempty"`
}

// ExtractedFields prefills the manual-entry form after a NO_MATCH.
type ExtractedFields struct {
	FirstName     string     `json:"firstName,omitempty"`
	LastName      string     `json:"lastName,omitempty"`
	DateOfBirth   *time.Time `json:"dateOfBirth,omitempty"`
	LicenseNumber string     `json:"licenseNumber,omitempty"`
}

type ScanResult struct {
	Outcome         ScanOutcome       `json:"result"`
	Customer        *CustomerSummary  `json:"customer,omitempty"`
	Candidates      []CustomerSummary `json:"candidates,omitempty"`
	ExtractedFields *ExtractedFields  `json:"extractedFields,omitempty"`
	CandidateNumber string            `json:"candidateNumber,omitempty"`
	ErrorCode       string            `json:"errorCode,omitempty"`
}

type ScanCommands interface {
	// ResolveScan runs the matching pipeline for a raw barcode payload
	// scanned at the lane. It never creates a customer; creation happens
	// only through StartSession. When selectedCustomerID is set (employee
	// re-selection after MULTIPLE_MATCHES) the chosen candidate is
	// re-validated against the same DOB and fuzzy-name criteria before
	// being accepted.
	ResolveScan(ctx context.Context, laneID int, rawText string, selectedCustomerID *uuid.UUID) (*ScanResult, error)
}

type scanUseCaseImpl struct {
	uow        shared.UnitOfWork
	thresholds scan.NameThresholds
	bus        events.Bus
	clock      clock.Clock
}

func NewScanUseCase(uow shared.UnitOfWork, thresholds scan.NameThresholds, bus events.Bus, clk clock.Clock) ScanCommands {
	return &scanUseCaseImpl{uow: uow, thresholds: thresholds, bus: bus, clock: clk}
}

func (u *scanUseCaseImpl) ResolveScan(ctx context.Context, laneID int, rawText string, selectedCustomerID *uuid.UUID) (*ScanResult, error) {
	if rawText == "" {
		return nil, errs.Validation("EMPTY_SCAN", "scan payload is empty")
	}

	var result *ScanResult
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		switch scan.Classify(rawText) {
		case scan.KindAAMVA:
			result, err = u.resolveIDScan(ctx, tx, rawText, selectedCustomerID)
		default:
			result, err = u.resolveMembershipScan(ctx, tx, rawText)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	// The kiosk greets the matched customer; candidate lists stay on the
	// register side.
	if result.Outcome == ScanMatched {
		u.bus.PublishScanResolved(ctx, laneID, result)
	}
	return result, nil
}

func (u *scanUseCaseImpl) resolveIDScan(ctx context.Context, tx shared.Tx, rawText string, selectedCustomerID *uuid.UUID) (*ScanResult, error) {
	normalized := scan.Normalize(rawText)
	hash := scan.Hash(rawText)

	// Exact hash/value hit short-circuits everything else.
	c, err := tx.Customers().FindByScan(ctx, hash, normalized)
	if err == nil {
		return u.acceptMatch(ctx, tx, c, hash, normalized)
	}
	if !infra.IsKind(err, infra.KindNotFound) {
		return nil, err
	}

	fields, parseErr := scan.Parse(rawText)
	if parseErr != nil {
		// Unparsable AAMVA-looking payload: nothing to match on.
		return &ScanResult{Outcome: ScanNoMatch, ExtractedFields: &ExtractedFields{}}, nil
	}
	extracted := &ExtractedFields{
		FirstName:     fields.FirstName,
		LastName:      fields.LastName,
		DateOfBirth:   &fields.DateOfBirth,
		LicenseNumber: fields.LicenseNumber,
	}

	candidates, err := tx.Customers().FindByDOB(ctx, fields.DateOfBirth)
	if err != nil {
		return nil, err
	}

	// Employee re-selection: the chosen candidate must itself survive the
	// DOB + fuzzy-name criteria, so a scan cannot be attached to an
	// arbitrary unrelated customer.
	if selectedCustomerID != nil {
		for _, cand := range candidates {
			if cand.ID() == *selectedCustomerID &&
				u.thresholds.MatchesName(fields.FirstName, fields.LastName, cand.FirstName(), cand.LastName()) {
				return u.acceptMatch(ctx, tx, cand, hash, normalized)
			}
		}
		return nil, errs.Validation("CANDIDATE_MISMATCH", "selected customer does not match the scanned identity")
	}

	// Exact name pass first, then fuzzy.
	for _, cand := range candidates {
		if scan.ExactNameMatch(fields.FirstName, fields.LastName, cand.FirstName(), cand.LastName()) {
			return u.acceptMatch(ctx, tx, cand, hash, normalized)
		}
	}

	var fuzzy []*customer.Customer
	for _, cand := range candidates {
		if u.thresholds.MatchesName(fields.FirstName, fields.LastName, cand.FirstName(), cand.LastName()) {
			fuzzy = append(fuzzy, cand)
		}
	}
	switch len(fuzzy) {
	case 0:
		return &ScanResult{Outcome: ScanNoMatch, ExtractedFields: extracted}, nil
	case 1:
		return u.acceptMatch(ctx, tx, fuzzy[0], hash, normalized)
	}

	summaries := make([]CustomerSummary, len(fuzzy))
	for i, cand := range fuzzy {
		summaries[i] = u.summarize(cand)
	}
	return &ScanResult{Outcome: ScanMultipleMatches, Candidates: summaries, ExtractedFields: extracted}, nil
}

func (u *scanUseCaseImpl) resolveMembershipScan(ctx context.Context, tx shared.Tx, rawText string) (*ScanResult, error) {
	number := scan.ParseMembershipNumber(rawText)
	if number == "" {
		return &ScanResult{Outcome: ScanNoMatch}, nil
	}
	c, err := tx.Customers().FindByMembershipNumber(ctx, number)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return &ScanResult{Outcome: ScanNoMatch, CandidateNumber: number}, nil
		}
		return nil, err
	}
	if c.IsBanned(u.clock.Now()) {
		return &ScanResult{Outcome: ScanError, ErrorCode: ScanErrorBanned}, nil
	}
	summary := u.summarize(c)
	return &ScanResult{Outcome: ScanMatched, Customer: &summary}, nil
}

// acceptMatch applies the ban gate and the idempotent scan enrichment every
// match path shares.
func (u *scanUseCaseImpl) acceptMatch(ctx context.Context, tx shared.Tx, c *customer.Customer, hash, normalized string) (*ScanResult, error) {
	if c.IsBanned(u.clock.Now()) {
		return &ScanResult{Outcome: ScanError, ErrorCode: ScanErrorBanned}, nil
	}
	if c.NeedsScanEnrichment() {
		if err := tx.Customers().EnrichScan(ctx, c.ID(), hash, normalized); err != nil {
			return nil, err
		}
	}
	summary := u.summarize(c)
	return &ScanResult{Outcome: ScanMatched, Customer: &summary}, nil
}

func (u *scanUseCaseImpl) summarize(c *customer.Customer) CustomerSummary {
	return CustomerSummary{
		ID:               c.ID(),
		DisplayName:      c.DisplayName(),
		DateOfBirth:      c.DateOfBirth(),
		MembershipNumber: c.MembershipNumber(),
		IsMember:         c.IsMember(u.clock.Now()),
		PastDueCents:     c.PastDueCents(),
		BanExpiresAt:     c.BanExpiresAt(),
	}
}
