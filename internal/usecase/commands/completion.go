package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"checkin-core/internal/agreement"
	"checkin-core/internal/domain/lane"
	"checkin-core/internal/domain/resource"
	"checkin-core/internal/domain/visit"
	"checkin-core/internal/infra"
	"checkin-core/internal/pkg/clock"
	"checkin-core/internal/pkg/config"
	"checkin-core/internal/pkg/errs"
	"checkin-core/internal/usecase/shared"

	"github.com/google/uuid"
)

type SignAgreementInput struct {
	LaneID         int
	SignedBy       string
	ManualOverride bool
	Ref            SessionRef
}

type CompletionResult struct {
	SessionID      uuid.UUID `json:"sessionId"`
	VisitID        uuid.UUID `json:"visitId"`
	BlockID        uuid.UUID `json:"blockId"`
	ResourceNumber int       `json:"resourceNumber"`
	Tier           string    `json:"tier"`
	BlockEndsAt    time.Time `json:"blockEndsAt"`
}

type CompletionCommands interface {
	// SignAgreement captures the signature and runs the check-in commit:
	// re-validate the reserved resource, occupy it, open or extend the
	// visit, record the block and waitlist entry, assert the post-condition,
	// store the agreement, and complete the session. One transaction; any
	// failure rolls everything back and the lane stays at the signature
	// step for retry.
	SignAgreement(ctx context.Context, in SignAgreementInput) (*CompletionResult, error)
}

type completionUseCaseImpl struct {
	uow         shared.UnitOfWork
	resolver    SessionResolver
	pdf         agreement.Generator
	broadcaster *Broadcaster
	cfg         config.CheckinConfig
	clock       clock.Clock
}

func NewCompletionUseCase(
	uow shared.UnitOfWork,
	resolver SessionResolver,
	pdf agreement.Generator,
	broadcaster *Broadcaster,
	cfg config.CheckinConfig,
	clk clock.Clock,
) CompletionCommands {
	return &completionUseCaseImpl{
		uow:         uow,
		resolver:    resolver,
		pdf:         pdf,
		broadcaster: broadcaster,
		cfg:         cfg,
		clock:       clk,
	}
}

func (u *completionUseCaseImpl) SignAgreement(ctx context.Context, in SignAgreementInput) (*CompletionResult, error) {
	if in.SignedBy == "" {
		return nil, errs.Validation("MISSING_SIGNATURE", "signedBy is required")
	}

	var (
		result          *CompletionResult
		waitlistPayload map[string]any
	)
	err := u.uow.WithinSerializable(ctx, func(ctx context.Context, tx shared.Tx) error {
		s, err := u.resolver.Resolve(ctx, tx, in.LaneID, in.Ref)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.NotFound("NO_ACTIVE_SESSION", "no active session for lane")
			}
			return err
		}
		if s.Status() != lane.StatusAwaitingSignature {
			return errs.NotFound("NO_ACTIVE_SESSION", "session is not awaiting signature")
		}
		if err := u.requirePaid(ctx, tx, s); err != nil {
			return err
		}
		c, err := tx.Customers().FindByID(ctx, s.CustomerID())
		if err != nil {
			return err
		}
		now := u.clock.Now()
		endsAt := visit.BlockEnd(now, u.cfg.BlockDuration, u.cfg.RoundingQuantum)

		// Step 1: re-validate (or auto-select) the resource under lock.
		res, err := u.lockResource(ctx, tx, s)
		if err != nil {
			return err
		}

		// The PDF is produced before any resource mutation so a generator
		// failure aborts cleanly; only the row lock is held at this point.
		var totalCents int64
		if s.Quote() != nil {
			totalCents = s.Quote().TotalCents
		}
		pdfBytes, err := u.pdf.GenerateAgreementPDF(agreement.Fields{
			CustomerName:   c.DisplayName(),
			RentalTier:     res.Tier().String(),
			ResourceLabel:  fmt.Sprintf("%s %d", res.Type().String(), res.Number()),
			BlockStart:     now,
			BlockEnd:       endsAt,
			TotalCents:     totalCents,
			SignedBy:       in.SignedBy,
			ManualOverride: in.ManualOverride,
			SignedAt:       now,
		})
		if err != nil {
			return errs.Validation("AGREEMENT_FAILED", "agreement document could not be generated").WithCause(err)
		}

		// Step 2: the only place a resource becomes truly occupied.
		if err := tx.Resources().MarkOccupied(ctx, res.Type(), res.ID(), c.ID()); err != nil {
			return err
		}

		// Step 3: open or extend the visit, insert the block.
		v, err := u.resolveVisit(ctx, tx, s, now)
		if err != nil {
			return err
		}
		s.AttachVisit(v.ID())
		block, err := visit.NewBlock(v.ID(), res.Tier(), res.Type(), res.ID(), now, endsAt)
		if err != nil {
			return errs.Wrap(err, "block time computation failed")
		}
		if err := tx.Visits().CreateBlock(ctx, block); err != nil {
			return err
		}

		// Step 4: record waitlist intent carried by a cross-tier acceptance.
		if s.WaitlistDesiredTier() != nil && s.WaitlistBackupTier() != nil {
			entry := &shared.WaitlistEntry{
				ID:          uuid.New(),
				CustomerID:  c.ID(),
				BlockID:     block.ID(),
				DesiredTier: *s.WaitlistDesiredTier(),
				BackupTier:  *s.WaitlistBackupTier(),
				Status:      shared.WaitlistStatusActive,
			}
			if err := tx.Waitlist().Create(ctx, entry); err != nil {
				return err
			}
			waitlistPayload = map[string]any{
				"desiredTier": entry.DesiredTier.String(),
				"backupTier":  entry.BackupTier.String(),
				"customer":    c.DisplayName(),
			}
		}

		// Step 5: post-condition assertion against the whole pipeline.
		if err := u.assertOccupied(ctx, tx, s, c.ID(), res); err != nil {
			return err
		}

		// Step 6: immutable signed-agreement audit record.
		sum := sha256.Sum256(pdfBytes)
		rec := &shared.AgreementRecord{
			ID:             uuid.New(),
			SessionID:      s.ID(),
			BlockID:        block.ID(),
			CustomerID:     c.ID(),
			SignedBy:       in.SignedBy,
			ManualOverride: in.ManualOverride,
			SignedAt:       now,
			PDF:            pdfBytes,
			SHA256:         hex.EncodeToString(sum[:]),
		}
		if err := tx.Agreements().Create(ctx, rec); err != nil {
			return err
		}
		if err := tx.Visits().SetBlockAgreement(ctx, block.ID(), rec.ID); err != nil {
			return err
		}

		// Step 7: terminalize the session.
		if err := s.Complete(); err != nil {
			return mapSessionErr(err)
		}
		if err := tx.Sessions().Update(ctx, s); err != nil {
			return err
		}

		result = &CompletionResult{
			SessionID:      s.ID(),
			VisitID:        v.ID(),
			BlockID:        block.ID(),
			ResourceNumber: res.Number(),
			Tier:           res.Tier().String(),
			BlockEndsAt:    endsAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.broadcaster.SessionUpdated(ctx, in.LaneID)
	if waitlistPayload != nil {
		u.broadcaster.WaitlistUpdated(ctx, waitlistPayload)
	}
	return result, nil
}

func (u *completionUseCaseImpl) requirePaid(ctx context.Context, tx shared.Tx, s *lane.Session) error {
	if s.PaymentIntentID() == nil {
		return errs.Validation("NO_PAYMENT_INTENT", "no payment intent on session")
	}
	intent, err := tx.Payments().FindByID(ctx, *s.PaymentIntentID())
	if err != nil {
		return err
	}
	if !intent.IsPaid() {
		return errs.Validation("NOT_PAID", "payment intent is not paid")
	}
	return nil
}

// lockResource re-validates the soft-reserved resource, or auto-selects one
// when the session reached signature without a pre-reservation. Time passed
// since the soft reservation (payment, signing), so earlier checks are
// deliberately repeated under a fresh lock.
func (u *completionUseCaseImpl) lockResource(ctx context.Context, tx shared.Tx, s *lane.Session) (*resource.Resource, error) {
	if s.AssignedResourceID() != nil && s.AssignedResourceType() != nil {
		res, err := tx.Resources().LockByID(ctx, *s.AssignedResourceType(), *s.AssignedResourceID())
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil, errs.NotFound("RESOURCE_NOT_FOUND", "reserved resource no longer exists")
			}
			return nil, err
		}
		if err := validateReservable(ctx, tx, res, s.ID()); err != nil {
			return nil, err
		}
		return res, nil
	}

	if s.DesiredTier() == nil {
		return nil, errs.Validation("SELECTION_NOT_LOCKED", "no selection to assign from")
	}
	tier := *s.DesiredTier()

	var ref *shared.ResourceRef
	var err error
	if tier == resource.TierLocker {
		ref, err = tx.Resources().SelectLocker(ctx)
	} else {
		var demand int
		demand, err = tx.Waitlist().CountActiveDemand(ctx, tier, u.clock.Now())
		if err == nil {
			ref, err = tx.Resources().SelectRoomForNewCheckin(ctx, tier, demand)
		}
	}
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Conflict("NO_RESOURCE_AVAILABLE", "no resource available at completion")
		}
		return nil, err
	}
	return tx.Resources().LockByID(ctx, ref.Type, ref.ID)
}

func (u *completionUseCaseImpl) resolveVisit(ctx context.Context, tx shared.Tx, s *lane.Session, now time.Time) (*visit.Visit, error) {
	if s.CheckinMode() == lane.ModeRenewal {
		if s.VisitID() != nil {
			return tx.Visits().FindByID(ctx, *s.VisitID())
		}
		v, err := tx.Visits().FindOpenByCustomer(ctx, s.CustomerID())
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil, errs.NotFound("VISIT_NOT_FOUND", "no open visit to renew")
			}
			return nil, err
		}
		return v, nil
	}

	v := visit.NewVisit(s.CustomerID(), now)
	if err := tx.Visits().CreateVisit(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// assertOccupied re-reads the resource row and verifies the commit actually
// took. Failure here means the reservation pipeline itself is broken; it
// surfaces as a fatal invariant violation with full diagnostic context.
func (u *completionUseCaseImpl) assertOccupied(ctx context.Context, tx shared.Tx, s *lane.Session, customerID uuid.UUID, res *resource.Resource) error {
	fresh, err := tx.Resources().FindByID(ctx, res.Type(), res.ID())
	if err != nil {
		return errs.Invariant("POSTCONDITION_READBACK_FAILED", "could not re-read resource after occupy").WithCause(err)
	}
	if !fresh.IsAssignedTo(customerID) || fresh.IsAvailable() {
		return errs.Invariant("RESERVATION_POSTCONDITION_FAILED", "resource not occupied after completion").
			WithDetail(map[string]any{
				"sessionId":        s.ID(),
				"customerId":       customerID,
				"resourceId":       res.ID(),
				"resourceNumber":   res.Number(),
				"observedStatus":   fresh.Status().String(),
				"observedAssignee": fresh.AssignedTo(),
			})
	}
	return nil
}
