package commands

import (
	"context"

	"checkin-core/internal/domain/lane"
	"checkin-core/internal/domain/payment"
	"checkin-core/internal/domain/pricing"
	"checkin-core/internal/infra"
	"checkin-core/internal/pkg/clock"
	"checkin-core/internal/pkg/errs"
	"checkin-core/internal/usecase/shared"

	"github.com/google/uuid"
)

type CreatePaymentIntentInput struct {
	LaneID           int
	MembershipChoice *pricing.MembershipChoice
	Ref              SessionRef
}

type PaymentIntentResult struct {
	IntentID    uuid.UUID     `json:"intentId"`
	AmountCents int64         `json:"amountCents"`
	Quote       pricing.Quote `json:"quote"`
}

type MarkPaidResult struct {
	AlreadyPaid bool `json:"alreadyPaid"`
}

type PaymentCommands interface {
	// CreatePaymentIntent quotes the locked selection and opens (or
	// reprices) the session's single DUE intent. Duplicate DUE intents left
	// by earlier retries are cancelled here.
	CreatePaymentIntent(ctx context.Context, in CreatePaymentIntentInput) (*PaymentIntentResult, error)
	// MarkPaid is idempotent; the first DUE to PAID transition advances the
	// session to the signature step.
	MarkPaid(ctx context.Context, intentID uuid.UUID) (*MarkPaidResult, error)
}

type paymentUseCaseImpl struct {
	uow         shared.UnitOfWork
	resolver    SessionResolver
	calculator  pricing.QuoteCalculator
	broadcaster *Broadcaster
	clock       clock.Clock
}

func NewPaymentUseCase(
	uow shared.UnitOfWork,
	resolver SessionResolver,
	calculator pricing.QuoteCalculator,
	broadcaster *Broadcaster,
	clk clock.Clock,
) PaymentCommands {
	return &paymentUseCaseImpl{
		uow:         uow,
		resolver:    resolver,
		calculator:  calculator,
		broadcaster: broadcaster,
		clock:       clk,
	}
}

func (u *paymentUseCaseImpl) CreatePaymentIntent(ctx context.Context, in CreatePaymentIntentInput) (*PaymentIntentResult, error) {
	var result *PaymentIntentResult
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		s, err := u.resolver.Resolve(ctx, tx, in.LaneID, in.Ref)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.NotFound("NO_ACTIVE_SESSION", "no active session for lane")
			}
			return err
		}
		if !s.SelectionConfirmed() || s.DesiredTier() == nil {
			return errs.Validation("SELECTION_NOT_LOCKED", "selection must be confirmed before payment")
		}

		c, err := tx.Customers().FindByID(ctx, s.CustomerID())
		if err != nil {
			return err
		}
		now := u.clock.Now()
		if in.MembershipChoice != nil {
			s.SetMembershipChoice(in.MembershipChoice)
		}
		quote := u.calculator.Calculate(pricing.QuoteInput{
			Tier:               *s.DesiredTier(),
			Renewal:            s.CheckinMode() == lane.ModeRenewal,
			CustomerAge:        c.Age(now),
			IsMember:           c.IsMember(now),
			MembershipPurchase: s.MembershipChoice(),
		})

		intent, err := u.upsertDueIntent(ctx, tx, s, quote)
		if err != nil {
			return err
		}
		if err := s.AttachPaymentIntent(intent.ID(), quote); err != nil {
			return mapSessionErr(err)
		}
		if err := tx.Sessions().Update(ctx, s); err != nil {
			return err
		}
		result = &PaymentIntentResult{IntentID: intent.ID(), AmountCents: intent.AmountCents(), Quote: quote}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.broadcaster.SessionUpdated(ctx, in.LaneID)
	return result, nil
}

// upsertDueIntent keeps the one-DUE-intent-per-session invariant: the newest
// DUE intent is repriced in place and any older duplicates are cancelled.
func (u *paymentUseCaseImpl) upsertDueIntent(ctx context.Context, tx shared.Tx, s *lane.Session, quote pricing.Quote) (*payment.Intent, error) {
	due, err := tx.Payments().FindDueBySession(ctx, s.ID())
	if err != nil {
		return nil, err
	}
	if len(due) == 0 {
		intent, err := payment.NewIntent(s.ID(), s.CustomerID(), quote)
		if err != nil {
			return nil, errs.Validation("INVALID_QUOTE", "quote produced a negative total")
		}
		if err := tx.Payments().Create(ctx, intent); err != nil {
			return nil, err
		}
		return intent, nil
	}

	keep := due[0]
	if err := keep.Reprice(quote); err != nil {
		return nil, errs.Wrap(err, "failed to reprice due intent")
	}
	if err := tx.Payments().Update(ctx, keep); err != nil {
		return nil, err
	}
	for _, dup := range due[1:] {
		dup.Cancel()
		if err := tx.Payments().Update(ctx, dup); err != nil {
			return nil, err
		}
	}
	return keep, nil
}

func (u *paymentUseCaseImpl) MarkPaid(ctx context.Context, intentID uuid.UUID) (*MarkPaidResult, error) {
	var (
		result *MarkPaidResult
		laneID int
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		intent, err := tx.Payments().FindByID(ctx, intentID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.NotFound("INTENT_NOT_FOUND", "payment intent not found")
			}
			return err
		}
		alreadyPaid, err := intent.MarkPaid(u.clock.Now())
		if err != nil {
			return errs.Conflict("INTENT_CANCELLED", "payment intent was cancelled")
		}
		result = &MarkPaidResult{AlreadyPaid: alreadyPaid}
		if alreadyPaid {
			return nil
		}
		if err := tx.Payments().Update(ctx, intent); err != nil {
			return err
		}

		s, err := tx.Sessions().FindByID(ctx, intent.SessionID())
		if err != nil {
			return err
		}
		laneID = s.LaneID()
		if err := s.AdvanceToSignature(); err != nil {
			return mapSessionErr(err)
		}
		return tx.Sessions().Update(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	if laneID != 0 {
		u.broadcaster.SessionUpdated(ctx, laneID)
	}
	return result, nil
}
