//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"checkin-core/internal/agreement"
	"checkin-core/internal/domain/lane"
	"checkin-core/internal/domain/resource"
	"checkin-core/internal/domain/visit"
	"checkin-core/internal/pkg/config"
	"checkin-core/internal/usecase/commands"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompletionUseCase(h *harness) commands.CompletionCommands {
	cfg := config.CheckinConfig{
		LaneCount:       4,
		BlockDuration:   8 * time.Hour,
		RoundingQuantum: 15 * time.Minute,
	}
	return commands.NewCompletionUseCase(h.uow, h.resolver, agreement.NewPDFGenerator(), h.broadcaster, cfg, h.clock)
}

// signatureReady drives a session through selection, assignment and payment so
// it sits at the signature step with a paid intent.
func signatureReady(t *testing.T, h *harness, tier resource.Tier) (*lane.Session, *resource.Resource) {
	t.Helper()
	ctx := context.Background()
	s := lockedSession(t, h, 1, tier)
	room := h.seedRoom(101, tier)

	_, err := newAssignUseCase(h).AssignResource(ctx, commands.AssignInput{LaneID: 1, ResourceType: resource.TypeRoom})
	require.NoError(t, err)

	pay := newPaymentUseCase(h)
	intent, err := pay.CreatePaymentIntent(ctx, commands.CreatePaymentIntentInput{LaneID: 1})
	require.NoError(t, err)
	_, err = pay.MarkPaid(ctx, intent.IntentID)
	require.NoError(t, err)
	require.Equal(t, lane.StatusAwaitingSignature, s.Status())
	return s, room
}

func TestSignAgreement(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a signature", func(t *testing.T) {
		h := newHarness()
		_, err := newCompletionUseCase(h).SignAgreement(ctx, commands.SignAgreementInput{LaneID: 1})
		assertDomainCode(t, err, "MISSING_SIGNATURE")
	})

	t.Run("session must be at the signature step", func(t *testing.T) {
		h := newHarness()
		c := h.seedCustomer("Dan", "Post", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC))
		h.seedSession(1, c.ID())

		_, err := newCompletionUseCase(h).SignAgreement(ctx, commands.SignAgreementInput{LaneID: 1, SignedBy: "Dan Post"})
		assertDomainCode(t, err, "NO_ACTIVE_SESSION")
	})

	t.Run("unpaid intent blocks completion", func(t *testing.T) {
		h := newHarness()
		s := lockedSession(t, h, 1, resource.TierStandard)
		room := h.seedRoom(101, resource.TierStandard)
		require.NoError(t, s.Assign(resource.TypeRoom, room.ID(), false))
		_, err := newPaymentUseCase(h).CreatePaymentIntent(ctx, commands.CreatePaymentIntentInput{LaneID: 1})
		require.NoError(t, err)
		require.NoError(t, s.AdvanceToSignature())

		_, err = newCompletionUseCase(h).SignAgreement(ctx, commands.SignAgreementInput{LaneID: 1, SignedBy: "Robert Williams"})
		assertDomainCode(t, err, "NOT_PAID")
	})

	t.Run("commits the whole check-in atomically", func(t *testing.T) {
		h := newHarness()
		s, room := signatureReady(t, h, resource.TierStandard)

		result, err := newCompletionUseCase(h).SignAgreement(ctx, commands.SignAgreementInput{
			LaneID: 1, SignedBy: "Robert Williams",
		})
		require.NoError(t, err)

		assert.Equal(t, s.ID(), result.SessionID)
		assert.Equal(t, 101, result.ResourceNumber)
		assert.Equal(t, "STANDARD", result.Tier)
		// 09:00 start, 8h block on a 15m quantum boundary.
		assert.Equal(t, h.clock.Now().Add(8*time.Hour), result.BlockEndsAt)

		occupied := h.store.resources[room.ID()]
		assert.Equal(t, resource.StatusOccupied, occupied.Status())
		assert.True(t, occupied.IsAssignedTo(s.CustomerID()))

		v := h.store.visits[result.VisitID]
		require.NotNil(t, v)
		assert.True(t, v.IsOpen())
		assert.Equal(t, s.CustomerID(), v.CustomerID())

		block := h.store.blocks[result.VisitID]
		require.NotNil(t, block)
		assert.Equal(t, result.BlockID, block.ID())
		assert.True(t, result.BlockEndsAt.Equal(block.EndsAt()))

		require.Len(t, h.store.agreements, 1)
		rec := h.store.agreements[0]
		assert.Equal(t, "Robert Williams", rec.SignedBy)
		assert.False(t, rec.ManualOverride)
		assert.NotEmpty(t, rec.PDF)
		assert.Len(t, rec.SHA256, 64)
		assert.Equal(t, rec.ID, h.store.blockAgreements[block.ID()])

		assert.Equal(t, lane.StatusCompleted, s.Status())
		assert.Empty(t, h.store.waitlist)
		assert.Empty(t, h.bus.waitlistEvents)
	})

	t.Run("cross-tier acceptance files a waitlist entry", func(t *testing.T) {
		h := newHarness()
		s := lockedSession(t, h, 1, resource.TierDouble)
		room := h.seedRoom(101, resource.TierStandard)
		id := room.ID()

		_, err := newAssignUseCase(h).AssignResource(ctx, commands.AssignInput{
			LaneID: 1, ResourceType: resource.TypeRoom, ResourceID: &id,
		})
		require.NoError(t, err)
		require.NoError(t, newCheckinUseCase(h).CustomerConfirm(ctx, 1, true, commands.SessionRef{}))

		pay := newPaymentUseCase(h)
		intent, err := pay.CreatePaymentIntent(ctx, commands.CreatePaymentIntentInput{LaneID: 1})
		require.NoError(t, err)
		_, err = pay.MarkPaid(ctx, intent.IntentID)
		require.NoError(t, err)

		_, err = newCompletionUseCase(h).SignAgreement(ctx, commands.SignAgreementInput{
			LaneID: 1, SignedBy: "Robert Williams",
		})
		require.NoError(t, err)

		require.Len(t, h.store.waitlist, 1)
		entry := h.store.waitlist[0]
		assert.Equal(t, resource.TierDouble, entry.DesiredTier)
		assert.Equal(t, resource.TierStandard, entry.BackupTier)
		assert.Equal(t, s.CustomerID(), entry.CustomerID)
		require.Len(t, h.bus.waitlistEvents, 1)
	})

	t.Run("renewal extends the open visit", func(t *testing.T) {
		h := newHarness()
		c := h.seedCustomer("Maria", "Garcia", time.Date(1979, 6, 2, 0, 0, 0, 0, time.UTC))
		open := visit.NewVisit(c.ID(), h.clock.Now().Add(-6*time.Hour))
		h.store.visits[open.ID()] = open
		h.store.openVisits[c.ID()] = open

		vid := open.ID()
		s := lane.NewSession(1, c.ID(), nil, lane.ModeRenewal, &vid)
		h.store.sessions[s.ID()] = s
		h.store.sessionOrder = append(h.store.sessionOrder, s.ID())

		require.NoError(t, s.Propose(lane.ActorEmployee, resource.TierStandard))
		_, err := s.Confirm(lane.ActorEmployee, h.clock.Now())
		require.NoError(t, err)
		room := h.seedRoom(203, resource.TierStandard)
		require.NoError(t, s.Assign(resource.TypeRoom, room.ID(), false))

		pay := newPaymentUseCase(h)
		intent, err := pay.CreatePaymentIntent(ctx, commands.CreatePaymentIntentInput{LaneID: 1})
		require.NoError(t, err)
		_, err = pay.MarkPaid(ctx, intent.IntentID)
		require.NoError(t, err)

		result, err := newCompletionUseCase(h).SignAgreement(ctx, commands.SignAgreementInput{
			LaneID: 1, SignedBy: "Maria Garcia",
		})
		require.NoError(t, err)
		assert.Equal(t, open.ID(), result.VisitID)
	})

	t.Run("resource stolen between payment and signature", func(t *testing.T) {
		h := newHarness()
		_, room := signatureReady(t, h, resource.TierStandard)
		other := h.seedCustomer("Dan", "Post", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC))
		occupied := resource.Reconstruct(room.ID(), room.Number(), room.Tier(), room.Type(), resource.StatusOccupied, ptrTo(other.ID()))
		h.store.resources[room.ID()] = occupied

		_, err := newCompletionUseCase(h).SignAgreement(ctx, commands.SignAgreementInput{
			LaneID: 1, SignedBy: "Robert Williams",
		})
		assertDomainCode(t, err, "RESOURCE_UNAVAILABLE")
	})
}
