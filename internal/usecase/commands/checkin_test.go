//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"checkin-core/internal/domain/customer"
	"checkin-core/internal/domain/lane"
	"checkin-core/internal/domain/resource"
	"checkin-core/internal/domain/staff"
	"checkin-core/internal/domain/visit"
	"checkin-core/internal/pkg/errs"
	"checkin-core/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckinUseCase(h *harness) commands.CheckinCommands {
	return commands.NewCheckinUseCase(h.uow, h.resolver, h.views, h.broadcaster, h.clock)
}

func TestStartSession(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an identity", func(t *testing.T) {
		h := newHarness()
		_, err := newCheckinUseCase(h).StartSession(ctx, commands.StartSessionInput{LaneID: 1})
		assertDomainCode(t, err, "MISSING_IDENTITY")
	})

	t.Run("opens a session for a known customer", func(t *testing.T) {
		h := newHarness()
		c := h.seedCustomer("Robert", "Williams", time.Date(1985, 3, 15, 0, 0, 0, 0, time.UTC))
		id := c.ID()

		view, err := newCheckinUseCase(h).StartSession(ctx, commands.StartSessionInput{LaneID: 1, CustomerID: &id})
		require.NoError(t, err)
		assert.Equal(t, 1, view.LaneID)
		assert.Equal(t, string(lane.StatusActive), view.Status)
		require.Len(t, h.bus.sessionEvents, 1)
		assert.Equal(t, 1, h.bus.sessionEvents[0].LaneID)
	})

	t.Run("unknown customer id", func(t *testing.T) {
		h := newHarness()
		id := uuid.New()
		_, err := newCheckinUseCase(h).StartSession(ctx, commands.StartSessionInput{LaneID: 1, CustomerID: &id})
		assertDomainCode(t, err, "CUSTOMER_NOT_FOUND")
	})

	t.Run("banned customer is rejected", func(t *testing.T) {
		h := newHarness()
		banUntil := h.clock.Now().Add(48 * time.Hour)
		c := customer.Reconstruct(
			uuid.New(), "Dan", "Post", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), "en",
			nil, nil, &banUntil, 0, nil, nil, "",
			h.clock.Now(), h.clock.Now(),
		)
		h.store.customers[c.ID()] = c
		id := c.ID()

		_, err := newCheckinUseCase(h).StartSession(ctx, commands.StartSessionInput{LaneID: 1, CustomerID: &id})
		assertDomainCode(t, err, "BANNED")
	})

	t.Run("open visit blocks a second check-in", func(t *testing.T) {
		h := newHarness()
		c := h.seedCustomer("Maria", "Garcia", time.Date(1979, 6, 2, 0, 0, 0, 0, time.UTC))
		room := h.seedRoom(214, resource.TierDouble)

		v := visit.NewVisit(c.ID(), h.clock.Now().Add(-2*time.Hour))
		h.store.visits[v.ID()] = v
		h.store.openVisits[c.ID()] = v
		block, err := visit.NewBlock(v.ID(), resource.TierDouble, resource.TypeRoom, room.ID(),
			h.clock.Now().Add(-2*time.Hour), h.clock.Now().Add(6*time.Hour))
		require.NoError(t, err)
		h.store.blocks[v.ID()] = block

		id := c.ID()
		_, err = newCheckinUseCase(h).StartSession(ctx, commands.StartSessionInput{LaneID: 1, CustomerID: &id})
		assertDomainCode(t, err, "ALREADY_CHECKED_IN")

		domain, _ := errs.AsDomain(err)
		detail, ok := domain.Detail().(map[string]any)
		require.True(t, ok)
		snapshot, ok := detail["activeCheckin"].(commands.ActiveCheckinSnapshot)
		require.True(t, ok)
		assert.Equal(t, v.ID(), snapshot.VisitID)
		assert.Equal(t, 214, snapshot.AssignedResourceNumber)
		assert.Equal(t, "DOUBLE", snapshot.Tier)
	})

	t.Run("naming the open visit starts a renewal", func(t *testing.T) {
		h := newHarness()
		c := h.seedCustomer("Maria", "Garcia", time.Date(1979, 6, 2, 0, 0, 0, 0, time.UTC))
		v := visit.NewVisit(c.ID(), h.clock.Now().Add(-2*time.Hour))
		h.store.visits[v.ID()] = v
		h.store.openVisits[c.ID()] = v

		id := c.ID()
		vid := v.ID()
		view, err := newCheckinUseCase(h).StartSession(ctx, commands.StartSessionInput{LaneID: 2, CustomerID: &id, VisitID: &vid})
		require.NoError(t, err)

		s := h.store.sessions[view.ID]
		assert.Equal(t, lane.ModeRenewal, s.CheckinMode())
		require.NotNil(t, s.VisitID())
		assert.Equal(t, v.ID(), *s.VisitID())
	})

	t.Run("ended visit cannot be renewed", func(t *testing.T) {
		h := newHarness()
		c := h.seedCustomer("Maria", "Garcia", time.Date(1979, 6, 2, 0, 0, 0, 0, time.UTC))
		endedAt := h.clock.Now().Add(-time.Hour)
		v := visit.ReconstructVisit(uuid.New(), c.ID(), h.clock.Now().Add(-9*time.Hour), &endedAt)
		h.store.visits[v.ID()] = v

		id := c.ID()
		vid := v.ID()
		_, err := newCheckinUseCase(h).StartSession(ctx, commands.StartSessionInput{LaneID: 2, CustomerID: &id, VisitID: &vid})
		assertDomainCode(t, err, "VISIT_ENDED")
	})

	t.Run("supersedes a lingering session on the lane", func(t *testing.T) {
		h := newHarness()
		walkedAway := h.seedCustomer("Dan", "Post", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC))
		stale := h.seedSession(3, walkedAway.ID())

		next := h.seedCustomer("Robert", "Williams", time.Date(1985, 3, 15, 0, 0, 0, 0, time.UTC))
		id := next.ID()
		view, err := newCheckinUseCase(h).StartSession(ctx, commands.StartSessionInput{LaneID: 3, CustomerID: &id})
		require.NoError(t, err)

		assert.Equal(t, lane.StatusCancelled, stale.Status())
		assert.Equal(t, next.ID(), h.store.sessions[view.ID].CustomerID())
	})

	t.Run("enrolls a new customer from an unmatched scan", func(t *testing.T) {
		h := newHarness()
		raw := licenseScan("ROBERT", "WILLIAMS", "03151985")

		view, err := newCheckinUseCase(h).StartSession(ctx, commands.StartSessionInput{LaneID: 1, IDScanValue: &raw})
		require.NoError(t, err)

		created := h.store.customers[h.store.sessions[view.ID].CustomerID()]
		require.NotNil(t, created)
		assert.Equal(t, "ROBERT", created.FirstName())
		assert.Equal(t, "WILLIAMS", created.LastName())
		assert.Equal(t, 1, h.store.enrichCalls[created.ID()])
	})

	t.Run("membership card alongside the ID backfills the number", func(t *testing.T) {
		h := newHarness()
		c := h.seedCustomer("Robert", "Williams", time.Date(1985, 3, 15, 0, 0, 0, 0, time.UTC))
		id := c.ID()
		card := "\x02m-2024-0091\x03\r"

		_, err := newCheckinUseCase(h).StartSession(ctx, commands.StartSessionInput{
			LaneID: 1, CustomerID: &id, MembershipScanValue: &card,
		})
		require.NoError(t, err)

		updated := h.store.customers[id]
		require.NotNil(t, updated.MembershipNumber())
		assert.Equal(t, "M20240091", *updated.MembershipNumber())
	})

	t.Run("card registered to another customer is not reassigned", func(t *testing.T) {
		h := newHarness()
		number := "M20240091"
		validUntil := h.clock.Now().Add(90 * 24 * time.Hour)
		owner := customer.Reconstruct(
			uuid.New(), "Maria", "Garcia", time.Date(1979, 6, 2, 0, 0, 0, 0, time.UTC), "es",
			&number, &validUntil, nil, 0, nil, nil, "",
			h.clock.Now(), h.clock.Now(),
		)
		h.store.customers[owner.ID()] = owner

		c := h.seedCustomer("Robert", "Williams", time.Date(1985, 3, 15, 0, 0, 0, 0, time.UTC))
		id := c.ID()
		card := "M20240091"

		_, err := newCheckinUseCase(h).StartSession(ctx, commands.StartSessionInput{
			LaneID: 1, CustomerID: &id, MembershipScanValue: &card,
		})
		require.NoError(t, err)

		assert.Nil(t, h.store.customers[id].MembershipNumber())
		assert.Equal(t, "M20240091", *h.store.customers[owner.ID()].MembershipNumber())
	})

	t.Run("unmatched unparsable scan cannot enroll", func(t *testing.T) {
		h := newHarness()
		raw := "@\n\x1e\rANSI 636014080002DL00410278DL\nDAQX1\n"
		_, err := newCheckinUseCase(h).StartSession(ctx, commands.StartSessionInput{LaneID: 1, IDScanValue: &raw})
		assertDomainCode(t, err, "UNPARSABLE_SCAN")
	})
}

func TestProposeSelection_PastDueGate(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	uc := newCheckinUseCase(h)

	c := customer.Reconstruct(
		uuid.New(), "Dan", "Post", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), "en",
		nil, nil, nil, 2500, nil, nil, "",
		h.clock.Now(), h.clock.Now(),
	)
	h.store.customers[c.ID()] = c
	s := h.seedSession(1, c.ID())

	t.Run("customer actions are blocked", func(t *testing.T) {
		_, err := uc.ProposeSelection(ctx, commands.SelectionInput{
			LaneID: 1, Actor: lane.ActorCustomer, Tier: resource.TierStandard,
		})
		assertDomainCode(t, err, "PAST_DUE")

		domain, _ := errs.AsDomain(err)
		detail, ok := domain.Detail().(map[string]any)
		require.True(t, ok)
		assert.Equal(t, int64(2500), detail["pastDueCents"])
	})

	t.Run("employee actions pass through", func(t *testing.T) {
		view, err := uc.ProposeSelection(ctx, commands.SelectionInput{
			LaneID: 1, Actor: lane.ActorEmployee, Tier: resource.TierStandard,
		})
		require.NoError(t, err)
		assert.Equal(t, s.ID(), view.ID)
		require.NotNil(t, s.ProposedTier())
		assert.Equal(t, resource.TierStandard, *s.ProposedTier())
	})

	t.Run("manager bypass unblocks the customer", func(t *testing.T) {
		s.SetPastDueBypass()
		_, err := uc.ProposeSelection(ctx, commands.SelectionInput{
			LaneID: 1, Actor: lane.ActorCustomer, Tier: resource.TierDouble,
		})
		require.NoError(t, err)
		assert.Equal(t, resource.TierDouble, *s.ProposedTier())
	})
}

func TestConfirmSelection(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	uc := newCheckinUseCase(h)
	c := h.seedCustomer("Robert", "Williams", time.Date(1985, 3, 15, 0, 0, 0, 0, time.UTC))
	s := h.seedSession(1, c.ID())

	t.Run("nothing proposed yet", func(t *testing.T) {
		_, err := uc.ConfirmSelection(ctx, 1, lane.ActorCustomer, commands.SessionRef{})
		assertDomainCode(t, err, "NO_PROPOSAL")
	})

	t.Run("locks the proposal", func(t *testing.T) {
		require.NoError(t, s.Propose(lane.ActorCustomer, resource.TierSpecial))

		result, err := uc.ConfirmSelection(ctx, 1, lane.ActorEmployee, commands.SessionRef{})
		require.NoError(t, err)
		assert.Equal(t, resource.TierSpecial, result.Tier)
		assert.Equal(t, lane.ActorEmployee, result.ConfirmedBy)
		assert.Equal(t, h.clock.Now(), result.LockedAt)
		assert.Equal(t, lane.StatusAwaitingAssignment, s.Status())
	})

	t.Run("re-confirmation returns the original lock", func(t *testing.T) {
		h.clock.Advance(time.Minute)
		result, err := uc.ConfirmSelection(ctx, 1, lane.ActorCustomer, commands.SessionRef{})
		require.NoError(t, err)
		assert.Equal(t, lane.ActorEmployee, result.ConfirmedBy)
		assert.True(t, result.LockedAt.Before(h.clock.Now()))
	})
}

func TestCustomerConfirm(t *testing.T) {
	ctx := context.Background()

	pendingSession := func(h *harness) (*lane.Session, *resource.Resource) {
		c := h.seedCustomer("Robert", "Williams", time.Date(1985, 3, 15, 0, 0, 0, 0, time.UTC))
		s := h.seedSession(1, c.ID())
		require.NoError(t, s.Propose(lane.ActorCustomer, resource.TierDouble))
		_, err := s.Confirm(lane.ActorCustomer, h.clock.Now())
		require.NoError(t, err)
		room := h.seedRoom(101, resource.TierStandard)
		require.NoError(t, s.Assign(resource.TypeRoom, room.ID(), true))
		return s, room
	}

	t.Run("decline releases the reservation", func(t *testing.T) {
		h := newHarness()
		s, _ := pendingSession(h)

		require.NoError(t, newCheckinUseCase(h).CustomerConfirm(ctx, 1, false, commands.SessionRef{}))
		assert.Nil(t, s.AssignedResourceID())
		assert.Equal(t, lane.StatusAwaitingAssignment, s.Status())
	})

	t.Run("accepting a lesser tier records waitlist intent", func(t *testing.T) {
		h := newHarness()
		s, _ := pendingSession(h)

		require.NoError(t, newCheckinUseCase(h).CustomerConfirm(ctx, 1, true, commands.SessionRef{}))
		assert.Equal(t, lane.StatusAwaitingPayment, s.Status())
		require.NotNil(t, s.WaitlistDesiredTier())
		assert.Equal(t, resource.TierDouble, *s.WaitlistDesiredTier())
		require.NotNil(t, s.WaitlistBackupTier())
		assert.Equal(t, resource.TierStandard, *s.WaitlistBackupTier())
	})

	t.Run("nothing pending", func(t *testing.T) {
		h := newHarness()
		c := h.seedCustomer("Dan", "Post", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC))
		h.seedSession(1, c.ID())

		err := newCheckinUseCase(h).CustomerConfirm(ctx, 1, true, commands.SessionRef{})
		assertDomainCode(t, err, "NO_ASSIGNMENT")
	})
}

func TestReset(t *testing.T) {
	ctx := context.Background()

	t.Run("idle lane resets to success", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, newCheckinUseCase(h).Reset(ctx, 5))
		require.Len(t, h.bus.sessionEvents, 1)
	})

	t.Run("active session is cleared", func(t *testing.T) {
		h := newHarness()
		c := h.seedCustomer("Robert", "Williams", time.Date(1985, 3, 15, 0, 0, 0, 0, time.UTC))
		s := h.seedSession(1, c.ID())
		require.NoError(t, s.Propose(lane.ActorCustomer, resource.TierStandard))

		require.NoError(t, newCheckinUseCase(h).Reset(ctx, 1))
		assert.Equal(t, lane.StatusCompleted, s.Status())
		assert.Nil(t, s.ProposedTier())
	})
}

func TestKioskAck(t *testing.T) {
	ctx := context.Background()

	t.Run("marks the kiosk as synced", func(t *testing.T) {
		h := newHarness()
		c := h.seedCustomer("Robert", "Williams", time.Date(1985, 3, 15, 0, 0, 0, 0, time.UTC))
		s := h.seedSession(1, c.ID())

		require.NoError(t, newCheckinUseCase(h).KioskAck(ctx, 1, commands.SessionRef{}))
		assert.True(t, s.KioskAcked())
	})

	t.Run("no session on lane", func(t *testing.T) {
		h := newHarness()
		err := newCheckinUseCase(h).KioskAck(ctx, 1, commands.SessionRef{})
		assertDomainCode(t, err, "NO_ACTIVE_SESSION")
	})
}

func TestBypassPastDue(t *testing.T) {
	ctx := context.Background()

	seedManager := func(h *harness, pin string, role staff.Role) *staff.Staff {
		pinHash, err := staff.HashPassword(pin)
		require.NoError(t, err)
		passHash, err := staff.HashPassword("password")
		require.NoError(t, err)
		st := staff.Reconstruct(uuid.New(), "mgr", passHash, &pinHash, role, true, nil)
		h.store.staff[st.ID()] = st
		return st
	}

	t.Run("sets the bypass flag after PIN verification", func(t *testing.T) {
		h := newHarness()
		mgr := seedManager(h, "4321", staff.RoleManager)
		c := h.seedCustomer("Dan", "Post", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC))
		s := h.seedSession(1, c.ID())

		require.NoError(t, newCheckinUseCase(h).BypassPastDue(ctx, 1, mgr.ID(), "4321", commands.SessionRef{}))
		assert.True(t, s.PastDueBypass())
	})

	t.Run("wrong PIN", func(t *testing.T) {
		h := newHarness()
		mgr := seedManager(h, "4321", staff.RoleManager)
		c := h.seedCustomer("Dan", "Post", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC))
		h.seedSession(1, c.ID())

		err := newCheckinUseCase(h).BypassPastDue(ctx, 1, mgr.ID(), "0000", commands.SessionRef{})
		assertDomainCode(t, err, "INVALID_PIN")
	})

	t.Run("employees cannot bypass even with a PIN", func(t *testing.T) {
		h := newHarness()
		emp := seedManager(h, "4321", staff.RoleEmployee)
		c := h.seedCustomer("Dan", "Post", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC))
		h.seedSession(1, c.ID())

		err := newCheckinUseCase(h).BypassPastDue(ctx, 1, emp.ID(), "4321", commands.SessionRef{})
		assertDomainCode(t, err, "INVALID_PIN")
	})

	t.Run("unknown staff", func(t *testing.T) {
		h := newHarness()
		err := newCheckinUseCase(h).BypassPastDue(ctx, 1, uuid.New(), "4321", commands.SessionRef{})
		assertDomainCode(t, err, "UNKNOWN_STAFF")
	})
}
