//go:build unit

package commands_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"checkin-core/internal/domain/customer"
	"checkin-core/internal/domain/lane"
	"checkin-core/internal/domain/payment"
	"checkin-core/internal/domain/resource"
	"checkin-core/internal/domain/staff"
	"checkin-core/internal/domain/visit"
	"checkin-core/internal/infra"
	"checkin-core/internal/infra/db"
	"checkin-core/internal/pkg/clock"
	"checkin-core/internal/scan"
	"checkin-core/internal/usecase/commands"
	"checkin-core/internal/usecase/queries"
	"checkin-core/internal/usecase/shared"

	"github.com/google/uuid"
)

func notFound(what string) error {
	return infra.WrapRepoErr(what+" not found", nil, infra.KindNotFound)
}

func ptrTo[T any](v T) *T { return &v }

// memStore is the single in-memory backing for every repository the fake
// transaction exposes. Tests seed it directly and assert on it afterwards.
type memStore struct {
	customers   map[uuid.UUID]*customer.Customer
	scanIndex   map[string]uuid.UUID
	enrichCalls map[uuid.UUID]int

	sessions     map[uuid.UUID]*lane.Session
	sessionOrder []uuid.UUID

	resources   map[uuid.UUID]*resource.Resource
	roomQueue   []*shared.ResourceRef
	lockerQueue []*shared.ResourceRef
	holds       map[uuid.UUID]uuid.UUID

	intents     map[uuid.UUID]*payment.Intent
	intentOrder []uuid.UUID

	visits          map[uuid.UUID]*visit.Visit
	openVisits      map[uuid.UUID]*visit.Visit
	blocks          map[uuid.UUID]*visit.Block
	blockAgreements map[uuid.UUID]uuid.UUID

	waitlistDemand map[resource.Tier]int
	waitlist       []*shared.WaitlistEntry

	agreements []*shared.AgreementRecord

	staff map[uuid.UUID]*staff.Staff
}

func newMemStore() *memStore {
	return &memStore{
		customers:       map[uuid.UUID]*customer.Customer{},
		scanIndex:       map[string]uuid.UUID{},
		enrichCalls:     map[uuid.UUID]int{},
		sessions:        map[uuid.UUID]*lane.Session{},
		resources:       map[uuid.UUID]*resource.Resource{},
		holds:           map[uuid.UUID]uuid.UUID{},
		intents:         map[uuid.UUID]*payment.Intent{},
		visits:          map[uuid.UUID]*visit.Visit{},
		openVisits:      map[uuid.UUID]*visit.Visit{},
		blocks:          map[uuid.UUID]*visit.Block{},
		blockAgreements: map[uuid.UUID]uuid.UUID{},
		waitlistDemand:  map[resource.Tier]int{},
		staff:           map[uuid.UUID]*staff.Staff{},
	}
}

type memTx struct{ s *memStore }

func (t memTx) Customers() shared.CustomerRepository   { return memCustomers{t.s} }
func (t memTx) Sessions() shared.SessionRepository     { return memSessions{t.s} }
func (t memTx) Resources() shared.ResourceRepository   { return memResources{t.s} }
func (t memTx) Payments() shared.PaymentRepository     { return memPayments{t.s} }
func (t memTx) Visits() shared.VisitRepository         { return memVisits{t.s} }
func (t memTx) Waitlist() shared.WaitlistRepository    { return memWaitlist{t.s} }
func (t memTx) Agreements() shared.AgreementRepository { return memAgreements{t.s} }
func (t memTx) Staff() shared.StaffRepository          { return memStaff{t.s} }
func (t memTx) DB() db.DBTX                            { return nil }

// memUoW runs the callback against the shared store with no transactional
// semantics; unit tests exercise sequencing, not isolation.
type memUoW struct{ s *memStore }

func (u memUoW) Within(ctx context.Context, fn func(context.Context, shared.Tx) error) error {
	return fn(ctx, memTx{u.s})
}

func (u memUoW) WithinSerializable(ctx context.Context, fn func(context.Context, shared.Tx) error) error {
	return fn(ctx, memTx{u.s})
}

func (u memUoW) WithDB(ctx context.Context, fn func(context.Context, db.DBTX) error) error {
	return fn(ctx, nil)
}

type memCustomers struct{ s *memStore }

func (r memCustomers) FindByID(_ context.Context, id uuid.UUID) (*customer.Customer, error) {
	if c, ok := r.s.customers[id]; ok {
		return c, nil
	}
	return nil, notFound("customer")
}

func (r memCustomers) FindByScan(_ context.Context, hash, normalizedValue string) (*customer.Customer, error) {
	if id, ok := r.s.scanIndex[hash]; ok {
		return r.s.customers[id], nil
	}
	if id, ok := r.s.scanIndex[normalizedValue]; ok {
		return r.s.customers[id], nil
	}
	return nil, notFound("customer")
}

func (r memCustomers) FindByDOB(_ context.Context, dob time.Time) ([]*customer.Customer, error) {
	var out []*customer.Customer
	for _, id := range sortedCustomerIDs(r.s) {
		if r.s.customers[id].DateOfBirth().Equal(dob) {
			out = append(out, r.s.customers[id])
		}
	}
	return out, nil
}

func (r memCustomers) FindByMembershipNumber(_ context.Context, number string) (*customer.Customer, error) {
	for _, c := range r.s.customers {
		if c.MembershipNumber() != nil && *c.MembershipNumber() == number {
			return c, nil
		}
	}
	return nil, notFound("customer")
}

func (r memCustomers) Create(_ context.Context, c *customer.Customer) error {
	r.s.customers[c.ID()] = c
	return nil
}

func (r memCustomers) EnrichScan(_ context.Context, id uuid.UUID, hash, value string) error {
	r.s.enrichCalls[id]++
	r.s.scanIndex[hash] = id
	r.s.scanIndex[value] = id
	return nil
}

func (r memCustomers) AttachMembershipNumber(_ context.Context, id uuid.UUID, number string) error {
	c, ok := r.s.customers[id]
	if !ok {
		return notFound("customer")
	}
	if c.MembershipNumber() != nil {
		return nil
	}
	r.s.customers[id] = customer.Reconstruct(
		c.ID(), c.FirstName(), c.LastName(), c.DateOfBirth(), c.PrimaryLanguage(),
		&number, c.MembershipValid(), c.BanExpiresAt(), c.PastDueCents(),
		c.IDScanHash(), c.IDScanValue(), c.Notes(), c.CreatedAt(), c.UpdatedAt(),
	)
	return nil
}

// sortedCustomerIDs keeps FindByDOB deterministic across map iteration order.
func sortedCustomerIDs(s *memStore) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.customers))
	for id := range s.customers {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j].String() < ids[j-1].String(); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}

type memSessions struct{ s *memStore }

func (r memSessions) FindByID(_ context.Context, id uuid.UUID) (*lane.Session, error) {
	if s, ok := r.s.sessions[id]; ok {
		return s, nil
	}
	return nil, notFound("session")
}

func (r memSessions) FindActiveByLane(_ context.Context, laneID int) (*lane.Session, error) {
	for i := len(r.s.sessionOrder) - 1; i >= 0; i-- {
		s := r.s.sessions[r.s.sessionOrder[i]]
		if s.LaneID() == laneID && !s.IsTerminal() {
			return s, nil
		}
	}
	return nil, notFound("session")
}

func (r memSessions) FindActiveByCustomerName(_ context.Context, laneID int, displayName string) (*lane.Session, error) {
	for i := len(r.s.sessionOrder) - 1; i >= 0; i-- {
		s := r.s.sessions[r.s.sessionOrder[i]]
		if s.LaneID() != laneID || s.IsTerminal() {
			continue
		}
		if c, ok := r.s.customers[s.CustomerID()]; ok && c.DisplayName() == displayName {
			return s, nil
		}
	}
	return nil, notFound("session")
}

func (r memSessions) Create(_ context.Context, s *lane.Session) error {
	r.s.sessions[s.ID()] = s
	r.s.sessionOrder = append(r.s.sessionOrder, s.ID())
	return nil
}

func (r memSessions) Update(_ context.Context, s *lane.Session) error {
	r.s.sessions[s.ID()] = s
	return nil
}

func (r memSessions) ExistsActiveHold(_ context.Context, _ resource.Type, resourceID, excludeSessionID uuid.UUID) (bool, error) {
	holder, ok := r.s.holds[resourceID]
	return ok && holder != excludeSessionID, nil
}

type memResources struct{ s *memStore }

func (r memResources) SelectRoomForNewCheckin(_ context.Context, tier resource.Tier, skip int) (*shared.ResourceRef, error) {
	var eligible []*shared.ResourceRef
	for _, ref := range r.s.roomQueue {
		if ref.Tier == tier {
			eligible = append(eligible, ref)
		}
	}
	if skip >= len(eligible) {
		return nil, notFound("room")
	}
	return eligible[skip], nil
}

func (r memResources) SelectLocker(_ context.Context) (*shared.ResourceRef, error) {
	if len(r.s.lockerQueue) == 0 {
		return nil, notFound("locker")
	}
	return r.s.lockerQueue[0], nil
}

func (r memResources) LockByID(_ context.Context, typ resource.Type, id uuid.UUID) (*resource.Resource, error) {
	return r.FindByID(context.Background(), typ, id)
}

func (r memResources) FindByID(_ context.Context, typ resource.Type, id uuid.UUID) (*resource.Resource, error) {
	res, ok := r.s.resources[id]
	if !ok || res.Type() != typ {
		return nil, notFound("resource")
	}
	return res, nil
}

func (r memResources) MarkOccupied(_ context.Context, typ resource.Type, id, customerID uuid.UUID) error {
	res, ok := r.s.resources[id]
	if !ok {
		return notFound("resource")
	}
	r.s.resources[id] = resource.Reconstruct(id, res.Number(), res.Tier(), typ, resource.StatusOccupied, &customerID)
	return nil
}

type memPayments struct{ s *memStore }

func (r memPayments) FindByID(_ context.Context, id uuid.UUID) (*payment.Intent, error) {
	if i, ok := r.s.intents[id]; ok {
		return i, nil
	}
	return nil, notFound("intent")
}

func (r memPayments) FindDueBySession(_ context.Context, sessionID uuid.UUID) ([]*payment.Intent, error) {
	var due []*payment.Intent
	for i := len(r.s.intentOrder) - 1; i >= 0; i-- {
		intent := r.s.intents[r.s.intentOrder[i]]
		if intent.SessionID() == sessionID && intent.IsDue() {
			due = append(due, intent)
		}
	}
	return due, nil
}

func (r memPayments) Create(_ context.Context, i *payment.Intent) error {
	r.s.intents[i.ID()] = i
	r.s.intentOrder = append(r.s.intentOrder, i.ID())
	return nil
}

func (r memPayments) Update(_ context.Context, i *payment.Intent) error {
	r.s.intents[i.ID()] = i
	return nil
}

type memVisits struct{ s *memStore }

func (r memVisits) FindByID(_ context.Context, id uuid.UUID) (*visit.Visit, error) {
	if v, ok := r.s.visits[id]; ok {
		return v, nil
	}
	return nil, notFound("visit")
}

func (r memVisits) FindOpenByCustomer(_ context.Context, customerID uuid.UUID) (*visit.Visit, error) {
	if v, ok := r.s.openVisits[customerID]; ok {
		return v, nil
	}
	return nil, notFound("visit")
}

func (r memVisits) FindCurrentBlockByVisit(_ context.Context, visitID uuid.UUID) (*visit.Block, error) {
	if b, ok := r.s.blocks[visitID]; ok {
		return b, nil
	}
	return nil, notFound("block")
}

func (r memVisits) CreateVisit(_ context.Context, v *visit.Visit) error {
	r.s.visits[v.ID()] = v
	if v.IsOpen() {
		r.s.openVisits[v.CustomerID()] = v
	}
	return nil
}

func (r memVisits) CreateBlock(_ context.Context, b *visit.Block) error {
	r.s.blocks[b.VisitID()] = b
	return nil
}

func (r memVisits) SetBlockAgreement(_ context.Context, blockID, agreementID uuid.UUID) error {
	r.s.blockAgreements[blockID] = agreementID
	return nil
}

type memWaitlist struct{ s *memStore }

func (r memWaitlist) CountActiveDemand(_ context.Context, tier resource.Tier, _ time.Time) (int, error) {
	return r.s.waitlistDemand[tier], nil
}

func (r memWaitlist) Create(_ context.Context, e *shared.WaitlistEntry) error {
	r.s.waitlist = append(r.s.waitlist, e)
	return nil
}

type memAgreements struct{ s *memStore }

func (r memAgreements) Create(_ context.Context, rec *shared.AgreementRecord) error {
	r.s.agreements = append(r.s.agreements, rec)
	return nil
}

type memStaff struct{ s *memStore }

func (r memStaff) FindByID(_ context.Context, id uuid.UUID) (*staff.Staff, error) {
	if st, ok := r.s.staff[id]; ok {
		return st, nil
	}
	return nil, notFound("staff")
}

func (r memStaff) FindByUsername(_ context.Context, username string) (*staff.Staff, error) {
	for _, st := range r.s.staff {
		if st.Username() == username {
			return st, nil
		}
	}
	return nil, notFound("staff")
}

func (r memStaff) UpdateLastLogin(_ context.Context, _ uuid.UUID, _ time.Time) error {
	return nil
}

// memViews derives minimal snapshots straight from the session store.
type memViews struct{ s *memStore }

func (v memViews) FindActiveByLane(ctx context.Context, laneID int) (*queries.SessionView, error) {
	s, err := memSessions{v.s}.FindActiveByLane(ctx, laneID)
	if err != nil {
		return nil, err
	}
	return &queries.SessionView{
		ID:     s.ID(),
		LaneID: s.LaneID(),
		Status: string(s.Status()),
	}, nil
}

func (v memViews) FindAllActive(ctx context.Context) ([]*queries.SessionView, error) {
	var out []*queries.SessionView
	for _, id := range v.s.sessionOrder {
		if s := v.s.sessions[id]; !s.IsTerminal() {
			out = append(out, &queries.SessionView{ID: s.ID(), LaneID: s.LaneID(), Status: string(s.Status())})
		}
	}
	return out, nil
}

type publishedEvent struct {
	LaneID  int
	Payload any
}

type recordingBus struct {
	sessionEvents  []publishedEvent
	waitlistEvents []any
	scanEvents     []publishedEvent
}

func (b *recordingBus) PublishSessionUpdated(_ context.Context, laneID int, snapshot any) {
	b.sessionEvents = append(b.sessionEvents, publishedEvent{LaneID: laneID, Payload: snapshot})
}

func (b *recordingBus) PublishWaitlistUpdated(_ context.Context, payload any) {
	b.waitlistEvents = append(b.waitlistEvents, payload)
}

func (b *recordingBus) PublishScanResolved(_ context.Context, laneID int, result any) {
	b.scanEvents = append(b.scanEvents, publishedEvent{LaneID: laneID, Payload: result})
}

type harness struct {
	store       *memStore
	uow         memUoW
	bus         *recordingBus
	views       memViews
	clock       *clock.MockClock
	resolver    commands.SessionResolver
	broadcaster *commands.Broadcaster
}

func newHarness() *harness {
	store := newMemStore()
	bus := &recordingBus{}
	views := memViews{store}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &harness{
		store:       store,
		uow:         memUoW{store},
		bus:         bus,
		views:       views,
		clock:       clock.NewMockClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)),
		resolver:    commands.NewLaneSessionResolver(),
		broadcaster: commands.NewBroadcaster(bus, views, logger),
	}
}

func (h *harness) thresholds() scan.NameThresholds {
	return scan.NameThresholds{FirstNameMin: 0.8, LastNameMin: 0.85}
}

func (h *harness) seedCustomer(first, last string, dob time.Time) *customer.Customer {
	c := customer.Reconstruct(
		uuid.New(), first, last, dob, "en",
		nil, nil, nil, 0, nil, nil, "",
		h.clock.Now(), h.clock.Now(),
	)
	h.store.customers[c.ID()] = c
	return c
}

func (h *harness) seedSession(laneID int, customerID uuid.UUID) *lane.Session {
	s := lane.NewSession(laneID, customerID, nil, lane.ModeInitial, nil)
	h.store.sessions[s.ID()] = s
	h.store.sessionOrder = append(h.store.sessionOrder, s.ID())
	return s
}

func (h *harness) seedRoom(number int, tier resource.Tier) *resource.Resource {
	res := resource.Reconstruct(uuid.New(), number, tier, resource.TypeRoom, resource.StatusClean, nil)
	h.store.resources[res.ID()] = res
	h.store.roomQueue = append(h.store.roomQueue, &shared.ResourceRef{
		ID: res.ID(), Number: number, Tier: tier, Type: resource.TypeRoom,
	})
	return res
}

func (h *harness) seedLocker(number int) *resource.Resource {
	res := resource.Reconstruct(uuid.New(), number, resource.TierLocker, resource.TypeLocker, resource.StatusClean, nil)
	h.store.resources[res.ID()] = res
	h.store.lockerQueue = append(h.store.lockerQueue, &shared.ResourceRef{
		ID: res.ID(), Number: number, Tier: resource.TierLocker, Type: resource.TypeLocker,
	})
	return res
}
