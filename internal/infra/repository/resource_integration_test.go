//go:build integration

package repository_test

import (
	"context"
	"testing"

	"checkin-core/internal/domain/resource"
	"checkin-core/internal/infra"
	"checkin-core/internal/infra/db"
	"checkin-core/internal/infra/uow"
	"checkin-core/internal/pkg/config"
	"checkin-core/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// Requires a database with db/schema.sql applied, reachable via the test
// config (or via docker compose on the test port).
type ResourceRepositorySuite struct {
	suite.Suite
	pool *pgxpool.Pool
	uow  shared.UnitOfWork
	ctx  context.Context
}

func (s *ResourceRepositorySuite) SetupSuite() {
	cfg := config.NewTestConfig()
	pool, cleanup, err := db.Connect(cfg.DB)
	require.NoError(s.T(), err, "integration tests need the test database running")
	s.T().Cleanup(cleanup)
	s.pool = pool
	s.uow = uow.NewPostgresUoW(pool)
	s.ctx = context.Background()
}

func (s *ResourceRepositorySuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx,
		`TRUNCATE agreements, waitlist_entries, payment_intents, lane_sessions,
		 checkin_blocks, visits, rooms, lockers, customers CASCADE`)
	require.NoError(s.T(), err)
}

func TestResourceRepositorySuite(t *testing.T) {
	suite.Run(t, new(ResourceRepositorySuite))
}

func (s *ResourceRepositorySuite) seedRoom(number int, tier resource.Tier, status string) uuid.UUID {
	id := uuid.New()
	_, err := s.pool.Exec(s.ctx,
		`INSERT INTO rooms (id, number, tier, status) VALUES ($1, $2, $3, $4)`,
		id, number, tier.String(), status)
	require.NoError(s.T(), err)
	return id
}

func (s *ResourceRepositorySuite) seedLocker(number int) uuid.UUID {
	id := uuid.New()
	_, err := s.pool.Exec(s.ctx,
		`INSERT INTO lockers (id, number) VALUES ($1, $2)`, id, number)
	require.NoError(s.T(), err)
	return id
}

func (s *ResourceRepositorySuite) seedCustomer() uuid.UUID {
	id := uuid.New()
	_, err := s.pool.Exec(s.ctx,
		`INSERT INTO customers (id, first_name, last_name, date_of_birth)
		 VALUES ($1, 'ROBERT', 'WILLIAMS', '1985-03-15')`, id)
	require.NoError(s.T(), err)
	return id
}

func (s *ResourceRepositorySuite) seedHold(roomID uuid.UUID, status string) {
	customerID := s.seedCustomer()
	_, err := s.pool.Exec(s.ctx,
		`INSERT INTO lane_sessions (id, lane_id, status, customer_id, assigned_resource_id, assigned_resource_type)
		 VALUES ($1, 1, $2, $3, $4, 'ROOM')`,
		uuid.New(), status, customerID, roomID)
	require.NoError(s.T(), err)
}

func (s *ResourceRepositorySuite) selectRoom(tier resource.Tier, skip int) (*shared.ResourceRef, error) {
	var ref *shared.ResourceRef
	err := s.uow.WithinSerializable(s.ctx, func(ctx context.Context, tx shared.Tx) error {
		var inner error
		ref, inner = tx.Resources().SelectRoomForNewCheckin(ctx, tier, skip)
		return inner
	})
	return ref, err
}

func (s *ResourceRepositorySuite) TestSelectRoomForNewCheckin() {
	s.Run("picks the lowest clean room number of the tier", func() {
		s.SetupTest()
		s.seedRoom(103, resource.TierStandard, "CLEAN")
		s.seedRoom(101, resource.TierStandard, "CLEAN")
		s.seedRoom(102, resource.TierDouble, "CLEAN")

		ref, err := s.selectRoom(resource.TierStandard, 0)
		s.Require().NoError(err)
		s.Equal(101, ref.Number)
		s.Equal(resource.TierStandard, ref.Tier)
	})

	s.Run("waitlist skip passes over the head of the queue", func() {
		s.SetupTest()
		s.seedRoom(101, resource.TierStandard, "CLEAN")
		s.seedRoom(102, resource.TierStandard, "CLEAN")

		ref, err := s.selectRoom(resource.TierStandard, 1)
		s.Require().NoError(err)
		s.Equal(102, ref.Number)
	})

	s.Run("dirty and occupied rooms are not candidates", func() {
		s.SetupTest()
		s.seedRoom(101, resource.TierStandard, "CLEANING")
		s.seedRoom(102, resource.TierStandard, "OUT_OF_SERVICE")
		s.seedRoom(103, resource.TierStandard, "CLEAN")

		ref, err := s.selectRoom(resource.TierStandard, 0)
		s.Require().NoError(err)
		s.Equal(103, ref.Number)
	})

	s.Run("a soft hold by a live session excludes the room", func() {
		s.SetupTest()
		held := s.seedRoom(101, resource.TierStandard, "CLEAN")
		s.seedRoom(102, resource.TierStandard, "CLEAN")
		s.seedHold(held, "AWAITING_PAYMENT")

		ref, err := s.selectRoom(resource.TierStandard, 0)
		s.Require().NoError(err)
		s.Equal(102, ref.Number)
	})

	s.Run("a hold from a terminal session does not block the room", func() {
		s.SetupTest()
		released := s.seedRoom(101, resource.TierStandard, "CLEAN")
		s.seedHold(released, "CANCELLED")

		ref, err := s.selectRoom(resource.TierStandard, 0)
		s.Require().NoError(err)
		s.Equal(101, ref.Number)
	})

	s.Run("a room offered to the waitlist is reserved for that offer", func() {
		s.SetupTest()
		offered := s.seedRoom(101, resource.TierStandard, "CLEAN")
		s.seedRoom(102, resource.TierStandard, "CLEAN")

		customerID := s.seedCustomer()
		visitID := uuid.New()
		_, err := s.pool.Exec(s.ctx,
			`INSERT INTO visits (id, customer_id, started_at) VALUES ($1, $2, now())`, visitID, customerID)
		s.Require().NoError(err)
		blockID := uuid.New()
		_, err = s.pool.Exec(s.ctx,
			`INSERT INTO checkin_blocks (id, visit_id, rental_tier, resource_type, resource_id, starts_at, ends_at)
			 VALUES ($1, $2, 'STANDARD', 'ROOM', $3, now(), now() + interval '8 hours')`,
			blockID, visitID, offered)
		s.Require().NoError(err)
		_, err = s.pool.Exec(s.ctx,
			`INSERT INTO waitlist_entries (id, customer_id, block_id, desired_tier, backup_tier, status, offered_room_id)
			 VALUES ($1, $2, $3, 'STANDARD', 'STANDARD', 'OFFERED', $4)`,
			uuid.New(), customerID, blockID, offered)
		s.Require().NoError(err)

		ref, err := s.selectRoom(resource.TierStandard, 0)
		s.Require().NoError(err)
		s.Equal(102, ref.Number)
	})

	s.Run("exhausted tier reports not found", func() {
		s.SetupTest()
		s.seedRoom(101, resource.TierDouble, "CLEAN")

		_, err := s.selectRoom(resource.TierStandard, 0)
		s.Require().Error(err)
		s.True(infra.IsKind(err, infra.KindNotFound))
	})
}

// Two checkouts race for the last room of the tier. SKIP LOCKED makes the
// second transaction see no candidates while the first still holds the row,
// so exactly one lane wins and the other surfaces the not-found kind the
// usecase maps to NO_RESOURCE_AVAILABLE.
func (s *ResourceRepositorySuite) TestConcurrentSelectionSingleWinner() {
	s.SetupTest()
	roomID := s.seedRoom(101, resource.TierStandard, "CLEAN")
	winnerCustomer := s.seedCustomer()

	rowLocked := make(chan struct{})
	loserDone := make(chan struct{})
	winnerErr := make(chan error, 1)
	loserErr := make(chan error, 1)

	go func() {
		winnerErr <- s.uow.WithinSerializable(s.ctx, func(ctx context.Context, tx shared.Tx) error {
			ref, err := tx.Resources().SelectRoomForNewCheckin(ctx, resource.TierStandard, 0)
			if err != nil {
				close(rowLocked)
				return err
			}
			if err := tx.Resources().MarkOccupied(ctx, resource.TypeRoom, ref.ID, winnerCustomer); err != nil {
				close(rowLocked)
				return err
			}
			close(rowLocked)
			// Hold the transaction open until the rival has run against the
			// locked row.
			<-loserDone
			return nil
		})
	}()

	go func() {
		<-rowLocked
		loserErr <- s.uow.WithinSerializable(s.ctx, func(ctx context.Context, tx shared.Tx) error {
			_, err := tx.Resources().SelectRoomForNewCheckin(ctx, resource.TierStandard, 0)
			return err
		})
		close(loserDone)
	}()

	s.Require().NoError(<-winnerErr)
	err := <-loserErr
	s.Require().Error(err)
	s.True(infra.IsKind(err, infra.KindNotFound))

	var assignedTo uuid.UUID
	var status string
	s.Require().NoError(s.pool.QueryRow(s.ctx,
		`SELECT assigned_to, status FROM rooms WHERE id = $1`, roomID).Scan(&assignedTo, &status))
	s.Equal(winnerCustomer, assignedTo)
	s.Equal("OCCUPIED", status)
}

func (s *ResourceRepositorySuite) TestSelectLocker() {
	s.SetupTest()
	s.seedLocker(9)
	s.seedLocker(7)

	var ref *shared.ResourceRef
	err := s.uow.WithinSerializable(s.ctx, func(ctx context.Context, tx shared.Tx) error {
		var inner error
		ref, inner = tx.Resources().SelectLocker(ctx)
		return inner
	})
	s.Require().NoError(err)
	s.Equal(7, ref.Number)
	s.Equal(resource.TypeLocker, ref.Type)
}
