package components

import (
	"checkin-core/internal/infra/db"
	"checkin-core/internal/infra/readstore"
	"checkin-core/internal/infra/uow"
	"checkin-core/internal/usecase/commands"
	"checkin-core/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

// Write-side repositories are constructed lazily inside the unit of work so
// they always share its transaction; only the UoW and the read stores are
// container-managed.
var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		NewDBTX,
		uow.NewPostgresUoW,
		fx.Annotate(
			readstore.NewSessionReadStore,
			fx.As(new(queries.LaneViewRepo)),
			fx.As(new(commands.SessionViewSource)),
		),
		fx.Annotate(
			readstore.NewRoomReadStore,
			fx.As(new(queries.RoomViewRepo)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}
