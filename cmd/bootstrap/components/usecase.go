package components

import (
	"checkin-core/internal/agreement"
	"checkin-core/internal/domain/pricing"
	"checkin-core/internal/pkg/clock"
	"checkin-core/internal/pkg/config"
	"checkin-core/internal/scan"
	"checkin-core/internal/usecase/commands"
	"checkin-core/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseCommandsModule,
	usecaseQueriesModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	fx.Annotate(
		pricing.NewDefaultQuoteCalculator,
		fx.As(new(pricing.QuoteCalculator)),
	),
	fx.Annotate(
		agreement.NewPDFGenerator,
		fx.As(new(agreement.Generator)),
	),
	commands.NewLaneSessionResolver,
	commands.NewBroadcaster,
	func(cfg config.Config) config.CheckinConfig {
		return cfg.Checkin
	},
	func(cfg config.Config) scan.NameThresholds {
		return scan.NameThresholds{
			FirstNameMin: cfg.Checkin.FirstNameMinScore,
			LastNameMin:  cfg.Checkin.LastNameMinScore,
		}
	},
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewScanUseCase,
		commands.NewCheckinUseCase,
		commands.NewAssignUseCase,
		commands.NewPaymentUseCase,
		commands.NewCompletionUseCase,
		commands.NewAuthUseCase,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		func(repo queries.LaneViewRepo, cfg config.Config) queries.LaneQueries {
			return queries.NewLaneQueries(repo, cfg.Checkin.LaneCount)
		},
		queries.NewRoomQueries,
	),
)
