package components

import (
	"checkin-core/internal/handler"
	"checkin-core/internal/handler/api"
	"checkin-core/internal/handler/middleware"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewAuthHandler,
		api.NewCheckinHandler,
		api.NewLaneHandler,
		api.NewEventsHandler,
		middleware.NewAuthMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)
