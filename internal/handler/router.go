package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"checkin-core/internal/handler/api"
	"checkin-core/internal/handler/middleware"
	"checkin-core/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(
	engine *gin.Engine,
	cfg config.Config,
	authHandler *api.AuthHandler,
	checkinHandler *api.CheckinHandler,
	laneHandler *api.LaneHandler,
	eventsHandler *api.EventsHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, authHandler, checkinHandler, laneHandler, eventsHandler, authMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(
	engine *gin.Engine,
	authHandler *api.AuthHandler,
	checkinHandler *api.CheckinHandler,
	laneHandler *api.LaneHandler,
	eventsHandler *api.EventsHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	engine.GET("/health", healthCheck)

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	engine.GET("/ws/events", eventsHandler.Stream)

	apiGroup := engine.Group("/api")
	{
		auth := apiGroup.Group("/auth")
		{
			addRoutes(auth, []route{
				{Method: http.MethodPost, Path: "/login", Handler: authHandler.Login},
			})

			managerOnly := auth.Group("")
			managerOnly.Use(authMiddleware.RequireManager())
			addRoutes(managerOnly, []route{
				{Method: http.MethodPost, Path: "/kiosk", Handler: authHandler.IssueKioskToken},
			})
		}

		staffOnly := apiGroup.Group("")
		staffOnly.Use(authMiddleware.RequireStaff())
		addRoutes(staffOnly, []route{
			{Method: http.MethodPost, Path: "/checkin/scan", Handler: checkinHandler.Scan},
			{Method: http.MethodPost, Path: "/checkin/lane/:laneId/start", Handler: checkinHandler.StartSession},
			{Method: http.MethodPost, Path: "/checkin/lane/:laneId/assign", Handler: checkinHandler.Assign},
			{Method: http.MethodPost, Path: "/checkin/lane/:laneId/create-payment-intent", Handler: checkinHandler.CreatePaymentIntent},
			{Method: http.MethodPost, Path: "/checkin/payments/:id/mark-paid", Handler: checkinHandler.MarkPaid},
			{Method: http.MethodPost, Path: "/checkin/lane/:laneId/manual-signature-override", Handler: checkinHandler.ManualSignatureOverride},
			{Method: http.MethodPost, Path: "/checkin/lane/:laneId/reset", Handler: checkinHandler.Reset},
			{Method: http.MethodPost, Path: "/checkin/lane/:laneId/bypass-past-due", Handler: checkinHandler.BypassPastDue},
			{Method: http.MethodGet, Path: "/lanes", Handler: laneHandler.ListLanes},
			{Method: http.MethodGet, Path: "/rooms/available", Handler: laneHandler.RoomAvailability},
		})

		// Customer-actor endpoints accept a kiosk credential bound to the
		// lane in the path, or any staff credential.
		laneCredential := apiGroup.Group("/checkin/lane/:laneId")
		laneCredential.Use(authMiddleware.RequireLaneCredential())
		addRoutes(laneCredential, []route{
			{Method: http.MethodPost, Path: "/propose-selection", Handler: checkinHandler.ProposeSelection},
			{Method: http.MethodPost, Path: "/confirm-selection", Handler: checkinHandler.ConfirmSelection},
			{Method: http.MethodPost, Path: "/acknowledge-selection", Handler: checkinHandler.AcknowledgeSelection},
			{Method: http.MethodPost, Path: "/sign-agreement", Handler: checkinHandler.SignAgreement},
			{Method: http.MethodPost, Path: "/customer-confirm", Handler: checkinHandler.CustomerConfirm},
			{Method: http.MethodPost, Path: "/kiosk-ack", Handler: checkinHandler.KioskAck},
			{Method: http.MethodGet, Path: "/session", Handler: laneHandler.GetLaneSession},
		})
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
