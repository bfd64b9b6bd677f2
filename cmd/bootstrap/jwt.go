package bootstrap

import (
	"time"

	"checkin-core/internal/pkg/config"
	"checkin-core/internal/pkg/jwt"

	"go.uber.org/fx"
)

var JWTModule = fx.Module("jwt",
	fx.Provide(
		NewJWTService,
	),
)

func NewJWTService(cfg config.Config) *jwt.Service {
	staffDuration, err := time.ParseDuration(cfg.JWT.StaffDuration)
	if err != nil {
		panic("invalid JWT_STAFF_DURATION: " + err.Error())
	}

	kioskDuration, err := time.ParseDuration(cfg.JWT.KioskDuration)
	if err != nil {
		panic("invalid JWT_KIOSK_DURATION: " + err.Error())
	}

	return jwt.NewService(cfg.JWT.Secret, staffDuration, kioskDuration)
}
