package commands

import (
	"context"
	"errors"

	"checkin-core/internal/domain/staff"
	"checkin-core/internal/infra"
	"checkin-core/internal/pkg/clock"
	"checkin-core/internal/pkg/errs"
	"checkin-core/internal/pkg/jwt"
	"checkin-core/internal/usecase/shared"

	"github.com/google/uuid"
)

type LoginResult struct {
	Token    string    `json:"token"`
	StaffID  uuid.UUID `json:"staffId"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

type KioskTokenResult struct {
	Token  string `json:"token"`
	LaneID int    `json:"laneId"`
}

type AuthCommands interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	// IssueKioskToken mints the long-lived lane credential a kiosk presents
	// for customer-actor calls. Only an authenticated manager may provision
	// a lane.
	IssueKioskToken(ctx context.Context, staffID uuid.UUID, laneID int) (*KioskTokenResult, error)
}

type authUseCaseImpl struct {
	uow   shared.UnitOfWork
	jwt   *jwt.Service
	clock clock.Clock
}

func NewAuthUseCase(uow shared.UnitOfWork, jwtSvc *jwt.Service, clk clock.Clock) AuthCommands {
	return &authUseCaseImpl{uow: uow, jwt: jwtSvc, clock: clk}
}

func (u *authUseCaseImpl) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, errs.Validation("MISSING_CREDENTIALS", "username and password are required")
	}

	var result *LoginResult
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		st, err := tx.Staff().FindByUsername(ctx, username)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Unauthorized("INVALID_CREDENTIALS", "invalid username or password")
			}
			return err
		}
		if err := st.VerifyPassword(password); err != nil {
			if errors.Is(err, staff.ErrInactive) {
				return errs.Forbidden("INACTIVE_ACCOUNT", "staff account is inactive")
			}
			return errs.Unauthorized("INVALID_CREDENTIALS", "invalid username or password")
		}

		token, err := u.jwt.GenerateStaffToken(st.ID(), st.Role().String())
		if err != nil {
			return errs.Wrap(err, "failed to sign staff token")
		}
		if err := tx.Staff().UpdateLastLogin(ctx, st.ID(), u.clock.Now()); err != nil {
			return err
		}
		result = &LoginResult{
			Token:    token,
			StaffID:  st.ID(),
			Username: st.Username(),
			Role:     st.Role().String(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (u *authUseCaseImpl) IssueKioskToken(ctx context.Context, staffID uuid.UUID, laneID int) (*KioskTokenResult, error) {
	if laneID <= 0 {
		return nil, errs.Validation("INVALID_LANE", "lane id must be positive")
	}

	var result *KioskTokenResult
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		st, err := tx.Staff().FindByID(ctx, staffID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Unauthorized("UNKNOWN_STAFF", "staff not found")
			}
			return err
		}
		if st.Role() != staff.RoleManager {
			return errs.Forbidden("MANAGER_REQUIRED", "only a manager may provision a kiosk")
		}
		token, err := u.jwt.GenerateKioskToken(laneID)
		if err != nil {
			return errs.Wrap(err, "failed to sign kiosk token")
		}
		result = &KioskTokenResult{Token: token, LaneID: laneID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
