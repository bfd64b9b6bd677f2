package response

import (
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"checkin-core/internal/usecase/commands"
)

type LoginResponse struct {
	Token    string    `json:"token"`
	StaffID  uuid.UUID `json:"staffId"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

func FromLoginResult(r *commands.LoginResult) *LoginResponse {
	var res LoginResponse
	_ = copier.Copy(&res, r)
	return &res
}

type KioskTokenResponse struct {
	Token  string `json:"token"`
	LaneID int    `json:"laneId"`
}

func FromKioskTokenResult(r *commands.KioskTokenResult) *KioskTokenResponse {
	var res KioskTokenResponse
	_ = copier.Copy(&res, r)
	return &res
}
