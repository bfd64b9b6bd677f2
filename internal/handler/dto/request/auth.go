package request

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type KioskTokenRequest struct {
	LaneID int `json:"laneId" binding:"required,min=1"`
}
