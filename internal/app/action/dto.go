package action

import "satfarm/internal/domain/farm"

type Request struct {
	ParcelID int    `json:"parcel_id"`
	Action   string `json:"action"`
	CropID   string `json:"crop_id,omitempty"`
}

type Response struct {
	Parcel       farm.Parcel `json:"parcel"`
	Player       farm.Player `json:"player"`
	BalanceDelta int         `json:"balance_delta"`
	XPDelta      int         `json:"xp_delta"`
	Yield        int         `json:"yield,omitempty"`
	ResultCode   string      `json:"result_code"`
}
