package status

import (
	"satfarm/internal/app/session"
	"satfarm/internal/domain/farm"
)

type Request struct {
	IncludeCrops bool
}

type Alert struct {
	Code     string `json:"code"`
	ParcelID int    `json:"parcel_id,omitempty"`
}

type Response struct {
	Farm   session.View          `json:"farm"`
	Crops  []farm.CropDefinition `json:"crops,omitempty"`
	Alerts []Alert               `json:"alerts"`
}
