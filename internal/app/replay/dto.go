package replay

import "satfarm/internal/app/ports"

type Request struct {
	SessionID    string
	Limit        int
	Types        []string
	OccurredFrom int64
	OccurredTo   int64
}

// ParcelState is the last recorded summary of a parcel, rebuilt from events.
type ParcelState struct {
	ParcelID   int     `json:"parcel_id"`
	Crop       string  `json:"crop"`
	Growth     float64 `json:"growth"`
	Health     float64 `json:"health"`
	Water      float64 `json:"water"`
	Fertilizer float64 `json:"fertilizer"`
	Pest       float64 `json:"pest"`
}

type Response struct {
	Entries []ports.JournalEntry `json:"entries"`
	Parcels []ParcelState        `json:"parcels"`
}
