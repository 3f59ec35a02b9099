package ports

import (
	"context"
	"time"

	"satfarm/internal/domain/environment"
	"satfarm/internal/domain/farm"
)

type WeatherSource interface {
	DailySeries(ctx context.Context, loc farm.Location, start, end time.Time) (environment.Series, error)
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

type CropCatalog interface {
	Crop(id farm.CropID) (farm.CropDefinition, bool)
	Crops() []farm.CropDefinition
}
