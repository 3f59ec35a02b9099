package environment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"satfarm/internal/app/ports"
	envdomain "satfarm/internal/domain/environment"
	"satfarm/internal/domain/farm"
)

var ErrNoWeatherSource = errors.New("no weather source configured")

const DefaultLookback = 7 * 24 * time.Hour

type UseCase struct {
	Weather  ports.WeatherSource
	Geocoder ports.Geocoder
	Metrics  ports.EnvironmentMetrics
	Log      zerolog.Logger
	Lookback time.Duration
	Default  farm.Location
	Now      func() time.Time
}

// Fetch produces the next environment snapshot. It never blocks on the
// session turn. On failure it returns prev with a fresh timestamp and an
// advisory, together with the error.
func (u UseCase) Fetch(ctx context.Context, prev farm.EnvironmentSnapshot, hint *farm.Location) (farm.EnvironmentSnapshot, error) {
	nowFn := u.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	now := nowFn()

	loc := u.Default
	if loc == (farm.Location{}) {
		loc = envdomain.DefaultLocation()
	}
	if hint != nil {
		loc = *hint
	}
	lookback := u.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}

	if u.Weather == nil {
		return u.degrade(prev, now, ErrNoWeatherSource), ErrNoWeatherSource
	}
	series, err := u.Weather.DailySeries(ctx, loc, now.Add(-lookback), now)
	if err != nil {
		err = fmt.Errorf("fetch daily series: %w", err)
		return u.degrade(prev, now, err), err
	}

	loc.Label = u.label(ctx, loc)
	next := envdomain.Derive(prev, envdomain.ReadingFromSeries(series), loc, now)
	u.recordRefresh(true)
	u.Log.Info().
		Float64("lat", loc.Latitude).
		Float64("lon", loc.Longitude).
		Float64("temperature", next.Temperature).
		Str("drought_risk", string(next.DroughtRisk)).
		Msg("environment refreshed")
	return next, nil
}

func (u UseCase) degrade(prev farm.EnvironmentSnapshot, now time.Time, err error) farm.EnvironmentSnapshot {
	u.recordRefresh(false)
	u.Log.Warn().Err(err).Msg("environment refresh failed, keeping previous readings")
	out := prev
	out.RefreshedAt = now
	out.Advisory = "Live weather unavailable, showing last known conditions"
	return out
}

func (u UseCase) label(ctx context.Context, loc farm.Location) string {
	fallback := fmt.Sprintf("%.4f, %.4f", loc.Latitude, loc.Longitude)
	if loc.Label != "" {
		return loc.Label
	}
	if u.Geocoder == nil {
		return fallback
	}
	name, err := u.Geocoder.ReverseGeocode(ctx, loc.Latitude, loc.Longitude)
	if err != nil || name == "" {
		u.Log.Debug().Err(err).Msg("reverse geocode unavailable")
		return fallback
	}
	return name
}

func (u UseCase) recordRefresh(ok bool) {
	if u.Metrics != nil {
		u.Metrics.RecordRefresh(ok)
	}
}
