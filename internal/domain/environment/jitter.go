package environment

import "satfarm/internal/domain/farm"

const (
	TemperatureJitter  = 0.5
	HumidityJitter     = 1.0
	SoilMoistureJitter = 0.5

	TemperatureDriftMax = 2.0
)

// Jitter nudges the live readings between refreshes. Each draw from rng in
// [0,1) is mapped to a symmetric offset. Temperature stays within
// TemperatureDriftMax of the last measured reading.
func Jitter(s farm.EnvironmentSnapshot, rng farm.RandomSource) farm.EnvironmentSnapshot {
	if rng == nil {
		return s
	}
	next := s
	base := next.MeasuredTemperature
	next.Temperature = clamp(next.Temperature+offset(rng, TemperatureJitter), base-TemperatureDriftMax, base+TemperatureDriftMax)
	next.Humidity = clamp(next.Humidity+offset(rng, HumidityJitter), 0, 100)
	next.SoilMoisture = clamp(next.SoilMoisture+offset(rng, SoilMoistureJitter), SoilMoistureMin, SoilMoistureMax)
	Recompute(&next)
	return next
}

func offset(rng farm.RandomSource, amplitude float64) float64 {
	return (rng.Float64()*2 - 1) * amplitude
}
