package environment

import (
	"math"
	"sort"
	"time"

	"satfarm/internal/domain/farm"
)

const (
	MissingValue = -999.0

	DefaultTemperature        = 25.0
	DefaultMaxTemperature     = 30.0
	DefaultPrecipitation      = 5.0
	DefaultHumidity           = 60.0
	DefaultEvapotranspiration = 3.0
	DefaultSoilMoisture       = 45.0

	SoilMoistureMin   = 20.0
	SoilMoistureMax   = 80.0
	SoilMoistureScale = 2.0

	HeatStressTemp    = 30.0
	HeatStressMaxTemp = 35.0

	DroughtMediumScore  = 35.0
	DroughtHighScore    = 60.0
	DroughtDryPenalty   = 30.0
	DroughtDryPrecipMax = 5.0

	NDVIEstimateBase = 0.5
	NDVIEstimateMin  = 0.3
	NDVIEstimateMax  = 0.9

	DefaultLatitude  = 19.4326
	DefaultLongitude = -99.1332
)

// Parameter names as published by the NASA POWER daily point API.
const (
	ParamTemperature        = "T2M"
	ParamMaxTemperature     = "T2M_MAX"
	ParamPrecipitation      = "PRECTOTCORR"
	ParamHumidity           = "RH2M"
	ParamEvapotranspiration = "EVPTRNS"
)

func Parameters() []string {
	return []string{
		ParamTemperature,
		ParamMaxTemperature,
		ParamPrecipitation,
		ParamHumidity,
		ParamEvapotranspiration,
	}
}

// Series maps parameter name to date key (YYYYMMDD) to value.
type Series map[string]map[string]float64

type Reading struct {
	Temperature        float64
	MaxTemperature     float64
	Precipitation      float64
	Humidity           float64
	Evapotranspiration float64
}

func DefaultReading() Reading {
	return Reading{
		Temperature:        DefaultTemperature,
		MaxTemperature:     DefaultMaxTemperature,
		Precipitation:      DefaultPrecipitation,
		Humidity:           DefaultHumidity,
		Evapotranspiration: DefaultEvapotranspiration,
	}
}

// LatestValid returns the newest sample that is not the missing-data sentinel.
func LatestValid(samples map[string]float64, fallback float64) float64 {
	if len(samples) == 0 {
		return fallback
	}
	dates := make([]string, 0, len(samples))
	for d := range samples {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	for _, d := range dates {
		v := samples[d]
		if v == MissingValue || math.IsNaN(v) {
			continue
		}
		return v
	}
	return fallback
}

func ReadingFromSeries(s Series) Reading {
	def := DefaultReading()
	return Reading{
		Temperature:        LatestValid(s[ParamTemperature], def.Temperature),
		MaxTemperature:     LatestValid(s[ParamMaxTemperature], def.MaxTemperature),
		Precipitation:      LatestValid(s[ParamPrecipitation], def.Precipitation),
		Humidity:           LatestValid(s[ParamHumidity], def.Humidity),
		Evapotranspiration: LatestValid(s[ParamEvapotranspiration], def.Evapotranspiration),
	}
}

func SoilMoisture(previous, precipitation, evapotranspiration float64) float64 {
	return clamp(previous+(precipitation-evapotranspiration)*SoilMoistureScale, SoilMoistureMin, SoilMoistureMax)
}

func HeatStress(temperature, maxTemperature float64) bool {
	return temperature > HeatStressTemp || maxTemperature > HeatStressMaxTemp
}

func DroughtScore(humidity, soilMoisture, precipitation float64) float64 {
	score := (100-humidity)*0.3 + (100-soilMoisture)*0.4
	if precipitation < DroughtDryPrecipMax {
		score += DroughtDryPenalty
	}
	return score
}

func ClassifyDrought(score float64) farm.DroughtRisk {
	switch {
	case score >= DroughtHighScore:
		return farm.DroughtHigh
	case score >= DroughtMediumScore:
		return farm.DroughtMedium
	default:
		return farm.DroughtLow
	}
}

func PestAlert(temperature, humidity float64) bool {
	return temperature >= 20 && temperature <= 30 && humidity > 60
}

func NDVIEstimate(temperature, precipitation, soilMoisture float64) float64 {
	v := NDVIEstimateBase
	switch {
	case temperature >= 18 && temperature <= 28:
		v += 0.1
	case temperature > 35 || temperature < 5:
		v -= 0.15
	}
	switch {
	case precipitation >= 2 && precipitation <= 10:
		v += 0.1
	case precipitation < 1:
		v -= 0.1
	case precipitation > 20:
		v -= 0.05
	}
	switch {
	case soilMoisture >= 40 && soilMoisture <= 70:
		v += 0.1
	case soilMoisture < 25:
		v -= 0.1
	}
	return clamp(v, NDVIEstimateMin, NDVIEstimateMax)
}

// Derive builds a fresh snapshot from a reading, carrying soil moisture forward.
func Derive(prev farm.EnvironmentSnapshot, r Reading, loc farm.Location, now time.Time) farm.EnvironmentSnapshot {
	prevSoil := prev.SoilMoisture
	if prevSoil == 0 {
		prevSoil = DefaultSoilMoisture
	}
	next := farm.EnvironmentSnapshot{
		Temperature:         r.Temperature,
		MeasuredTemperature: r.Temperature,
		MaxTemperature:      r.MaxTemperature,
		Precipitation:       r.Precipitation,
		Humidity:            clamp(r.Humidity, 0, 100),
		Evapotranspiration:  r.Evapotranspiration,
		SoilMoisture:        SoilMoisture(prevSoil, r.Precipitation, r.Evapotranspiration),
		RefreshedAt:         now,
		Location:            loc,
	}
	Recompute(&next)
	return next
}

// Recompute refreshes every derived indicator from the raw fields.
func Recompute(s *farm.EnvironmentSnapshot) {
	s.HeatStress = HeatStress(s.Temperature, s.MaxTemperature)
	s.DroughtRisk = ClassifyDrought(DroughtScore(s.Humidity, s.SoilMoisture, s.Precipitation))
	s.PestAlert = PestAlert(s.Temperature, s.Humidity)
	s.NDVIEstimate = NDVIEstimate(s.Temperature, s.Precipitation, s.SoilMoisture)
}

// Fallback is the snapshot used before any successful refresh.
func Fallback(loc farm.Location, now time.Time) farm.EnvironmentSnapshot {
	s := farm.EnvironmentSnapshot{
		Temperature:         DefaultTemperature,
		MeasuredTemperature: DefaultTemperature,
		MaxTemperature:      DefaultMaxTemperature,
		Precipitation:       DefaultPrecipitation,
		Humidity:            DefaultHumidity,
		Evapotranspiration:  DefaultEvapotranspiration,
		SoilMoisture:        DefaultSoilMoisture,
		RefreshedAt:         now,
		Location:            loc,
	}
	Recompute(&s)
	return s
}

func DefaultLocation() farm.Location {
	return farm.Location{Latitude: DefaultLatitude, Longitude: DefaultLongitude}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
