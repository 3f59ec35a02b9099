package farm

import "math"

func NewParcels(count int, rng RandomSource) []Parcel {
	if count <= 0 {
		count = DefaultParcelCount
	}
	out := make([]Parcel, 0, count)
	for i := 1; i <= count; i++ {
		p := Parcel{ID: i}
		p.ResetEmpty(rng)
		out = append(out, p)
	}
	return out
}

// ResetEmpty returns the parcel to the canonical empty plot. Selection is kept.
func (p *Parcel) ResetEmpty(rng RandomSource) {
	p.Crop = nil
	p.PlantedAt = nil
	p.GrowthStage = 0
	p.Health = EmptyHealth
	p.WaterLevel = EmptyWaterLevel
	p.FertilizerLevel = EmptyFertilizer
	p.PestLevel = 0
	if rng != nil {
		p.PestLevel = rng.Float64() * EmptyPestJitter
	}
	p.NDVI = EmptyNDVI
	p.DaysToHarvest = 0
	p.PestHasAppeared = false
}

func VegetationIndex(p Parcel) float64 {
	optimal := 0.7
	if p.Crop != nil && p.Crop.OptimalNDVI > 0 {
		optimal = p.Crop.OptimalNDVI
	}
	growthFactor := 0.5 + p.GrowthStage/100*0.5
	healthFactor := 0.6 + p.Health/100*0.4
	waterFactor := 0.7 + p.WaterLevel/100*0.3
	fertFactor := 0.8 + p.FertilizerLevel/100*0.2
	return clampFloat(optimal*growthFactor*healthFactor*waterFactor*fertFactor, MinNDVI, MaxNDVI)
}

func DaysToHarvest(p Parcel) int {
	if p.Crop == nil {
		return 0
	}
	duration := p.Crop.GrowthDuration
	left := duration - int(math.Floor(p.GrowthStage/100*float64(duration)))
	if left < 0 {
		return 0
	}
	return left
}

func (p *Parcel) Clamp() {
	p.GrowthStage = clampPercent(p.GrowthStage)
	p.Health = clampPercent(p.Health)
	p.WaterLevel = clampPercent(p.WaterLevel)
	p.FertilizerLevel = clampPercent(p.FertilizerLevel)
	p.PestLevel = clampPercent(p.PestLevel)
	p.NDVI = clampFloat(p.NDVI, MinNDVI, MaxNDVI)
}

func clampPercent(v float64) float64 {
	return clampFloat(v, MinPercent, MaxPercent)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Select(parcels []Parcel, id int) bool {
	found := false
	for i := range parcels {
		if parcels[i].ID == id {
			found = true
		}
	}
	if !found {
		return false
	}
	for i := range parcels {
		parcels[i].Selected = parcels[i].ID == id
	}
	return true
}

func FindParcel(parcels []Parcel, id int) (int, bool) {
	for i := range parcels {
		if parcels[i].ID == id {
			return i, true
		}
	}
	return -1, false
}
