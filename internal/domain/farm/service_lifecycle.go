package farm

import "math"

type LifecycleService struct{}

func (LifecycleService) Tick(p Parcel, env EnvironmentSnapshot, rng RandomSource) Parcel {
	if p.Crop == nil {
		return p
	}
	next := p

	growth := math.Min(GrowthCapPerTick, next.WaterLevel/100*next.Health/100*GrowthMultiplier)
	if growth > 0 {
		next.GrowthStage = math.Min(MaxPercent, next.GrowthStage+growth)
	}

	next.WaterLevel = math.Max(MinPercent, next.WaterLevel-WaterDecayPerTick)
	next.FertilizerLevel = math.Max(MinPercent, next.FertilizerLevel-FertDecayPerTick)

	drift := 0.0
	if rng != nil {
		drift = rng.Float64() * PestDriftMax
	}
	next.PestLevel = math.Min(MaxPercent, next.PestLevel+drift)
	if next.PestLevel > PestAppearedAbove {
		next.PestHasAppeared = true
	}

	switch {
	case next.WaterLevel < LowWaterThreshold || next.PestLevel > HighPestThreshold:
		next.Health -= HealthLossPerTick
	case next.WaterLevel > HighWaterThreshold && next.PestLevel < LowPestThreshold:
		next.Health += HealthGainPerTick
	}
	next.Health = clampPercent(next.Health)

	next.Temperature = env.Temperature
	next.SoilMoisture = env.SoilMoisture

	next.NDVI = VegetationIndex(next)
	next.DaysToHarvest = DaysToHarvest(next)
	return next
}

func (s LifecycleService) TickAll(parcels []Parcel, env EnvironmentSnapshot, rng RandomSource) int {
	planted := 0
	for i := range parcels {
		if parcels[i].Crop == nil {
			continue
		}
		planted++
		parcels[i] = s.Tick(parcels[i], env, rng)
	}
	return planted
}
