package farm

const (
	MinPercent = 0.0
	MaxPercent = 100.0

	MinNDVI = 0.2
	MaxNDVI = 0.9

	DefaultParcelCount = 12

	GrowthCapPerTick   = 2.0
	GrowthMultiplier   = 3.0
	WaterDecayPerTick  = 2.0
	FertDecayPerTick   = 1.0
	PestDriftMax       = 2.0
	PestAppearedAbove  = 50.0
	LowWaterThreshold  = 30.0
	HighWaterThreshold = 60.0
	HighPestThreshold  = 70.0
	LowPestThreshold   = 30.0
	HealthLossPerTick  = 2.0
	HealthGainPerTick  = 1.0

	PlantCost        = 50
	PlantGrowthStage = 5.0
	PlantHealth      = 90.0
	PlantWaterLevel  = 80.0
	PlantFertilizer  = 50.0
	PlantXP          = 10
	HarvestXP        = 25
	ActionXP         = 5
	WaterBonus       = 40.0
	WaterHealthBonus = 5.0
	FertilizerBonus  = 30.0
	FertHealthBonus  = 5.0
	FertGrowthBonus  = 2.0
	PestReduction    = 40.0
	PestHealthBonus  = 10.0
	HeatHealthBonus  = 8.0

	EmptyHealth     = 100.0
	EmptyWaterLevel = 80.0
	EmptyFertilizer = 50.0
	EmptyPestJitter = 20.0
	EmptyNDVI       = 0.45
)

func DefaultActionCosts() map[ActionType]int {
	return map[ActionType]int{
		ActionPlant:          PlantCost,
		ActionWater:          5,
		ActionFertilize:      15,
		ActionPestControl:    20,
		ActionHeatProtection: 10,
		ActionHarvest:        0,
	}
}
