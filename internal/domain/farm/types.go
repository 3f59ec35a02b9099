package farm

import "time"

type CropID string

type CropDefinition struct {
	ID             CropID  `json:"id" yaml:"id"`
	Name           string  `json:"name" yaml:"name"`
	GrowthDuration int     `json:"growth_duration" yaml:"growth_duration"`
	WaterNeeds     float64 `json:"water_needs" yaml:"water_needs"`
	PestResistance float64 `json:"pest_resistance" yaml:"pest_resistance"`
	MarketPrice    int     `json:"market_price" yaml:"market_price"`
	OptimalNDVI    float64 `json:"optimal_ndvi" yaml:"optimal_ndvi"`
	Difficulty     string  `json:"difficulty" yaml:"difficulty"`
}

type Parcel struct {
	ID              int             `json:"id"`
	Crop            *CropDefinition `json:"crop"`
	PlantedAt       *time.Time      `json:"planted_at"`
	GrowthStage     float64         `json:"growth_stage"`
	Health          float64         `json:"health"`
	WaterLevel      float64         `json:"water_level"`
	FertilizerLevel float64         `json:"fertilizer_level"`
	PestLevel       float64         `json:"pest_level"`
	NDVI            float64         `json:"ndvi"`
	SoilMoisture    float64         `json:"soil_moisture"`
	Temperature     float64         `json:"temperature"`
	Selected        bool            `json:"selected"`
	LastAction      string          `json:"last_action"`
	DaysToHarvest   int             `json:"days_to_harvest"`
	PestHasAppeared bool            `json:"pest_has_appeared"`
}

func (p Parcel) Planted() bool {
	return p.Crop != nil
}

type ActionType string

const (
	ActionPlant          ActionType = "plant"
	ActionWater          ActionType = "water"
	ActionFertilize      ActionType = "fertilizer"
	ActionPestControl    ActionType = "pest_control"
	ActionHeatProtection ActionType = "heat_protection"
	ActionHarvest        ActionType = "harvest"
)

type DroughtRisk string

const (
	DroughtLow    DroughtRisk = "low"
	DroughtMedium DroughtRisk = "medium"
	DroughtHigh   DroughtRisk = "high"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label,omitempty"`
}

type EnvironmentSnapshot struct {
	Temperature float64 `json:"temperature"`
	// MeasuredTemperature is the last fetched reading; jitter stays near it.
	MeasuredTemperature float64     `json:"measured_temperature"`
	MaxTemperature      float64     `json:"max_temperature"`
	Precipitation       float64     `json:"precipitation"`
	Humidity            float64     `json:"humidity"`
	Evapotranspiration  float64     `json:"evapotranspiration"`
	SoilMoisture        float64     `json:"soil_moisture"`
	HeatStress          bool        `json:"heat_stress"`
	DroughtRisk         DroughtRisk `json:"drought_risk"`
	PestAlert           bool        `json:"pest_alert"`
	NDVIEstimate        float64     `json:"ndvi_estimate"`
	RefreshedAt         time.Time   `json:"refreshed_at"`
	Location            Location    `json:"location"`
	Advisory            string      `json:"advisory,omitempty"`
}

type Player struct {
	Balance int `json:"balance"`
	XP      int `json:"xp"`
}

type DomainEvent struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

// RandomSource yields values in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}
