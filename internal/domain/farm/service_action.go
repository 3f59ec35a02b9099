package farm

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrUnknownAction     = errors.New("unknown action")
	ErrUnknownCrop       = errors.New("unknown crop")
	ErrParcelEmpty       = errors.New("parcel has no crop")
	ErrParcelOccupied    = errors.New("parcel already planted")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type ActionIntent struct {
	Type ActionType
	// Crop is required for ActionPlant only.
	Crop *CropDefinition
}

type ActionOutcome struct {
	Parcel       Parcel
	BalanceDelta int
	XPDelta      int
	Yield        int
	Event        DomainEvent
}

type ActionService struct{}

// Apply performs one player action. Any returned error means nothing changed.
func (ActionService) Apply(p Parcel, intent ActionIntent, cost, balance int, now time.Time, rng RandomSource) (ActionOutcome, error) {
	if !IsSupportedAction(intent.Type) {
		return ActionOutcome{}, ErrUnknownAction
	}
	if intent.Type == ActionPlant {
		if p.Crop != nil {
			return ActionOutcome{}, ErrParcelOccupied
		}
		if intent.Crop == nil {
			return ActionOutcome{}, ErrUnknownCrop
		}
	} else if p.Crop == nil {
		return ActionOutcome{}, ErrParcelEmpty
	}
	if cost > 0 && balance < cost {
		return ActionOutcome{}, ErrInsufficientFunds
	}

	next := p
	out := ActionOutcome{BalanceDelta: -cost}

	switch intent.Type {
	case ActionPlant:
		crop := *intent.Crop
		plantedAt := now
		next.Crop = &crop
		next.PlantedAt = &plantedAt
		next.GrowthStage = PlantGrowthStage
		next.Health = PlantHealth
		next.WaterLevel = PlantWaterLevel
		next.FertilizerLevel = PlantFertilizer
		next.PestHasAppeared = false
		next.NDVI = VegetationIndex(next)
		next.DaysToHarvest = DaysToHarvest(next)
		next.LastAction = fmt.Sprintf("Planted %s", crop.Name)
		out.XPDelta = PlantXP
	case ActionWater:
		next.WaterLevel = math.Min(MaxPercent, next.Crop.WaterNeeds+WaterBonus)
		next.Health += WaterHealthBonus
		next.LastAction = "Watered"
	case ActionFertilize:
		next.FertilizerLevel += FertilizerBonus
		next.Health += FertHealthBonus
		next.GrowthStage += FertGrowthBonus
		next.LastAction = "Fertilized"
	case ActionPestControl:
		next.PestLevel = math.Max(MinPercent, next.PestLevel-PestReduction)
		next.Health += PestHealthBonus
		next.LastAction = "Pest control applied"
	case ActionHeatProtection:
		next.Health += HeatHealthBonus
		next.LastAction = "Heat protection applied"
	case ActionHarvest:
		out.Yield = HarvestYield(next)
		out.BalanceDelta += out.Yield
		out.XPDelta = HarvestXP
		name := next.Crop.Name
		next.ResetEmpty(rng)
		next.LastAction = fmt.Sprintf("Harvested %s (+%d)", name, out.Yield)
	}

	if intent.Type != ActionPlant && intent.Type != ActionHarvest {
		next.Clamp()
		next.NDVI = VegetationIndex(next)
		next.DaysToHarvest = DaysToHarvest(next)
		out.XPDelta = ActionXP
	}
	next.Clamp()

	out.Parcel = next
	out.Event = DomainEvent{
		Type:       "action_applied",
		OccurredAt: now,
		Payload: map[string]any{
			"parcel_id":     p.ID,
			"action":        string(intent.Type),
			"cost":          cost,
			"balance_delta": out.BalanceDelta,
			"xp_delta":      out.XPDelta,
			"yield":         out.Yield,
			"state_before":  parcelSummary(p),
			"state_after":   parcelSummary(next),
		},
	}
	return out, nil
}

func HarvestYield(p Parcel) int {
	if p.Crop == nil {
		return 0
	}
	return int(math.Round(p.Health / 100 * float64(p.Crop.MarketPrice)))
}

func IsSupportedAction(t ActionType) bool {
	for _, actionType := range SupportedActions() {
		if t == actionType {
			return true
		}
	}
	return false
}

func SupportedActions() []ActionType {
	return []ActionType{
		ActionPlant,
		ActionWater,
		ActionFertilize,
		ActionPestControl,
		ActionHeatProtection,
		ActionHarvest,
	}
}

func parcelSummary(p Parcel) map[string]any {
	crop := ""
	if p.Crop != nil {
		crop = string(p.Crop.ID)
	}
	return map[string]any{
		"crop":       crop,
		"growth":     p.GrowthStage,
		"health":     p.Health,
		"water":      p.WaterLevel,
		"fertilizer": p.FertilizerLevel,
		"pest":       p.PestLevel,
		"ndvi":       p.NDVI,
		"pest_seen":  p.PestHasAppeared,
		"days_left":  p.DaysToHarvest,
	}
}
