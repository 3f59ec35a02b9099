package status

import (
	"context"
	"sort"

	"satfarm/internal/app/ports"
	"satfarm/internal/app/session"
	"satfarm/internal/domain/farm"
)

type Viewer interface {
	Snapshot(ctx context.Context) (session.View, error)
}

type UseCase struct {
	Session Viewer
	Catalog ports.CropCatalog
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	view, err := u.Session.Snapshot(ctx)
	if err != nil {
		return Response{}, err
	}
	out := Response{Farm: view, Alerts: alertsFor(view)}
	if req.IncludeCrops {
		out.Crops = u.Crops()
	}
	return out, nil
}

// Crops lists the catalog sorted by id.
func (u UseCase) Crops() []farm.CropDefinition {
	if u.Catalog == nil {
		return nil
	}
	crops := u.Catalog.Crops()
	sort.Slice(crops, func(i, j int) bool { return crops[i].ID < crops[j].ID })
	return crops
}

func alertsFor(v session.View) []Alert {
	alerts := []Alert{}
	env := v.Environment
	if env.HeatStress {
		alerts = append(alerts, Alert{Code: "heat_stress"})
	}
	if env.DroughtRisk == farm.DroughtHigh {
		alerts = append(alerts, Alert{Code: "drought_high"})
	}
	if env.PestAlert {
		alerts = append(alerts, Alert{Code: "pest_conditions"})
	}
	if env.Advisory != "" {
		alerts = append(alerts, Alert{Code: "weather_unavailable"})
	}
	for _, p := range v.Parcels {
		if !p.Planted() {
			continue
		}
		if p.WaterLevel < farm.LowWaterThreshold {
			alerts = append(alerts, Alert{Code: "low_water", ParcelID: p.ID})
		}
		if p.PestLevel > farm.HighPestThreshold {
			alerts = append(alerts, Alert{Code: "pest_outbreak", ParcelID: p.ID})
		}
		if p.GrowthStage >= farm.MaxPercent {
			alerts = append(alerts, Alert{Code: "ready_to_harvest", ParcelID: p.ID})
		}
	}
	return alerts
}
