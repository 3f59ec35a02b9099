package farm

type seqRandom struct {
	values []float64
	next   int
}

func (r *seqRandom) Float64() float64 {
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[r.next%len(r.values)]
	r.next++
	return v
}

func fixedRandom(v float64) *seqRandom {
	return &seqRandom{values: []float64{v}}
}

func testCrop() *CropDefinition {
	return &CropDefinition{
		ID:             "maize",
		Name:           "Maize",
		GrowthDuration: 40,
		WaterNeeds:     50,
		PestResistance: 60,
		MarketPrice:    120,
		OptimalNDVI:    0.75,
		Difficulty:     "easy",
	}
}

func plantedParcel() Parcel {
	p := Parcel{ID: 1}
	p.ResetEmpty(fixedRandom(0))
	p.Crop = testCrop()
	p.GrowthStage = 40
	p.Health = 80
	p.WaterLevel = 50
	p.FertilizerLevel = 40
	p.PestLevel = 35
	return p
}

func assertBounded(t interface{ Fatalf(string, ...any) }, p Parcel) {
	fields := map[string]float64{
		"growth":     p.GrowthStage,
		"health":     p.Health,
		"water":      p.WaterLevel,
		"fertilizer": p.FertilizerLevel,
		"pest":       p.PestLevel,
	}
	for name, v := range fields {
		if v < MinPercent || v > MaxPercent {
			t.Fatalf("%s out of range: %v", name, v)
		}
	}
	if p.NDVI < MinNDVI || p.NDVI > MaxNDVI {
		t.Fatalf("ndvi out of range: %v", p.NDVI)
	}
	if p.Crop == nil && (p.GrowthStage != 0 || p.DaysToHarvest != 0 || p.PestHasAppeared) {
		t.Fatalf("empty parcel carries crop state: %+v", p)
	}
}
