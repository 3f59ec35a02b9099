package session

import (
	"context"
	"sync"
	"time"

	"satfarm/internal/app/ports"
	"satfarm/internal/app/scheduler"
	"satfarm/internal/domain/farm"
)

var epoch = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

type fixedRandom float64

func (r fixedRandom) Float64() float64 { return float64(r) }

type stubCatalog map[farm.CropID]farm.CropDefinition

func (c stubCatalog) Crop(id farm.CropID) (farm.CropDefinition, bool) {
	crop, ok := c[id]
	return crop, ok
}

func (c stubCatalog) Crops() []farm.CropDefinition {
	out := make([]farm.CropDefinition, 0, len(c))
	for _, crop := range c {
		out = append(out, crop)
	}
	return out
}

func defaultCatalog() stubCatalog {
	return stubCatalog{
		"beans": {ID: "beans", Name: "Beans", GrowthDuration: 60, WaterNeeds: 30, PestResistance: 50, MarketPrice: 90, OptimalNDVI: 0.7},
	}
}

type recordingPublisher struct {
	mu      sync.Mutex
	batches []ports.EventBatch
}

func (p *recordingPublisher) Publish(b ports.EventBatch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, b)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, b := range p.batches {
		for _, e := range b.Events {
			out = append(out, e.Type)
		}
	}
	return out
}

func (p *recordingPublisher) has(eventType string) bool {
	for _, t := range p.types() {
		if t == eventType {
			return true
		}
	}
	return false
}

type stubEnvironment struct {
	next farm.EnvironmentSnapshot
	err  error
	hint *farm.Location
}

func (s *stubEnvironment) Fetch(_ context.Context, prev farm.EnvironmentSnapshot, hint *farm.Location) (farm.EnvironmentSnapshot, error) {
	s.hint = hint
	if s.err != nil {
		prev.Advisory = "degraded"
		return prev, s.err
	}
	return s.next, nil
}

type harness struct {
	sched *scheduler.Scheduler
	sess  *Session
	pub   *recordingPublisher
}

func newHarness(mutate func(*Config, *Deps)) harness {
	sched, _ := scheduler.NewManual(epoch)
	pub := &recordingPublisher{}
	cfg := DefaultConfig()
	deps := Deps{
		Scheduler: sched,
		Catalog:   defaultCatalog(),
		Publisher: pub,
		PestRNG:   fixedRandom(0),
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	sess := New(cfg, deps)
	if err := sess.Start(context.Background()); err != nil {
		panic(err)
	}
	return harness{sched: sched, sess: sess, pub: pub}
}

func (h harness) view() View {
	v, err := h.sess.Snapshot(context.Background())
	if err != nil {
		panic(err)
	}
	return v
}

func (h harness) parcel(id int) ParcelView {
	for _, p := range h.view().Parcels {
		if p.ID == id {
			return p
		}
	}
	panic("parcel not found")
}

// scriptedEnvironment answers each Fetch with the next function in calls.
type scriptedEnvironment struct {
	mu    sync.Mutex
	calls []func(prev farm.EnvironmentSnapshot) (farm.EnvironmentSnapshot, error)
}

func (s *scriptedEnvironment) Fetch(_ context.Context, prev farm.EnvironmentSnapshot, _ *farm.Location) (farm.EnvironmentSnapshot, error) {
	s.mu.Lock()
	fn := s.calls[0]
	s.calls = s.calls[1:]
	s.mu.Unlock()
	return fn(prev)
}
