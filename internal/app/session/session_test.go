package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"satfarm/internal/app/ports"
	"satfarm/internal/domain/farm"
	"satfarm/internal/domain/irrigation"
)

func plant(t *testing.T, h harness, id int) ActionResult {
	t.Helper()
	res, err := h.sess.ApplyAction(context.Background(), ActionCommand{ParcelID: id, Action: farm.ActionPlant, CropID: "beans"})
	if err != nil {
		t.Fatalf("plant parcel %d: %v", id, err)
	}
	return res
}

func TestSession_GrowthClockStartsOnFirstPlant(t *testing.T) {
	h := newHarness(nil)

	h.sched.Advance(5 * time.Second)
	if v := h.view(); v.Day != 0 || v.Ticking {
		t.Fatalf("expected idle clock before planting, got day=%d ticking=%v", v.Day, v.Ticking)
	}

	res := plant(t, h, 1)
	if res.Player.Balance != 950 || res.Player.XP != farm.PlantXP {
		t.Fatalf("expected balance 950 xp 10, got %+v", res.Player)
	}

	h.sched.Advance(10 * time.Second)
	v := h.view()
	if v.Day != 10 || !v.Ticking {
		t.Fatalf("expected 10 ticked days, got day=%d ticking=%v", v.Day, v.Ticking)
	}
	p := h.parcel(1)
	if p.WaterLevel != 60 || p.GrowthStage <= 5 {
		t.Fatalf("unexpected parcel after ten ticks: %+v", p.Parcel)
	}
	if !h.pub.has("simulation_started") || !h.pub.has("parcel_ticked") {
		t.Fatalf("expected start and tick events, got %v", h.pub.types())
	}
}

func TestSession_AutoIrrigationChargesOnceAndWaters(t *testing.T) {
	h := newHarness(nil)
	plant(t, h, 1)

	// water 80 decays by 2 per tick; the poll at +19s is the first to see 44.
	h.sched.Advance(19 * time.Second)
	v := h.view()
	if v.Player.Balance != 945 {
		t.Fatalf("expected a single 5 fee, balance 945, got %d", v.Player.Balance)
	}
	if got := h.parcel(1).Irrigation; got != irrigation.StateIrrigating {
		t.Fatalf("expected irrigating, got %s", got)
	}

	h.sched.Advance(2 * time.Second)
	if v := h.view(); v.Player.Balance != 945 {
		t.Fatalf("expected no second charge while in flight, got %d", v.Player.Balance)
	}
	if w := h.parcel(1).WaterLevel; w != 38 {
		t.Fatalf("expected water 38 before completion, got %v", w)
	}

	h.sched.Advance(time.Second)
	p := h.parcel(1)
	if p.WaterLevel != 81 {
		t.Fatalf("expected water 36 + 30 + 15 = 81, got %v", p.WaterLevel)
	}
	if p.Irrigation != irrigation.StateCooldown {
		t.Fatalf("expected cooldown, got %s", p.Irrigation)
	}
	if !h.pub.has(irrigation.EventApplied) {
		t.Fatalf("expected irrigation_applied event")
	}
}

func TestSession_ManualActionKeepsPaidIrrigation(t *testing.T) {
	h := newHarness(nil)
	plant(t, h, 1)
	h.sched.Advance(19 * time.Second)
	h.sched.Advance(time.Second)

	if _, err := h.sess.ApplyAction(context.Background(), ActionCommand{ParcelID: 1, Action: farm.ActionHeatProtection}); err != nil {
		t.Fatalf("heat protection: %v", err)
	}
	h.sched.Advance(2 * time.Second)

	p := h.parcel(1)
	if p.WaterLevel != 81 {
		t.Fatalf("expected irrigation to land, water 36 + 30 + 15 = 81, got %v", p.WaterLevel)
	}
	if v := h.view(); v.Player.Balance != 935 {
		t.Fatalf("expected fee 5 and heat protection 10, balance 935, got %d", v.Player.Balance)
	}
	if h.pub.has(irrigation.EventSuperseded) {
		t.Fatalf("expected no superseded irrigation, got %v", h.pub.types())
	}
}

func TestSession_ManualWaterDuringIrrigationWins(t *testing.T) {
	h := newHarness(nil)
	plant(t, h, 1)
	h.sched.Advance(19 * time.Second)
	h.sched.Advance(time.Second)

	if _, err := h.sess.ApplyAction(context.Background(), ActionCommand{ParcelID: 1, Action: farm.ActionWater}); err != nil {
		t.Fatalf("water: %v", err)
	}
	h.sched.Advance(2 * time.Second)

	p := h.parcel(1)
	if p.WaterLevel != 70 {
		t.Fatalf("expected manual water level 70 applied last, got %v", p.WaterLevel)
	}
	if p.Irrigation != irrigation.StateCooldown {
		t.Fatalf("expected cooldown after completion, got %s", p.Irrigation)
	}
	if v := h.view(); v.Player.Balance != 940 {
		t.Fatalf("expected fee kept and water charged, balance 940, got %d", v.Player.Balance)
	}
}

func TestSession_RejectedActionLeavesStateUntouched(t *testing.T) {
	h := newHarness(func(cfg *Config, _ *Deps) { cfg.StartingBalance = 49 })

	_, err := h.sess.ApplyAction(context.Background(), ActionCommand{ParcelID: 2, Action: farm.ActionPlant, CropID: "beans"})
	if !errors.Is(err, farm.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	v := h.view()
	if v.Player.Balance != 49 || v.Ticking {
		t.Fatalf("expected untouched ledger and idle clock, got %+v ticking=%v", v.Player, v.Ticking)
	}
	if h.parcel(2).Crop != nil {
		t.Fatalf("expected parcel to stay empty")
	}
	if !h.pub.has("action_rejected") {
		t.Fatalf("expected action_rejected event")
	}
}

func TestSession_RejectionReportsConfiguredCost(t *testing.T) {
	h := newHarness(func(cfg *Config, _ *Deps) {
		cfg.StartingBalance = 60
		cfg.Costs = map[farm.ActionType]int{farm.ActionPlant: 75}
	})

	res, err := h.sess.ApplyAction(context.Background(), ActionCommand{ParcelID: 1, Action: farm.ActionPlant, CropID: "beans"})
	if !errors.Is(err, farm.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if res.Cost != 75 || res.Player.Balance != 60 {
		t.Fatalf("expected cost 75 and balance 60, got cost=%d balance=%d", res.Cost, res.Player.Balance)
	}
}

func TestSession_UnknownParcelAndCrop(t *testing.T) {
	h := newHarness(nil)
	ctx := context.Background()

	_, err := h.sess.ApplyAction(ctx, ActionCommand{ParcelID: 99, Action: farm.ActionWater})
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = h.sess.ApplyAction(ctx, ActionCommand{ParcelID: 1, Action: farm.ActionPlant, CropID: "cactus"})
	if !errors.Is(err, farm.ErrUnknownCrop) {
		t.Fatalf("expected unknown crop, got %v", err)
	}
	if err := h.sess.Select(ctx, 99); !errors.Is(err, ErrParcelNotFound) {
		t.Fatalf("expected select not found, got %v", err)
	}
}

func TestSession_DisablingAutoIrrigationKeepsInFlight(t *testing.T) {
	h := newHarness(nil)
	plant(t, h, 1)
	h.sched.Advance(19 * time.Second)

	if err := h.sess.SetAutoIrrigation(context.Background(), false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	h.sched.Advance(3 * time.Second)
	if !h.pub.has(irrigation.EventApplied) {
		t.Fatalf("expected in-flight irrigation to land after disable")
	}

	h.sched.Advance(30 * time.Second)
	if v := h.view(); v.Player.Balance != 945 || v.AutoIrrigation {
		t.Fatalf("expected no further charges, got balance=%d auto=%v", v.Player.Balance, v.AutoIrrigation)
	}
}

func TestSession_RefreshEnvironment(t *testing.T) {
	src := &stubEnvironment{next: farm.EnvironmentSnapshot{Temperature: 31, SoilMoisture: 50, DroughtRisk: farm.DroughtMedium}}
	h := newHarness(func(_ *Config, deps *Deps) { deps.Environment = src })
	ctx := context.Background()

	hint := &farm.Location{Latitude: 20.67, Longitude: -103.35}
	got, err := h.sess.RefreshEnvironment(ctx, hint)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got.Temperature != 31 || h.view().Environment.Temperature != 31 {
		t.Fatalf("expected swapped snapshot, got %+v", got)
	}
	if src.hint == nil || src.hint.Latitude != 20.67 {
		t.Fatalf("expected hint forwarded, got %+v", src.hint)
	}

	src.err = errors.New("upstream 503")
	src.hint = nil
	got, err = h.sess.RefreshEnvironment(ctx, nil)
	if err == nil {
		t.Fatalf("expected degraded refresh error")
	}
	if got.Temperature != 31 || got.Advisory == "" {
		t.Fatalf("expected prior readings with advisory, got %+v", got)
	}
	if src.hint == nil {
		t.Fatalf("expected last hint to be reused")
	}
	if !h.pub.has("environment_refreshed") || !h.pub.has("environment_refresh_failed") {
		t.Fatalf("expected refresh events, got %v", h.pub.types())
	}
}

func TestSession_OverlappingRefreshesKeepNewestReadings(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	newer := farm.EnvironmentSnapshot{
		Temperature: 40,
		Location:    farm.Location{Latitude: 10, Longitude: 20},
		RefreshedAt: epoch.Add(time.Minute),
	}
	src := &scriptedEnvironment{calls: []func(farm.EnvironmentSnapshot) (farm.EnvironmentSnapshot, error){
		func(prev farm.EnvironmentSnapshot) (farm.EnvironmentSnapshot, error) {
			close(entered)
			<-release
			prev.Advisory = "degraded"
			return prev, errors.New("upstream timeout")
		},
		func(farm.EnvironmentSnapshot) (farm.EnvironmentSnapshot, error) {
			return newer, nil
		},
	}}
	h := newHarness(func(_ *Config, deps *Deps) { deps.Environment = src })
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() {
		_, err := h.sess.RefreshEnvironment(ctx, nil)
		slow <- err
	}()
	<-entered
	if _, err := h.sess.RefreshEnvironment(ctx, nil); err != nil {
		t.Fatalf("fast refresh: %v", err)
	}
	close(release)
	if err := <-slow; err == nil {
		t.Fatalf("expected slow refresh to report its failure")
	}

	env := h.view().Environment
	if env.Temperature != 40 || env.Location != newer.Location || env.Advisory != "" {
		t.Fatalf("expected newer readings kept, got temp=%v loc=%+v advisory=%q", env.Temperature, env.Location, env.Advisory)
	}
}

func TestSession_FailedRefreshOnlyStampsLiveSnapshot(t *testing.T) {
	fetchedAt := epoch.Add(5 * time.Minute)
	src := &scriptedEnvironment{calls: []func(farm.EnvironmentSnapshot) (farm.EnvironmentSnapshot, error){
		func(farm.EnvironmentSnapshot) (farm.EnvironmentSnapshot, error) {
			return farm.EnvironmentSnapshot{Temperature: 31, Humidity: 70}, nil
		},
		func(farm.EnvironmentSnapshot) (farm.EnvironmentSnapshot, error) {
			return farm.EnvironmentSnapshot{Temperature: 12, RefreshedAt: fetchedAt, Advisory: "offline"}, errors.New("dns")
		},
	}}
	h := newHarness(func(_ *Config, deps *Deps) { deps.Environment = src })
	ctx := context.Background()

	if _, err := h.sess.RefreshEnvironment(ctx, nil); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	got, err := h.sess.RefreshEnvironment(ctx, nil)
	if err == nil {
		t.Fatalf("expected fetch error")
	}
	if got.Temperature != 31 || got.Humidity != 70 {
		t.Fatalf("expected live readings kept, got temp=%v humidity=%v", got.Temperature, got.Humidity)
	}
	if !got.RefreshedAt.Equal(fetchedAt) || got.Advisory != "offline" {
		t.Fatalf("expected stamp and advisory, got at=%v advisory=%q", got.RefreshedAt, got.Advisory)
	}
}

func TestSession_TicksMirrorEnvironment(t *testing.T) {
	src := &stubEnvironment{next: farm.EnvironmentSnapshot{Temperature: 18.5, SoilMoisture: 33}}
	h := newHarness(func(_ *Config, deps *Deps) { deps.Environment = src })
	ctx := context.Background()
	if _, err := h.sess.RefreshEnvironment(ctx, nil); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	plant(t, h, 4)
	h.sched.Advance(time.Second)

	p := h.parcel(4)
	if p.Temperature != 18.5 || p.SoilMoisture != 33 {
		t.Fatalf("expected mirrored env, got temp=%v soil=%v", p.Temperature, p.SoilMoisture)
	}
	for _, other := range h.view().Parcels {
		if other.ID != 4 && other.Temperature != 0 {
			t.Fatalf("expected empty parcel %d untouched by tick", other.ID)
		}
	}
}
