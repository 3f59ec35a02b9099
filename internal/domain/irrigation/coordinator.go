package irrigation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"satfarm/internal/domain/farm"
)

type State string

const (
	StateIdle       State = "idle"
	StateQueued     State = "queued"
	StateIrrigating State = "irrigating"
	StateCooldown   State = "cooldown"
)

const (
	EventQueued     = "irrigation_queued"
	EventCharged    = "irrigation_charged"
	EventAborted    = "irrigation_aborted"
	EventApplied    = "irrigation_applied"
	EventSuperseded = "irrigation_superseded"
)

type Config struct {
	WaterThreshold float64
	QuietPeriod    time.Duration
	MinBalance     int
	Fee            int
	Delay          time.Duration
	Cooldown       time.Duration
	WaterBonus     float64
	PollInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		WaterThreshold: 45,
		QuietPeriod:    3 * time.Second,
		MinBalance:     20,
		Fee:            5,
		Delay:          3 * time.Second,
		Cooldown:       time.Second,
		WaterBonus:     15,
		PollInterval:   time.Second,
	}
}

// Ticket identifies one in-flight irrigation. A ticket whose generation no
// longer matches the parcel's was voided by a harvest or replant.
type Ticket struct {
	ParcelID   int
	Generation int
	DueAt      time.Time
}

type PollResult struct {
	BalanceDelta int
	Charged      *Ticket
	Events       []farm.DomainEvent
}

type parcelState struct {
	state         State
	lastAction    time.Time
	cooldownUntil time.Time
	generation    int
	// manualWater is set when the player waters a parcel mid-flight.
	manualWater bool
}

// Coordinator owns the per-parcel irrigation state and the FIFO queue. It is
// not safe for concurrent use; callers serialise access.
type Coordinator struct {
	cfg    Config
	states map[int]*parcelState
	queue  []int
}

func NewCoordinator(cfg Config) *Coordinator {
	return &Coordinator{cfg: cfg, states: map[int]*parcelState{}}
}

func (c *Coordinator) Config() Config {
	return c.cfg
}

func (c *Coordinator) get(id int) *parcelState {
	s, ok := c.states[id]
	if !ok {
		s = &parcelState{state: StateIdle}
		c.states[id] = s
	}
	return s
}

func (c *Coordinator) State(id int) State {
	if s, ok := c.states[id]; ok {
		return s.state
	}
	return StateIdle
}

func (c *Coordinator) Queue() []int {
	return append([]int(nil), c.queue...)
}

// Eligible reports whether the parcel may be enqueued right now.
func (c *Coordinator) Eligible(p farm.Parcel, now time.Time) bool {
	if p.Crop == nil || p.GrowthStage >= farm.MaxPercent {
		return false
	}
	if p.WaterLevel > c.cfg.WaterThreshold {
		return false
	}
	s := c.get(p.ID)
	if s.state != StateIdle {
		return false
	}
	return s.lastAction.IsZero() || now.Sub(s.lastAction) >= c.cfg.QuietPeriod
}

// Poll runs one coordinator step: expire cooldowns, enqueue newly eligible
// parcels in id order, then process only the queue head.
func (c *Coordinator) Poll(now time.Time, parcels []farm.Parcel, balance int) PollResult {
	var out PollResult

	for _, s := range c.states {
		if s.state == StateCooldown && !now.Before(s.cooldownUntil) {
			s.state = StateIdle
		}
	}

	ordered := append([]farm.Parcel(nil), parcels...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for _, p := range ordered {
		if !c.Eligible(p, now) {
			continue
		}
		c.get(p.ID).state = StateQueued
		c.queue = append(c.queue, p.ID)
		out.Events = append(out.Events, event(EventQueued, now, map[string]any{
			"parcel_id": p.ID,
			"water":     p.WaterLevel,
			"position":  len(c.queue),
		}))
	}

	if len(c.queue) == 0 {
		return out
	}
	head := c.queue[0]
	c.queue = c.queue[1:]
	s := c.get(head)

	idx, ok := farm.FindParcel(parcels, head)
	if !ok || parcels[idx].Crop == nil {
		s.state = StateIdle
		out.Events = append(out.Events, event(EventAborted, now, map[string]any{
			"parcel_id": head,
			"reason":    "parcel_empty",
		}))
		return out
	}
	if balance < c.cfg.MinBalance {
		s.state = StateIdle
		out.Events = append(out.Events, event(EventAborted, now, map[string]any{
			"parcel_id": head,
			"reason":    "insufficient_balance",
			"balance":   balance,
		}))
		return out
	}

	s.state = StateIrrigating
	s.generation++
	s.manualWater = false
	ticket := Ticket{ParcelID: head, Generation: s.generation, DueAt: now.Add(c.cfg.Delay)}
	out.Charged = &ticket
	out.BalanceDelta = -c.cfg.Fee
	out.Events = append(out.Events, event(EventCharged, now, map[string]any{
		"parcel_id": head,
		"fee":       c.cfg.Fee,
		"due_at":    ticket.DueAt,
	}))
	return out
}

// Complete lands an in-flight irrigation on p. It returns false when the
// ticket was voided, in which case p is untouched. A manual watering made
// while the irrigation was in flight is applied after it.
func (c *Coordinator) Complete(now time.Time, p *farm.Parcel, t Ticket) (bool, farm.DomainEvent) {
	s := c.get(t.ParcelID)
	if s.state != StateIrrigating || s.generation != t.Generation || p.Crop == nil {
		return false, event(EventSuperseded, now, map[string]any{
			"parcel_id": t.ParcelID,
		})
	}
	before := p.WaterLevel
	added := p.Crop.WaterNeeds + c.cfg.WaterBonus
	p.WaterLevel = math.Min(farm.MaxPercent, p.WaterLevel+added)
	p.LastAction = fmt.Sprintf("Auto-irrigated (+%.0f)", added)
	manual := s.manualWater
	if manual {
		p.WaterLevel = math.Min(farm.MaxPercent, p.Crop.WaterNeeds+farm.WaterBonus)
		p.LastAction = "Watered"
	}
	p.NDVI = farm.VegetationIndex(*p)

	s.state = StateCooldown
	s.cooldownUntil = now.Add(c.cfg.Cooldown)
	s.lastAction = now
	s.manualWater = false
	return true, event(EventApplied, now, map[string]any{
		"parcel_id":       t.ParcelID,
		"water_before":    before,
		"water_after":     p.WaterLevel,
		"manual_override": manual,
	})
}

// NoteManualAction restarts the quiet period and pulls the parcel out of the
// queue. A paid irrigation in flight still lands unless the crop it was paid
// for has been harvested.
func (c *Coordinator) NoteManualAction(id int, now time.Time, action farm.ActionType) {
	s := c.get(id)
	s.lastAction = now
	switch s.state {
	case StateQueued:
		c.removeFromQueue(id)
		s.state = StateIdle
	case StateIrrigating:
		switch action {
		case farm.ActionHarvest:
			s.generation++
			s.state = StateIdle
			s.manualWater = false
		case farm.ActionWater:
			s.manualWater = true
		}
	}
}

// ClearQueue drops every queued parcel back to idle. In-flight irrigations
// are left alone.
func (c *Coordinator) ClearQueue() {
	for _, id := range c.queue {
		c.get(id).state = StateIdle
	}
	c.queue = nil
}

func (c *Coordinator) removeFromQueue(id int) {
	out := c.queue[:0]
	for _, q := range c.queue {
		if q != id {
			out = append(out, q)
		}
	}
	c.queue = out
}

func event(kind string, now time.Time, payload map[string]any) farm.DomainEvent {
	return farm.DomainEvent{Type: kind, OccurredAt: now, Payload: payload}
}
