package session

import (
	"context"
	"errors"
	"time"

	"satfarm/internal/domain/farm"
	"satfarm/internal/domain/irrigation"
)

type ActionCommand struct {
	ParcelID int
	Action   farm.ActionType
	CropID   farm.CropID
}

type ActionResult struct {
	Parcel       farm.Parcel
	Player       farm.Player
	Cost         int
	BalanceDelta int
	XPDelta      int
	Yield        int
}

// ApplyAction runs one player action on the session turn. Domain rejections
// are journaled and returned unchanged so callers can match them with errors.Is.
func (s *Session) ApplyAction(ctx context.Context, cmd ActionCommand) (ActionResult, error) {
	var out ActionResult
	err := s.sched.Do(ctx, func(now time.Time) error {
		idx, ok := farm.FindParcel(s.parcels, cmd.ParcelID)
		if !ok {
			return ErrParcelNotFound
		}
		intent := farm.ActionIntent{Type: cmd.Action}
		if cmd.Action == farm.ActionPlant && s.catalog != nil {
			if crop, ok := s.catalog.Crop(cmd.CropID); ok {
				intent.Crop = &crop
			}
		}
		cost := s.cfg.Costs[cmd.Action]

		res, err := s.actions.Apply(s.parcels[idx], intent, cost, s.player.Balance, now, s.pestRNG)
		if err != nil {
			out = ActionResult{Parcel: s.parcels[idx], Player: s.player, Cost: cost}
			s.publish(now, farm.DomainEvent{
				Type:       "action_rejected",
				OccurredAt: now,
				Payload: map[string]any{
					"parcel_id": cmd.ParcelID,
					"action":    string(cmd.Action),
					"crop":      string(cmd.CropID),
					"reason":    err.Error(),
					"balance":   s.player.Balance,
				},
			})
			return err
		}

		s.parcels[idx] = res.Parcel
		s.player.Balance += res.BalanceDelta
		s.player.XP += res.XPDelta
		s.irr.NoteManualAction(cmd.ParcelID, now, cmd.Action)
		if cmd.Action == farm.ActionPlant {
			s.startTicking()
		}
		s.publish(now, res.Event)

		out = ActionResult{
			Parcel:       res.Parcel,
			Player:       s.player,
			Cost:         cost,
			BalanceDelta: res.BalanceDelta,
			XPDelta:      res.XPDelta,
			Yield:        res.Yield,
		}
		return nil
	})
	return out, err
}

func (s *Session) Select(ctx context.Context, parcelID int) error {
	return s.sched.Do(ctx, func(time.Time) error {
		if !farm.Select(s.parcels, parcelID) {
			return ErrParcelNotFound
		}
		return nil
	})
}

// SetAutoIrrigation toggles the poll timer only. Irrigations already in
// flight still complete.
func (s *Session) SetAutoIrrigation(ctx context.Context, enabled bool) error {
	return s.sched.Do(ctx, func(time.Time) error {
		s.cfg.AutoIrrigation = enabled
		if enabled {
			if s.pollJob == nil && s.started {
				s.pollJob = s.sched.Every("irrigation-poll", s.cfg.Irrigation.PollInterval, s.poll)
			}
			return nil
		}
		s.pollJob.Cancel()
		s.pollJob = nil
		s.irr.ClearQueue()
		return nil
	})
}

// RefreshEnvironment fetches outside the turn. Results older than the last
// applied refresh are dropped; a failure only stamps time and advisory.
func (s *Session) RefreshEnvironment(ctx context.Context, hint *farm.Location) (farm.EnvironmentSnapshot, error) {
	if s.envSrc == nil {
		return s.Environment(ctx)
	}
	var (
		prev farm.EnvironmentSnapshot
		loc  *farm.Location
		gen  uint64
	)
	if err := s.sched.Do(ctx, func(time.Time) error {
		if hint != nil {
			h := *hint
			s.location = &h
		}
		if s.location != nil {
			l := *s.location
			loc = &l
		}
		prev = s.env
		s.refreshIssued++
		gen = s.refreshIssued
		return nil
	}); err != nil {
		return farm.EnvironmentSnapshot{}, err
	}

	next, fetchErr := s.envSrc.Fetch(ctx, prev, loc)

	var out farm.EnvironmentSnapshot
	err := s.sched.Do(ctx, func(now time.Time) error {
		stale := gen < s.refreshApplied
		if fetchErr != nil {
			if !stale {
				s.env.RefreshedAt = now
				if !next.RefreshedAt.IsZero() {
					s.env.RefreshedAt = next.RefreshedAt
				}
				s.env.Advisory = next.Advisory
				if s.env.Advisory == "" {
					s.env.Advisory = fetchErr.Error()
				}
			}
			out = s.env
			s.publish(now, farm.DomainEvent{
				Type:       "environment_refresh_failed",
				OccurredAt: now,
				Payload:    map[string]any{"error": fetchErr.Error(), "stale": stale},
			})
			return nil
		}
		if stale {
			s.log.Debug().Uint64("generation", gen).Msg("dropping stale environment refresh")
			out = s.env
			return nil
		}
		s.env = next
		s.refreshApplied = gen
		out = next
		s.publish(now, farm.DomainEvent{
			Type:       "environment_refreshed",
			OccurredAt: now,
			Payload: map[string]any{
				"temperature":   next.Temperature,
				"humidity":      next.Humidity,
				"soil_moisture": next.SoilMoisture,
				"drought_risk":  string(next.DroughtRisk),
				"heat_stress":   next.HeatStress,
				"pest_alert":    next.PestAlert,
				"location":      next.Location.Label,
			},
		})
		return nil
	})
	if err != nil {
		return farm.EnvironmentSnapshot{}, err
	}
	return out, fetchErr
}

// scheduleRefresh runs on the turn, so the fetch itself is handed off.
func (s *Session) scheduleRefresh(time.Time) {
	ctx := s.bg
	go func() {
		if _, err := s.RefreshEnvironment(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn().Err(err).Msg("periodic environment refresh degraded")
		}
	}()
}

func (s *Session) Environment(ctx context.Context) (farm.EnvironmentSnapshot, error) {
	var out farm.EnvironmentSnapshot
	err := s.sched.Do(ctx, func(time.Time) error {
		out = s.env
		return nil
	})
	return out, err
}

type ParcelView struct {
	farm.Parcel
	Irrigation irrigation.State `json:"irrigation"`
}

type View struct {
	SessionID       string                   `json:"session_id"`
	StartedAt       time.Time                `json:"started_at"`
	Now             time.Time                `json:"now"`
	Day             int                      `json:"day"`
	Ticking         bool                     `json:"ticking"`
	Player          farm.Player              `json:"player"`
	Parcels         []ParcelView             `json:"parcels"`
	Environment     farm.EnvironmentSnapshot `json:"environment"`
	AutoIrrigation  bool                     `json:"auto_irrigation"`
	IrrigationQueue []int                    `json:"irrigation_queue"`
}

func (s *Session) Snapshot(ctx context.Context) (View, error) {
	var out View
	err := s.sched.Do(ctx, func(now time.Time) error {
		out = View{
			SessionID:       s.id,
			StartedAt:       s.startedAt,
			Now:             now,
			Day:             s.day,
			Ticking:         s.tickJob != nil,
			Player:          s.player,
			Parcels:         make([]ParcelView, 0, len(s.parcels)),
			Environment:     s.env,
			AutoIrrigation:  s.cfg.AutoIrrigation,
			IrrigationQueue: s.irr.Queue(),
		}
		for _, p := range s.parcels {
			out.Parcels = append(out.Parcels, ParcelView{Parcel: p, Irrigation: s.irr.State(p.ID)})
		}
		return nil
	})
	return out, err
}
