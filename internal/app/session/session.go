package session

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"satfarm/internal/app/ports"
	"satfarm/internal/app/scheduler"
	envdomain "satfarm/internal/domain/environment"
	"satfarm/internal/domain/farm"
	"satfarm/internal/domain/irrigation"
)

var ErrParcelNotFound = fmt.Errorf("parcel %w", ports.ErrNotFound)

type Config struct {
	ParcelCount     int
	StartingBalance int
	TickInterval    time.Duration
	JitterInterval  time.Duration
	RefreshInterval time.Duration
	AutoIrrigation  bool
	Costs           map[farm.ActionType]int
	Irrigation      irrigation.Config
	Location        *farm.Location
}

func DefaultConfig() Config {
	return Config{
		ParcelCount:     farm.DefaultParcelCount,
		StartingBalance: 1000,
		TickInterval:    time.Second,
		JitterInterval:  10 * time.Second,
		RefreshInterval: 5 * time.Minute,
		AutoIrrigation:  true,
		Costs:           farm.DefaultActionCosts(),
		Irrigation:      irrigation.DefaultConfig(),
	}
}

type EnvironmentSource interface {
	Fetch(ctx context.Context, prev farm.EnvironmentSnapshot, hint *farm.Location) (farm.EnvironmentSnapshot, error)
}

type Deps struct {
	Scheduler   *scheduler.Scheduler
	Catalog     ports.CropCatalog
	Environment EnvironmentSource
	Publisher   ports.EventPublisher
	PestRNG     farm.RandomSource
	JitterRNG   farm.RandomSource
	Log         zerolog.Logger
}

// Session is the single authority for one game. Every field below the
// dependencies is only touched inside a scheduler turn.
type Session struct {
	id        string
	cfg       Config
	sched     *scheduler.Scheduler
	catalog   ports.CropCatalog
	envSrc    EnvironmentSource
	publisher ports.EventPublisher
	pestRNG   farm.RandomSource
	jitterRNG farm.RandomSource
	log       zerolog.Logger

	lifecycle farm.LifecycleService
	actions   farm.ActionService
	irr       *irrigation.Coordinator

	bg        context.Context
	started   bool
	startedAt time.Time
	parcels   []farm.Parcel
	player    farm.Player
	day       int
	env       farm.EnvironmentSnapshot
	location  *farm.Location

	refreshIssued  uint64
	refreshApplied uint64

	tickJob    *scheduler.Job
	pollJob    *scheduler.Job
	jitterJob  *scheduler.Job
	refreshJob *scheduler.Job
}

func New(cfg Config, deps Deps) *Session {
	def := DefaultConfig()
	if cfg.ParcelCount <= 0 {
		cfg.ParcelCount = def.ParcelCount
	}
	if cfg.Costs == nil {
		cfg.Costs = def.Costs
	}
	if cfg.Irrigation == (irrigation.Config{}) {
		cfg.Irrigation = def.Irrigation
	}
	sched := deps.Scheduler
	if sched == nil {
		sched = scheduler.New(nil)
	}
	pestRNG := deps.PestRNG
	if pestRNG == nil {
		pestRNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	id := uuid.NewString()
	s := &Session{
		id:        id,
		cfg:       cfg,
		sched:     sched,
		catalog:   deps.Catalog,
		envSrc:    deps.Environment,
		publisher: deps.Publisher,
		pestRNG:   pestRNG,
		jitterRNG: deps.JitterRNG,
		log:       deps.Log.With().Str("component", "Session").Str("session_id", id).Logger(),
		irr:       irrigation.NewCoordinator(cfg.Irrigation),
		bg:        context.Background(),
		player:    farm.Player{Balance: cfg.StartingBalance},
	}
	loc := envdomain.DefaultLocation()
	if cfg.Location != nil {
		loc = *cfg.Location
		l := loc
		s.location = &l
	}
	s.parcels = farm.NewParcels(cfg.ParcelCount, pestRNG)
	s.env = envdomain.Fallback(loc, sched.Now())
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Scheduler() *scheduler.Scheduler { return s.sched }

// Start registers the environment and irrigation timers. The growth timer
// stays off until the first crop is planted.
func (s *Session) Start(ctx context.Context) error {
	return s.sched.Do(ctx, func(now time.Time) error {
		if s.started {
			return nil
		}
		s.started = true
		s.startedAt = now
		s.bg = ctx
		if s.cfg.JitterInterval > 0 && s.jitterRNG != nil {
			s.jitterJob = s.sched.Every("environment-jitter", s.cfg.JitterInterval, s.jitter)
		}
		if s.cfg.RefreshInterval > 0 && s.envSrc != nil {
			s.refreshJob = s.sched.Every("environment-refresh", s.cfg.RefreshInterval, s.scheduleRefresh)
		}
		if s.cfg.AutoIrrigation {
			s.pollJob = s.sched.Every("irrigation-poll", s.cfg.Irrigation.PollInterval, s.poll)
		}
		s.log.Info().
			Int("parcels", len(s.parcels)).
			Int("balance", s.player.Balance).
			Bool("auto_irrigation", s.cfg.AutoIrrigation).
			Msg("simulation started")
		s.publish(now, farm.DomainEvent{
			Type:       "simulation_started",
			OccurredAt: now,
			Payload: map[string]any{
				"parcels":         len(s.parcels),
				"balance":         s.player.Balance,
				"auto_irrigation": s.cfg.AutoIrrigation,
			},
		})
		return nil
	})
}

func (s *Session) Stop(ctx context.Context) error {
	return s.sched.Do(ctx, func(time.Time) error {
		for _, j := range []*scheduler.Job{s.tickJob, s.pollJob, s.jitterJob, s.refreshJob} {
			j.Cancel()
		}
		s.tickJob, s.pollJob, s.jitterJob, s.refreshJob = nil, nil, nil, nil
		return nil
	})
}

func (s *Session) tick(now time.Time) {
	planted := s.lifecycle.TickAll(s.parcels, s.env, s.pestRNG)
	s.day++
	s.publish(now, farm.DomainEvent{
		Type:       "parcel_ticked",
		OccurredAt: now,
		Payload: map[string]any{
			"day":     s.day,
			"planted": planted,
		},
	})
}

func (s *Session) jitter(time.Time) {
	s.env = envdomain.Jitter(s.env, s.jitterRNG)
}

func (s *Session) poll(now time.Time) {
	res := s.irr.Poll(now, s.parcels, s.player.Balance)
	s.player.Balance += res.BalanceDelta
	if res.Charged != nil {
		ticket := *res.Charged
		s.sched.After("irrigation-complete", ticket.DueAt.Sub(now), func(at time.Time) {
			s.completeIrrigation(at, ticket)
		})
	}
	s.publish(now, res.Events...)
}

func (s *Session) completeIrrigation(now time.Time, t irrigation.Ticket) {
	idx, ok := farm.FindParcel(s.parcels, t.ParcelID)
	if !ok {
		return
	}
	applied, ev := s.irr.Complete(now, &s.parcels[idx], t)
	if !applied {
		s.log.Debug().Int("parcel_id", t.ParcelID).Msg("irrigation voided by harvest")
	}
	s.publish(now, ev)
}

func (s *Session) startTicking() {
	if s.tickJob != nil || s.cfg.TickInterval <= 0 {
		return
	}
	s.tickJob = s.sched.Every("parcel-tick", s.cfg.TickInterval, s.tick)
	s.log.Info().Dur("interval", s.cfg.TickInterval).Msg("growth clock started")
}

func (s *Session) plantedCount() int {
	n := 0
	for _, p := range s.parcels {
		if p.Planted() {
			n++
		}
	}
	return n
}

func (s *Session) publish(now time.Time, events ...farm.DomainEvent) {
	if len(events) == 0 || s.publisher == nil {
		return
	}
	s.publisher.Publish(ports.EventBatch{
		SessionID: s.id,
		Events:    events,
		Score: ports.ScoreRecord{
			SessionID: s.id,
			Balance:   s.player.Balance,
			XP:        s.player.XP,
			Day:       s.day,
			Planted:   s.plantedCount(),
			UpdatedAt: now,
		},
	})
}
