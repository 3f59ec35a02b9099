package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	metricsinmem "satfarm/internal/adapter/metrics/inmemory"
	"satfarm/internal/adapter/repo/memory"
	"satfarm/internal/app/action"
	"satfarm/internal/app/ports"
	"satfarm/internal/app/replay"
	"satfarm/internal/app/scheduler"
	"satfarm/internal/app/session"
	"satfarm/internal/app/status"
	"satfarm/internal/domain/farm"
)

var epoch = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

type zeroRandom struct{}

func (zeroRandom) Float64() float64 { return 0 }

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

var testCatalog = stubCatalog{
	"beans": {ID: "beans", Name: "Beans", GrowthDuration: 30, WaterNeeds: 30, MarketPrice: 90, OptimalNDVI: 0.7},
	"maize": {ID: "maize", Name: "Maize", GrowthDuration: 40, WaterNeeds: 50, MarketPrice: 120, OptimalNDVI: 0.75},
}

// journalPublisher appends synchronously so handler reads see every event.
type journalPublisher struct {
	repo   memory.JournalRepo
	scores memory.ScoreboardRepo
}

func (p journalPublisher) Publish(b ports.EventBatch) {
	entries := make([]ports.JournalEntry, 0, len(b.Events))
	for _, e := range b.Events {
		entries = append(entries, ports.JournalEntry{ID: uuid.NewString(), SessionID: b.SessionID, Event: e})
	}
	_ = p.repo.Append(context.Background(), entries)
	_ = p.scores.Upsert(context.Background(), b.Score)
}

type stubEnvironment struct {
	err error
}

func (s stubEnvironment) Fetch(_ context.Context, prev farm.EnvironmentSnapshot, hint *farm.Location) (farm.EnvironmentSnapshot, error) {
	next := prev
	next.RefreshedAt = epoch
	if hint != nil {
		next.Location = *hint
	}
	if s.err != nil {
		next.Advisory = "Live weather unavailable, showing last known conditions"
		return next, s.err
	}
	next.Temperature = 22
	return next, nil
}

type fixture struct {
	h       Handler
	sess    *session.Session
	metrics *metricsinmem.Recorder
}

func newFixture(t *testing.T, mutate func(*session.Config, *session.Deps)) fixture {
	t.Helper()
	sched, _ := scheduler.NewManual(epoch)
	store := memory.NewStore()
	journal := memory.NewJournalRepo(store)
	scores := memory.NewScoreboardRepo(store)
	cfg := session.DefaultConfig()
	deps := session.Deps{
		Scheduler:   sched,
		Catalog:     testCatalog,
		Environment: stubEnvironment{},
		Publisher:   journalPublisher{repo: journal, scores: scores},
		PestRNG:     zeroRandom{},
		Log:         zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	sess := session.New(cfg, deps)
	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("start session: %v", err)
	}
	rec := metricsinmem.NewRecorder()
	h := Handler{
		Farm:       sess,
		ActionUC:   action.UseCase{Session: sess, Metrics: rec, Log: zerolog.Nop()},
		StatusUC:   status.UseCase{Session: sess, Catalog: testCatalog},
		ReplayUC:   replay.UseCase{Journal: journal},
		Scoreboard: scores,
		KPI:        rec,
		Log:        zerolog.Nop(),
	}
	return fixture{h: h, sess: sess, metrics: rec}
}

func newRequest(method, uri, body string) *app.RequestContext {
	ctx := &app.RequestContext{}
	ctx.Request.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBody([]byte(body))
		ctx.Request.Header.SetContentTypeBytes([]byte("application/json"))
	}
	return ctx
}

func decodeBody(t *testing.T, ctx *app.RequestContext) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
		t.Fatalf("unmarshal response %q: %v", ctx.Response.Body(), err)
	}
	return body
}

func errorCode(t *testing.T, ctx *app.RequestContext) string {
	t.Helper()
	body := decodeBody(t, ctx)
	e, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("response has no error object: %v", body)
	}
	code, _ := e["code"].(string)
	return code
}

var errBoom = errors.New("boom")
