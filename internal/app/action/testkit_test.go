package action

import (
	"context"

	"satfarm/internal/app/session"
	"satfarm/internal/domain/farm"
)

type stubRunner struct {
	got    []session.ActionCommand
	result session.ActionResult
	err    error
}

func (r *stubRunner) ApplyAction(_ context.Context, cmd session.ActionCommand) (session.ActionResult, error) {
	r.got = append(r.got, cmd)
	return r.result, r.err
}

type stubMetrics struct {
	success  map[farm.ActionType]int
	rejected map[string]int
	failure  int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{success: map[farm.ActionType]int{}, rejected: map[string]int{}}
}

func (m *stubMetrics) RecordSuccess(action farm.ActionType) { m.success[action]++ }
func (m *stubMetrics) RecordRejected(reason string)         { m.rejected[reason]++ }
func (m *stubMetrics) RecordFailure()                       { m.failure++ }
