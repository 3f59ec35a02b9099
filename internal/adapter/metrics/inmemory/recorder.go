package inmemory

import (
	"sync"

	"satfarm/internal/domain/farm"
)

type Snapshot struct {
	ActionTotal     uint64            `json:"action_total"`
	ActionSuccess   uint64            `json:"action_success"`
	ActionRejected  uint64            `json:"action_rejected"`
	ActionFailure   uint64            `json:"action_failure"`
	ByAction        map[string]uint64 `json:"by_action"`
	ByRejection     map[string]uint64 `json:"by_rejection"`
	RefreshOK       uint64            `json:"refresh_ok"`
	RefreshDegraded uint64            `json:"refresh_degraded"`
}

type Recorder struct {
	mu          sync.Mutex
	success     uint64
	rejected    uint64
	failure     uint64
	byAction    map[string]uint64
	byRejection map[string]uint64
	refreshOK   uint64
	refreshBad  uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		byAction:    map[string]uint64{},
		byRejection: map[string]uint64{},
	}
}

func (r *Recorder) RecordSuccess(action farm.ActionType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success++
	r.byAction[string(action)]++
}

func (r *Recorder) RecordRejected(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected++
	r.byRejection[reason]++
}

func (r *Recorder) RecordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure++
}

func (r *Recorder) RecordRefresh(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.refreshOK++
		return
	}
	r.refreshBad++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		ActionSuccess:   r.success,
		ActionRejected:  r.rejected,
		ActionFailure:   r.failure,
		ActionTotal:     r.success + r.rejected + r.failure,
		ByAction:        make(map[string]uint64, len(r.byAction)),
		ByRejection:     make(map[string]uint64, len(r.byRejection)),
		RefreshOK:       r.refreshOK,
		RefreshDegraded: r.refreshBad,
	}
	for k, v := range r.byAction {
		out.ByAction[k] = v
	}
	for k, v := range r.byRejection {
		out.ByRejection[k] = v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
