package replay

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"satfarm/internal/app/ports"
)

var ErrInvalidRequest = errors.New("invalid replay request")

const DefaultLimit = 200

type UseCase struct {
	Journal ports.JournalRepository
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.SessionID) == "" || req.Limit < 0 {
		return Response{}, ErrInvalidRequest
	}
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}
	entries, err := u.Journal.ListBySession(ctx, req.SessionID, req.Limit)
	if err != nil {
		return Response{}, err
	}
	entries = filterByTimeWindow(entries, req.OccurredFrom, req.OccurredTo)
	entries = filterByType(entries, req.Types)
	return Response{Entries: entries, Parcels: reconstruct(entries)}, nil
}

func filterByTimeWindow(entries []ports.JournalEntry, from, to int64) []ports.JournalEntry {
	if from <= 0 && to <= 0 {
		return entries
	}
	out := make([]ports.JournalEntry, 0, len(entries))
	for _, e := range entries {
		ts := e.Event.OccurredAt.Unix()
		if from > 0 && ts < from {
			continue
		}
		if to > 0 && ts > to {
			continue
		}
		out = append(out, e)
	}
	return out
}

func filterByType(entries []ports.JournalEntry, types []string) []ports.JournalEntry {
	if len(types) == 0 {
		return entries
	}
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[strings.TrimSpace(t)] = true
	}
	out := make([]ports.JournalEntry, 0, len(entries))
	for _, e := range entries {
		if want[e.Event.Type] {
			out = append(out, e)
		}
	}
	return out
}

// reconstruct replays state_after payloads in journal order.
func reconstruct(entries []ports.JournalEntry) []ParcelState {
	byParcel := map[int]ParcelState{}
	for _, e := range entries {
		after, ok := e.Event.Payload["state_after"].(map[string]any)
		if !ok {
			continue
		}
		id := int(num(e.Event.Payload["parcel_id"]))
		if id <= 0 {
			continue
		}
		crop, _ := after["crop"].(string)
		byParcel[id] = ParcelState{
			ParcelID:   id,
			Crop:       crop,
			Growth:     num(after["growth"]),
			Health:     num(after["health"]),
			Water:      num(after["water"]),
			Fertilizer: num(after["fertilizer"]),
			Pest:       num(after["pest"]),
		}
	}
	out := make([]ParcelState, 0, len(byParcel))
	for _, s := range byParcel {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParcelID < out[j].ParcelID })
	return out
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		if t, ok := v.(time.Time); ok {
			return float64(t.Unix())
		}
		return 0
	}
}
