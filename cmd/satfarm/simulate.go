package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"satfarm/internal/adapter/export"
	"satfarm/internal/app/journal"
	"satfarm/internal/app/scheduler"
	"satfarm/internal/app/session"
	"satfarm/internal/domain/farm"
)

type simulateOptions struct {
	ticks      int
	crop       string
	parcels    []int
	auto       bool
	harvest    bool
	exportPath string
	seed       int64
	start      string
}

type simulateSummary struct {
	SessionID string               `json:"session_id"`
	Day       int                  `json:"day"`
	Player    farm.Player          `json:"player"`
	Parcels   []session.ParcelView `json:"parcels"`
	Harvested map[int]int          `json:"harvested,omitempty"`
	Exported  int                  `json:"exported,omitempty"`
}

func simulateCmd(opts *rootOptions) *cobra.Command {
	so := simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a headless session on a manual clock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := bootstrap(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if so.seed != 0 {
				w.cfg.Seed = so.seed
			}
			return runSimulate(cmd.Context(), w, so, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&so.ticks, "ticks", "n", 30, "number of growth ticks to run")
	cmd.Flags().StringVar(&so.crop, "crop", "", "crop to plant (default first catalog crop)")
	cmd.Flags().IntSliceVar(&so.parcels, "parcels", []int{1}, "parcel ids to plant")
	cmd.Flags().BoolVar(&so.auto, "auto-irrigation", true, "enable automatic irrigation")
	cmd.Flags().BoolVar(&so.harvest, "harvest", false, "harvest every planted parcel at the end")
	cmd.Flags().StringVar(&so.exportPath, "export", "", "write the journal as zstd JSONL to this path")
	cmd.Flags().Int64Var(&so.seed, "seed", 0, "random seed (default from config or clock)")
	cmd.Flags().StringVar(&so.start, "start", "", "simulated start time, RFC3339")
	return cmd
}

// runSimulate plays a session offline: the environment stays on fallback
// values and only jitter moves it.
func runSimulate(ctx context.Context, w wiring, so simulateOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if so.ticks < 0 {
		return fmt.Errorf("ticks must be >= 0, got %d", so.ticks)
	}
	start := time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)
	if so.start != "" {
		t, err := time.Parse(time.RFC3339, so.start)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		start = t
	}
	crop := farm.CropID(so.crop)
	if crop == "" {
		crops := w.catalog.Crops()
		if len(crops) == 0 {
			return fmt.Errorf("catalog has no crops")
		}
		crop = crops[0].ID
	}

	st, err := openStores(ctx, w.cfg)
	if err != nil {
		return err
	}
	defer st.close()

	writer := journal.NewWriter(journal.WriterConfig{
		TxManager:  st.tx,
		Journal:    st.journal,
		Scoreboard: st.scores,
		Log:        w.log,
		Buffer:     w.cfg.JournalBuffer,
	})

	sessCfg := w.catalog.SessionConfig()
	sessCfg.Location = w.location()
	sessCfg.AutoIrrigation = so.auto
	sessCfg.RefreshInterval = 0
	pestRNG, jitterRNG := w.randomSources()
	sched, _ := scheduler.NewManual(start)
	sess := session.New(sessCfg, session.Deps{
		Scheduler: sched,
		Catalog:   w.catalog,
		Publisher: writer,
		PestRNG:   pestRNG,
		JitterRNG: jitterRNG,
		Log:       w.log,
	})
	if err := sess.Start(ctx); err != nil {
		return err
	}
	for _, id := range so.parcels {
		if _, err := sess.ApplyAction(ctx, session.ActionCommand{ParcelID: id, Action: farm.ActionPlant, CropID: crop}); err != nil {
			return fmt.Errorf("plant parcel %d: %w", id, err)
		}
	}
	for i := 0; i < so.ticks; i++ {
		sched.Advance(sessCfg.TickInterval)
	}

	summary := simulateSummary{SessionID: sess.ID()}
	if so.harvest {
		summary.Harvested = map[int]int{}
		for _, id := range so.parcels {
			res, err := sess.ApplyAction(ctx, session.ActionCommand{ParcelID: id, Action: farm.ActionHarvest})
			if err != nil {
				w.log.Warn().Err(err).Int("parcel_id", id).Msg("harvest skipped")
				continue
			}
			summary.Harvested[id] = res.Yield
		}
	}

	view, err := sess.Snapshot(ctx)
	if err != nil {
		return err
	}
	_ = sess.Stop(ctx)
	if err := writer.Close(); err != nil {
		return err
	}
	if n := writer.Dropped(); n > 0 {
		w.log.Warn().Uint64("dropped", n).Msg("journal buffer overflowed")
	}

	summary.Day = view.Day
	summary.Player = view.Player
	for _, p := range view.Parcels {
		if p.Planted() || containsInt(so.parcels, p.ID) {
			summary.Parcels = append(summary.Parcels, p)
		}
	}
	if so.exportPath != "" {
		n, err := export.ExportJournal(ctx, st.journal, sess.ID(), so.exportPath, 0)
		if err != nil {
			return err
		}
		summary.Exported = n
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
