package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "satfarm/internal/adapter/http"
	metricsinmem "satfarm/internal/adapter/metrics/inmemory"
	"satfarm/internal/adapter/stream"
	"satfarm/internal/app/action"
	"satfarm/internal/app/journal"
	"satfarm/internal/app/replay"
	"satfarm/internal/app/scheduler"
	"satfarm/internal/app/session"
	"satfarm/internal/app/status"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var httpAddr, streamAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation with the HTTP API and observer stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := bootstrap(opts, os.Stderr)
			if err != nil {
				return err
			}
			if httpAddr != "" {
				w.cfg.HTTPAddr = httpAddr
			}
			if streamAddr != "" {
				w.cfg.StreamAddr = streamAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, w)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP API listen address")
	cmd.Flags().StringVar(&streamAddr, "stream", "", "observer websocket listen address")
	return cmd
}

func runServe(ctx context.Context, w wiring) error {
	log := w.log
	st, err := openStores(ctx, w.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
	}()

	recorder := metricsinmem.NewRecorder()
	writer := journal.NewWriter(journal.WriterConfig{
		TxManager:  st.tx,
		Journal:    st.journal,
		Scoreboard: st.scores,
		Log:        log,
		Buffer:     w.cfg.JournalBuffer,
	})
	hub := stream.NewHub(log)

	sessCfg := w.catalog.SessionConfig()
	sessCfg.Location = w.location()
	pestRNG, jitterRNG := w.randomSources()
	sched := scheduler.New(nil)
	sess := session.New(sessCfg, session.Deps{
		Scheduler:   sched,
		Catalog:     w.catalog,
		Environment: w.environmentUseCase(recorder),
		Publisher:   journal.Fanout{writer, hub},
		PestRNG:     pestRNG,
		JitterRNG:   jitterRNG,
		Log:         log,
	})

	h := httpadapter.Handler{
		Farm:       sess,
		ActionUC:   action.UseCase{Session: sess, Metrics: recorder, Log: log},
		StatusUC:   status.UseCase{Session: sess, Catalog: w.catalog},
		ReplayUC:   replay.UseCase{Journal: st.journal},
		Scoreboard: st.scores,
		KPI:        recorder,
		Log:        log,

		AllowOrigin: w.cfg.CORSOrigin,
	}
	api := server.Default(server.WithHostPorts(w.cfg.HTTPAddr))
	h.RegisterRoutes(api)

	mux := http.NewServeMux()
	mux.Handle("/observe", hub.Handler())
	observer := &http.Server{Addr: w.cfg.StreamAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	if err := sess.Start(gctx); err != nil {
		return err
	}

	g.Go(func() error {
		if err := sched.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if _, err := sess.RefreshEnvironment(gctx, nil); err != nil {
			log.Warn().Err(err).Msg("initial environment refresh degraded")
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", w.cfg.HTTPAddr).Str("session", sess.ID()).Msg("http api listening")
		if err := api.Run(); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", w.cfg.StreamAddr).Msg("observer stream listening")
		if err := observer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hub.Close()
		return errors.Join(api.Shutdown(shutdownCtx), observer.Shutdown(shutdownCtx))
	})

	err = g.Wait()
	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = sess.Stop(stopCtx)
	_ = writer.Close()
	log.Info().
		Uint64("journal_written", writer.Written()).
		Uint64("journal_dropped", writer.Dropped()).
		Uint64("observer_dropped", hub.Dropped()).
		Msg("server stopped")
	return err
}
