package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	metricsinmem "satfarm/internal/adapter/metrics/inmemory"
	envdomain "satfarm/internal/domain/environment"
	"satfarm/internal/domain/farm"
)

func weatherCmd(opts *rootOptions) *cobra.Command {
	var lat, lon float64
	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Fetch one environment snapshot and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := bootstrap(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			var hint *farm.Location
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") {
					return fmt.Errorf("--lat and --lon must be given together")
				}
				hint = &farm.Location{Latitude: lat, Longitude: lon}
			}

			uc := w.environmentUseCase(metricsinmem.NewRecorder())
			loc := uc.Default
			prev := envdomain.Fallback(loc, uc.Now())
			snap, fetchErr := uc.Fetch(cmd.Context(), prev, hint)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(snap); err != nil {
				return err
			}
			return fetchErr
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	return cmd
}
