package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	envFiles    []string
	catalogPath string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "satfarm",
		Short:         "Farming simulation driven by NASA POWER weather data",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env", nil, "dotenv files to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "crop catalog YAML (default embedded)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override")

	rootCmd.AddCommand(serveCmd(opts))
	rootCmd.AddCommand(simulateCmd(opts))
	rootCmd.AddCommand(weatherCmd(opts))
	return rootCmd
}
