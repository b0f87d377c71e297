// Package cmd implements wireprobe's cobra command tree.
//
// Grounded on strand-protocol-strand/strandctl/cmd/root.go's root command
// shape (persistent --config flag, PersistentPreRunE loading config before
// any subcommand runs); adapted here to load via internal/config instead
// of that tool's bespoke config.Load.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexbridge/wiretransport/internal/config"
	"github.com/nexbridge/wiretransport/internal/logging"
)

var (
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:           "wireprobe",
	Short:         "Probe a peer's ping/pong latency engine over UDP",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		logging.SetLevel(parseLevel(cfg.LogLevel))
		return nil
	},
}

// Execute runs the root command, exiting the process on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./wiretransport.yaml or ~/.wiretransport/wiretransport.yaml)")
}
