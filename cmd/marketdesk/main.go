// Command marketdesk drives the marketplace admin resource stores from the
// command line and runs the local sandbox API.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/HerbHall/marketdesk/internal/config"
)

var (
	// Persistent flags available to all subcommands.
	cfgFile      string
	outputFormat string
	logLevel     string

	settings *config.Settings
	logger   = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "marketdesk",
	Short: "marketdesk manages marketplace resources from the command line",
	Long: `marketdesk lists, inspects and moderates marketplace resources (accounts,
products, services, deliveries, disputes and finance records) through the admin API.

Configuration is read from --config, ./marketdesk.yaml or the user config
directory, and MARKETDESK_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		s, _, err := config.LoadSettings(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			s.Log.Level = logLevel
		}
		l, err := newLogger(s.Log)
		if err != nil {
			return err
		}
		settings, logger = s, l
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger builds a stderr zap logger at the configured level.
func newLogger(s config.LogSettings) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(s.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", s.Level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	if strings.EqualFold(s.Format, "console") {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return cfg.Build()
}
