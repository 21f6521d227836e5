package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/threatlens/threatlens-stack/cli/internal/client"
	"github.com/threatlens/threatlens-stack/cli/internal/seeder"
	"github.com/threatlens/threatlens-stack/cli/pkg/output"
	"github.com/threatlens/threatlens-stack/common/logging"
)

var seederCfgFile string

var seederCmd = &cobra.Command{
	Use:   "seeder",
	Short: "Demo data seeder",
	Long:  "Generate realistic network and email records, with injected anomalies, and submit them",
}

var seederRunCmd = &cobra.Command{
	Use:   "run [scenario...]",
	Short: "Run the seeder",
	Long: `Generate records and submit them as the current profile.

Configuration cascade (priority order):
  1. Command-line flags
  2. ./seeder.yaml (project directory)
  3. ~/.tlens/seeder.yaml (user directory)
  4. Built-in defaults

Named scenarios run before the baseline mix; with none named, every
enabled scenario in the config runs.

Examples:
  tlens seeder run --count 500 --anomaly-ratio 0.2
  tlens seeder run flood --count 0
  tlens seeder run --seeder-config ./demo-seeder.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := seeder.LoadConfig(seederCfgFile)
		if err != nil {
			return err
		}
		if err := applySeederFlags(cmd, sc); err != nil {
			return err
		}

		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		level, _ := cmd.Flags().GetString("log-level")
		logger := logging.NewWithWriter(output.Err, logging.ParseLevel(level), "text")

		summary, err := seeder.NewRunner(sc, c, logger).Run(cmd.Context(), args)
		if summary != nil {
			if rerr := render(cmd, summary, func() { printSummary(summary) }); rerr != nil {
				return rerr
			}
		}
		return err
	},
}

func applySeederFlags(cmd *cobra.Command, sc *seeder.Config) error {
	f := cmd.Flags()
	if f.Changed("count") {
		sc.Defaults.Count, _ = f.GetInt("count")
	}
	if f.Changed("kinds") {
		kinds, _ := f.GetString("kinds")
		sc.Defaults.Kinds = strings.Split(kinds, ",")
	}
	if f.Changed("anomaly-ratio") {
		sc.Defaults.AnomalyRatio, _ = f.GetFloat64("anomaly-ratio")
	}
	if f.Changed("concurrency") {
		sc.Defaults.Concurrency, _ = f.GetInt("concurrency")
	}
	if f.Changed("interval") {
		sc.Defaults.Interval, _ = f.GetDuration("interval")
	}
	if f.Changed("seed") {
		sc.Defaults.Seed, _ = f.GetInt64("seed")
	}
	return sc.Validate()
}

func printSummary(s *seeder.Summary) {
	output.Success("Submitted %d records (%d failed)", s.Submitted, s.Failed)
	output.Info("Anomalies: %d  Alerts raised: %d  Prediction errors: %d", s.Anomalies, s.Alerts, s.PredictionErrors)
	renderCounts("Pattern", s.ByPattern)
}

var seederPatternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List available record patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		patterns := map[string][]string{
			client.KindNetwork: seeder.Patterns(client.KindNetwork),
			client.KindEmail:   seeder.Patterns(client.KindEmail),
		}
		return render(cmd, patterns, func() {
			table := output.NewTable([]string{"Kind", "Pattern"})
			for _, kind := range []string{client.KindNetwork, client.KindEmail} {
				for _, p := range patterns[kind] {
					table.AddRow([]string{kind, p})
				}
			}
			table.Render()
		})
	},
}

var seederValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate seeder configuration",
	Long:  "Check if the seeder configuration file is valid without running the seeder",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := seeder.LoadConfig(seederCfgFile)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		return render(cmd, sc, func() {
			output.Success("Configuration is valid")
			output.Info("  Version: %s", sc.Version)
			output.Info("  Count: %d", sc.Defaults.Count)
			output.Info("  Kinds: %v", sc.Defaults.Kinds)
			output.Info("  Anomaly ratio: %.2f", sc.Defaults.AnomalyRatio)
			output.Info("  Concurrency: %d", sc.Defaults.Concurrency)
			for name, s := range sc.Scenarios {
				status := "disabled"
				if s.Enabled {
					status = "enabled"
				}
				output.Info("  - %s (%s/%s x%d): %s", name, s.Kind, s.Pattern, s.Count, status)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(seederCmd)
	seederCmd.AddCommand(seederRunCmd)
	seederCmd.AddCommand(seederPatternsCmd)
	seederCmd.AddCommand(seederValidateCmd)

	seederCmd.PersistentFlags().StringVar(&seederCfgFile, "seeder-config", "", "seeder config file (default: ./seeder.yaml or ~/.tlens/seeder.yaml)")

	rf := seederRunCmd.Flags()
	rf.Int("count", 0, "Baseline records to generate")
	rf.String("kinds", "", "Comma-separated kinds to generate (network,email)")
	rf.Float64("anomaly-ratio", 0, "Share of baseline records drawn from anomaly patterns")
	rf.Int("concurrency", 0, "Parallel submissions")
	rf.Duration("interval", 0, "Delay between submissions")
	rf.Int64("seed", 0, "Random seed (0 picks one)")
	rf.String("log-level", "warn", "Seeder log level")
}
