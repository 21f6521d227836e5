package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/threatlens/threatlens-stack/cli/internal/client"
	"github.com/threatlens/threatlens-stack/cli/internal/config"
	"github.com/threatlens/threatlens-stack/cli/pkg/output"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tlens",
	Short: "ThreatLens CLI",
	Long: `tlens is the command-line interface for ThreatLens.

Submit network and email records for anomaly analysis, triage the alerts
they raise, and seed demo data from your terminal.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if f := outputFormat(cmd); !output.ValidFormat(f) {
			return fmt.Errorf("unknown output format %q (want table, json or yaml)", f)
		}
		return nil
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		output.Error("%v", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.tlens/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "profile to use (default: current profile)")
	rootCmd.PersistentFlags().StringP("output", "o", output.FormatTable, "output format: table, json, yaml")
	rootCmd.PersistentFlags().String("api-url", "", "respond API URL (default from profile or $"+config.EnvAPIURL+")")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}

func profileName(cmd *cobra.Command) string {
	name, _ := cmd.Flags().GetString("profile")
	if name == "" {
		name = cfg.CurrentProfile
	}
	if name == "" {
		name = "default"
	}
	return name
}

func outputFormat(cmd *cobra.Command) string {
	f, _ := cmd.Flags().GetString("output")
	return f
}

func apiURL(cmd *cobra.Command) string {
	if u, _ := cmd.Flags().GetString("api-url"); u != "" {
		return u
	}
	return cfg.APIURL(profileName(cmd))
}

// apiClient returns a client authenticated as the selected profile.
func apiClient(cmd *cobra.Command) (*client.Client, error) {
	p, err := cfg.GetProfile(profileName(cmd))
	if err != nil {
		return nil, fmt.Errorf("not logged in: %w", err)
	}
	return client.NewClient(apiURL(cmd), p.Token), nil
}

// changedString returns the flag's value when it was set on the command line,
// nil otherwise.
func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func render(cmd *cobra.Command, v interface{}, table func()) error {
	return output.Render(outputFormat(cmd), v, table)
}
