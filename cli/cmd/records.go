package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/threatlens/threatlens-stack/cli/internal/client"
	"github.com/threatlens/threatlens-stack/cli/pkg/output"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Browse submitted records",
	Long:  "List, inspect and delete submitted network and email records. KIND is network or email.",
}

var kindArgs = []string{client.KindNetwork, client.KindEmail}

var recordsListCmd = &cobra.Command{
	Use:       "list [kind]",
	Aliases:   []string{"ls"},
	Short:     "List records of a kind",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: kindArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")
		anomalyOnly, _ := cmd.Flags().GetBool("anomaly-only")

		list, err := c.ListRecords(cmd.Context(), args[0], page, limit, anomalyOnly)
		if err != nil {
			return fmt.Errorf("failed to list records: %w", err)
		}

		return render(cmd, list, func() {
			if len(list.Data) == 0 {
				output.Info("No records found")
				return
			}

			var table *output.Table
			if args[0] == client.KindEmail {
				table = output.NewTable([]string{"ID", "Sender", "Receiver", "Status", "Anomaly", "Threat"})
				for _, r := range list.Data {
					table.AddRow([]string{str(r["id"]), str(r["sender_email"]), str(r["receiver_email"]), str(r["status"]), str(r["is_anomaly"]), str(r["threat_class"])})
				}
			} else {
				table = output.NewTable([]string{"ID", "Source", "Destination", "Proto", "Port", "Status", "Anomaly", "Threat"})
				for _, r := range list.Data {
					table.AddRow([]string{str(r["id"]), str(r["source_ip"]), str(r["destination_ip"]), str(r["protocol"]), str(r["port_number"]), str(r["status"]), str(r["is_anomaly"]), str(r["threat_class"])})
				}
			}
			table.Render()
			output.Info("\nPage %d of %d (%d total records)", list.CurrentPage, list.TotalPages, list.Total)
		})
	},
}

var recordsGetCmd = &cobra.Command{
	Use:   "get [kind] [id]",
	Short: "Show one record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		rec, err := c.GetRecord(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to get record: %w", err)
		}

		return render(cmd, rec, func() {
			keys := make([]string, 0, len(rec))
			for k := range rec {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			table := output.NewTable([]string{"Field", "Value"})
			for _, k := range keys {
				table.AddRow([]string{k, str(rec[k])})
			}
			table.Render()
		})
	},
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete [kind] [id]",
	Short: "Delete a record",
	Long:  "Delete a record. Alerts raised for it are kept.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		if err := c.DeleteRecord(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}

		output.Success("Record %s/%s deleted", args[0], args[1])
		return nil
	},
}

var recordsStatsCmd = &cobra.Command{
	Use:       "stats [kind]",
	Short:     "Show record statistics for a kind",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: kindArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		stats, err := c.RecordStatistics(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get record statistics: %w", err)
		}

		return render(cmd, stats, func() {
			output.Info("Total:     %d", stats.Total)
			output.Info("Anomalies: %d (%.1f%%)", stats.Anomalies, stats.AnomalyPercentage)
			output.Info("Normal:    %d", stats.Normal)
			output.Info("Anomalies in the last 24h: %d", stats.RecentAnomalies24h)
			renderCounts("Threat", stats.ThreatDistribution)
		})
	},
}

// str formats a decoded JSON value for a table cell; null renders as "-".
func str(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%.2f", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsGetCmd)
	recordsCmd.AddCommand(recordsDeleteCmd)
	recordsCmd.AddCommand(recordsStatsCmd)

	recordsListCmd.Flags().Int("page", 1, "Page number")
	recordsListCmd.Flags().Int("limit", 0, "Results per page (default: server setting)")
	recordsListCmd.Flags().Bool("anomaly-only", false, "Only show anomalous records")
}
