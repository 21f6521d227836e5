package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/threatlens/threatlens-stack/cli/internal/client"
	"github.com/threatlens/threatlens-stack/cli/pkg/output"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Alert triage",
	Long:  "View and work the alerts raised from anomalous records",
}

var alertsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")
		status, _ := cmd.Flags().GetString("status")
		severity, _ := cmd.Flags().GetString("severity")
		alertType, _ := cmd.Flags().GetString("type")

		list, err := c.ListAlerts(cmd.Context(), page, limit, client.AlertFilter{
			Status:    status,
			Severity:  severity,
			AlertType: alertType,
		})
		if err != nil {
			return fmt.Errorf("failed to list alerts: %w", err)
		}

		return render(cmd, list, func() {
			if len(list.Data) == 0 {
				output.Info("No alerts found")
				return
			}

			table := output.NewTable([]string{"ID", "Type", "Threat", "Severity", "Score", "Status", "Detected At"})
			for _, a := range list.Data {
				table.AddRow([]string{
					a.ID,
					a.AlertType,
					a.ThreatClass,
					output.Severity(a.Severity),
					fmt.Sprintf("%.2f", a.AnomalyScore),
					a.Status,
					a.DetectedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			table.Render()
			output.Info("\nPage %d of %d (%d total alerts)", list.CurrentPage, list.TotalPages, list.Total)
		})
	},
}

var alertsGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get alert details",
	Long:  "Show an alert together with the record it was raised for",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		detail, err := c.GetAlert(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get alert: %w", err)
		}

		return render(cmd, detail, func() {
			printAlert(detail.Alert)

			if detail.OriginalData == nil {
				output.Warn("Source record %s/%s no longer exists", detail.Alert.ReferenceModel, detail.Alert.ReferenceID)
				return
			}
			output.Info("\nSource record (%s):", detail.Alert.ReferenceModel)
			keys := make([]string, 0, len(detail.OriginalData))
			for k := range detail.OriginalData {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			table := output.NewTable([]string{"Field", "Value"})
			for _, k := range keys {
				table.AddRow([]string{k, fmt.Sprintf("%v", detail.OriginalData[k])})
			}
			table.Render()
		})
	},
}

func printAlert(a *client.Alert) {
	output.Info("Alert ID:   %s", a.ID)
	output.Info("Type:       %s", a.AlertType)
	output.Info("Threat:     %s", a.ThreatClass)
	output.Info("Severity:   %s (priority %d)", output.Severity(a.Severity), a.Priority)
	output.Info("Score:      %.2f (confidence %.2f)", a.AnomalyScore, a.Confidence)
	output.Info("Status:     %s", a.Status)
	if a.AssignedTo != nil {
		output.Info("Assigned:   %s", *a.AssignedTo)
	}
	output.Info("Detected:   %s", a.DetectedAt.Local().Format("2006-01-02 15:04:05"))
	if a.AcknowledgedAt != nil {
		output.Info("Acknowledged: %s", a.AcknowledgedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if a.ResolvedAt != nil {
		output.Info("Resolved:   %s", a.ResolvedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if a.Details != "" {
		output.Info("Details:    %s", a.Details)
	}

	if len(a.Notes) > 0 {
		output.Info("\nNotes:")
		for _, n := range a.Notes {
			output.Info("  [%s] %s: %s", n.Timestamp.Local().Format("2006-01-02 15:04"), n.User, n.Note)
		}
	}
	if len(a.ActionsTaken) > 0 {
		output.Info("\nActions taken:")
		for _, act := range a.ActionsTaken {
			output.Info("  [%s] %s: %s", act.Timestamp.Local().Format("2006-01-02 15:04"), act.User, act.Action)
		}
	}
}

var alertsStatusCmd = &cobra.Command{
	Use:   "status [id]",
	Short: "Change an alert's status or assignee",
	Long: `Move an alert through new, acknowledged, investigating, resolved and
false_positive, and/or assign it.

Examples:
  tlens alerts status 3f1c... --set investigating --assign 9a2b...
  tlens alerts status 3f1c... --unassign`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := changedString(cmd, "set")
		assignee := changedString(cmd, "assign")
		if unassign, _ := cmd.Flags().GetBool("unassign"); unassign {
			if assignee != nil {
				return fmt.Errorf("--assign and --unassign are mutually exclusive")
			}
			empty := ""
			assignee = &empty
		}
		if status == nil && assignee == nil {
			return fmt.Errorf("nothing to change: pass --set, --assign or --unassign")
		}

		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		a, err := c.UpdateAlertStatus(cmd.Context(), args[0], status, assignee)
		if err != nil {
			return fmt.Errorf("failed to update alert: %w", err)
		}

		return render(cmd, a, func() {
			output.Success("Alert %s is now %s", a.ID, a.Status)
		})
	},
}

var alertsNoteCmd = &cobra.Command{
	Use:   "note [id] [text...]",
	Short: "Add an investigation note",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		a, err := c.AddNote(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("failed to add note: %w", err)
		}

		return render(cmd, a, func() {
			output.Success("Note added to alert %s (%d notes)", a.ID, len(a.Notes))
		})
	},
}

var alertsActionCmd = &cobra.Command{
	Use:   "action [id] [text...]",
	Short: "Record a response action",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		a, err := c.AddAction(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("failed to record action: %w", err)
		}

		return render(cmd, a, func() {
			output.Success("Action recorded on alert %s (%d actions)", a.ID, len(a.ActionsTaken))
		})
	},
}

var alertsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		if err := c.DeleteAlert(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete alert: %w", err)
		}

		output.Success("Alert %s deleted", args[0])
		return nil
	},
}

var alertsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show alert statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		stats, err := c.AlertStatistics(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get alert statistics: %w", err)
		}

		return render(cmd, stats, func() {
			output.Info("Total alerts: %d (%d in the last 24h)", stats.TotalAlerts, stats.RecentAlerts24h)
			renderCounts("Status", stats.ByStatus)
			renderCounts("Severity", stats.SeverityDistribution)
			renderCounts("Threat", stats.ThreatDistribution)
			renderCounts("Type", stats.TypeDistribution)
		})
	},
}

// renderCounts prints a two-column table of counts, largest first.
func renderCounts(label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	fmt.Fprintln(output.Out)
	table := output.NewTable([]string{label, "Count"})
	for _, k := range keys {
		table.AddRow([]string{k, fmt.Sprintf("%d", counts[k])})
	}
	table.Render()
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsGetCmd)
	alertsCmd.AddCommand(alertsStatusCmd)
	alertsCmd.AddCommand(alertsNoteCmd)
	alertsCmd.AddCommand(alertsActionCmd)
	alertsCmd.AddCommand(alertsDeleteCmd)
	alertsCmd.AddCommand(alertsStatsCmd)

	alertsListCmd.Flags().Int("page", 1, "Page number")
	alertsListCmd.Flags().Int("limit", 0, "Results per page (default: server setting)")
	alertsListCmd.Flags().String("status", "", "Filter by status")
	alertsListCmd.Flags().String("severity", "", "Filter by severity (low, medium, high, critical)")
	alertsListCmd.Flags().String("type", "", "Filter by alert type (network, email)")

	alertsStatusCmd.Flags().String("set", "", "New status")
	alertsStatusCmd.Flags().String("assign", "", "Assign to user ID")
	alertsStatusCmd.Flags().Bool("unassign", false, "Clear the assignment")
}
