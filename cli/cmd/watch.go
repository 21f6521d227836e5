package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/threatlens/threatlens-stack/cli/pkg/output"
	"github.com/threatlens/threatlens-stack/common/logging"
	"github.com/threatlens/threatlens-stack/common/messaging"
	natsclient "github.com/threatlens/threatlens-stack/common/messaging/nats"
)

// alertEvent is the union of the respond service's alert event payloads.
type alertEvent struct {
	AlertID      string  `json:"alert_id" yaml:"alert_id"`
	UserID       string  `json:"user_id" yaml:"user_id"`
	AlertType    string  `json:"alert_type,omitempty" yaml:"alert_type,omitempty"`
	ThreatClass  string  `json:"threat_class,omitempty" yaml:"threat_class,omitempty"`
	Severity     string  `json:"severity,omitempty" yaml:"severity,omitempty"`
	AnomalyScore float64 `json:"anomaly_score,omitempty" yaml:"anomaly_score,omitempty"`
	Change       string  `json:"change,omitempty" yaml:"change,omitempty"`
	Status       string  `json:"status,omitempty" yaml:"status,omitempty"`
	Event        string  `json:"event" yaml:"event"`
}

var alertsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream alert events as they happen",
	Long: `Subscribe to the respond service's alert events on NATS and print them
until interrupted. Requires the service to run with nats.enabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("nats-url")
		user, _ := cmd.Flags().GetString("user")

		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = url
		natsCfg.Name = "tlens-watch"
		nc, err := natsclient.NewClient(natsCfg, logging.NewWithWriter(output.Err, slog.LevelWarn, "text").Logger)
		if err != nil {
			return err
		}
		defer nc.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if outputFormat(cmd) == output.FormatTable {
			output.Info("Watching %s on %s (Ctrl-C to stop)", messaging.SubjectAlertsAll, url)
		}
		return watchAlerts(ctx, nc, outputFormat(cmd), user)
	},
}

// watchAlerts prints alert events received from sub until ctx is done.
// A non-empty userID keeps only that owner's events.
func watchAlerts(ctx context.Context, sub messaging.Subscriber, format, userID string) error {
	events := make(chan *messaging.Message, 64)
	s, err := sub.Subscribe(messaging.SubjectAlertsAll, func(_ context.Context, msg *messaging.Message) error {
		select {
		case events <- msg:
			return nil
		default:
			return fmt.Errorf("watch buffer full, dropped %s", msg.Subject)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer s.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-events:
			if userID != "" && msg.Metadata[messaging.HeaderUserID] != userID {
				continue
			}
			if err := printEvent(msg, format); err != nil {
				output.Warn("skipping malformed event on %s: %v", msg.Subject, err)
			}
		}
	}
}

func printEvent(msg *messaging.Message, format string) error {
	var ev alertEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		return err
	}
	ev.Event = msg.Subject[strings.LastIndex(msg.Subject, ".")+1:]

	switch format {
	case output.FormatJSON:
		return output.JSON(ev)
	case output.FormatYAML:
		return output.YAML(ev)
	}

	ts := msg.Timestamp.Local().Format("15:04:05")
	switch ev.Event {
	case "created":
		output.Info("%s  %-8s %s  %s %s/%s score=%.2f", ts, ev.Event, ev.AlertID,
			output.Severity(ev.Severity), ev.AlertType, ev.ThreatClass, ev.AnomalyScore)
	case "updated":
		output.Info("%s  %-8s %s  %s -> %s", ts, ev.Event, ev.AlertID, ev.Change, ev.Status)
	default:
		output.Info("%s  %-8s %s", ts, ev.Event, ev.AlertID)
	}
	return nil
}

func init() {
	alertsCmd.AddCommand(alertsWatchCmd)

	alertsWatchCmd.Flags().String("nats-url", natsclient.DefaultConfig().URL, "NATS server URL")
	alertsWatchCmd.Flags().String("user", "", "Only show events for this user ID")
}
