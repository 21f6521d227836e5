package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/threatlens/threatlens-stack/cli/internal/client"
	"github.com/threatlens/threatlens-stack/cli/pkg/output"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit records for anomaly analysis",
	Long: `Submit a network flow or email record. The record is stored, scored by
the prediction service and, when anomalous, raises an alert.

Fields come from flags or from a JSON file given with --file.`,
}

var submitNetworkCmd = &cobra.Command{
	Use:   "network",
	Short: "Submit a network traffic record",
	RunE: func(cmd *cobra.Command, args []string) error {
		rec := &client.NetworkTraffic{}
		if err := readRecordFile(cmd, rec); err != nil {
			return err
		}
		f := cmd.Flags()
		setString(cmd, "source-ip", &rec.SourceIP)
		setString(cmd, "destination-ip", &rec.DestinationIP)
		if rec.Protocol == "" || f.Changed("protocol") {
			rec.Protocol, _ = f.GetString("protocol")
		}
		if f.Changed("port") {
			rec.PortNumber, _ = f.GetInt("port")
		}
		if f.Changed("packet-size") {
			rec.PacketSize, _ = f.GetInt64("packet-size")
		}
		if f.Changed("duration") {
			rec.ConnectionDuration, _ = f.GetFloat64("duration")
		}
		if f.Changed("packets-sent") {
			rec.PacketsSent, _ = f.GetInt64("packets-sent")
		}
		if f.Changed("packets-received") {
			rec.PacketsReceived, _ = f.GetInt64("packets-received")
		}
		if f.Changed("bytes-sent") {
			rec.BytesSent, _ = f.GetInt64("bytes-sent")
		}
		if f.Changed("bytes-received") {
			rec.BytesReceived, _ = f.GetInt64("bytes-received")
		}

		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		res, err := c.SubmitNetwork(cmd.Context(), rec)
		if err != nil {
			return fmt.Errorf("failed to submit network record: %w", err)
		}
		return renderSubmit(cmd, res)
	},
}

var submitEmailCmd = &cobra.Command{
	Use:   "email",
	Short: "Submit an email communication record",
	RunE: func(cmd *cobra.Command, args []string) error {
		rec := &client.EmailCommunication{NumRecipients: 1}
		if err := readRecordFile(cmd, rec); err != nil {
			return err
		}
		f := cmd.Flags()
		setString(cmd, "sender", &rec.SenderEmail)
		setString(cmd, "receiver", &rec.ReceiverEmail)
		if f.Changed("recipients") {
			rec.NumRecipients, _ = f.GetInt("recipients")
		}
		if f.Changed("size") {
			rec.EmailSize, _ = f.GetInt64("size")
		}
		if f.Changed("attachments") {
			rec.NumAttachments, _ = f.GetInt("attachments")
			rec.HasAttachment = rec.NumAttachments > 0
		}
		if f.Changed("subject-length") {
			rec.SubjectLength, _ = f.GetInt("subject-length")
		}
		if f.Changed("body-length") {
			rec.BodyLength, _ = f.GetInt("body-length")
		}
		if f.Changed("reply") {
			rec.IsReply, _ = f.GetBool("reply")
		}
		if f.Changed("forward") {
			rec.IsForward, _ = f.GetBool("forward")
		}

		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		res, err := c.SubmitEmail(cmd.Context(), rec)
		if err != nil {
			return fmt.Errorf("failed to submit email record: %w", err)
		}
		return renderSubmit(cmd, res)
	},
}

// readRecordFile fills rec from --file when given. Flags applied afterwards
// override file values.
func readRecordFile(cmd *cobra.Command, rec interface{}) error {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read record file: %w", err)
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return fmt.Errorf("failed to parse record file: %w", err)
	}
	return nil
}

func setString(cmd *cobra.Command, flag string, dst *string) {
	if cmd.Flags().Changed(flag) {
		*dst, _ = cmd.Flags().GetString(flag)
	}
}

func renderSubmit(cmd *cobra.Command, res *client.SubmitResult) error {
	return render(cmd, res, func() {
		output.Success("%s", res.Message)
		if id, ok := res.Data["id"].(string); ok {
			output.Info("Record ID: %s", id)
		}
		switch {
		case res.PredictionError != "":
			output.Warn("Prediction failed: %s (record saved as pending)", res.PredictionError)
		case res.Prediction != nil && res.Prediction.IsAnomaly:
			threat := "unknown"
			if res.Prediction.ThreatClass != nil {
				threat = *res.Prediction.ThreatClass
			}
			score := 0.0
			if res.Prediction.AnomalyScore != nil {
				score = *res.Prediction.AnomalyScore
			}
			output.Warn("Anomaly detected: %s (score %.2f)", threat, score)
		case res.Prediction != nil:
			output.Info("No anomaly detected")
		}
		if res.AlertID != "" {
			output.Info("Alert raised: %s", res.AlertID)
		}
	})
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.AddCommand(submitNetworkCmd)
	submitCmd.AddCommand(submitEmailCmd)

	submitCmd.PersistentFlags().StringP("file", "f", "", "JSON file with the record fields")

	nf := submitNetworkCmd.Flags()
	nf.String("source-ip", "", "Source IP address")
	nf.String("destination-ip", "", "Destination IP address")
	nf.String("protocol", "tcp", "Protocol (tcp, udp, icmp, http, https, other)")
	nf.Int("port", 0, "Destination port")
	nf.Int64("packet-size", 0, "Average packet size in bytes")
	nf.Float64("duration", 0, "Connection duration in seconds")
	nf.Int64("packets-sent", 0, "Packets sent")
	nf.Int64("packets-received", 0, "Packets received")
	nf.Int64("bytes-sent", 0, "Bytes sent")
	nf.Int64("bytes-received", 0, "Bytes received")

	ef := submitEmailCmd.Flags()
	ef.String("sender", "", "Sender address")
	ef.String("receiver", "", "Receiver address")
	ef.Int("recipients", 1, "Number of recipients")
	ef.Int64("size", 0, "Message size in bytes")
	ef.Int("attachments", 0, "Number of attachments")
	ef.Int("subject-length", 0, "Subject length in characters")
	ef.Int("body-length", 0, "Body length in characters")
	ef.Bool("reply", false, "Message is a reply")
	ef.Bool("forward", false, "Message is a forward")
}
