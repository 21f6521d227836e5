package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// AlertType names the kind of source record an alert was derived from.
type AlertType string

const (
	AlertTypeNetwork AlertType = "network"
	AlertTypeEmail   AlertType = "email"
)

// AlertTypes lists every source kind.
var AlertTypes = []AlertType{AlertTypeNetwork, AlertTypeEmail}

// Reference model names stored on alerts.
const (
	ReferenceModelNetwork = "NetworkTraffic"
	ReferenceModelEmail   = "EmailCommunication"
)

// referenceModels maps each source kind to the reference model recorded on
// its alerts. Every entry in AlertTypes must appear here.
var referenceModels = map[AlertType]string{
	AlertTypeNetwork: ReferenceModelNetwork,
	AlertTypeEmail:   ReferenceModelEmail,
}

// Valid reports whether t is a known source kind.
func (t AlertType) Valid() bool {
	_, ok := referenceModels[t]
	return ok
}

// ReferenceModel returns the reference model name for t.
func (t AlertType) ReferenceModel() (string, bool) {
	m, ok := referenceModels[t]
	return m, ok
}

// AlertTypeForReferenceModel is the inverse of AlertType.ReferenceModel.
func AlertTypeForReferenceModel(model string) (AlertType, bool) {
	for t, m := range referenceModels {
		if m == model {
			return t, true
		}
	}
	return "", false
}

// SourceRef points at the network or email record an alert came from.
type SourceRef struct {
	Kind AlertType
	ID   string
}

// NetworkRef references a network traffic record.
func NetworkRef(id string) SourceRef { return SourceRef{Kind: AlertTypeNetwork, ID: id} }

// EmailRef references an email communication record.
func EmailRef(id string) SourceRef { return SourceRef{Kind: AlertTypeEmail, ID: id} }

func (r SourceRef) String() string { return string(r.Kind) + "/" + r.ID }

// RecordStatus tracks a source record through analysis.
type RecordStatus string

const (
	RecordPending  RecordStatus = "pending"
	RecordAnalyzed RecordStatus = "analyzed"
	RecordReviewed RecordStatus = "reviewed"
)

// Prediction holds the ML verdict attached to a source record. All fields
// stay nil until a prediction succeeds.
type Prediction struct {
	IsAnomaly           *bool      `json:"is_anomaly"`
	AnomalyScore        *float64   `json:"anomaly_score"`
	ThreatClass         *string    `json:"threat_class"`
	Confidence          *float64   `json:"confidence"`
	PredictionTimestamp *time.Time `json:"prediction_timestamp"`
}

// NetworkProtocols are the accepted values for NetworkTraffic.Protocol.
var NetworkProtocols = []string{"tcp", "udp", "icmp", "http", "https", "other"}

// NetworkTraffic is a submitted network flow record.
type NetworkTraffic struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Timestamp          time.Time `json:"timestamp"`
	SourceIP           string    `json:"source_ip"`
	DestinationIP      string    `json:"destination_ip"`
	Protocol           string    `json:"protocol"`
	PacketSize         int64     `json:"packet_size"`
	ConnectionDuration float64   `json:"connection_duration"`
	PortNumber         int       `json:"port_number"`
	PacketsSent        int64     `json:"packets_sent"`
	PacketsReceived    int64     `json:"packets_received"`
	BytesSent          int64     `json:"bytes_sent"`
	BytesReceived      int64     `json:"bytes_received"`
	Prediction
	Status    RecordStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// EmailCommunication is a submitted email metadata record.
type EmailCommunication struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Timestamp      time.Time `json:"timestamp"`
	SenderEmail    string    `json:"sender_email"`
	ReceiverEmail  string    `json:"receiver_email"`
	NumRecipients  int       `json:"num_recipients"`
	EmailSize      int64     `json:"email_size"`
	HasAttachment  bool      `json:"has_attachment"`
	NumAttachments int       `json:"num_attachments"`
	SubjectLength  int       `json:"subject_length"`
	BodyLength     int       `json:"body_length"`
	IsReply        bool      `json:"is_reply"`
	IsForward      bool      `json:"is_forward"`
	Prediction
	Status    RecordStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// SubmitNetworkRequest is the body of POST /network/submit. The same field
// set is forwarded to the prediction service.
type SubmitNetworkRequest struct {
	SourceIP           string  `json:"source_ip"`
	DestinationIP      string  `json:"destination_ip"`
	Protocol           string  `json:"protocol"`
	PacketSize         int64   `json:"packet_size"`
	ConnectionDuration float64 `json:"connection_duration"`
	PortNumber         int     `json:"port_number"`
	PacketsSent        int64   `json:"packets_sent"`
	PacketsReceived    int64   `json:"packets_received"`
	BytesSent          int64   `json:"bytes_sent"`
	BytesReceived      int64   `json:"bytes_received"`
}

// Validate checks required fields and ranges.
func (r *SubmitNetworkRequest) Validate() error {
	if strings.TrimSpace(r.SourceIP) == "" {
		return fmt.Errorf("source_ip is required")
	}
	if strings.TrimSpace(r.DestinationIP) == "" {
		return fmt.Errorf("destination_ip is required")
	}
	proto := strings.ToLower(r.Protocol)
	known := false
	for _, p := range NetworkProtocols {
		if proto == p {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("protocol must be one of %s", strings.Join(NetworkProtocols, ", "))
	}
	if r.PortNumber < 0 || r.PortNumber > 65535 {
		return fmt.Errorf("port_number must be between 0 and 65535")
	}
	if r.PacketSize < 0 || r.PacketsSent < 0 || r.PacketsReceived < 0 || r.BytesSent < 0 || r.BytesReceived < 0 {
		return fmt.Errorf("packet and byte counters must not be negative")
	}
	if r.ConnectionDuration < 0 {
		return fmt.Errorf("connection_duration must not be negative")
	}
	return nil
}

// SubmitEmailRequest is the body of POST /email/submit.
type SubmitEmailRequest struct {
	SenderEmail    string `json:"sender_email"`
	ReceiverEmail  string `json:"receiver_email"`
	NumRecipients  int    `json:"num_recipients"`
	EmailSize      int64  `json:"email_size"`
	HasAttachment  bool   `json:"has_attachment"`
	NumAttachments int    `json:"num_attachments"`
	SubjectLength  int    `json:"subject_length"`
	BodyLength     int    `json:"body_length"`
	IsReply        bool   `json:"is_reply"`
	IsForward      bool   `json:"is_forward"`
}

// Validate checks required fields and ranges.
func (r *SubmitEmailRequest) Validate() error {
	if _, err := mail.ParseAddress(r.SenderEmail); err != nil {
		return fmt.Errorf("sender_email is not a valid address")
	}
	if _, err := mail.ParseAddress(r.ReceiverEmail); err != nil {
		return fmt.Errorf("receiver_email is not a valid address")
	}
	if r.NumRecipients < 1 {
		return fmt.Errorf("num_recipients must be at least 1")
	}
	if r.EmailSize < 0 || r.SubjectLength < 0 || r.BodyLength < 0 || r.NumAttachments < 0 {
		return fmt.Errorf("sizes and counts must not be negative")
	}
	return nil
}

// SourceFilter narrows a source record listing.
type SourceFilter struct {
	AnomalyOnly bool
}

// ListSourcesResponse is the paged source record listing.
type ListSourcesResponse struct {
	Data        interface{} `json:"data"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	Total       int         `json:"total"`
}

// SourceStatistics summarises one user's records of a single kind.
type SourceStatistics struct {
	Total              int            `json:"total"`
	Anomalies          int            `json:"anomalies"`
	Normal             int            `json:"normal"`
	AnomalyPercentage  float64        `json:"anomaly_percentage"`
	ThreatDistribution map[string]int `json:"threat_distribution"`
	RecentAnomalies24h int            `json:"recent_anomalies_24h"`
}

// SubmitResponse is returned by both submit endpoints. PredictionError is set
// when the record was saved but the prediction service failed.
type SubmitResponse struct {
	Message         string      `json:"message"`
	Data            interface{} `json:"data"`
	Prediction      interface{} `json:"prediction,omitempty"`
	AlertID         string      `json:"alert_id,omitempty"`
	PredictionError string      `json:"prediction_error,omitempty"`
}
