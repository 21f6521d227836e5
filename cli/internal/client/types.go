package client

import "time"

// Alert mirrors the server's alert document.
type Alert struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	AlertType      string     `json:"alert_type"`
	ThreatClass    string     `json:"threat_class"`
	Severity       string     `json:"severity"`
	Priority       int        `json:"priority"`
	AnomalyScore   float64    `json:"anomaly_score"`
	Confidence     float64    `json:"confidence"`
	Details        string     `json:"details"`
	ReferenceID    string     `json:"reference_id"`
	ReferenceModel string     `json:"reference_model"`
	Status         string     `json:"status"`
	AssignedTo     *string    `json:"assigned_to"`
	Notes          []Note     `json:"notes"`
	ActionsTaken   []Action   `json:"actions_taken"`
	DetectedAt     time.Time  `json:"detected_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at"`
	ResolvedAt     *time.Time `json:"resolved_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type Note struct {
	User      string    `json:"user"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

type Action struct {
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertDetail is an alert with the record it was raised for. OriginalData
// is nil when that record was deleted.
type AlertDetail struct {
	Alert        *Alert                 `json:"alert"`
	OriginalData map[string]interface{} `json:"original_data"`
}

type AlertList struct {
	Data        []Alert `json:"data"`
	TotalPages  int     `json:"totalPages"`
	CurrentPage int     `json:"currentPage"`
	Total       int     `json:"total"`
}

type AlertStatistics struct {
	TotalAlerts          int            `json:"total_alerts"`
	ByStatus             map[string]int `json:"by_status"`
	SeverityDistribution map[string]int `json:"severity_distribution"`
	ThreatDistribution   map[string]int `json:"threat_distribution"`
	TypeDistribution     map[string]int `json:"type_distribution"`
	RecentAlerts24h      int            `json:"recent_alerts_24h"`
}

// AlertFilter narrows ListAlerts. Empty fields are not sent.
type AlertFilter struct {
	Status    string
	Severity  string
	AlertType string
}

type RecordList struct {
	Data        []map[string]interface{} `json:"data"`
	TotalPages  int                      `json:"totalPages"`
	CurrentPage int                      `json:"currentPage"`
	Total       int                      `json:"total"`
}

type RecordStatistics struct {
	Total              int            `json:"total"`
	Anomalies          int            `json:"anomalies"`
	Normal             int            `json:"normal"`
	AnomalyPercentage  float64        `json:"anomaly_percentage"`
	ThreatDistribution map[string]int `json:"threat_distribution"`
	RecentAnomalies24h int            `json:"recent_anomalies_24h"`
}

type NetworkTraffic struct {
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

type EmailCommunication struct {
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

// Prediction is the ML verdict echoed by the submit endpoints.
type Prediction struct {
	IsAnomaly    bool     `json:"is_anomaly"`
	AnomalyScore *float64 `json:"anomaly_score"`
	Confidence   *float64 `json:"confidence"`
	ThreatClass  *string  `json:"threat_class"`
}

type SubmitResult struct {
	Message         string                 `json:"message"`
	Data            map[string]interface{} `json:"data"`
	Prediction      *Prediction            `json:"prediction,omitempty"`
	AlertID         string                 `json:"alert_id,omitempty"`
	PredictionError string                 `json:"prediction_error,omitempty"`
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type UserList struct {
	Data        []User `json:"data"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
	Total       int    `json:"total"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}
