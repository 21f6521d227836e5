// Package nats publishes alert lifecycle events for the respond service.
package nats

import "time"

// AlertCreatedEvent is published to respond.alerts.created when an anomaly
// prediction produces a new alert.
type AlertCreatedEvent struct {
	AlertID      string    `json:"alert_id"`
	UserID       string    `json:"user_id"`
	AlertType    string    `json:"alert_type"`
	ThreatClass  string    `json:"threat_class"`
	Severity     string    `json:"severity"`
	Priority     int       `json:"priority"`
	AnomalyScore float64   `json:"anomaly_score"`
	ReferenceID  string    `json:"reference_id"`
	DetectedAt   time.Time `json:"detected_at"`
}

// AlertUpdatedEvent is published to respond.alerts.updated when an alert's
// status or assignment changes, or a note or action is appended.
type AlertUpdatedEvent struct {
	AlertID    string    `json:"alert_id"`
	UserID     string    `json:"user_id"`
	Change     string    `json:"change"`
	Status     string    `json:"status"`
	AssignedTo *string   `json:"assigned_to,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Change kinds carried by AlertUpdatedEvent.
const (
	ChangeStatus = "status"
	ChangeNote   = "note"
	ChangeAction = "action"
)

// AlertDeletedEvent is published to respond.alerts.deleted.
type AlertDeletedEvent struct {
	AlertID   string    `json:"alert_id"`
	UserID    string    `json:"user_id"`
	DeletedAt time.Time `json:"deleted_at"`
}
