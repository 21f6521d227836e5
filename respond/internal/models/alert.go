// Package models provides data models for the respond service.
package models

import (
	"fmt"
	"time"
)

// Status is an alert's workflow state.
type Status string

const (
	StatusNew           Status = "new"
	StatusAcknowledged  Status = "acknowledged"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusFalsePositive Status = "false_positive"
)

// Statuses lists every workflow state in display order.
var Statuses = []Status{StatusNew, StatusAcknowledged, StatusInvestigating, StatusResolved, StatusFalsePositive}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Severity is the operator-facing urgency tier.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every tier from lowest to highest.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	for _, known := range Severities {
		if s == known {
			return true
		}
	}
	return false
}

// Alert is a persisted anomaly requiring operator attention. Every alert
// belongs to exactly one user.
type Alert struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	AlertType      AlertType  `json:"alert_type"`
	ThreatClass    string     `json:"threat_class"`
	Severity       Severity   `json:"severity"`
	Priority       int        `json:"priority"`
	AnomalyScore   float64    `json:"anomaly_score"`
	Confidence     float64    `json:"confidence"`
	Details        string     `json:"details"`
	ReferenceID    string     `json:"reference_id"`
	ReferenceModel string     `json:"reference_model"`
	Status         Status     `json:"status"`
	AssignedTo     *string    `json:"assigned_to"`
	Notes          []Note     `json:"notes"`
	ActionsTaken   []Action   `json:"actions_taken"`
	DetectedAt     time.Time  `json:"detected_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at"`
	ResolvedAt     *time.Time `json:"resolved_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Source returns the alert's back-reference as a SourceRef.
func (a *Alert) Source() (SourceRef, error) {
	kind, ok := AlertTypeForReferenceModel(a.ReferenceModel)
	if !ok {
		return SourceRef{}, fmt.Errorf("unknown reference model %q", a.ReferenceModel)
	}
	return SourceRef{Kind: kind, ID: a.ReferenceID}, nil
}

// Note is a free-text comment appended to an alert.
type Note struct {
	User      string    `json:"user"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

// Action records a response step taken on an alert.
type Action struct {
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFilter narrows a list query. Empty fields match everything.
type AlertFilter struct {
	Status    Status
	Severity  Severity
	AlertType AlertType
}

// ListAlertsResponse is the paged alert listing.
type ListAlertsResponse struct {
	Data        []*Alert `json:"data"`
	TotalPages  int      `json:"totalPages"`
	CurrentPage int      `json:"currentPage"`
	Total       int      `json:"total"`
}

// AlertDetail pairs an alert with its originating record. OriginalData is
// nil when the source record no longer exists.
type AlertDetail struct {
	Alert        *Alert      `json:"alert"`
	OriginalData interface{} `json:"original_data"`
}

// AlertStatistics summarises one user's alerts. Status, severity and type
// buckets are always fully populated.
type AlertStatistics struct {
	TotalAlerts          int               `json:"total_alerts"`
	ByStatus             map[Status]int    `json:"by_status"`
	SeverityDistribution map[Severity]int  `json:"severity_distribution"`
	ThreatDistribution   map[string]int    `json:"threat_distribution"`
	TypeDistribution     map[AlertType]int `json:"type_distribution"`
	RecentAlerts24h      int               `json:"recent_alerts_24h"`
}

// NewAlertStatistics returns statistics with every known bucket set to zero.
func NewAlertStatistics() *AlertStatistics {
	s := &AlertStatistics{
		ByStatus:             make(map[Status]int, len(Statuses)),
		SeverityDistribution: make(map[Severity]int, len(Severities)),
		ThreatDistribution:   map[string]int{},
		TypeDistribution:     make(map[AlertType]int, len(AlertTypes)),
	}
	for _, st := range Statuses {
		s.ByStatus[st] = 0
	}
	for _, sev := range Severities {
		s.SeverityDistribution[sev] = 0
	}
	for _, t := range AlertTypes {
		s.TypeDistribution[t] = 0
	}
	return s
}

// UpdateStatusRequest is the body of PUT /alerts/{id}/status. Both fields are
// optional; assignment is independent of status.
type UpdateStatusRequest struct {
	Status     *Status `json:"status"`
	AssignedTo *string `json:"assigned_to"`
}

// AddNoteRequest is the body of POST /alerts/{id}/notes.
type AddNoteRequest struct {
	Note string `json:"note"`
}

// AddActionRequest is the body of POST /alerts/{id}/actions.
type AddActionRequest struct {
	Action string `json:"action"`
}
