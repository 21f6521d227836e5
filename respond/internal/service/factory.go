package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/threatlens/threatlens-stack/common/logging"
	"github.com/threatlens/threatlens-stack/common/messaging"
	"github.com/threatlens/threatlens-stack/respond/internal/metrics"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
	natspub "github.com/threatlens/threatlens-stack/respond/internal/nats"
	"github.com/threatlens/threatlens-stack/respond/internal/predict"
	"github.com/threatlens/threatlens-stack/respond/internal/severity"
)

// UnknownThreatClass is stored when the prediction names no class.
const UnknownThreatClass = "unknown"

// CreateAlert derives and persists an alert for an anomalous prediction on
// the record ref, owned by ownerID. Severity and priority come from the
// anomaly score. Nothing is deduplicated: every call creates a new alert.
func (s *Service) CreateAlert(ctx context.Context, ref models.SourceRef, pred *predict.Result, ownerID string) (*models.Alert, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}
	if ref.ID == "" {
		return nil, ErrMissingReference
	}
	if _, err := uuid.Parse(ref.ID); err != nil {
		return nil, validationError("reference id %q is not a uuid", ref.ID)
	}
	referenceModel, ok := ref.Kind.ReferenceModel()
	if !ok {
		return nil, validationError("unknown alert type %q", ref.Kind)
	}
	if pred == nil || pred.AnomalyScore == nil || pred.Confidence == nil {
		return nil, ErrInvalidPrediction
	}

	rating := severity.Classify(*pred.AnomalyScore)

	threatClass := UnknownThreatClass
	if pred.ThreatClass != nil && *pred.ThreatClass != "" {
		threatClass = *pred.ThreatClass
	}

	now := s.now()
	alert := &models.Alert{
		ID:             newID(),
		UserID:         ownerID,
		AlertType:      ref.Kind,
		ThreatClass:    threatClass,
		Severity:       rating.Severity,
		Priority:       rating.Priority,
		AnomalyScore:   *pred.AnomalyScore,
		Confidence:     *pred.Confidence,
		Details:        pred.Details,
		ReferenceID:    ref.ID,
		ReferenceModel: referenceModel,
		Status:         models.StatusNew,
		Notes:          []models.Note{},
		ActionsTaken:   []models.Action{},
		DetectedAt:     now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to persist alert for %s: %w", ref, err)
	}

	metrics.AlertsCreated.WithLabelValues(string(alert.AlertType), string(alert.Severity)).Inc()
	s.logger.InfoContext(ctx, "alert created",
		logging.AlertID(alert.ID),
		logging.UserID(ownerID),
		logging.SourceKind(string(ref.Kind)),
		logging.Severity(string(alert.Severity)),
	)

	s.publish(ctx, messaging.SubjectAlertsCreated, func() error {
		return s.events.PublishAlertCreated(ctx, &natspub.AlertCreatedEvent{
			AlertID:      alert.ID,
			UserID:       alert.UserID,
			AlertType:    string(alert.AlertType),
			ThreatClass:  alert.ThreatClass,
			Severity:     string(alert.Severity),
			Priority:     alert.Priority,
			AnomalyScore: alert.AnomalyScore,
			ReferenceID:  alert.ReferenceID,
			DetectedAt:   alert.DetectedAt,
		})
	})

	return alert, nil
}
