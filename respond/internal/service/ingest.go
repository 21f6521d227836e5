package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/threatlens/threatlens-stack/common/httputil"
	"github.com/threatlens/threatlens-stack/common/logging"
	"github.com/threatlens/threatlens-stack/respond/internal/metrics"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
	"github.com/threatlens/threatlens-stack/respond/internal/predict"
	"github.com/threatlens/threatlens-stack/respond/internal/repository"
)

// Features sent to the prediction service: the submitted fields plus the
// record timestamp.
type networkFeatures struct {
	Timestamp time.Time `json:"timestamp"`
	*models.SubmitNetworkRequest
}

type emailFeatures struct {
	Timestamp time.Time `json:"timestamp"`
	*models.SubmitEmailRequest
}

// analysis is the outcome of sending one record to the prediction service.
type analysis struct {
	result     *predict.Result
	prediction models.Prediction
	analyzedAt time.Time
	alertID    string
	predErr    error
	// superseded is set when another caller attached a prediction first.
	superseded bool
}

// SubmitNetworkTraffic stores a network record, asks the prediction service
// about it and raises an alert for anomalies. A failed prediction leaves the
// record pending and is reported in the response, not as an error.
func (s *Service) SubmitNetworkTraffic(ctx context.Context, userID string, req *models.SubmitNetworkRequest) (*models.SubmitResponse, error) {
	if userID == "" {
		return nil, ErrMissingOwner
	}
	if req == nil {
		return nil, validationError("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	req.Protocol = strings.ToLower(req.Protocol)

	now := s.now()
	rec := &models.NetworkTraffic{
		ID:                 newID(),
		UserID:             userID,
		Timestamp:          now,
		SourceIP:           req.SourceIP,
		DestinationIP:      req.DestinationIP,
		Protocol:           req.Protocol,
		PacketSize:         req.PacketSize,
		ConnectionDuration: req.ConnectionDuration,
		PortNumber:         req.PortNumber,
		PacketsSent:        req.PacketsSent,
		PacketsReceived:    req.PacketsReceived,
		BytesSent:          req.BytesSent,
		BytesReceived:      req.BytesReceived,
		Status:             models.RecordPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.CreateNetworkTraffic(ctx, rec); err != nil {
		return nil, err
	}
	metrics.RecordsSubmitted.WithLabelValues(string(models.AlertTypeNetwork)).Inc()

	a, err := s.analyze(ctx, userID, models.NetworkRef(rec.ID), networkFeatures{Timestamp: rec.Timestamp, SubmitNetworkRequest: req})
	if err != nil {
		return nil, err
	}
	if a.result != nil {
		rec.Prediction = a.prediction
		rec.Status = models.RecordAnalyzed
		rec.UpdatedAt = a.analyzedAt
	}

	return a.response("Network traffic", rec), nil
}

// SubmitEmailCommunication is SubmitNetworkTraffic for email metadata.
func (s *Service) SubmitEmailCommunication(ctx context.Context, userID string, req *models.SubmitEmailRequest) (*models.SubmitResponse, error) {
	if userID == "" {
		return nil, ErrMissingOwner
	}
	if req == nil {
		return nil, validationError("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	now := s.now()
	rec := &models.EmailCommunication{
		ID:             newID(),
		UserID:         userID,
		Timestamp:      now,
		SenderEmail:    req.SenderEmail,
		ReceiverEmail:  req.ReceiverEmail,
		NumRecipients:  req.NumRecipients,
		EmailSize:      req.EmailSize,
		HasAttachment:  req.HasAttachment,
		NumAttachments: req.NumAttachments,
		SubjectLength:  req.SubjectLength,
		BodyLength:     req.BodyLength,
		IsReply:        req.IsReply,
		IsForward:      req.IsForward,
		Status:         models.RecordPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateEmailCommunication(ctx, rec); err != nil {
		return nil, err
	}
	metrics.RecordsSubmitted.WithLabelValues(string(models.AlertTypeEmail)).Inc()

	a, err := s.analyze(ctx, userID, models.EmailRef(rec.ID), emailFeatures{Timestamp: rec.Timestamp, SubmitEmailRequest: req})
	if err != nil {
		return nil, err
	}
	if a.result != nil {
		rec.Prediction = a.prediction
		rec.Status = models.RecordAnalyzed
		rec.UpdatedAt = a.analyzedAt
	}

	return a.response("Email communication", rec), nil
}

// analyze runs the prediction for a stored record, attaches the verdict and
// creates an alert for anomalies. Only a failure to attach the verdict is
// returned as an error. Alert creation failures are logged, counted and
// dropped so the submission still succeeds.
func (s *Service) analyze(ctx context.Context, userID string, ref models.SourceRef, features interface{}) (*analysis, error) {
	start := time.Now()
	res, err := s.predictor.Predict(ctx, ref.Kind, features)
	metrics.PredictionDuration.WithLabelValues(string(ref.Kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PredictionErrors.WithLabelValues(string(ref.Kind)).Inc()
		s.logger.WarnContext(ctx, "prediction failed, record left pending",
			logging.SourceKind(string(ref.Kind)),
			logging.SourceID(ref.ID),
			logging.Error(err),
		)
		return &analysis{predErr: err}, nil
	}

	now := s.now()
	isAnomaly := res.IsAnomaly
	p := models.Prediction{
		IsAnomaly:           &isAnomaly,
		AnomalyScore:        res.AnomalyScore,
		ThreatClass:         res.ThreatClass,
		Confidence:          res.Confidence,
		PredictionTimestamp: &now,
	}
	if err := s.repo.AttachPrediction(ctx, userID, ref, p); err != nil {
		if errors.Is(err, repository.ErrAlreadyAnalyzed) {
			s.logger.InfoContext(ctx, "record already analyzed, skipping alert",
				logging.SourceKind(string(ref.Kind)),
				logging.SourceID(ref.ID),
			)
			return &analysis{result: res, prediction: p, analyzedAt: now, superseded: true}, nil
		}
		return nil, fmt.Errorf("failed to attach prediction to %s: %w", ref, err)
	}

	a := &analysis{result: res, prediction: p, analyzedAt: now}
	if !res.IsAnomaly {
		return a, nil
	}

	alert, err := s.CreateAlert(ctx, ref, res, userID)
	if err != nil {
		metrics.AlertCreateFailures.WithLabelValues(string(ref.Kind)).Inc()
		s.logger.WarnContext(ctx, "failed to create alert for anomaly",
			logging.SourceKind(string(ref.Kind)),
			logging.SourceID(ref.ID),
			logging.UserID(userID),
			logging.Error(err),
		)
		return a, nil
	}
	a.alertID = alert.ID
	return a, nil
}

func (a *analysis) response(label string, data interface{}) *models.SubmitResponse {
	if a.predErr != nil {
		return &models.SubmitResponse{
			Message:         label + " saved, but ML prediction failed",
			Data:            data,
			PredictionError: predictionErrorMessage(a.predErr),
		}
	}
	return &models.SubmitResponse{
		Message:    label + " analyzed successfully",
		Data:       data,
		Prediction: a.result,
		AlertID:    a.alertID,
	}
}

func predictionErrorMessage(err error) string {
	var se *predict.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("prediction service returned status %d", se.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
		return "prediction service timed out"
	}
	return "prediction service unavailable"
}

// ListSources returns one page of the owner's records of kind, newest first.
func (s *Service) ListSources(ctx context.Context, userID string, kind models.AlertType, filter models.SourceFilter, page, limit int) (*models.ListSourcesResponse, error) {
	if userID == "" {
		return nil, ErrMissingOwner
	}
	if !kind.Valid() {
		return nil, validationError("unknown record kind %q", kind)
	}

	p := s.normalizePage(page, limit)

	records, total, err := s.repo.ListSources(ctx, userID, kind, filter, p.Limit, p.Offset())
	if err != nil {
		return nil, err
	}

	return &models.ListSourcesResponse{
		Data:        records,
		TotalPages:  httputil.TotalPages(total, p.Limit),
		CurrentPage: p.Page,
		Total:       total,
	}, nil
}

// GetSource returns one of the owner's records.
func (s *Service) GetSource(ctx context.Context, userID string, ref models.SourceRef) (interface{}, error) {
	if userID == "" {
		return nil, ErrMissingOwner
	}
	if !ref.Kind.Valid() {
		return nil, validationError("unknown record kind %q", ref.Kind)
	}
	if !validID(ref.ID) {
		return nil, repository.ErrSourceNotFound
	}
	return s.repo.GetSource(ctx, userID, ref)
}

// DeleteSource removes one of the owner's records. Alerts raised for it are
// kept and show no original data afterwards.
func (s *Service) DeleteSource(ctx context.Context, userID string, ref models.SourceRef) error {
	if userID == "" {
		return ErrMissingOwner
	}
	if !ref.Kind.Valid() {
		return validationError("unknown record kind %q", ref.Kind)
	}
	if !validID(ref.ID) {
		return repository.ErrSourceNotFound
	}
	return s.repo.DeleteSource(ctx, userID, ref)
}

// SourceStatistics summarises the owner's records of kind.
func (s *Service) SourceStatistics(ctx context.Context, userID string, kind models.AlertType) (*models.SourceStatistics, error) {
	if userID == "" {
		return nil, ErrMissingOwner
	}
	if !kind.Valid() {
		return nil, validationError("unknown record kind %q", kind)
	}
	return s.repo.SourceStatistics(ctx, userID, kind, s.now().Add(-recentWindow))
}
