package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/threatlens/threatlens-stack/common/httputil"
	"github.com/threatlens/threatlens-stack/common/logging"
	"github.com/threatlens/threatlens-stack/common/messaging"
	"github.com/threatlens/threatlens-stack/respond/internal/lifecycle"
	"github.com/threatlens/threatlens-stack/respond/internal/metrics"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
	natspub "github.com/threatlens/threatlens-stack/respond/internal/nats"
	"github.com/threatlens/threatlens-stack/respond/internal/repository"
)

// ListAlerts returns one page of the owner's alerts, newest first.
func (s *Service) ListAlerts(ctx context.Context, userID string, filter models.AlertFilter, page, limit int) (*models.ListAlertsResponse, error) {
	if userID == "" {
		return nil, ErrMissingOwner
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationError("unknown status %q", filter.Status)
	}
	if filter.Severity != "" && !filter.Severity.Valid() {
		return nil, validationError("unknown severity %q", filter.Severity)
	}
	if filter.AlertType != "" && !filter.AlertType.Valid() {
		return nil, validationError("unknown alert_type %q", filter.AlertType)
	}

	p := s.normalizePage(page, limit)

	alerts, total, err := s.repo.ListAlerts(ctx, userID, filter, p.Limit, p.Offset())
	if err != nil {
		return nil, err
	}

	return &models.ListAlertsResponse{
		Data:        alerts,
		TotalPages:  httputil.TotalPages(total, p.Limit),
		CurrentPage: p.Page,
		Total:       total,
	}, nil
}

// GetAlert returns the owner's alert together with the record it was raised
// for. OriginalData is nil when that record has since been deleted.
func (s *Service) GetAlert(ctx context.Context, userID, id string) (*models.AlertDetail, error) {
	if userID == "" {
		return nil, ErrMissingOwner
	}
	if !validID(id) {
		return nil, repository.ErrAlertNotFound
	}

	alert, err := s.repo.GetAlert(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	detail := &models.AlertDetail{Alert: alert}

	ref, err := alert.Source()
	if err != nil {
		s.logger.WarnContext(ctx, "alert has an unresolvable source reference",
			logging.AlertID(alert.ID), logging.Error(err))
		return detail, nil
	}

	source, err := s.repo.GetSource(ctx, userID, ref)
	switch {
	case err == nil:
		detail.OriginalData = source
	case errors.Is(err, repository.ErrSourceNotFound):
	default:
		return nil, err
	}

	return detail, nil
}

// UpdateAlertStatus moves the alert to a new status and/or changes its
// assignee. An empty assigned_to clears the assignment.
func (s *Service) UpdateAlertStatus(ctx context.Context, userID, id string, req *models.UpdateStatusRequest) (*models.Alert, error) {
	if userID == "" {
		return nil, ErrMissingOwner
	}
	if req == nil || (req.Status == nil && req.AssignedTo == nil) {
		return nil, validationError("status or assigned_to is required")
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, validationError("unknown status %q", *req.Status)
	}
	if req.AssignedTo != nil && *req.AssignedTo != "" && !validID(*req.AssignedTo) {
		return nil, validationError("assigned_to must be a user id")
	}
	if !validID(id) {
		return nil, repository.ErrAlertNotFound
	}

	now := s.now()
	change := repository.StatusChange{
		Status:     req.Status,
		AssignedTo: req.AssignedTo,
		At:         now,
	}

	if req.Status != nil {
		current, err := s.repo.GetAlert(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if err := lifecycle.Validate(current.Status, *req.Status); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
		}
		change.Stamp = lifecycle.StampFor(*req.Status, now)
	}

	alert, err := s.repo.UpdateAlertStatus(ctx, userID, id, change)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		metrics.AlertStatusChanges.WithLabelValues(string(*req.Status)).Inc()
	}
	s.publishUpdated(ctx, alert, natspub.ChangeStatus)

	return alert, nil
}

// AddNote appends a note authored by the caller.
func (s *Service) AddNote(ctx context.Context, userID, id string, req *models.AddNoteRequest) (*models.Alert, error) {
	if userID == "" {
		return nil, ErrMissingOwner
	}
	if req == nil || strings.TrimSpace(req.Note) == "" {
		return nil, validationError("note is required")
	}
	if !validID(id) {
		return nil, repository.ErrAlertNotFound
	}

	alert, err := s.repo.AppendNote(ctx, userID, id, models.Note{
		User:      userID,
		Note:      req.Note,
		Timestamp: s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, alert, natspub.ChangeNote)
	return alert, nil
}

// AddAction records a response step taken by the caller.
func (s *Service) AddAction(ctx context.Context, userID, id string, req *models.AddActionRequest) (*models.Alert, error) {
	if userID == "" {
		return nil, ErrMissingOwner
	}
	if req == nil || strings.TrimSpace(req.Action) == "" {
		return nil, validationError("action is required")
	}
	if !validID(id) {
		return nil, repository.ErrAlertNotFound
	}

	alert, err := s.repo.AppendAction(ctx, userID, id, models.Action{
		Action:    req.Action,
		User:      userID,
		Timestamp: s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, alert, natspub.ChangeAction)
	return alert, nil
}

// DeleteAlert permanently removes the owner's alert.
func (s *Service) DeleteAlert(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrMissingOwner
	}
	if !validID(id) {
		return repository.ErrAlertNotFound
	}

	if err := s.repo.DeleteAlert(ctx, userID, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "alert deleted", logging.AlertID(id), logging.UserID(userID))
	s.publish(ctx, messaging.SubjectAlertsDeleted, func() error {
		return s.events.PublishAlertDeleted(ctx, &natspub.AlertDeletedEvent{
			AlertID:   id,
			UserID:    userID,
			DeletedAt: s.now(),
		})
	})
	return nil
}

// AlertStatistics summarises the owner's alerts. Every status, severity and
// alert type bucket is present even when zero.
func (s *Service) AlertStatistics(ctx context.Context, userID string) (*models.AlertStatistics, error) {
	if userID == "" {
		return nil, ErrMissingOwner
	}
	return s.repo.AlertStatistics(ctx, userID, s.now().Add(-recentWindow))
}

func (s *Service) publishUpdated(ctx context.Context, alert *models.Alert, change string) {
	s.publish(ctx, messaging.SubjectAlertsUpdated, func() error {
		return s.events.PublishAlertUpdated(ctx, &natspub.AlertUpdatedEvent{
			AlertID:    alert.ID,
			UserID:     alert.UserID,
			Change:     change,
			Status:     string(alert.Status),
			AssignedTo: alert.AssignedTo,
			UpdatedAt:  alert.UpdatedAt,
		})
	})
}
