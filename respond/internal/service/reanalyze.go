package service

import (
	"context"
	"fmt"
	"time"

	"github.com/threatlens/threatlens-stack/common/logging"
	"github.com/threatlens/threatlens-stack/respond/internal/metrics"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
)

// ReanalyzePending retries the prediction for records of kind that are still
// pending after olderThan, at most limit per call. Each record is analyzed on
// behalf of its owner exactly as a fresh submission would be, so anomalies
// raise alerts. It returns how many records were analyzed. A record whose
// prediction fails again stays pending for the next sweep; one analyzed by
// someone else in the meantime is skipped without an alert.
func (s *Service) ReanalyzePending(ctx context.Context, kind models.AlertType, olderThan time.Duration, limit int) (int, error) {
	if !kind.Valid() {
		return 0, validationError("unknown record kind %q", kind)
	}
	if limit < 1 {
		return 0, validationError("limit must be at least 1")
	}

	raw, err := s.repo.ListPendingSources(ctx, kind, s.now().Add(-olderThan), limit)
	if err != nil {
		return 0, err
	}

	var jobs []pendingJob
	switch recs := raw.(type) {
	case []*models.NetworkTraffic:
		for _, rec := range recs {
			jobs = append(jobs, pendingJob{
				owner:    rec.UserID,
				ref:      models.NetworkRef(rec.ID),
				features: networkFeatures{Timestamp: rec.Timestamp, SubmitNetworkRequest: networkRequestOf(rec)},
			})
		}
	case []*models.EmailCommunication:
		for _, rec := range recs {
			jobs = append(jobs, pendingJob{
				owner:    rec.UserID,
				ref:      models.EmailRef(rec.ID),
				features: emailFeatures{Timestamp: rec.Timestamp, SubmitEmailRequest: emailRequestOf(rec)},
			})
		}
	default:
		return 0, fmt.Errorf("unexpected pending %s records of type %T", kind, raw)
	}

	analyzed := 0
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return analyzed, err
		}
		a, err := s.analyze(ctx, job.owner, job.ref, job.features)
		if err != nil {
			s.logger.WarnContext(ctx, "reanalysis failed",
				logging.SourceKind(string(kind)),
				logging.SourceID(job.ref.ID),
				logging.Error(err),
			)
			continue
		}
		if a.result == nil || a.superseded {
			continue
		}
		analyzed++
		metrics.RecordsReanalyzed.WithLabelValues(string(kind)).Inc()
	}

	return analyzed, nil
}

type pendingJob struct {
	owner    string
	ref      models.SourceRef
	features interface{}
}

func networkRequestOf(rec *models.NetworkTraffic) *models.SubmitNetworkRequest {
	return &models.SubmitNetworkRequest{
		SourceIP:           rec.SourceIP,
		DestinationIP:      rec.DestinationIP,
		Protocol:           rec.Protocol,
		PacketSize:         rec.PacketSize,
		ConnectionDuration: rec.ConnectionDuration,
		PortNumber:         rec.PortNumber,
		PacketsSent:        rec.PacketsSent,
		PacketsReceived:    rec.PacketsReceived,
		BytesSent:          rec.BytesSent,
		BytesReceived:      rec.BytesReceived,
	}
}

func emailRequestOf(rec *models.EmailCommunication) *models.SubmitEmailRequest {
	return &models.SubmitEmailRequest{
		SenderEmail:    rec.SenderEmail,
		ReceiverEmail:  rec.ReceiverEmail,
		NumRecipients:  rec.NumRecipients,
		EmailSize:      rec.EmailSize,
		HasAttachment:  rec.HasAttachment,
		NumAttachments: rec.NumAttachments,
		SubjectLength:  rec.SubjectLength,
		BodyLength:     rec.BodyLength,
		IsReply:        rec.IsReply,
		IsForward:      rec.IsForward,
	}
}
