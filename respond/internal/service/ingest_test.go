package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatlens/threatlens-stack/respond/internal/models"
	"github.com/threatlens/threatlens-stack/respond/internal/predict"
	"github.com/threatlens/threatlens-stack/respond/internal/repository"
	"github.com/threatlens/threatlens-stack/respond/internal/repository/repositorytest"
)

func validNetworkRequest() *models.SubmitNetworkRequest {
	return &models.SubmitNetworkRequest{
		SourceIP:           "10.0.0.5",
		DestinationIP:      "203.0.113.7",
		Protocol:           "TCP",
		PacketSize:         1500,
		ConnectionDuration: 12.5,
		PortNumber:         443,
		PacketsSent:        900,
		PacketsReceived:    20,
		BytesSent:          1_350_000,
		BytesReceived:      4_000,
	}
}

func validEmailRequest() *models.SubmitEmailRequest {
	return &models.SubmitEmailRequest{
		SenderEmail:    "billing@examp1e.com",
		ReceiverEmail:  "cfo@example.com",
		NumRecipients:  1,
		EmailSize:      20480,
		HasAttachment:  true,
		NumAttachments: 1,
		SubjectLength:  42,
		BodyLength:     900,
	}
}

// ingestRepo records the calls an ingestion makes.
type ingestRepo struct {
	repositorytest.MockRepository
	network  *models.NetworkTraffic
	email    *models.EmailCommunication
	attached *models.Prediction
	alerts   []*models.Alert
}

func newIngestRepo() *ingestRepo {
	r := &ingestRepo{}
	r.CreateNetworkTrafficFunc = func(ctx context.Context, rec *models.NetworkTraffic) error {
		r.network = rec
		return nil
	}
	r.CreateEmailCommunicationFunc = func(ctx context.Context, rec *models.EmailCommunication) error {
		r.email = rec
		return nil
	}
	r.AttachPredictionFunc = func(ctx context.Context, userID string, ref models.SourceRef, p models.Prediction) error {
		r.attached = &p
		return nil
	}
	r.CreateAlertFunc = func(ctx context.Context, a *models.Alert) error {
		r.alerts = append(r.alerts, a)
		return nil
	}
	return r
}

func TestSubmitNetworkTraffic_CriticalAnomaly(t *testing.T) {
	owner := testID()
	repo := newIngestRepo()
	predictor := &mockPredictor{
		predictFunc: func(ctx context.Context, kind models.AlertType, features interface{}) (*predict.Result, error) {
			assert.Equal(t, models.AlertTypeNetwork, kind)

			raw, err := json.Marshal(features)
			require.NoError(t, err)
			var sent map[string]interface{}
			require.NoError(t, json.Unmarshal(raw, &sent))
			assert.Equal(t, "10.0.0.5", sent["source_ip"])
			assert.Equal(t, "tcp", sent["protocol"])
			assert.Contains(t, sent, "timestamp")

			return &predict.Result{IsAnomaly: true, AnomalyScore: floatPtr(0.92), Confidence: floatPtr(0.88), ThreatClass: strPtr("ddos")}, nil
		},
	}
	events := &recordingEvents{}
	svc := newTestService(&repo.MockRepository, predictor, events)

	resp, err := svc.SubmitNetworkTraffic(context.Background(), owner, validNetworkRequest())
	require.NoError(t, err)

	require.NotNil(t, repo.network)
	assert.Equal(t, owner, repo.network.UserID)
	assert.Equal(t, "tcp", repo.network.Protocol)

	require.NotNil(t, repo.attached)
	assert.True(t, *repo.attached.IsAnomaly)
	assert.Equal(t, 0.92, *repo.attached.AnomalyScore)
	assert.Equal(t, fixedNow, *repo.attached.PredictionTimestamp)

	require.Len(t, repo.alerts, 1)
	alert := repo.alerts[0]
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	assert.Equal(t, 5, alert.Priority)
	assert.Equal(t, "ddos", alert.ThreatClass)
	assert.Equal(t, models.ReferenceModelNetwork, alert.ReferenceModel)
	assert.Equal(t, repo.network.ID, alert.ReferenceID)
	assert.Equal(t, models.StatusNew, alert.Status)
	assert.Equal(t, owner, alert.UserID)

	assert.Equal(t, "Network traffic analyzed successfully", resp.Message)
	assert.Equal(t, alert.ID, resp.AlertID)
	assert.Empty(t, resp.PredictionError)
	assert.NotNil(t, resp.Prediction)
	data := resp.Data.(*models.NetworkTraffic)
	assert.Equal(t, models.RecordAnalyzed, data.Status)
	assert.Len(t, events.created, 1)
}

func TestSubmitEmailCommunication_UnknownThreatClass(t *testing.T) {
	repo := newIngestRepo()
	predictor := &mockPredictor{
		predictFunc: func(ctx context.Context, kind models.AlertType, features interface{}) (*predict.Result, error) {
			assert.Equal(t, models.AlertTypeEmail, kind)
			return &predict.Result{IsAnomaly: true, AnomalyScore: floatPtr(0.45), Confidence: floatPtr(0.6)}, nil
		},
	}
	svc := newTestService(&repo.MockRepository, predictor, nil)

	resp, err := svc.SubmitEmailCommunication(context.Background(), testID(), validEmailRequest())
	require.NoError(t, err)

	require.Len(t, repo.alerts, 1)
	assert.Equal(t, UnknownThreatClass, repo.alerts[0].ThreatClass)
	assert.Equal(t, models.SeverityMedium, repo.alerts[0].Severity)
	assert.Equal(t, 3, repo.alerts[0].Priority)
	assert.Equal(t, models.ReferenceModelEmail, repo.alerts[0].ReferenceModel)
	assert.Equal(t, "Email communication analyzed successfully", resp.Message)
}

func TestSubmit_NormalTrafficRaisesNoAlert(t *testing.T) {
	repo := newIngestRepo()
	svc := newTestService(&repo.MockRepository, &mockPredictor{}, nil)

	resp, err := svc.SubmitNetworkTraffic(context.Background(), testID(), validNetworkRequest())
	require.NoError(t, err)

	require.NotNil(t, repo.attached)
	assert.False(t, *repo.attached.IsAnomaly)
	assert.Empty(t, repo.alerts)
	assert.Empty(t, resp.AlertID)
}

func TestSubmit_PredictionFailureKeepsRecord(t *testing.T) {
	failures := []error{
		&predict.StatusError{StatusCode: 503, Body: "model loading"},
		context.DeadlineExceeded,
		errors.New("dial tcp 127.0.0.1:8000: connect: connection refused"),
	}

	for _, predErr := range failures {
		t.Run(predErr.Error(), func(t *testing.T) {
			repo := newIngestRepo()
			predictor := &mockPredictor{
				predictFunc: func(ctx context.Context, kind models.AlertType, features interface{}) (*predict.Result, error) {
					return nil, predErr
				},
			}
			svc := newTestService(&repo.MockRepository, predictor, nil)

			resp, err := svc.SubmitEmailCommunication(context.Background(), testID(), validEmailRequest())
			require.NoError(t, err)

			require.NotNil(t, repo.email, "record is persisted before prediction")
			assert.Nil(t, repo.attached)
			assert.Empty(t, repo.alerts)

			assert.Equal(t, "Email communication saved, but ML prediction failed", resp.Message)
			assert.NotEmpty(t, resp.PredictionError)
			assert.Nil(t, resp.Prediction)
			data := resp.Data.(*models.EmailCommunication)
			assert.Equal(t, models.RecordPending, data.Status)
			assert.Nil(t, data.IsAnomaly)
		})
	}
}

func TestPredictionErrorMessage(t *testing.T) {
	assert.Equal(t, "prediction service returned status 500", predictionErrorMessage(&predict.StatusError{StatusCode: 500}))
	assert.Equal(t, "prediction service timed out", predictionErrorMessage(context.DeadlineExceeded))
	assert.Equal(t, "prediction service unavailable", predictionErrorMessage(errors.New("connection refused")))
}

func TestSubmit_AlertFailureIsSwallowed(t *testing.T) {
	tests := []struct {
		name   string
		result *predict.Result
		store  error
	}{
		{
			name:   "prediction without score",
			result: &predict.Result{IsAnomaly: true, Confidence: floatPtr(0.9)},
		},
		{
			name:   "alert insert fails",
			result: &predict.Result{IsAnomaly: true, AnomalyScore: floatPtr(0.9), Confidence: floatPtr(0.9)},
			store:  errDatabase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newIngestRepo()
			if tt.store != nil {
				repo.CreateAlertFunc = func(ctx context.Context, a *models.Alert) error { return tt.store }
			}
			predictor := &mockPredictor{
				predictFunc: func(ctx context.Context, kind models.AlertType, features interface{}) (*predict.Result, error) {
					return tt.result, nil
				},
			}
			svc := newTestService(&repo.MockRepository, predictor, nil)

			resp, err := svc.SubmitNetworkTraffic(context.Background(), testID(), validNetworkRequest())
			require.NoError(t, err)
			require.NotNil(t, repo.attached, "record keeps its prediction")
			assert.Empty(t, resp.AlertID)
			assert.Empty(t, resp.PredictionError)
		})
	}
}

func TestSubmit_AttachFailureIsAnError(t *testing.T) {
	repo := newIngestRepo()
	repo.AttachPredictionFunc = func(ctx context.Context, userID string, ref models.SourceRef, p models.Prediction) error {
		return errDatabase
	}
	predictor := &mockPredictor{
		predictFunc: func(ctx context.Context, kind models.AlertType, features interface{}) (*predict.Result, error) {
			return &predict.Result{IsAnomaly: true, AnomalyScore: floatPtr(0.9), Confidence: floatPtr(0.9)}, nil
		},
	}
	svc := newTestService(&repo.MockRepository, predictor, nil)

	_, err := svc.SubmitNetworkTraffic(context.Background(), testID(), validNetworkRequest())
	assert.ErrorIs(t, err, errDatabase)
	assert.Empty(t, repo.alerts)
}

func TestSubmit_Validation(t *testing.T) {
	repo := newIngestRepo()
	predictor := &mockPredictor{}
	svc := newTestService(&repo.MockRepository, predictor, nil)
	ctx := context.Background()

	badNetwork := validNetworkRequest()
	badNetwork.Protocol = "smtp"
	_, err := svc.SubmitNetworkTraffic(ctx, testID(), badNetwork)
	assert.ErrorIs(t, err, ErrValidation)

	badEmail := validEmailRequest()
	badEmail.SenderEmail = "not an address"
	_, err = svc.SubmitEmailCommunication(ctx, testID(), badEmail)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SubmitNetworkTraffic(ctx, "", validNetworkRequest())
	assert.ErrorIs(t, err, ErrMissingOwner)

	_, err = svc.SubmitEmailCommunication(ctx, testID(), nil)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Nil(t, repo.network)
	assert.Nil(t, repo.email)
	assert.Zero(t, predictor.calls)
}

func TestSubmit_PersistFailureSkipsPrediction(t *testing.T) {
	repo := newIngestRepo()
	repo.CreateNetworkTrafficFunc = func(ctx context.Context, rec *models.NetworkTraffic) error { return errDatabase }
	predictor := &mockPredictor{}
	svc := newTestService(&repo.MockRepository, predictor, nil)

	_, err := svc.SubmitNetworkTraffic(context.Background(), testID(), validNetworkRequest())
	assert.ErrorIs(t, err, errDatabase)
	assert.Zero(t, predictor.calls)
}

func TestSourceOperations(t *testing.T) {
	owner := testID()
	recordID := testID()
	ctx := context.Background()

	repo := &repositorytest.MockRepository{
		ListSourcesFunc: func(ctx context.Context, userID string, kind models.AlertType, filter models.SourceFilter, limit, offset int) (interface{}, int, error) {
			assert.Equal(t, owner, userID)
			assert.Equal(t, models.AlertTypeEmail, kind)
			assert.True(t, filter.AnomalyOnly)
			assert.Equal(t, 50, limit)
			assert.Equal(t, 50, offset)
			return []*models.EmailCommunication{}, 75, nil
		},
		GetSourceFunc: func(ctx context.Context, userID string, ref models.SourceRef) (interface{}, error) {
			if userID != owner {
				return nil, repository.ErrSourceNotFound
			}
			return &models.NetworkTraffic{ID: ref.ID}, nil
		},
		SourceStatisticsFunc: func(ctx context.Context, userID string, kind models.AlertType, since time.Time) (*models.SourceStatistics, error) {
			assert.Equal(t, fixedNow.Add(-24*time.Hour), since)
			return &models.SourceStatistics{Total: 4, Anomalies: 1, Normal: 3, AnomalyPercentage: 25}, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	list, err := svc.ListSources(ctx, owner, models.AlertTypeEmail, models.SourceFilter{AnomalyOnly: true}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 75, list.Total)
	assert.Equal(t, 2, list.TotalPages)
	assert.Equal(t, 2, list.CurrentPage)

	rec, err := svc.GetSource(ctx, owner, models.NetworkRef(recordID))
	require.NoError(t, err)
	assert.Equal(t, recordID, rec.(*models.NetworkTraffic).ID)

	_, err = svc.GetSource(ctx, testID(), models.NetworkRef(recordID))
	assert.ErrorIs(t, err, repository.ErrSourceNotFound)

	_, err = svc.GetSource(ctx, owner, models.NetworkRef("abc"))
	assert.ErrorIs(t, err, repository.ErrSourceNotFound)

	assert.ErrorIs(t, svc.DeleteSource(ctx, owner, models.EmailRef("abc")), repository.ErrSourceNotFound)
	assert.NoError(t, svc.DeleteSource(ctx, owner, models.EmailRef(recordID)))

	stats, err := svc.SourceStatistics(ctx, owner, models.AlertTypeNetwork)
	require.NoError(t, err)
	assert.Equal(t, 25.0, stats.AnomalyPercentage)

	_, err = svc.ListSources(ctx, owner, "sms", models.SourceFilter{}, 1, 10)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.SourceStatistics(ctx, owner, "sms")
	assert.ErrorIs(t, err, ErrValidation)
}
