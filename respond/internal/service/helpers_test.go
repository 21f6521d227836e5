package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/threatlens/threatlens-stack/common/logging"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
	natspub "github.com/threatlens/threatlens-stack/respond/internal/nats"
	"github.com/threatlens/threatlens-stack/respond/internal/predict"
	"github.com/threatlens/threatlens-stack/respond/internal/repository/repositorytest"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type mockPredictor struct {
	predictFunc func(ctx context.Context, kind models.AlertType, features interface{}) (*predict.Result, error)
	calls       int
}

func (m *mockPredictor) Predict(ctx context.Context, kind models.AlertType, features interface{}) (*predict.Result, error) {
	m.calls++
	if m.predictFunc != nil {
		return m.predictFunc(ctx, kind, features)
	}
	return &predict.Result{IsAnomaly: false, AnomalyScore: floatPtr(0.1), Confidence: floatPtr(0.9)}, nil
}

func (m *mockPredictor) Health(ctx context.Context) (string, error) {
	return "healthy", nil
}

type recordingEvents struct {
	mu      sync.Mutex
	created []*natspub.AlertCreatedEvent
	updated []*natspub.AlertUpdatedEvent
	deleted []*natspub.AlertDeletedEvent
	err     error
}

func (r *recordingEvents) PublishAlertCreated(ctx context.Context, e *natspub.AlertCreatedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, e)
	return r.err
}

func (r *recordingEvents) PublishAlertUpdated(ctx context.Context, e *natspub.AlertUpdatedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, e)
	return r.err
}

func (r *recordingEvents) PublishAlertDeleted(ctx context.Context, e *natspub.AlertDeletedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, e)
	return r.err
}

type fakeTokens struct {
	err error
}

func (f fakeTokens) GenerateAccessToken(userID, role string) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return "token-for-" + userID + ":" + role, fixedNow.Add(time.Hour), nil
}

var errDatabase = errors.New("connection reset by peer")

func newTestService(repo *repositorytest.MockRepository, predictor *mockPredictor, events *recordingEvents) *Service {
	if predictor == nil {
		predictor = &mockPredictor{}
	}
	if events == nil {
		events = &recordingEvents{}
	}
	s := NewService(repo, predictor, fakeTokens{},
		WithEvents(events),
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { return fixedNow }),
	)
	s.hashCost = bcrypt.MinCost
	return s
}

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func statusPtr(s models.Status) *models.Status { return &s }

func testID() string { return uuid.NewString() }
