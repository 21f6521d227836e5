// Package repositorytest provides a func-field fake of repository.Repository
// for service and handler tests.
package repositorytest

import (
	"context"
	"time"

	"github.com/threatlens/threatlens-stack/respond/internal/models"
	"github.com/threatlens/threatlens-stack/respond/internal/repository"
)

// MockRepository is a mock implementation of repository.Repository. Unset
// funcs succeed with zero values, except lookups, which return the matching
// NotFound sentinel.
type MockRepository struct {
	CreateAlertFunc       func(ctx context.Context, a *models.Alert) error
	ListAlertsFunc        func(ctx context.Context, userID string, filter models.AlertFilter, limit, offset int) ([]*models.Alert, int, error)
	GetAlertFunc          func(ctx context.Context, userID, id string) (*models.Alert, error)
	UpdateAlertStatusFunc func(ctx context.Context, userID, id string, change repository.StatusChange) (*models.Alert, error)
	AppendNoteFunc        func(ctx context.Context, userID, id string, note models.Note) (*models.Alert, error)
	AppendActionFunc      func(ctx context.Context, userID, id string, action models.Action) (*models.Alert, error)
	DeleteAlertFunc       func(ctx context.Context, userID, id string) error
	AlertStatisticsFunc   func(ctx context.Context, userID string, since time.Time) (*models.AlertStatistics, error)

	CreateNetworkTrafficFunc     func(ctx context.Context, rec *models.NetworkTraffic) error
	CreateEmailCommunicationFunc func(ctx context.Context, rec *models.EmailCommunication) error
	AttachPredictionFunc         func(ctx context.Context, userID string, ref models.SourceRef, p models.Prediction) error
	GetSourceFunc                func(ctx context.Context, userID string, ref models.SourceRef) (interface{}, error)
	ListSourcesFunc              func(ctx context.Context, userID string, kind models.AlertType, filter models.SourceFilter, limit, offset int) (interface{}, int, error)
	DeleteSourceFunc             func(ctx context.Context, userID string, ref models.SourceRef) error
	SourceStatisticsFunc         func(ctx context.Context, userID string, kind models.AlertType, since time.Time) (*models.SourceStatistics, error)
	ListPendingSourcesFunc       func(ctx context.Context, kind models.AlertType, before time.Time, limit int) (interface{}, error)

	CreateUserFunc     func(ctx context.Context, u *models.User) error
	GetUserByEmailFunc func(ctx context.Context, email string) (*models.User, error)
	GetUserByIDFunc    func(ctx context.Context, id string) (*models.User, error)
	UpdateUserFunc     func(ctx context.Context, u *models.User) error
	UpdatePasswordFunc func(ctx context.Context, id, passwordHash string) error
	ListUsersFunc      func(ctx context.Context, limit, offset int) ([]*models.User, int, error)
	DeleteUserFunc     func(ctx context.Context, id string) error

	PingFunc func(ctx context.Context) error
}

var _ repository.Repository = (*MockRepository)(nil)

func (m *MockRepository) CreateAlert(ctx context.Context, a *models.Alert) error {
	if m.CreateAlertFunc != nil {
		return m.CreateAlertFunc(ctx, a)
	}
	return nil
}

func (m *MockRepository) ListAlerts(ctx context.Context, userID string, filter models.AlertFilter, limit, offset int) ([]*models.Alert, int, error) {
	if m.ListAlertsFunc != nil {
		return m.ListAlertsFunc(ctx, userID, filter, limit, offset)
	}
	return []*models.Alert{}, 0, nil
}

func (m *MockRepository) GetAlert(ctx context.Context, userID, id string) (*models.Alert, error) {
	if m.GetAlertFunc != nil {
		return m.GetAlertFunc(ctx, userID, id)
	}
	return nil, repository.ErrAlertNotFound
}

func (m *MockRepository) UpdateAlertStatus(ctx context.Context, userID, id string, change repository.StatusChange) (*models.Alert, error) {
	if m.UpdateAlertStatusFunc != nil {
		return m.UpdateAlertStatusFunc(ctx, userID, id, change)
	}
	return nil, repository.ErrAlertNotFound
}

func (m *MockRepository) AppendNote(ctx context.Context, userID, id string, note models.Note) (*models.Alert, error) {
	if m.AppendNoteFunc != nil {
		return m.AppendNoteFunc(ctx, userID, id, note)
	}
	return nil, repository.ErrAlertNotFound
}

func (m *MockRepository) AppendAction(ctx context.Context, userID, id string, action models.Action) (*models.Alert, error) {
	if m.AppendActionFunc != nil {
		return m.AppendActionFunc(ctx, userID, id, action)
	}
	return nil, repository.ErrAlertNotFound
}

func (m *MockRepository) DeleteAlert(ctx context.Context, userID, id string) error {
	if m.DeleteAlertFunc != nil {
		return m.DeleteAlertFunc(ctx, userID, id)
	}
	return nil
}

func (m *MockRepository) AlertStatistics(ctx context.Context, userID string, since time.Time) (*models.AlertStatistics, error) {
	if m.AlertStatisticsFunc != nil {
		return m.AlertStatisticsFunc(ctx, userID, since)
	}
	return models.NewAlertStatistics(), nil
}

func (m *MockRepository) CreateNetworkTraffic(ctx context.Context, rec *models.NetworkTraffic) error {
	if m.CreateNetworkTrafficFunc != nil {
		return m.CreateNetworkTrafficFunc(ctx, rec)
	}
	return nil
}

func (m *MockRepository) CreateEmailCommunication(ctx context.Context, rec *models.EmailCommunication) error {
	if m.CreateEmailCommunicationFunc != nil {
		return m.CreateEmailCommunicationFunc(ctx, rec)
	}
	return nil
}

func (m *MockRepository) AttachPrediction(ctx context.Context, userID string, ref models.SourceRef, p models.Prediction) error {
	if m.AttachPredictionFunc != nil {
		return m.AttachPredictionFunc(ctx, userID, ref, p)
	}
	return nil
}

func (m *MockRepository) GetSource(ctx context.Context, userID string, ref models.SourceRef) (interface{}, error) {
	if m.GetSourceFunc != nil {
		return m.GetSourceFunc(ctx, userID, ref)
	}
	return nil, repository.ErrSourceNotFound
}

func (m *MockRepository) ListSources(ctx context.Context, userID string, kind models.AlertType, filter models.SourceFilter, limit, offset int) (interface{}, int, error) {
	if m.ListSourcesFunc != nil {
		return m.ListSourcesFunc(ctx, userID, kind, filter, limit, offset)
	}
	return []interface{}{}, 0, nil
}

func (m *MockRepository) DeleteSource(ctx context.Context, userID string, ref models.SourceRef) error {
	if m.DeleteSourceFunc != nil {
		return m.DeleteSourceFunc(ctx, userID, ref)
	}
	return nil
}

func (m *MockRepository) SourceStatistics(ctx context.Context, userID string, kind models.AlertType, since time.Time) (*models.SourceStatistics, error) {
	if m.SourceStatisticsFunc != nil {
		return m.SourceStatisticsFunc(ctx, userID, kind, since)
	}
	return &models.SourceStatistics{ThreatDistribution: map[string]int{}}, nil
}

func (m *MockRepository) ListPendingSources(ctx context.Context, kind models.AlertType, before time.Time, limit int) (interface{}, error) {
	if m.ListPendingSourcesFunc != nil {
		return m.ListPendingSourcesFunc(ctx, kind, before, limit)
	}
	if kind == models.AlertTypeEmail {
		return []*models.EmailCommunication{}, nil
	}
	return []*models.NetworkTraffic{}, nil
}

func (m *MockRepository) CreateUser(ctx context.Context, u *models.User) error {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, u)
	}
	return nil
}

func (m *MockRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetUserByEmailFunc != nil {
		return m.GetUserByEmailFunc(ctx, email)
	}
	return nil, repository.ErrUserNotFound
}

func (m *MockRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetUserByIDFunc != nil {
		return m.GetUserByIDFunc(ctx, id)
	}
	return nil, repository.ErrUserNotFound
}

func (m *MockRepository) UpdateUser(ctx context.Context, u *models.User) error {
	if m.UpdateUserFunc != nil {
		return m.UpdateUserFunc(ctx, u)
	}
	return nil
}

func (m *MockRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockRepository) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx, limit, offset)
	}
	return []*models.User{}, 0, nil
}

func (m *MockRepository) DeleteUser(ctx context.Context, id string) error {
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(ctx, id)
	}
	return nil
}

func (m *MockRepository) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockRepository) Close() error {
	return nil
}
