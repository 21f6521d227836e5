package repository

import (
	"context"
	"errors"
	"time"

	"github.com/threatlens/threatlens-stack/respond/internal/lifecycle"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
)

var (
	// ErrAlertNotFound covers both missing alerts and alerts owned by someone else.
	ErrAlertNotFound   = errors.New("alert not found")
	ErrSourceNotFound  = errors.New("source record not found")
	// ErrAlreadyAnalyzed means the record already carries a prediction.
	ErrAlreadyAnalyzed = errors.New("source record already analyzed")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
)

// StatusChange is an owner-scoped status/assignment update. Nil fields are
// left untouched; an empty AssignedTo clears the assignment.
type StatusChange struct {
	Status     *models.Status
	AssignedTo *string
	Stamp      lifecycle.Stamp
	At         time.Time
}

// AlertRepository persists alerts. Every method except CreateAlert takes the
// owning user id and never reads or writes another user's rows.
type AlertRepository interface {
	CreateAlert(ctx context.Context, a *models.Alert) error
	ListAlerts(ctx context.Context, userID string, filter models.AlertFilter, limit, offset int) ([]*models.Alert, int, error)
	GetAlert(ctx context.Context, userID, id string) (*models.Alert, error)
	UpdateAlertStatus(ctx context.Context, userID, id string, change StatusChange) (*models.Alert, error)
	AppendNote(ctx context.Context, userID, id string, note models.Note) (*models.Alert, error)
	AppendAction(ctx context.Context, userID, id string, action models.Action) (*models.Alert, error)
	DeleteAlert(ctx context.Context, userID, id string) error
	AlertStatistics(ctx context.Context, userID string, since time.Time) (*models.AlertStatistics, error)
}

// SourceRepository persists network and email records, dispatching on
// SourceRef.Kind.
type SourceRepository interface {
	CreateNetworkTraffic(ctx context.Context, rec *models.NetworkTraffic) error
	CreateEmailCommunication(ctx context.Context, rec *models.EmailCommunication) error
	// AttachPrediction only updates a pending record. A record that is
	// already analyzed yields ErrAlreadyAnalyzed.
	AttachPrediction(ctx context.Context, userID string, ref models.SourceRef, p models.Prediction) error
	// GetSource returns *models.NetworkTraffic or *models.EmailCommunication.
	GetSource(ctx context.Context, userID string, ref models.SourceRef) (interface{}, error)
	ListSources(ctx context.Context, userID string, kind models.AlertType, filter models.SourceFilter, limit, offset int) (interface{}, int, error)
	DeleteSource(ctx context.Context, userID string, ref models.SourceRef) error
	SourceStatistics(ctx context.Context, userID string, kind models.AlertType, since time.Time) (*models.SourceStatistics, error)
	// ListPendingSources returns up to limit records of kind, across all
	// owners, still awaiting a prediction and created before before. Oldest
	// first.
	ListPendingSources(ctx context.Context, kind models.AlertType, before time.Time, limit int) (interface{}, error)
}

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// UpdateUser writes u's name, email and role.
	UpdateUser(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// ListUsers returns a page of accounts, oldest first, with the total.
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int, error)
	// DeleteUser removes an account together with its records and alerts.
	DeleteUser(ctx context.Context, id string) error
}

// Repository is the full storage surface of the respond service.
type Repository interface {
	AlertRepository
	SourceRepository
	UserRepository

	Ping(ctx context.Context) error
	Close() error
}
