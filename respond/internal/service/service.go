// Package service holds the business logic of the respond service: alert
// derivation and lifecycle, record ingestion and account management.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/threatlens/threatlens-stack/common/httputil"
	"github.com/threatlens/threatlens-stack/common/logging"
	"github.com/threatlens/threatlens-stack/respond/internal/metrics"
	natspub "github.com/threatlens/threatlens-stack/respond/internal/nats"
	"github.com/threatlens/threatlens-stack/respond/internal/predict"
	"github.com/threatlens/threatlens-stack/respond/internal/repository"
)

var (
	// ErrValidation is wrapped with a detail message for every rejected input.
	ErrValidation         = errors.New("validation failed")
	ErrMissingOwner       = errors.New("owner id is required")
	ErrMissingReference   = errors.New("reference id is required")
	ErrInvalidPrediction  = errors.New("prediction is missing anomaly_score or confidence")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSelfManagement     = errors.New("admins cannot delete or demote their own account")
)

// DefaultPageSize applies when a caller asks for a page size below one.
const DefaultPageSize = 50

// recentWindow is the look-back used by the *_24h statistics.
const recentWindow = 24 * time.Hour

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	GenerateAccessToken(userID, role string) (string, time.Time, error)
}

// Service handles business logic for alerts, source records and accounts
type Service struct {
	repo      repository.Repository
	predictor predict.Predictor
	tokens    TokenIssuer
	events    natspub.EventPublisher
	logger    *logging.Logger
	now       func() time.Time
	pageSize  int
	hashCost  int
	admins    map[string]bool
}

// Option customises a Service.
type Option func(*Service)

// WithEvents publishes alert events through p.
func WithEvents(p natspub.EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaultPageSize sets the page size used when a list request has none.
func WithDefaultPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithAdminEmails grants the admin role to accounts that sign up with one of
// emails.
func WithAdminEmails(emails []string) Option {
	return func(s *Service) {
		for _, e := range emails {
			if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
				s.admins[e] = true
			}
		}
	}
}

// NewService creates a new service instance
func NewService(repo repository.Repository, predictor predict.Predictor, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		predictor: predictor,
		tokens:    tokens,
		events:    natspub.NoOpPublisher{},
		logger:    logging.Default(),
		now:       time.Now,
		pageSize:  DefaultPageSize,
		hashCost:  bcrypt.DefaultCost,
		admins:    map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the database.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// PredictionHealth reports the prediction service's own health status.
func (s *Service) PredictionHealth(ctx context.Context) (string, error) {
	return s.predictor.Health(ctx)
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// validID reports whether id can name a row. Malformed ids are treated as
// not found rather than as bad input.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// normalizePage applies the listing defaults: page < 1 becomes 1 and a page
// size < 1 becomes the service default. Large page sizes are honoured.
func (s *Service) normalizePage(page, limit int) httputil.Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.pageSize
	}
	return httputil.Pagination{Page: page, Limit: limit}
}

// publish runs fn and logs a failure. Event delivery never fails a request.
func (s *Service) publish(ctx context.Context, subject string, fn func() error) {
	if err := fn(); err != nil {
		metrics.EventPublishErrors.WithLabelValues(subject).Inc()
		s.logger.WarnContext(ctx, "failed to publish alert event",
			logging.Error(err),
			"subject", subject,
		)
	}
}
