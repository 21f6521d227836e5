package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/threatlens/threatlens-stack/respond/internal/lifecycle"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
)

// setupTestDatabase starts a PostgreSQL container, migrates it and returns a
// repository. Tests are skipped without a container runtime.
func setupTestDatabase(t *testing.T) (*PostgresRepository, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("threatlens_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to get connection string: %v", err)
	}

	m, err := migrate.New("file://../../migrations", connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to initialize migrations: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}
	_, _ = m.Close()

	repo, err := NewPostgresRepository(ctx, connStr, 10)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to create repository: %v", err)
	}

	cleanup := func() {
		repo.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}
	return repo, cleanup
}

func newID(t *testing.T) string {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return id.String()
}

func createTestUser(t *testing.T, repo *PostgresRepository, email string) string {
	t.Helper()
	u := &models.User{
		ID:           newID(t),
		Name:         email,
		Email:        email,
		PasswordHash: "hash",
		Role:         "user",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u.ID
}

func createTestNetwork(t *testing.T, repo *PostgresRepository, userID string, ts time.Time) *models.NetworkTraffic {
	t.Helper()
	n := &models.NetworkTraffic{
		ID:            newID(t),
		UserID:        userID,
		Timestamp:     ts,
		SourceIP:      "10.0.0.1",
		DestinationIP: "10.0.0.2",
		Protocol:      "tcp",
		PacketSize:    512,
		PortNumber:    22,
		Status:        models.RecordPending,
		CreatedAt:     ts,
	}
	require.NoError(t, repo.CreateNetworkTraffic(context.Background(), n))
	return n
}

func createTestAlert(t *testing.T, repo *PostgresRepository, userID, refID string, detectedAt time.Time, sev models.Severity) *models.Alert {
	t.Helper()
	a := &models.Alert{
		ID:             newID(t),
		UserID:         userID,
		AlertType:      models.AlertTypeNetwork,
		ThreatClass:    "port_scan",
		Severity:       sev,
		Priority:       3,
		AnomalyScore:   0.5,
		Confidence:     0.9,
		Details:        "test",
		ReferenceID:    refID,
		ReferenceModel: models.ReferenceModelNetwork,
		Status:         models.StatusNew,
		DetectedAt:     detectedAt,
		CreatedAt:      detectedAt,
	}
	require.NoError(t, repo.CreateAlert(context.Background(), a))
	return a
}

func TestNewPostgresRepository_InvalidConnString(t *testing.T) {
	tests := []struct {
		name       string
		connString string
	}{
		{name: "invalid scheme", connString: "invalid://connection"},
		{name: "garbage", connString: "host=%%%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, err := NewPostgresRepository(ctx, tt.connString, 0)
			require.Error(t, err)
		})
	}
}

func TestAlerts_OwnershipIsolation(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	userA := createTestUser(t, repo, "a@example.com")
	userB := createTestUser(t, repo, "b@example.com")
	recA := createTestNetwork(t, repo, userA, now)
	recB := createTestNetwork(t, repo, userB, now)
	alertA := createTestAlert(t, repo, userA, recA.ID, now, models.SeverityHigh)
	alertB := createTestAlert(t, repo, userB, recB.ID, now, models.SeverityLow)

	list, total, err := repo.ListAlerts(ctx, userA, models.AlertFilter{}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, alertA.ID, list[0].ID)

	_, err = repo.GetAlert(ctx, userA, alertB.ID)
	assert.ErrorIs(t, err, ErrAlertNotFound)

	st := models.StatusResolved
	_, err = repo.UpdateAlertStatus(ctx, userA, alertB.ID, StatusChange{Status: &st, At: now})
	assert.ErrorIs(t, err, ErrAlertNotFound)

	_, err = repo.AppendNote(ctx, userA, alertB.ID, models.Note{User: userA, Note: "x", Timestamp: now})
	assert.ErrorIs(t, err, ErrAlertNotFound)

	_, err = repo.AppendAction(ctx, userA, alertB.ID, models.Action{Action: "x", User: userA, Timestamp: now})
	assert.ErrorIs(t, err, ErrAlertNotFound)

	assert.ErrorIs(t, repo.DeleteAlert(ctx, userA, alertB.ID), ErrAlertNotFound)

	stats, err := repo.AlertStatistics(ctx, userA, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalAlerts)
	assert.Equal(t, 1, stats.SeverityDistribution[models.SeverityHigh])
	assert.Equal(t, 0, stats.SeverityDistribution[models.SeverityLow])

	// B's alert is untouched by every attempt above.
	b, err := repo.GetAlert(ctx, userB, alertB.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, b.Status)
	assert.Empty(t, b.Notes)
	assert.Empty(t, b.ActionsTaken)

	_, err = repo.GetSource(ctx, userA, models.NetworkRef(recB.ID))
	assert.ErrorIs(t, err, ErrSourceNotFound)
	assert.ErrorIs(t, repo.DeleteSource(ctx, userA, models.NetworkRef(recB.ID)), ErrSourceNotFound)
}

func TestAlerts_StatusStampsSetOnce(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	t0 := time.Now().UTC().Truncate(time.Microsecond)

	user := createTestUser(t, repo, "stamp@example.com")
	rec := createTestNetwork(t, repo, user, t0)
	alert := createTestAlert(t, repo, user, rec.ID, t0, models.SeverityMedium)

	steps := []models.Status{
		models.StatusAcknowledged,
		models.StatusInvestigating,
		models.StatusAcknowledged,
		models.StatusResolved,
		models.StatusNew,
		models.StatusResolved,
	}
	for i, st := range steps {
		st := st
		at := t0.Add(time.Duration(i+1) * time.Minute)
		_, err := repo.UpdateAlertStatus(ctx, user, alert.ID, StatusChange{
			Status: &st,
			Stamp:  lifecycle.StampFor(st, at),
			At:     at,
		})
		require.NoError(t, err)
	}

	got, err := repo.GetAlert(ctx, user, alert.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AcknowledgedAt)
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, got.AcknowledgedAt.Equal(t0.Add(time.Minute)))
	assert.True(t, got.ResolvedAt.Equal(t0.Add(4*time.Minute)))
	assert.Equal(t, models.StatusResolved, got.Status)
}

func TestAlerts_AssignmentIndependentOfStatus(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	user := createTestUser(t, repo, "assign@example.com")
	analyst := createTestUser(t, repo, "analyst@example.com")
	rec := createTestNetwork(t, repo, user, now)
	alert := createTestAlert(t, repo, user, rec.ID, now, models.SeverityMedium)

	got, err := repo.UpdateAlertStatus(ctx, user, alert.ID, StatusChange{AssignedTo: &analyst, At: now})
	require.NoError(t, err)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, analyst, *got.AssignedTo)
	assert.Equal(t, models.StatusNew, got.Status)

	empty := ""
	got, err = repo.UpdateAlertStatus(ctx, user, alert.ID, StatusChange{AssignedTo: &empty, At: now})
	require.NoError(t, err)
	assert.Nil(t, got.AssignedTo)
}

func TestAlerts_ConcurrentAppendsAreMonotonic(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	user := createTestUser(t, repo, "append@example.com")
	rec := createTestNetwork(t, repo, user, now)
	alert := createTestAlert(t, repo, user, rec.ID, now, models.SeverityHigh)

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers*2)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := repo.AppendNote(ctx, user, alert.ID, models.Note{User: user, Note: fmt.Sprintf("note %d", i), Timestamp: now}); err != nil {
				errs <- err
			}
			if _, err := repo.AppendAction(ctx, user, alert.ID, models.Action{Action: fmt.Sprintf("action %d", i), User: user, Timestamp: now}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Interleave a status change; appends must survive it.
	st := models.StatusInvestigating
	_, err := repo.UpdateAlertStatus(ctx, user, alert.ID, StatusChange{Status: &st, At: now})
	require.NoError(t, err)

	got, err := repo.AppendNote(ctx, user, alert.ID, models.Note{User: user, Note: "last", Timestamp: now})
	require.NoError(t, err)
	assert.Len(t, got.Notes, writers+1)
	assert.Len(t, got.ActionsTaken, writers)
	assert.Equal(t, "last", got.Notes[len(got.Notes)-1].Note)
}

func TestAlerts_ListOrderingFiltersAndPaging(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	user := createTestUser(t, repo, "list@example.com")
	rec := createTestNetwork(t, repo, user, base)
	var ids []string
	for i := 0; i < 5; i++ {
		sev := models.SeverityLow
		if i%2 == 0 {
			sev = models.SeverityCritical
		}
		a := createTestAlert(t, repo, user, rec.ID, base.Add(time.Duration(i)*time.Minute), sev)
		ids = append(ids, a.ID)
	}

	page, total, err := repo.ListAlerts(ctx, user, models.AlertFilter{}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	page, _, err = repo.ListAlerts(ctx, user, models.AlertFilter{}, 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	critical, total, err := repo.ListAlerts(ctx, user, models.AlertFilter{Severity: models.SeverityCritical}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, critical, 3)

	none, total, err := repo.ListAlerts(ctx, user, models.AlertFilter{AlertType: models.AlertTypeEmail}, 50, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestAlerts_StatisticsZeroFilledAndRecent(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	user := createTestUser(t, repo, "stats@example.com")
	stats, err := repo.AlertStatistics(ctx, user, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, stats.TotalAlerts)
	assert.Len(t, stats.ByStatus, len(models.Statuses))

	rec := createTestNetwork(t, repo, user, now)
	createTestAlert(t, repo, user, rec.ID, now.Add(-48*time.Hour), models.SeverityLow)
	createTestAlert(t, repo, user, rec.ID, now, models.SeverityLow)

	stats, err = repo.AlertStatistics(ctx, user, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalAlerts)
	assert.Equal(t, 1, stats.RecentAlerts24h)
	assert.Equal(t, 2, stats.ByStatus[models.StatusNew])
	assert.Equal(t, 0, stats.ByStatus[models.StatusFalsePositive])
	assert.Equal(t, 2, stats.TypeDistribution[models.AlertTypeNetwork])
	assert.Equal(t, 0, stats.TypeDistribution[models.AlertTypeEmail])
	assert.Equal(t, 2, stats.ThreatDistribution["port_scan"])
}

func TestSources_PredictionLifecycle(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	user := createTestUser(t, repo, "sources@example.com")
	rec := createTestNetwork(t, repo, user, now)

	got, err := repo.GetSource(ctx, user, models.NetworkRef(rec.ID))
	require.NoError(t, err)
	n := got.(*models.NetworkTraffic)
	assert.Nil(t, n.IsAnomaly)
	assert.Equal(t, models.RecordPending, n.Status)

	isAnomaly, score, conf, class := true, 0.91, 0.8, "ddos"
	require.NoError(t, repo.AttachPrediction(ctx, user, models.NetworkRef(rec.ID), models.Prediction{
		IsAnomaly: &isAnomaly, AnomalyScore: &score, Confidence: &conf, ThreatClass: &class, PredictionTimestamp: &now,
	}))

	got, err = repo.GetSource(ctx, user, models.NetworkRef(rec.ID))
	require.NoError(t, err)
	n = got.(*models.NetworkTraffic)
	require.NotNil(t, n.IsAnomaly)
	assert.True(t, *n.IsAnomaly)
	assert.Equal(t, models.RecordAnalyzed, n.Status)

	// The pending → analyzed change happens once.
	again := false
	err = repo.AttachPrediction(ctx, user, models.NetworkRef(rec.ID), models.Prediction{IsAnomaly: &again, PredictionTimestamp: &now})
	assert.ErrorIs(t, err, ErrAlreadyAnalyzed)
	got, err = repo.GetSource(ctx, user, models.NetworkRef(rec.ID))
	require.NoError(t, err)
	assert.True(t, *got.(*models.NetworkTraffic).IsAnomaly)

	other := createTestUser(t, repo, "sources-other@example.com")
	err = repo.AttachPrediction(ctx, other, models.NetworkRef(rec.ID), models.Prediction{IsAnomaly: &again})
	assert.ErrorIs(t, err, ErrSourceNotFound)
	err = repo.AttachPrediction(ctx, user, models.NetworkRef(newID(t)), models.Prediction{IsAnomaly: &again})
	assert.ErrorIs(t, err, ErrSourceNotFound)

	createTestNetwork(t, repo, user, now)
	list, total, err := repo.ListSources(ctx, user, models.AlertTypeNetwork, models.SourceFilter{AnomalyOnly: true}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list.([]*models.NetworkTraffic), 1)

	stats, err := repo.SourceStatistics(ctx, user, models.AlertTypeNetwork, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Anomalies)
	assert.Equal(t, 1, stats.Normal)
	assert.Equal(t, 50.0, stats.AnomalyPercentage)
	assert.Equal(t, 1, stats.ThreatDistribution["ddos"])

	emails, total, err := repo.ListSources(ctx, user, models.AlertTypeEmail, models.SourceFilter{}, 50, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, emails.([]*models.EmailCommunication))

	require.NoError(t, repo.DeleteSource(ctx, user, models.NetworkRef(rec.ID)))
	_, err = repo.GetSource(ctx, user, models.NetworkRef(rec.ID))
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestSources_ListPendingAcrossOwners(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	alice := createTestUser(t, repo, "pending-a@example.com")
	bob := createTestUser(t, repo, "pending-b@example.com")

	oldest := createTestNetwork(t, repo, alice, now.Add(-3*time.Hour))
	older := createTestNetwork(t, repo, bob, now.Add(-2*time.Hour))
	analyzed := createTestNetwork(t, repo, alice, now.Add(-time.Hour))
	createTestNetwork(t, repo, bob, now)

	isAnomaly := false
	require.NoError(t, repo.AttachPrediction(ctx, alice, models.NetworkRef(analyzed.ID), models.Prediction{
		IsAnomaly: &isAnomaly, PredictionTimestamp: &now,
	}))

	got, err := repo.ListPendingSources(ctx, models.AlertTypeNetwork, now.Add(-time.Minute), 10)
	require.NoError(t, err)
	pending := got.([]*models.NetworkTraffic)
	require.Len(t, pending, 2)
	assert.Equal(t, oldest.ID, pending[0].ID)
	assert.Equal(t, alice, pending[0].UserID)
	assert.Equal(t, older.ID, pending[1].ID)
	assert.Equal(t, bob, pending[1].UserID)

	got, err = repo.ListPendingSources(ctx, models.AlertTypeNetwork, now.Add(-time.Minute), 1)
	require.NoError(t, err)
	assert.Len(t, got.([]*models.NetworkTraffic), 1)

	got, err = repo.ListPendingSources(ctx, models.AlertTypeEmail, now, 10)
	require.NoError(t, err)
	assert.Empty(t, got.([]*models.EmailCommunication))
}

func TestUsers_CreateAndLookup(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	id := createTestUser(t, repo, "dup@example.com")

	byEmail, err := repo.GetUserByEmail(ctx, "dup@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)

	byID, err := repo.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "dup@example.com", byID.Email)

	err = repo.CreateUser(ctx, &models.User{ID: newID(t), Name: "x", Email: "dup@example.com", PasswordHash: "h", Role: "user", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = repo.GetUserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUsers_UpdateListAndDelete(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	first := createTestUser(t, repo, "first@example.com")
	second := createTestUser(t, repo, "second@example.com")

	u, err := repo.GetUserByID(ctx, second)
	require.NoError(t, err)
	u.Name = "Second"
	u.Role = models.RoleAdmin
	require.NoError(t, repo.UpdateUser(ctx, u))

	u.Email = "first@example.com"
	assert.ErrorIs(t, repo.UpdateUser(ctx, u), ErrEmailTaken)
	assert.ErrorIs(t, repo.UpdateUser(ctx, &models.User{ID: newID(t), Name: "x", Email: "x@example.com", Role: models.RoleUser}), ErrUserNotFound)

	u.Email = "second@example.com"
	u.Role = "root"
	assert.Error(t, repo.UpdateUser(ctx, u), "unknown roles are rejected by the schema")

	got, err := repo.GetUserByID(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Name)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.Equal(t, "second@example.com", got.Email)

	require.NoError(t, repo.UpdatePassword(ctx, first, "new-hash"))
	got, err = repo.GetUserByID(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.ErrorIs(t, repo.UpdatePassword(ctx, newID(t), "h"), ErrUserNotFound)

	users, total, err := repo.ListUsers(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, users, 1)

	rec := createTestNetwork(t, repo, first, time.Now())
	alert := createTestAlert(t, repo, first, rec.ID, time.Now(), models.SeverityHigh)

	require.NoError(t, repo.DeleteUser(ctx, first))
	assert.ErrorIs(t, repo.DeleteUser(ctx, first), ErrUserNotFound)

	_, err = repo.GetAlert(ctx, first, alert.ID)
	assert.ErrorIs(t, err, ErrAlertNotFound, "alerts go with their owner")

	_, total, err = repo.ListUsers(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
