package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatlens/threatlens-stack/respond/internal/models"
	natspub "github.com/threatlens/threatlens-stack/respond/internal/nats"
	"github.com/threatlens/threatlens-stack/respond/internal/repository"
	"github.com/threatlens/threatlens-stack/respond/internal/repository/repositorytest"
)

func TestListAlerts_Pagination(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		total      int
		wantPage   int
		wantLimit  int
		wantOffset int
		wantPages  int
	}{
		{"defaults for zero values", 0, 0, 120, 1, 50, 0, 3},
		{"negative page and limit", -3, -1, 10, 1, 50, 0, 1},
		{"explicit page", 3, 20, 45, 3, 20, 40, 3},
		{"large limit is honoured", 1, 500, 501, 1, 500, 0, 2},
		{"empty result", 2, 10, 0, 2, 10, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner := testID()
			repo := &repositorytest.MockRepository{
				ListAlertsFunc: func(ctx context.Context, userID string, filter models.AlertFilter, limit, offset int) ([]*models.Alert, int, error) {
					assert.Equal(t, owner, userID)
					assert.Equal(t, tt.wantLimit, limit)
					assert.Equal(t, tt.wantOffset, offset)
					return []*models.Alert{}, tt.total, nil
				},
			}
			svc := newTestService(repo, nil, nil)

			resp, err := svc.ListAlerts(context.Background(), owner, models.AlertFilter{}, tt.page, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, resp.CurrentPage)
			assert.Equal(t, tt.wantPages, resp.TotalPages)
			assert.Equal(t, tt.total, resp.Total)
			assert.NotNil(t, resp.Data)
		})
	}
}

func TestListAlerts_ConfiguredDefaultPageSize(t *testing.T) {
	repo := &repositorytest.MockRepository{
		ListAlertsFunc: func(ctx context.Context, userID string, filter models.AlertFilter, limit, offset int) ([]*models.Alert, int, error) {
			assert.Equal(t, 25, limit)
			return nil, 0, nil
		},
	}
	svc := newTestService(repo, nil, nil)
	WithDefaultPageSize(25)(svc)

	_, err := svc.ListAlerts(context.Background(), testID(), models.AlertFilter{}, 1, 0)
	require.NoError(t, err)
}

func TestListAlerts_FilterValidation(t *testing.T) {
	tests := []struct {
		name    string
		filter  models.AlertFilter
		wantErr bool
	}{
		{"no filter", models.AlertFilter{}, false},
		{"all valid", models.AlertFilter{Status: models.StatusResolved, Severity: models.SeverityHigh, AlertType: models.AlertTypeEmail}, false},
		{"unknown status", models.AlertFilter{Status: "closed"}, true},
		{"unknown severity", models.AlertFilter{Severity: "info"}, true},
		{"unknown type", models.AlertFilter{AlertType: "sms"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			repo := &repositorytest.MockRepository{
				ListAlertsFunc: func(ctx context.Context, userID string, filter models.AlertFilter, limit, offset int) ([]*models.Alert, int, error) {
					called = true
					assert.Equal(t, tt.filter, filter)
					return nil, 0, nil
				},
			}
			svc := newTestService(repo, nil, nil)

			_, err := svc.ListAlerts(context.Background(), testID(), tt.filter, 1, 10)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				assert.False(t, called)
				return
			}
			require.NoError(t, err)
			assert.True(t, called)
		})
	}
}

func TestAlertOperations_RequireOwner(t *testing.T) {
	svc := newTestService(&repositorytest.MockRepository{}, nil, nil)
	ctx := context.Background()
	id := testID()

	_, err := svc.ListAlerts(ctx, "", models.AlertFilter{}, 1, 10)
	assert.ErrorIs(t, err, ErrMissingOwner)
	_, err = svc.GetAlert(ctx, "", id)
	assert.ErrorIs(t, err, ErrMissingOwner)
	_, err = svc.UpdateAlertStatus(ctx, "", id, &models.UpdateStatusRequest{Status: statusPtr(models.StatusResolved)})
	assert.ErrorIs(t, err, ErrMissingOwner)
	_, err = svc.AddNote(ctx, "", id, &models.AddNoteRequest{Note: "n"})
	assert.ErrorIs(t, err, ErrMissingOwner)
	_, err = svc.AddAction(ctx, "", id, &models.AddActionRequest{Action: "a"})
	assert.ErrorIs(t, err, ErrMissingOwner)
	assert.ErrorIs(t, svc.DeleteAlert(ctx, "", id), ErrMissingOwner)
	_, err = svc.AlertStatistics(ctx, "")
	assert.ErrorIs(t, err, ErrMissingOwner)
}

func TestAlertOperations_MalformedIDIsNotFound(t *testing.T) {
	repo := &repositorytest.MockRepository{
		GetAlertFunc: func(ctx context.Context, userID, id string) (*models.Alert, error) {
			t.Fatal("repository must not be queried with a malformed id")
			return nil, nil
		},
	}
	svc := newTestService(repo, nil, nil)
	ctx := context.Background()
	owner := testID()

	_, err := svc.GetAlert(ctx, owner, "42")
	assert.ErrorIs(t, err, repository.ErrAlertNotFound)
	_, err = svc.UpdateAlertStatus(ctx, owner, "42", &models.UpdateStatusRequest{Status: statusPtr(models.StatusNew)})
	assert.ErrorIs(t, err, repository.ErrAlertNotFound)
	_, err = svc.AddNote(ctx, owner, "42", &models.AddNoteRequest{Note: "n"})
	assert.ErrorIs(t, err, repository.ErrAlertNotFound)
	_, err = svc.AddAction(ctx, owner, "42", &models.AddActionRequest{Action: "a"})
	assert.ErrorIs(t, err, repository.ErrAlertNotFound)
	assert.ErrorIs(t, svc.DeleteAlert(ctx, owner, "42"), repository.ErrAlertNotFound)
}

func TestGetAlert_WithOriginalData(t *testing.T) {
	owner := testID()
	alertID := testID()
	sourceID := testID()

	tests := []struct {
		name      string
		sourceErr error
		wantData  bool
		wantErr   error
	}{
		{"source present", nil, true, nil},
		{"source deleted", repository.ErrSourceNotFound, false, nil},
		{"source lookup fails", errDatabase, false, errDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &models.NetworkTraffic{ID: sourceID, UserID: owner}
			repo := &repositorytest.MockRepository{
				GetAlertFunc: func(ctx context.Context, userID, id string) (*models.Alert, error) {
					return &models.Alert{
						ID: id, UserID: userID, AlertType: models.AlertTypeNetwork,
						ReferenceID: sourceID, ReferenceModel: models.ReferenceModelNetwork,
					}, nil
				},
				GetSourceFunc: func(ctx context.Context, userID string, ref models.SourceRef) (interface{}, error) {
					assert.Equal(t, owner, userID)
					assert.Equal(t, models.NetworkRef(sourceID), ref)
					if tt.sourceErr != nil {
						return nil, tt.sourceErr
					}
					return record, nil
				},
			}
			svc := newTestService(repo, nil, nil)

			detail, err := svc.GetAlert(context.Background(), owner, alertID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, alertID, detail.Alert.ID)
			if tt.wantData {
				assert.Same(t, record, detail.OriginalData)
			} else {
				assert.Nil(t, detail.OriginalData)
			}
		})
	}
}

func TestGetAlert_UnknownReferenceModel(t *testing.T) {
	repo := &repositorytest.MockRepository{
		GetAlertFunc: func(ctx context.Context, userID, id string) (*models.Alert, error) {
			return &models.Alert{ID: id, ReferenceModel: "Legacy"}, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	detail, err := svc.GetAlert(context.Background(), testID(), testID())
	require.NoError(t, err)
	assert.Nil(t, detail.OriginalData)
}

func TestUpdateAlertStatus(t *testing.T) {
	owner := testID()
	assignee := testID()

	tests := []struct {
		name        string
		current     models.Status
		req         *models.UpdateStatusRequest
		wantErr     error
		wantLookup  bool
		checkChange func(t *testing.T, c repository.StatusChange)
	}{
		{
			name:       "acknowledge stamps acknowledged_at",
			current:    models.StatusNew,
			req:        &models.UpdateStatusRequest{Status: statusPtr(models.StatusAcknowledged)},
			wantLookup: true,
			checkChange: func(t *testing.T, c repository.StatusChange) {
				require.NotNil(t, c.Stamp.AcknowledgedAt)
				assert.Equal(t, fixedNow, *c.Stamp.AcknowledgedAt)
				assert.Nil(t, c.Stamp.ResolvedAt)
				assert.Nil(t, c.AssignedTo)
			},
		},
		{
			name:       "resolve stamps resolved_at",
			current:    models.StatusInvestigating,
			req:        &models.UpdateStatusRequest{Status: statusPtr(models.StatusResolved)},
			wantLookup: true,
			checkChange: func(t *testing.T, c repository.StatusChange) {
				assert.Nil(t, c.Stamp.AcknowledgedAt)
				require.NotNil(t, c.Stamp.ResolvedAt)
			},
		},
		{
			name:       "false positive stamps nothing",
			current:    models.StatusNew,
			req:        &models.UpdateStatusRequest{Status: statusPtr(models.StatusFalsePositive)},
			wantLookup: true,
			checkChange: func(t *testing.T, c repository.StatusChange) {
				assert.Nil(t, c.Stamp.AcknowledgedAt)
				assert.Nil(t, c.Stamp.ResolvedAt)
			},
		},
		{
			name:       "resolved back to new is allowed",
			current:    models.StatusResolved,
			req:        &models.UpdateStatusRequest{Status: statusPtr(models.StatusNew)},
			wantLookup: true,
			checkChange: func(t *testing.T, c repository.StatusChange) {
				assert.Equal(t, models.StatusNew, *c.Status)
			},
		},
		{
			name: "assignment only skips lifecycle",
			req:  &models.UpdateStatusRequest{AssignedTo: &assignee},
			checkChange: func(t *testing.T, c repository.StatusChange) {
				assert.Nil(t, c.Status)
				assert.Equal(t, assignee, *c.AssignedTo)
				assert.Nil(t, c.Stamp.AcknowledgedAt)
			},
		},
		{
			name: "empty assignee clears",
			req:  &models.UpdateStatusRequest{AssignedTo: strPtr("")},
			checkChange: func(t *testing.T, c repository.StatusChange) {
				assert.Equal(t, "", *c.AssignedTo)
			},
		},
		{
			name:    "unknown status",
			req:     &models.UpdateStatusRequest{Status: statusPtr("closed")},
			wantErr: ErrValidation,
		},
		{
			name:    "empty request",
			req:     &models.UpdateStatusRequest{},
			wantErr: ErrValidation,
		},
		{
			name:    "assignee must be an id",
			req:     &models.UpdateStatusRequest{AssignedTo: strPtr("bob")},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alertID := testID()
			looked := false
			var got repository.StatusChange
			repo := &repositorytest.MockRepository{
				GetAlertFunc: func(ctx context.Context, userID, id string) (*models.Alert, error) {
					looked = true
					return &models.Alert{ID: id, UserID: userID, Status: tt.current}, nil
				},
				UpdateAlertStatusFunc: func(ctx context.Context, userID, id string, c repository.StatusChange) (*models.Alert, error) {
					assert.Equal(t, owner, userID)
					assert.Equal(t, alertID, id)
					got = c
					a := &models.Alert{ID: id, UserID: userID, Status: tt.current, UpdatedAt: c.At}
					if c.Status != nil {
						a.Status = *c.Status
					}
					return a, nil
				},
			}
			events := &recordingEvents{}
			svc := newTestService(repo, nil, events)

			alert, err := svc.UpdateAlertStatus(context.Background(), owner, alertID, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, events.updated)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantLookup, looked)
			assert.Equal(t, fixedNow, got.At)
			tt.checkChange(t, got)

			require.Len(t, events.updated, 1)
			assert.Equal(t, natspub.ChangeStatus, events.updated[0].Change)
			assert.Equal(t, string(alert.Status), events.updated[0].Status)
		})
	}
}

func TestUpdateAlertStatus_NotFound(t *testing.T) {
	svc := newTestService(&repositorytest.MockRepository{}, nil, nil)

	_, err := svc.UpdateAlertStatus(context.Background(), testID(), testID(),
		&models.UpdateStatusRequest{Status: statusPtr(models.StatusResolved)})
	assert.ErrorIs(t, err, repository.ErrAlertNotFound)
}

func TestAddNoteAndAction(t *testing.T) {
	owner := testID()
	alertID := testID()

	var note models.Note
	var action models.Action
	repo := &repositorytest.MockRepository{
		AppendNoteFunc: func(ctx context.Context, userID, id string, n models.Note) (*models.Alert, error) {
			note = n
			return &models.Alert{ID: id, UserID: userID, Notes: []models.Note{n}}, nil
		},
		AppendActionFunc: func(ctx context.Context, userID, id string, a models.Action) (*models.Alert, error) {
			action = a
			return &models.Alert{ID: id, UserID: userID, ActionsTaken: []models.Action{a}}, nil
		},
	}
	events := &recordingEvents{}
	svc := newTestService(repo, nil, events)
	ctx := context.Background()

	alert, err := svc.AddNote(ctx, owner, alertID, &models.AddNoteRequest{Note: "checked firewall logs"})
	require.NoError(t, err)
	assert.Len(t, alert.Notes, 1)
	assert.Equal(t, models.Note{User: owner, Note: "checked firewall logs", Timestamp: fixedNow}, note)

	alert, err = svc.AddAction(ctx, owner, alertID, &models.AddActionRequest{Action: "blocked 10.0.0.5"})
	require.NoError(t, err)
	assert.Len(t, alert.ActionsTaken, 1)
	assert.Equal(t, models.Action{Action: "blocked 10.0.0.5", User: owner, Timestamp: fixedNow}, action)

	require.Len(t, events.updated, 2)
	assert.Equal(t, natspub.ChangeNote, events.updated[0].Change)
	assert.Equal(t, natspub.ChangeAction, events.updated[1].Change)

	_, err = svc.AddNote(ctx, owner, alertID, &models.AddNoteRequest{Note: "   "})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.AddAction(ctx, owner, alertID, &models.AddActionRequest{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteAlert(t *testing.T) {
	owner := testID()
	alertID := testID()
	deleted := false
	repo := &repositorytest.MockRepository{
		DeleteAlertFunc: func(ctx context.Context, userID, id string) error {
			if userID != owner {
				return repository.ErrAlertNotFound
			}
			deleted = true
			return nil
		},
	}
	events := &recordingEvents{}
	svc := newTestService(repo, nil, events)

	assert.ErrorIs(t, svc.DeleteAlert(context.Background(), testID(), alertID), repository.ErrAlertNotFound)
	assert.False(t, deleted)
	assert.Empty(t, events.deleted)

	require.NoError(t, svc.DeleteAlert(context.Background(), owner, alertID))
	assert.True(t, deleted)
	require.Len(t, events.deleted, 1)
	assert.Equal(t, alertID, events.deleted[0].AlertID)
}

func TestAlertStatistics_RecentWindow(t *testing.T) {
	owner := testID()
	repo := &repositorytest.MockRepository{
		AlertStatisticsFunc: func(ctx context.Context, userID string, since time.Time) (*models.AlertStatistics, error) {
			assert.Equal(t, owner, userID)
			assert.Equal(t, fixedNow.Add(-24*time.Hour), since)
			return models.NewAlertStatistics(), nil
		},
	}
	svc := newTestService(repo, nil, nil)

	stats, err := svc.AlertStatistics(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalAlerts)
	assert.Len(t, stats.ByStatus, len(models.Statuses))
	assert.Len(t, stats.SeverityDistribution, len(models.Severities))
	assert.Len(t, stats.TypeDistribution, len(models.AlertTypes))
	assert.Empty(t, stats.ThreatDistribution)
}
