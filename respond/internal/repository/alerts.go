package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/threatlens/threatlens-stack/common/database"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
)

const alertColumns = `
	id, user_id, alert_type, threat_class, severity, priority,
	anomaly_score, confidence, details, reference_id, reference_model,
	status, assigned_to, notes, actions_taken,
	detected_at, acknowledged_at, resolved_at, created_at, updated_at`

func scanAlert(row pgx.Row) (*models.Alert, error) {
	a := &models.Alert{}
	err := row.Scan(
		&a.ID, &a.UserID, &a.AlertType, &a.ThreatClass, &a.Severity, &a.Priority,
		&a.AnomalyScore, &a.Confidence, &a.Details, &a.ReferenceID, &a.ReferenceModel,
		&a.Status, &a.AssignedTo, &a.Notes, &a.ActionsTaken,
		&a.DetectedAt, &a.AcknowledgedAt, &a.ResolvedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAlert inserts a fully populated alert.
func (r *PostgresRepository) CreateAlert(ctx context.Context, a *models.Alert) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	notes, err := json.Marshal(nonNilNotes(a.Notes))
	if err != nil {
		return fmt.Errorf("failed to encode notes: %w", err)
	}
	actions, err := json.Marshal(nonNilActions(a.ActionsTaken))
	if err != nil {
		return fmt.Errorf("failed to encode actions: %w", err)
	}

	query := `
		INSERT INTO alerts (
			id, user_id, alert_type, threat_class, severity, priority,
			anomaly_score, confidence, details, reference_id, reference_model,
			status, assigned_to, notes, actions_taken, detected_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::jsonb, $15::jsonb, $16, $17, $17)
	`

	_, err = r.pool.Exec(ctx, query,
		a.ID, a.UserID, a.AlertType, a.ThreatClass, a.Severity, a.Priority,
		a.AnomalyScore, a.Confidence, a.Details, a.ReferenceID, a.ReferenceModel,
		a.Status, a.AssignedTo, string(notes), string(actions), a.DetectedAt, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// ListAlerts returns one page of the owner's alerts, newest detection first,
// plus the total matching count.
func (r *PostgresRepository) ListAlerts(ctx context.Context, userID string, filter models.AlertFilter, limit, offset int) ([]*models.Alert, int, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	whereClause := "WHERE user_id = $1"
	args := []interface{}{userID}
	argPos := 2

	if filter.Status != "" {
		whereClause += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}
	if filter.Severity != "" {
		whereClause += fmt.Sprintf(" AND severity = $%d", argPos)
		args = append(args, filter.Severity)
		argPos++
	}
	if filter.AlertType != "" {
		whereClause += fmt.Sprintf(" AND alert_type = $%d", argPos)
		args = append(args, filter.AlertType)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM alerts "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM alerts
		%s
		ORDER BY detected_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, alertColumns, whereClause, argPos, argPos+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}

	return alerts, total, nil
}

// GetAlert returns one of the owner's alerts.
func (r *PostgresRepository) GetAlert(ctx context.Context, userID, id string) (*models.Alert, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	query := "SELECT " + alertColumns + " FROM alerts WHERE id = $1 AND user_id = $2"
	a, err := scanAlert(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

// UpdateAlertStatus applies a status and/or assignment change in a single
// statement. Lifecycle timestamps only fill columns that are still null.
func (r *PostgresRepository) UpdateAlertStatus(ctx context.Context, userID, id string, change StatusChange) (*models.Alert, error) {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	setClauses := []string{"updated_at = $1"}
	args := []interface{}{change.At}
	argPos := 2

	if change.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *change.Status)
		argPos++
	}
	if change.Stamp.AcknowledgedAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("acknowledged_at = COALESCE(acknowledged_at, $%d)", argPos))
		args = append(args, *change.Stamp.AcknowledgedAt)
		argPos++
	}
	if change.Stamp.ResolvedAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("resolved_at = COALESCE(resolved_at, $%d)", argPos))
		args = append(args, *change.Stamp.ResolvedAt)
		argPos++
	}
	if change.AssignedTo != nil {
		setClauses = append(setClauses, fmt.Sprintf("assigned_to = NULLIF($%d, '')::uuid", argPos))
		args = append(args, *change.AssignedTo)
		argPos++
	}

	args = append(args, id, userID)
	query := fmt.Sprintf(`
		UPDATE alerts
		SET %s
		WHERE id = $%d AND user_id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), argPos, argPos+1, alertColumns)

	return r.updateReturning(ctx, query, args...)
}

// AppendNote atomically appends note to the alert's notes.
func (r *PostgresRepository) AppendNote(ctx context.Context, userID, id string, note models.Note) (*models.Alert, error) {
	return r.appendJSON(ctx, "notes", userID, id, []models.Note{note}, note.Timestamp)
}

// AppendAction atomically appends action to the alert's actions_taken.
func (r *PostgresRepository) AppendAction(ctx context.Context, userID, id string, action models.Action) (*models.Alert, error) {
	return r.appendJSON(ctx, "actions_taken", userID, id, []models.Action{action}, action.Timestamp)
}

// appendJSON concatenates a one-element array onto a JSONB column in place,
// so concurrent appends cannot lose each other.
func (r *PostgresRepository) appendJSON(ctx context.Context, column, userID, id string, entry interface{}, at time.Time) (*models.Alert, error) {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s entry: %w", column, err)
	}

	query := fmt.Sprintf(`
		UPDATE alerts
		SET %[1]s = %[1]s || $1::jsonb, updated_at = $2
		WHERE id = $3 AND user_id = $4
		RETURNING %[2]s
	`, column, alertColumns)

	return r.updateReturning(ctx, query, string(payload), at, id, userID)
}

func (r *PostgresRepository) updateReturning(ctx context.Context, query string, args ...interface{}) (*models.Alert, error) {
	a, err := scanAlert(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}
	return a, nil
}

// DeleteAlert hard-deletes one of the owner's alerts.
func (r *PostgresRepository) DeleteAlert(ctx context.Context, userID, id string) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	result, err := r.pool.Exec(ctx, "DELETE FROM alerts WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// AlertStatistics aggregates the owner's alerts in one round trip. Alerts
// detected at or after since count as recent.
func (r *PostgresRepository) AlertStatistics(ctx context.Context, userID string, since time.Time) (*models.AlertStatistics, error) {
	ctx, cancel := database.AggregateContext(ctx)
	defer cancel()

	query := `
		SELECT 'status', status, COUNT(*) FROM alerts WHERE user_id = $1 GROUP BY status
		UNION ALL
		SELECT 'severity', severity, COUNT(*) FROM alerts WHERE user_id = $1 GROUP BY severity
		UNION ALL
		SELECT 'threat_class', threat_class, COUNT(*) FROM alerts WHERE user_id = $1 GROUP BY threat_class
		UNION ALL
		SELECT 'alert_type', alert_type, COUNT(*) FROM alerts WHERE user_id = $1 GROUP BY alert_type
		UNION ALL
		SELECT 'recent', '', COUNT(*) FROM alerts WHERE user_id = $1 AND detected_at >= $2
	`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate alerts: %w", err)
	}
	defer rows.Close()

	stats := models.NewAlertStatistics()
	for rows.Next() {
		var dim, key string
		var count int
		if err := rows.Scan(&dim, &key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan alert aggregate: %w", err)
		}
		switch dim {
		case "status":
			stats.ByStatus[models.Status(key)] = count
		case "severity":
			stats.SeverityDistribution[models.Severity(key)] = count
		case "threat_class":
			stats.ThreatDistribution[key] = count
		case "alert_type":
			stats.TypeDistribution[models.AlertType(key)] = count
			stats.TotalAlerts += count
		case "recent":
			stats.RecentAlerts24h = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return stats, nil
}

func nonNilNotes(n []models.Note) []models.Note {
	if n == nil {
		return []models.Note{}
	}
	return n
}

func nonNilActions(a []models.Action) []models.Action {
	if a == nil {
		return []models.Action{}
	}
	return a
}
