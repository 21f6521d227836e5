package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/threatlens/threatlens-stack/common/database"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
)

// sourceTable describes how one source kind is stored.
type sourceTable struct {
	name    string
	columns string
	get     func(row pgx.Row) (interface{}, error)
	list    func(rows pgx.Rows) (interface{}, error)
}

const predictionColumns = "is_anomaly, anomaly_score, threat_class, confidence, prediction_timestamp"

var sourceTables = map[models.AlertType]sourceTable{
	models.AlertTypeNetwork: {
		name: "network_traffic",
		columns: `id, user_id, timestamp, source_ip, destination_ip, protocol, packet_size,
			connection_duration, port_number, packets_sent, packets_received, bytes_sent, bytes_received, ` +
			predictionColumns + `, status, created_at, updated_at`,
		get:  func(row pgx.Row) (interface{}, error) { return scanNetwork(row) },
		list: func(rows pgx.Rows) (interface{}, error) { return collectRows(rows, scanNetwork) },
	},
	models.AlertTypeEmail: {
		name: "email_communications",
		columns: `id, user_id, timestamp, sender_email, receiver_email, num_recipients, email_size,
			has_attachment, num_attachments, subject_length, body_length, is_reply, is_forward, ` +
			predictionColumns + `, status, created_at, updated_at`,
		get:  func(row pgx.Row) (interface{}, error) { return scanEmail(row) },
		list: func(rows pgx.Rows) (interface{}, error) { return collectRows(rows, scanEmail) },
	},
}

func scanNetwork(row pgx.Row) (*models.NetworkTraffic, error) {
	n := &models.NetworkTraffic{}
	err := row.Scan(
		&n.ID, &n.UserID, &n.Timestamp, &n.SourceIP, &n.DestinationIP, &n.Protocol, &n.PacketSize,
		&n.ConnectionDuration, &n.PortNumber, &n.PacketsSent, &n.PacketsReceived, &n.BytesSent, &n.BytesReceived,
		&n.IsAnomaly, &n.AnomalyScore, &n.ThreatClass, &n.Confidence, &n.PredictionTimestamp,
		&n.Status, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func scanEmail(row pgx.Row) (*models.EmailCommunication, error) {
	e := &models.EmailCommunication{}
	err := row.Scan(
		&e.ID, &e.UserID, &e.Timestamp, &e.SenderEmail, &e.ReceiverEmail, &e.NumRecipients, &e.EmailSize,
		&e.HasAttachment, &e.NumAttachments, &e.SubjectLength, &e.BodyLength, &e.IsReply, &e.IsForward,
		&e.IsAnomaly, &e.AnomalyScore, &e.ThreatClass, &e.Confidence, &e.PredictionTimestamp,
		&e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// collectRows scans every row and always returns a non-nil slice.
func collectRows[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*T, error) {
		return scan(row)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*T{}
	}
	return out, nil
}

func tableFor(kind models.AlertType) (sourceTable, error) {
	t, ok := sourceTables[kind]
	if !ok {
		return sourceTable{}, fmt.Errorf("unknown source kind %q", kind)
	}
	return t, nil
}

// CreateNetworkTraffic inserts a network record in pending state.
func (r *PostgresRepository) CreateNetworkTraffic(ctx context.Context, n *models.NetworkTraffic) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	query := `
		INSERT INTO network_traffic (
			id, user_id, timestamp, source_ip, destination_ip, protocol, packet_size,
			connection_duration, port_number, packets_sent, packets_received, bytes_sent, bytes_received,
			status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
	`

	_, err := r.pool.Exec(ctx, query,
		n.ID, n.UserID, n.Timestamp, n.SourceIP, n.DestinationIP, n.Protocol, n.PacketSize,
		n.ConnectionDuration, n.PortNumber, n.PacketsSent, n.PacketsReceived, n.BytesSent, n.BytesReceived,
		n.Status, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create network traffic: %w", err)
	}
	return nil
}

// CreateEmailCommunication inserts an email record in pending state.
func (r *PostgresRepository) CreateEmailCommunication(ctx context.Context, e *models.EmailCommunication) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	query := `
		INSERT INTO email_communications (
			id, user_id, timestamp, sender_email, receiver_email, num_recipients, email_size,
			has_attachment, num_attachments, subject_length, body_length, is_reply, is_forward,
			status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
	`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.UserID, e.Timestamp, e.SenderEmail, e.ReceiverEmail, e.NumRecipients, e.EmailSize,
		e.HasAttachment, e.NumAttachments, e.SubjectLength, e.BodyLength, e.IsReply, e.IsForward,
		e.Status, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create email communication: %w", err)
	}
	return nil
}

// AttachPrediction records a prediction on a pending source record and marks
// it analyzed. Only one caller can win the pending → analyzed change, so
// a submit racing a reanalysis sweep cannot both go on to raise an alert.
func (r *PostgresRepository) AttachPrediction(ctx context.Context, userID string, ref models.SourceRef, p models.Prediction) error {
	t, err := tableFor(ref.Kind)
	if err != nil {
		return err
	}

	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE %s
		SET is_anomaly = $1, anomaly_score = $2, threat_class = $3, confidence = $4,
		    prediction_timestamp = $5, status = $6, updated_at = COALESCE($5, NOW())
		WHERE id = $7 AND user_id = $8 AND status = $9
	`, t.name)

	result, err := r.pool.Exec(ctx, query,
		p.IsAnomaly, p.AnomalyScore, p.ThreatClass, p.Confidence, p.PredictionTimestamp,
		models.RecordAnalyzed, ref.ID, userID, models.RecordPending,
	)
	if err != nil {
		return fmt.Errorf("failed to attach prediction: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	existsQuery := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND user_id = $2)", t.name)
	if err := r.pool.QueryRow(ctx, existsQuery, ref.ID, userID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check source record: %w", err)
	}
	if exists {
		return ErrAlreadyAnalyzed
	}
	return ErrSourceNotFound
}

// GetSource returns one of the owner's source records.
func (r *PostgresRepository) GetSource(ctx context.Context, userID string, ref models.SourceRef) (interface{}, error) {
	t, err := tableFor(ref.Kind)
	if err != nil {
		return nil, err
	}

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 AND user_id = $2", t.columns, t.name)
	rec, err := t.get(r.pool.QueryRow(ctx, query, ref.ID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSourceNotFound
		}
		return nil, fmt.Errorf("failed to get %s record: %w", ref.Kind, err)
	}
	return rec, nil
}

// ListSources returns one page of the owner's records of kind, newest first.
func (r *PostgresRepository) ListSources(ctx context.Context, userID string, kind models.AlertType, filter models.SourceFilter, limit, offset int) (interface{}, int, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, 0, err
	}

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	whereClause := "WHERE user_id = $1"
	if filter.AnomalyOnly {
		whereClause += " AND is_anomaly IS TRUE"
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", t.name, whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s records: %w", kind, err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		%s
		ORDER BY timestamp DESC, id DESC
		LIMIT $2 OFFSET $3
	`, t.columns, t.name, whereClause)

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s records: %w", kind, err)
	}

	out, err := t.list(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan %s records: %w", kind, err)
	}

	return out, total, nil
}

// DeleteSource hard-deletes one of the owner's records. Alerts that
// reference it are kept.
func (r *PostgresRepository) DeleteSource(ctx context.Context, userID string, ref models.SourceRef) error {
	t, err := tableFor(ref.Kind)
	if err != nil {
		return err
	}

	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND user_id = $2", t.name)
	result, err := r.pool.Exec(ctx, query, ref.ID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete %s record: %w", ref.Kind, err)
	}
	if result.RowsAffected() == 0 {
		return ErrSourceNotFound
	}
	return nil
}

// SourceStatistics aggregates the owner's records of kind.
func (r *PostgresRepository) SourceStatistics(ctx context.Context, userID string, kind models.AlertType, since time.Time) (*models.SourceStatistics, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	ctx, cancel := database.AggregateContext(ctx)
	defer cancel()

	stats := &models.SourceStatistics{ThreatDistribution: map[string]int{}}

	totalsQuery := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_anomaly IS TRUE),
			COUNT(*) FILTER (WHERE is_anomaly IS TRUE AND timestamp >= $2)
		FROM %s
		WHERE user_id = $1
	`, t.name)
	if err := r.pool.QueryRow(ctx, totalsQuery, userID, since).Scan(
		&stats.Total, &stats.Anomalies, &stats.RecentAnomalies24h,
	); err != nil {
		return nil, fmt.Errorf("failed to count %s records: %w", kind, err)
	}
	stats.Normal = stats.Total - stats.Anomalies
	if stats.Total > 0 {
		stats.AnomalyPercentage = math.Round(float64(stats.Anomalies)/float64(stats.Total)*10000) / 100
	}

	threatQuery := fmt.Sprintf(`
		SELECT threat_class, COUNT(*)
		FROM %s
		WHERE user_id = $1 AND is_anomaly IS TRUE AND threat_class IS NOT NULL
		GROUP BY threat_class
	`, t.name)
	rows, err := r.pool.Query(ctx, threatQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s threats: %w", kind, err)
	}
	defer rows.Close()

	for rows.Next() {
		var class string
		var count int
		if err := rows.Scan(&class, &count); err != nil {
			return nil, fmt.Errorf("failed to scan threat aggregate: %w", err)
		}
		stats.ThreatDistribution[class] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return stats, nil
}

// ListPendingSources returns the oldest pending records of kind created
// before before. It is the only unscoped read and backs the reanalysis sweep.
func (r *PostgresRepository) ListPendingSources(ctx context.Context, kind models.AlertType, before time.Time, limit int) (interface{}, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC, id ASC
		LIMIT $3
	`, t.columns, t.name)

	rows, err := r.pool.Query(ctx, query, models.RecordPending, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending %s records: %w", kind, err)
	}

	out, err := t.list(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending %s records: %w", kind, err)
	}
	return out, nil
}
