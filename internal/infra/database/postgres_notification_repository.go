// internal/infra/database/postgres_notification_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"course_followup_service/internal/domain/notification"
)

// PostgresDispatchLogRepository implements notification.LogRepository on the dispatch_log table.
type PostgresDispatchLogRepository struct {
	db *sql.DB
}

func NewPostgresDispatchLogRepository(db *sql.DB) *PostgresDispatchLogRepository {
	return &PostgresDispatchLogRepository{db: db}
}

func (r *PostgresDispatchLogRepository) Claim(ctx context.Context, e notification.LogEntry) (bool, error) {
	query := `INSERT INTO dispatch_log (course_id, checkpoint, dispatch_date, status)
               VALUES ($1, $2, $3, $4)
               ON CONFLICT (course_id, checkpoint, dispatch_date) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, e.CourseID, string(e.Checkpoint), e.Date, string(notification.StatusPending))
	if err != nil {
		return false, fmt.Errorf("error claiming dispatch log entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected for dispatch claim: %w", err)
	}
	return affected == 1, nil
}

func (r *PostgresDispatchLogRepository) Complete(ctx context.Context, e notification.LogEntry) error {
	query := `UPDATE dispatch_log SET status = $4, recipients = $5, updated_at = NOW()
               WHERE course_id = $1 AND checkpoint = $2 AND dispatch_date = $3`
	_, err := r.db.ExecContext(ctx, query, e.CourseID, string(e.Checkpoint), e.Date, string(e.Status), e.Recipients)
	if err != nil {
		return fmt.Errorf("error completing dispatch log entry: %w", err)
	}
	return nil
}

func (r *PostgresDispatchLogRepository) Release(ctx context.Context, e notification.LogEntry) error {
	query := `DELETE FROM dispatch_log WHERE course_id = $1 AND checkpoint = $2 AND dispatch_date = $3 AND status = $4`
	_, err := r.db.ExecContext(ctx, query, e.CourseID, string(e.Checkpoint), e.Date, string(notification.StatusPending))
	if err != nil {
		return fmt.Errorf("error releasing dispatch log entry: %w", err)
	}
	return nil
}
