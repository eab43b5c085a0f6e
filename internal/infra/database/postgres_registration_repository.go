package database

import (
	"context"
	"database/sql"
	"fmt"

	"course_followup_service/internal/domain/registration"
)

type PostgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) *PostgresRegistrationRepository {
	return &PostgresRegistrationRepository{db: db}
}

// Create is a single conditional insert against the (trainee_id, course_id) unique constraint.
func (r *PostgresRegistrationRepository) Create(ctx context.Context, reg *registration.Registration) error {
	query := `INSERT INTO registrations (id, trainee_id, course_id, registered_at)
               VALUES ($1, $2, $3, $4)
               ON CONFLICT ON CONSTRAINT registrations_trainee_course_unique DO NOTHING
               RETURNING registered_at`
	err := r.db.QueryRowContext(ctx, query, reg.ID, reg.TraineeID, reg.CourseID, reg.RegisteredAt).Scan(&reg.RegisteredAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return registration.ErrAlreadyRegistered
		}
		return fmt.Errorf("error creating registration: %w", err)
	}
	return nil
}

func (r *PostgresRegistrationRepository) ListByCourse(ctx context.Context, courseID string) ([]*registration.Registration, error) {
	query := `SELECT id, trainee_id, course_id, registered_at FROM registrations
               WHERE course_id = $1 ORDER BY registered_at ASC, trainee_id ASC`
	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("error listing registrations: %w", err)
	}
	defer rows.Close()

	var regs []*registration.Registration
	for rows.Next() {
		reg := &registration.Registration{}
		if err := rows.Scan(&reg.ID, &reg.TraineeID, &reg.CourseID, &reg.RegisteredAt); err != nil {
			return nil, fmt.Errorf("error scanning registration row: %w", err)
		}
		regs = append(regs, reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return regs, nil
}

func (r *PostgresRegistrationRepository) ListTraineeIDs(ctx context.Context, courseID string) ([]string, error) {
	query := `SELECT trainee_id FROM registrations WHERE course_id = $1
               GROUP BY trainee_id ORDER BY MIN(registered_at) ASC, trainee_id ASC`
	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("error listing registered trainees: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning trainee id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trainee ids: %w", err)
	}
	return ids, nil
}
