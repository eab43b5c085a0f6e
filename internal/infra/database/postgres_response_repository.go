package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"course_followup_service/internal/domain/course"
	"course_followup_service/internal/domain/response"
)

type PostgresResponseRepository struct {
	db *sql.DB
}

func NewPostgresResponseRepository(db *sql.DB) *PostgresResponseRepository {
	return &PostgresResponseRepository{db: db}
}

func (r *PostgresResponseRepository) ListByCourse(ctx context.Context, courseID string) ([]*response.Response, error) {
	query := `SELECT id, trainee_id, course_id, form_id, checkpoint, answers, submitted_at
               FROM responses WHERE course_id = $1 ORDER BY submitted_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("error listing responses: %w", err)
	}
	defer rows.Close()

	var out []*response.Response
	for rows.Next() {
		resp := &response.Response{}
		var checkpoint string
		var answers []byte
		if err := rows.Scan(&resp.ID, &resp.TraineeID, &resp.CourseID, &resp.FormID, &checkpoint, &answers, &resp.SubmittedAt); err != nil {
			return nil, fmt.Errorf("error scanning response row: %w", err)
		}
		resp.Checkpoint = course.CheckpointKey(checkpoint)
		if len(answers) > 0 {
			if err := json.Unmarshal(answers, &resp.Answers); err != nil {
				return nil, fmt.Errorf("error decoding answers of response %s: %w", resp.ID, err)
			}
		}
		out = append(out, resp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating response rows: %w", err)
	}
	return out, nil
}

type PostgresFormRepository struct {
	db *sql.DB
}

func NewPostgresFormRepository(db *sql.DB) *PostgresFormRepository {
	return &PostgresFormRepository{db: db}
}

func (r *PostgresFormRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*response.FormTemplate, error) {
	out := make(map[string]*response.FormTemplate, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT id, name, questions FROM form_templates WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("error getting form templates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		f := &response.FormTemplate{}
		var questions []byte
		if err := rows.Scan(&f.ID, &f.Name, &questions); err != nil {
			return nil, fmt.Errorf("error scanning form template row: %w", err)
		}
		if err := json.Unmarshal(questions, &f.Questions); err != nil {
			return nil, fmt.Errorf("error decoding questions of form %s: %w", f.ID, err)
		}
		out[f.ID] = f
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating form template rows: %w", err)
	}
	return out, nil
}

type PostgresTraineeDirectory struct {
	db *sql.DB
}

func NewPostgresTraineeDirectory(db *sql.DB) *PostgresTraineeDirectory {
	return &PostgresTraineeDirectory{db: db}
}

func (r *PostgresTraineeDirectory) GetByIDs(ctx context.Context, ids []string) (map[string]*response.Trainee, error) {
	out := make(map[string]*response.Trainee, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT id, display_name, department, position FROM trainees WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("error getting trainees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t := &response.Trainee{}
		if err := rows.Scan(&t.ID, &t.DisplayName, &t.Department, &t.Position); err != nil {
			return nil, fmt.Errorf("error scanning trainee row: %w", err)
		}
		out[t.ID] = t
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trainee rows: %w", err)
	}
	return out, nil
}
