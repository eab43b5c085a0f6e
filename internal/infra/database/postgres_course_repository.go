package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"course_followup_service/internal/domain/course"
)

const courseColumns = `id, title, finished, finished_at, week_dates, week_forms, registration_key, created_at, updated_at`

type PostgresCourseRepository struct {
	db     *sql.DB
	logger *logrus.Entry
}

func NewPostgresCourseRepository(db *sql.DB, logger *logrus.Entry) *PostgresCourseRepository {
	return &PostgresCourseRepository{db: db, logger: logger.WithField("component", "course_repository")}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanCourse reads one row. A malformed calendar is reported through decodeErr
// so list queries can skip the record without failing the whole scan.
func (r *PostgresCourseRepository) scanCourse(row rowScanner) (c *course.Course, decodeErr error, err error) {
	c = &course.Course{}
	var weekDates, weekForms []byte
	err = row.Scan(&c.ID, &c.Title, &c.Finished, &c.FinishedAt, &weekDates, &weekForms, &c.RegistrationKey, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, nil, err
	}

	var unknown []string
	if c.WeekDates, unknown, decodeErr = decodeCheckpointMap(weekDates); decodeErr != nil {
		return c, fmt.Errorf("week_dates: %w", decodeErr), nil
	}
	r.warnUnknownKeys(c.ID, "week_dates", unknown)
	if c.WeekForms, unknown, decodeErr = decodeCheckpointMap(weekForms); decodeErr != nil {
		return c, fmt.Errorf("week_forms: %w", decodeErr), nil
	}
	r.warnUnknownKeys(c.ID, "week_forms", unknown)
	return c, nil, nil
}

func (r *PostgresCourseRepository) warnUnknownKeys(courseID, column string, keys []string) {
	if len(keys) == 0 {
		return
	}
	r.logger.WithFields(logrus.Fields{
		"course_id": courseID,
		"column":    column,
		"keys":      keys,
	}).Warn("Ignoring unknown checkpoint keys")
}

// decodeCheckpointMap accepts {"2": "2026-03-10", "4": null}. Null values become "".
// Keys outside the checkpoint set are dropped and returned in unknown.
func decodeCheckpointMap(raw []byte) (out map[course.CheckpointKey]string, unknown []string, err error) {
	out = make(map[course.CheckpointKey]string)
	if len(raw) == 0 {
		return out, nil, nil
	}
	var m map[string]*string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, err
	}
	for k, v := range m {
		key, err := course.ParseCheckpointKey(k)
		if err != nil {
			unknown = append(unknown, k)
			continue
		}
		if v != nil {
			out[key] = *v
		} else {
			out[key] = ""
		}
	}
	sort.Strings(unknown)
	return out, unknown, nil
}

func (r *PostgresCourseRepository) GetByID(ctx context.Context, id string) (*course.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	c, decodeErr, err := r.scanCourse(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, course.ErrCourseNotFound
		}
		return nil, fmt.Errorf("error getting course by ID: %w", err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("error decoding course %s: %w", id, decodeErr)
	}
	return c, nil
}

func (r *PostgresCourseRepository) ListFinished(ctx context.Context) ([]course.Record, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE finished = TRUE ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing finished courses: %w", err)
	}
	defer rows.Close()

	var records []course.Record
	for rows.Next() {
		c, decodeErr, err := r.scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning course row: %w", err)
		}
		if decodeErr != nil {
			records = append(records, course.Record{ID: c.ID, Err: decodeErr})
			continue
		}
		records = append(records, course.Record{ID: c.ID, Course: c})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course rows: %w", err)
	}
	return records, nil
}

// MarkFinished flips the flag only if it is still false. It reports whether this call flipped it.
func (r *PostgresCourseRepository) MarkFinished(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `UPDATE courses SET finished = TRUE, finished_at = $2, updated_at = NOW()
               WHERE id = $1 AND finished = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("error marking course finished: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected for course finish: %w", err)
	}
	if affected == 1 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking course existence: %w", err)
	}
	if !exists {
		return false, course.ErrCourseNotFound
	}
	return false, nil
}

func (r *PostgresCourseRepository) UpdateRegistrationKey(ctx context.Context, id, key string) error {
	query := `UPDATE courses SET registration_key = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, key)
	if err != nil {
		return fmt.Errorf("error updating registration key: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected for key update: %w", err)
	}
	if affected == 0 {
		return course.ErrCourseNotFound
	}
	return nil
}
