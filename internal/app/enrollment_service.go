// internal/app/enrollment_service.go
package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"course_followup_service/internal/domain/course"
	"course_followup_service/internal/domain/registration"
)

var ErrInvalidRegistrationKey = fmt.Errorf("registration key does not match")

// RegistrationKeyAlphabet excludes the look-alike characters 0/O and 1/I.
const RegistrationKeyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RegistrationKeyLength is the number of characters in a generated key.
const RegistrationKeyLength = 6

// RegisterResult distinguishes a new enrollment from an idempotent repeat.
type RegisterResult string

const (
	ResultRegistered        RegisterResult = "registered"
	ResultAlreadyRegistered RegisterResult = "already_registered"
)

type EnrollmentService struct {
	courses       course.Repository
	registrations registration.Repository
	now           func() time.Time
	logger        *logrus.Entry
}

func NewEnrollmentService(courses course.Repository, regs registration.Repository, logger *logrus.Entry) *EnrollmentService {
	return &EnrollmentService{
		courses:       courses,
		registrations: regs,
		now:           time.Now,
		logger:        logger.WithField("component", "enrollment_service"),
	}
}

// ValidateKey succeeds when the course has no key or the supplied key matches it, ignoring case and surrounding spaces.
func ValidateKey(c *course.Course, supplied string) error {
	if c.OpenEnrollment() {
		return nil
	}
	if strings.ToUpper(strings.TrimSpace(supplied)) != c.RegistrationKey {
		return ErrInvalidRegistrationKey
	}
	return nil
}

// GenerateKey draws RegistrationKeyLength characters uniformly from RegistrationKeyAlphabet.
func GenerateKey() (string, error) {
	size := big.NewInt(int64(len(RegistrationKeyAlphabet)))
	var b strings.Builder
	b.Grow(RegistrationKeyLength)
	for i := 0; i < RegistrationKeyLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("failed to generate registration key: %w", err)
		}
		b.WriteByte(RegistrationKeyAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// Register enrolls a trainee. A repeat for the same pair is reported as ResultAlreadyRegistered, not as an error.
func (s *EnrollmentService) Register(ctx context.Context, traineeID, courseID string) (RegisterResult, error) {
	traineeID = strings.TrimSpace(traineeID)
	courseID = strings.TrimSpace(courseID)
	if traineeID == "" || courseID == "" {
		return "", ErrMissingFields
	}

	reg := &registration.Registration{
		ID:           uuid.NewString(),
		TraineeID:    traineeID,
		CourseID:     courseID,
		RegisteredAt: s.now().UTC(),
	}
	err := s.registrations.Create(ctx, reg)
	if errors.Is(err, registration.ErrAlreadyRegistered) {
		s.logger.WithFields(logrus.Fields{"trainee_id": traineeID, "course_id": courseID}).Debug("Trainee already registered")
		return ResultAlreadyRegistered, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to register trainee %s for course %s: %w", traineeID, courseID, err)
	}
	s.logger.WithFields(logrus.Fields{"trainee_id": traineeID, "course_id": courseID}).Info("Trainee registered")
	return ResultRegistered, nil
}

// RegisterWithKey validates the supplied key against the course and then registers the trainee.
func (s *EnrollmentService) RegisterWithKey(ctx context.Context, traineeID, courseID, key string) (RegisterResult, error) {
	if strings.TrimSpace(traineeID) == "" || strings.TrimSpace(courseID) == "" {
		return "", ErrMissingFields
	}
	c, err := s.courses.GetByID(ctx, strings.TrimSpace(courseID))
	if err != nil {
		return "", err
	}
	if err := ValidateKey(c, key); err != nil {
		s.logger.WithFields(logrus.Fields{"trainee_id": traineeID, "course_id": c.ID}).Warn("Registration rejected: key mismatch")
		return "", err
	}
	return s.Register(ctx, traineeID, c.ID)
}

// RegenerateKey replaces the course key with a fresh one.
func (s *EnrollmentService) RegenerateKey(ctx context.Context, courseID string) (string, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return "", ErrMissingFields
	}
	key, err := GenerateKey()
	if err != nil {
		return "", err
	}
	if err := s.courses.UpdateRegistrationKey(ctx, courseID, key); err != nil {
		return "", err
	}
	s.logger.WithField("course_id", courseID).Info("Registration key regenerated")
	return key, nil
}
