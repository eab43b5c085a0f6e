package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course_followup_service/internal/domain/course"
)

func TestValidateKey(t *testing.T) {
	open := &course.Course{ID: "C1"}
	keyed := &course.Course{ID: "C2", RegistrationKey: "AB3XYZ"}

	tests := []struct {
		name     string
		course   *course.Course
		supplied string
		wantErr  bool
	}{
		{"open course accepts anything", open, "whatever", false},
		{"open course accepts empty", open, "", false},
		{"exact match", keyed, "AB3XYZ", false},
		{"case insensitive", keyed, "ab3xyz", false},
		{"surrounding whitespace ignored", keyed, "  Ab3xYz\t", false},
		{"wrong key", keyed, "AB3XY2", true},
		{"empty key", keyed, "", true},
		{"inner whitespace not ignored", keyed, "AB3 XYZ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.course, tt.supplied)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRegistrationKey)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerateKey(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		key, err := GenerateKey()
		require.NoError(t, err)
		require.Len(t, key, RegistrationKeyLength)
		for _, r := range key {
			assert.True(t, strings.ContainsRune(RegistrationKeyAlphabet, r), "unexpected rune %q", r)
		}
		assert.NotContains(t, key, "0")
		assert.NotContains(t, key, "O")
		assert.NotContains(t, key, "1")
		assert.NotContains(t, key, "I")
		seen[key] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestEnrollmentService_Register_Idempotent(t *testing.T) {
	regs := newMockRegistrationRepo()
	svc := NewEnrollmentService(newMockCourseRepo(), regs, testLogger())

	first, err := svc.Register(context.Background(), "U1", "C1")
	require.NoError(t, err)
	second, err := svc.Register(context.Background(), "U1", "C1")
	require.NoError(t, err)

	assert.Equal(t, ResultRegistered, first)
	assert.Equal(t, ResultAlreadyRegistered, second)
	assert.Len(t, regs.regs, 1)
	assert.NotEmpty(t, regs.regs[0].ID)
}

func TestEnrollmentService_Register_MissingFields(t *testing.T) {
	svc := NewEnrollmentService(newMockCourseRepo(), newMockRegistrationRepo(), testLogger())

	_, err := svc.Register(context.Background(), " ", "C1")
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestEnrollmentService_RegisterWithKey(t *testing.T) {
	courses := newMockCourseRepo(&course.Course{ID: "C1", RegistrationKey: "K7M2PQ"})
	regs := newMockRegistrationRepo()
	svc := NewEnrollmentService(courses, regs, testLogger())

	_, err := svc.RegisterWithKey(context.Background(), "U1", "C1", "WRONG1")
	assert.ErrorIs(t, err, ErrInvalidRegistrationKey)
	assert.Empty(t, regs.regs)

	res, err := svc.RegisterWithKey(context.Background(), "U1", "C1", " k7m2pq ")
	require.NoError(t, err)
	assert.Equal(t, ResultRegistered, res)

	_, err = svc.RegisterWithKey(context.Background(), "U1", "missing", "K7M2PQ")
	assert.ErrorIs(t, err, course.ErrCourseNotFound)
}

func TestEnrollmentService_RegenerateKey(t *testing.T) {
	c := &course.Course{ID: "C1", RegistrationKey: "OLDKEY"}
	svc := NewEnrollmentService(newMockCourseRepo(c), newMockRegistrationRepo(), testLogger())

	key, err := svc.RegenerateKey(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, key, c.RegistrationKey)
	assert.NotEqual(t, "OLDKEY", key)

	_, err = svc.RegenerateKey(context.Background(), "nope")
	assert.ErrorIs(t, err, course.ErrCourseNotFound)
}
