// internal/domain/response/response.go
package response

import (
	"encoding/json"
	"time"

	"course_followup_service/internal/domain/course"
)

// Response is one trainee submission for one checkpoint. Answers are positional:
// Answers[i] answers the i-th question of the form template at submission time.
type Response struct {
	ID          string
	TraineeID   string
	CourseID    string
	FormID      string
	Checkpoint  course.CheckpointKey
	Answers     []json.RawMessage
	SubmittedAt time.Time
}

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionText         QuestionType = "text"
	QuestionYesNo        QuestionType = "yes_no"
	QuestionRating       QuestionType = "rating"
	QuestionMultiSelect  QuestionType = "multi_select"
	QuestionSingleSelect QuestionType = "single_select"
)

type Question struct {
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Options []string     `json:"options,omitempty"`
}

// FormTemplate is read-only from the core's perspective.
type FormTemplate struct {
	ID        string
	Name      string
	Questions []Question
}

// Trainee carries the profile fields used for display in reports.
type Trainee struct {
	ID          string
	DisplayName string
	Department  string
	Position    string
}
