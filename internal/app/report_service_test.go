package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"course_followup_service/internal/domain/course"
	"course_followup_service/internal/domain/response"
)

func setupReportService() *ReportService {
	c := &course.Course{
		ID:    "C1",
		Title: "Leadership",
		WeekForms: map[course.CheckpointKey]string{
			course.CheckpointWeek0: "F0",
			course.CheckpointWeek2: "F2",
		},
	}
	regs := newMockRegistrationRepo()
	regs.add("C1", "U1", "U2", "U1")

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	resps := &mockResponseRepo{resps: []*response.Response{
		{ID: "r1", TraineeID: "U1", CourseID: "C1", FormID: "F0", Checkpoint: course.CheckpointWeek0, SubmittedAt: at,
			Answers: []json.RawMessage{json.RawMessage(`"Great"`), json.RawMessage(`5`), json.RawMessage(`["a","b"]`)}},
		{ID: "r2", TraineeID: "U1", CourseID: "C1", FormID: "F2", Checkpoint: course.CheckpointWeek2, SubmittedAt: at.Add(time.Hour)},
		{ID: "r3", TraineeID: "LEGACY", CourseID: "C1", FormID: "F0", Checkpoint: course.CheckpointWeek0, SubmittedAt: at.Add(2 * time.Hour)},
	}}
	forms := &mockFormRepo{forms: map[string]*response.FormTemplate{
		"F0": {ID: "F0", Questions: []response.Question{
			{Text: "How was it?", Type: response.QuestionText},
			{Text: "Rate the trainer", Type: response.QuestionRating},
		}},
	}}
	trainees := &mockTraineeDirectory{trainees: map[string]*response.Trainee{
		"U1": {ID: "U1", DisplayName: "Alice", Department: "Ops", Position: "Lead"},
		"U2": {ID: "U2", DisplayName: "Bob"},
	}}
	return NewReportService(newMockCourseRepo(c), regs, resps, forms, trainees, course.DefaultPolicy(), testLogger())
}

func TestReportService_Completion(t *testing.T) {
	svc := setupReportService()

	report, err := svc.Completion(context.Background(), "C1", CompletionQuery{})
	require.NoError(t, err)

	assert.Equal(t, "Leadership", report.CourseTitle)
	assert.Equal(t, 3, report.Summary.KnownTrainees)
	assert.Equal(t, 2, report.Summary.RegisteredTrainees)
	assert.Equal(t, 2, report.Summary.RespondedTrainees)
	require.Len(t, report.Rows, 3)

	byID := map[string]ReportRow{}
	for _, r := range report.Rows {
		byID[r.TraineeID] = r
	}
	assert.Equal(t, 40, byID["U1"].Percent)
	assert.Equal(t, "Alice", byID["U1"].DisplayName)
	assert.Equal(t, "Ops", byID["U1"].Department)
	assert.Equal(t, 0, byID["U2"].Percent)
	assert.Equal(t, "LEGACY", byID["LEGACY"].DisplayName)
	assert.False(t, byID["LEGACY"].Registered)
}

func TestReportService_Completion_SearchByDisplayName(t *testing.T) {
	svc := setupReportService()

	report, err := svc.Completion(context.Background(), "C1", CompletionQuery{Search: "ali", Sort: "completion"})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "U1", report.Rows[0].TraineeID)
}

func TestReportService_Completion_UnknownCourse(t *testing.T) {
	svc := setupReportService()

	_, err := svc.Completion(context.Background(), "nope", CompletionQuery{})
	assert.ErrorIs(t, err, course.ErrCourseNotFound)
}

func TestReportService_ExportXLSX(t *testing.T) {
	svc := setupReportService()

	buf, name, err := svc.ExportXLSX(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, "completion_C1.xlsx", name)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Week 0", "Week 2", "Week 4", "Week 6", "Week 8"}, f.GetSheetList())

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"Trainee ID", "Name", "Department", "Position", "Week 0", "Week 2", "Week 4", "Week 6", "Week 8", "Completion %"}, summary[0])
	require.Len(t, summary, 4)

	week0, err := f.GetRows("Week 0")
	require.NoError(t, err)
	// The third answer has no matching question and gets a positional header.
	assert.Equal(t, []string{"Trainee ID", "Name", "Submitted At", "How was it?", "Rate the trainer", "Q3"}, week0[0])
	assert.Equal(t, []string{"U1", "Alice", "2026-03-01 10:00:00", "Great", "5", "a, b"}, week0[1])
	assert.Equal(t, "LEGACY", week0[2][0])
}

func TestFormatAnswer(t *testing.T) {
	assert.Equal(t, "", FormatAnswer(nil))
	assert.Equal(t, "", FormatAnswer(json.RawMessage(`null`)))
	assert.Equal(t, "yes", FormatAnswer(json.RawMessage(`"yes"`)))
	assert.Equal(t, "4", FormatAnswer(json.RawMessage(`4`)))
	assert.Equal(t, "x, y", FormatAnswer(json.RawMessage(`["x","y"]`)))
	assert.Equal(t, "true", FormatAnswer(json.RawMessage(`true`)))
}

func TestReportService_ExportXLSX_AlignsAnswersWithSubmittedForm(t *testing.T) {
	c := &course.Course{
		ID:        "C1",
		Title:     "Leadership",
		WeekForms: map[course.CheckpointKey]string{course.CheckpointWeek2: "F2"},
	}
	regs := newMockRegistrationRepo()
	regs.add("C1", "U1", "U2")

	at := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	resps := &mockResponseRepo{resps: []*response.Response{
		{ID: "r1", TraineeID: "U1", CourseID: "C1", FormID: "F2", Checkpoint: course.CheckpointWeek2, SubmittedAt: at,
			Answers: []json.RawMessage{json.RawMessage(`"yes"`), json.RawMessage(`"coach the team"`)}},
		// Submitted against an earlier revision with the questions in another order.
		{ID: "r2", TraineeID: "U2", CourseID: "C1", FormID: "F2-old", Checkpoint: course.CheckpointWeek2, SubmittedAt: at.Add(time.Hour),
			Answers: []json.RawMessage{json.RawMessage(`"no time"`), json.RawMessage(`"partly"`)}},
	}}
	forms := &mockFormRepo{forms: map[string]*response.FormTemplate{
		"F2": {ID: "F2", Questions: []response.Question{
			{Text: "Applied it?", Type: response.QuestionText},
			{Text: "Next steps", Type: response.QuestionText},
		}},
		"F2-old": {ID: "F2-old", Questions: []response.Question{
			{Text: "Obstacles", Type: response.QuestionText},
			{Text: "Applied it?", Type: response.QuestionText},
		}},
	}}
	trainees := &mockTraineeDirectory{trainees: map[string]*response.Trainee{}}
	svc := NewReportService(newMockCourseRepo(c), regs, resps, forms, trainees, course.DefaultPolicy(), testLogger())

	buf, _, err := svc.ExportXLSX(context.Background(), "C1")
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	week2, err := f.GetRows("Week 2")
	require.NoError(t, err)
	require.Len(t, week2, 3)
	assert.Equal(t, []string{"Trainee ID", "Name", "Submitted At", "Applied it?", "Next steps", "Obstacles"}, week2[0])
	assert.Equal(t, []string{"U1", "U1", "2026-03-15 09:00:00", "yes", "coach the team"}, week2[1])
	assert.Equal(t, []string{"U2", "U2", "2026-03-15 10:00:00", "partly", "", "no time"}, week2[2])
}
