// internal/app/report_service.go
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"course_followup_service/internal/domain/completion"
	"course_followup_service/internal/domain/course"
	"course_followup_service/internal/domain/registration"
	"course_followup_service/internal/domain/response"
)

const summarySheet = "Summary"

// ReportRow is a matrix row enriched with the trainee profile.
type ReportRow struct {
	completion.Row
	DisplayName string `json:"displayName"`
	Department  string `json:"department,omitempty"`
	Position    string `json:"position,omitempty"`
}

// CompletionReport is the filtered view of a course's completion matrix.
type CompletionReport struct {
	CourseID    string                 `json:"courseId"`
	CourseTitle string                 `json:"courseTitle"`
	Checkpoints []course.CheckpointKey `json:"checkpoints"`
	Summary     completion.Summary     `json:"summary"`
	Rows        []ReportRow            `json:"rows"`
}

// CompletionQuery is the raw filter input from a transport.
type CompletionQuery struct {
	Search string
	Class  string
	Sort   string
}

type ReportService struct {
	courses       course.Repository
	registrations registration.Repository
	responses     response.Repository
	forms         response.FormRepository
	trainees      response.TraineeDirectory
	policy        course.CheckpointPolicy
	logger        *logrus.Entry
}

func NewReportService(
	courses course.Repository,
	regs registration.Repository,
	resps response.Repository,
	forms response.FormRepository,
	trainees response.TraineeDirectory,
	policy course.CheckpointPolicy,
	logger *logrus.Entry,
) *ReportService {
	return &ReportService{
		courses:       courses,
		registrations: regs,
		responses:     resps,
		forms:         forms,
		trainees:      trainees,
		policy:        policy,
		logger:        logger.WithField("component", "report_service"),
	}
}

type reportData struct {
	course    *course.Course
	matrix    *completion.Matrix
	responses []*response.Response
	profiles  map[string]*response.Trainee
}

func (s *ReportService) load(ctx context.Context, courseID string) (*reportData, error) {
	c, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	regs, err := s.registrations.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for course %s: %w", courseID, err)
	}
	resps, err := s.responses.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses for course %s: %w", courseID, err)
	}

	m := completion.Build(courseID, s.policy.Tracked, regs, resps)
	ids := make([]string, 0, len(m.Rows))
	for _, row := range m.Rows {
		ids = append(ids, row.TraineeID)
	}
	profiles := map[string]*response.Trainee{}
	if len(ids) > 0 && s.trainees != nil {
		profiles, err = s.trainees.GetByIDs(ctx, ids)
		if err != nil {
			// Reports still work with bare ids.
			s.logger.WithError(err).WithField("course_id", courseID).Warn("Failed to load trainee profiles")
			profiles = map[string]*response.Trainee{}
		}
	}
	return &reportData{course: c, matrix: m, responses: resps, profiles: profiles}, nil
}

// Completion returns the completion matrix for a course, filtered and sorted per q.
func (s *ReportService) Completion(ctx context.Context, courseID string, q CompletionQuery) (*CompletionReport, error) {
	data, err := s.load(ctx, courseID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(data.profiles))
	for id, p := range data.profiles {
		names[id] = p.DisplayName
	}
	rows := data.matrix.View(completion.Query{
		Search:       q.Search,
		Class:        completion.ParseClass(q.Class),
		Sort:         completion.ParseSortKey(q.Sort),
		DisplayNames: names,
	})

	report := &CompletionReport{
		CourseID:    data.course.ID,
		CourseTitle: data.course.Title,
		Checkpoints: data.matrix.Checkpoints,
		Summary:     data.matrix.Summary,
		Rows:        make([]ReportRow, 0, len(rows)),
	}
	for _, row := range rows {
		report.Rows = append(report.Rows, enrich(row, data.profiles[row.TraineeID]))
	}
	return report, nil
}

func enrich(row completion.Row, p *response.Trainee) ReportRow {
	out := ReportRow{Row: row, DisplayName: row.TraineeID}
	if p != nil {
		if p.DisplayName != "" {
			out.DisplayName = p.DisplayName
		}
		out.Department = p.Department
		out.Position = p.Position
	}
	return out
}

// ExportXLSX renders the Summary sheet and one sheet per tracked checkpoint.
// It returns the workbook bytes and a suggested file name.
func (s *ReportService) ExportXLSX(ctx context.Context, courseID string) (*bytes.Buffer, string, error) {
	data, err := s.load(ctx, courseID)
	if err != nil {
		return nil, "", err
	}

	formIDs := make(map[string]bool)
	for _, k := range s.policy.Tracked {
		if id := data.course.WeekForms[k]; id != "" {
			formIDs[id] = true
		}
	}
	for _, r := range data.responses {
		if r.FormID != "" {
			formIDs[r.FormID] = true
		}
	}
	ids := make([]string, 0, len(formIDs))
	for id := range formIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	forms := map[string]*response.FormTemplate{}
	if len(ids) > 0 {
		forms, err = s.forms.GetByIDs(ctx, ids)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load form templates for course %s: %w", courseID, err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#6366F1"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, "", fmt.Errorf("failed to prepare summary sheet: %w", err)
	}
	if err := writeSummarySheet(f, data, headerStyle); err != nil {
		return nil, "", err
	}
	for _, k := range s.policy.Tracked {
		if err := writeCheckpointSheet(f, data, k, forms, headerStyle); err != nil {
			return nil, "", err
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.WithError(err).WithField("course_id", courseID).Error("Failed to write completion workbook")
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, fmt.Sprintf("completion_%s.xlsx", sanitizeFileName(data.course.ID)), nil
}

func writeSummarySheet(f *excelize.File, data *reportData, headerStyle int) error {
	header := []interface{}{"Trainee ID", "Name", "Department", "Position"}
	for _, k := range data.matrix.Checkpoints {
		header = append(header, k.Label())
	}
	header = append(header, "Completion %")
	if err := writeHeader(f, summarySheet, header, headerStyle); err != nil {
		return err
	}

	if err := f.SetColWidth(summarySheet, "A", "D", 18); err != nil {
		return fmt.Errorf("failed to size summary columns: %w", err)
	}
	for i, row := range data.matrix.Rows {
		r := enrich(row, data.profiles[row.TraineeID])
		values := []interface{}{r.TraineeID, r.DisplayName, r.Department, r.Position}
		for _, k := range data.matrix.Checkpoints {
			mark := "-"
			if row.Done[k] {
				mark = "✓"
			}
			values = append(values, mark)
		}
		values = append(values, row.Percent)
		if err := f.SetSheetRow(summarySheet, cell(1, i+2), &values); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	return nil
}

func writeCheckpointSheet(f *excelize.File, data *reportData, k course.CheckpointKey, forms map[string]*response.FormTemplate, headerStyle int) error {
	sheet := k.Label()
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	var rows []*response.Response
	for _, r := range data.responses {
		if r.CourseID == data.course.ID && r.Checkpoint == k {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].SubmittedAt.Before(rows[j].SubmittedAt) })

	bound := forms[data.course.WeekForms[k]]
	columns := newAnswerColumns()
	columns.addTemplate(bound, questionCount(bound))
	positions := make([][]int, len(rows))
	for i, r := range rows {
		// Answers follow the form the trainee actually submitted.
		tpl := bound
		if own := forms[r.FormID]; own != nil {
			tpl = own
		}
		positions[i] = columns.addTemplate(tpl, len(r.Answers))
	}

	header := append([]interface{}{"Trainee ID", "Name", "Submitted At"}, columns.labels...)
	if err := writeHeader(f, sheet, header, headerStyle); err != nil {
		return err
	}

	for i, r := range rows {
		name := r.TraineeID
		if p := data.profiles[r.TraineeID]; p != nil && p.DisplayName != "" {
			name = p.DisplayName
		}
		answers := make([]interface{}, len(columns.labels))
		for j := range answers {
			answers[j] = ""
		}
		for j, raw := range r.Answers {
			answers[positions[i][j]] = FormatAnswer(raw)
		}
		values := append([]interface{}{r.TraineeID, name, r.SubmittedAt.Format("2006-01-02 15:04:05")}, answers...)
		if err := f.SetSheetRow(sheet, cell(1, i+2), &values); err != nil {
			return fmt.Errorf("failed to write %s row: %w", sheet, err)
		}
	}
	return nil
}

// answerColumns lays out one sheet column per distinct question label, in first-seen order.
// A label repeated inside one form gets its own column.
type answerColumns struct {
	labels []interface{}
	index  map[string]int
}

func newAnswerColumns() *answerColumns {
	return &answerColumns{index: make(map[string]int)}
}

// addTemplate registers the first n positional answers of tpl and returns their column indexes.
func (c *answerColumns) addTemplate(tpl *response.FormTemplate, n int) []int {
	seen := make(map[string]int)
	out := make([]int, n)
	for i := 0; i < n; i++ {
		label := questionLabel(tpl, i)
		key := fmt.Sprintf("%s\x00%d", label, seen[label])
		seen[label]++
		idx, ok := c.index[key]
		if !ok {
			idx = len(c.labels)
			c.index[key] = idx
			c.labels = append(c.labels, label)
		}
		out[i] = idx
	}
	return out
}

func questionCount(tpl *response.FormTemplate) int {
	if tpl == nil {
		return 0
	}
	return len(tpl.Questions)
}

// questionLabel is the question text at position i, or Q<i+1> when the form has none.
func questionLabel(tpl *response.FormTemplate, i int) string {
	if tpl != nil && i < len(tpl.Questions) && tpl.Questions[i].Text != "" {
		return tpl.Questions[i].Text
	}
	return fmt.Sprintf("Q%d", i+1)
}

func writeHeader(f *excelize.File, sheet string, header []interface{}, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	return f.SetCellStyle(sheet, "A1", cell(len(header), 1), style)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// FormatAnswer renders one positional answer as spreadsheet text.
// Strings are unquoted, lists are comma-joined, everything else keeps its JSON form.
func FormatAnswer(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []interface{}
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, v := range list {
			parts = append(parts, fmt.Sprint(v))
		}
		return strings.Join(parts, ", ")
	}
	return string(raw)
}

func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}
