package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"course_followup_service/internal/domain/course"
	"course_followup_service/internal/domain/notification"
	"course_followup_service/internal/domain/push"
	"course_followup_service/internal/domain/registration"
	"course_followup_service/internal/domain/response"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// ── Mock course.Repository ──

type mockCourseRepo struct {
	mu      sync.Mutex
	courses map[string]*course.Course
	broken  []string
	listErr error
}

func newMockCourseRepo(cs ...*course.Course) *mockCourseRepo {
	m := &mockCourseRepo{courses: make(map[string]*course.Course)}
	for _, c := range cs {
		m.courses[c.ID] = c
	}
	return m
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*course.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, course.ErrCourseNotFound
}

func (m *mockCourseRepo) ListFinished(_ context.Context) ([]course.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	ids := make([]string, 0, len(m.courses))
	for id := range m.courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []course.Record
	for _, id := range m.broken {
		out = append(out, course.Record{ID: id, Err: fmt.Errorf("malformed week_dates")})
	}
	for _, id := range ids {
		if m.courses[id].Finished {
			out = append(out, course.Record{ID: id, Course: m.courses[id]})
		}
	}
	return out, nil
}

func (m *mockCourseRepo) MarkFinished(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return false, course.ErrCourseNotFound
	}
	if c.Finished {
		return false, nil
	}
	c.Finished = true
	c.FinishedAt.Time, c.FinishedAt.Valid = at, true
	return true, nil
}

func (m *mockCourseRepo) UpdateRegistrationKey(_ context.Context, id, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return course.ErrCourseNotFound
	}
	c.RegistrationKey = key
	return nil
}

// ── Mock registration.Repository ──

type mockRegistrationRepo struct {
	mu      sync.Mutex
	regs    []*registration.Registration
	listErr error
}

func newMockRegistrationRepo() *mockRegistrationRepo {
	return &mockRegistrationRepo{}
}

func (m *mockRegistrationRepo) add(courseID string, traineeIDs ...string) {
	for _, id := range traineeIDs {
		m.regs = append(m.regs, &registration.Registration{ID: "reg-" + id, TraineeID: id, CourseID: courseID})
	}
}

func (m *mockRegistrationRepo) Create(_ context.Context, r *registration.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.regs {
		if existing.TraineeID == r.TraineeID && existing.CourseID == r.CourseID {
			return registration.ErrAlreadyRegistered
		}
	}
	m.regs = append(m.regs, r)
	return nil
}

func (m *mockRegistrationRepo) ListByCourse(_ context.Context, courseID string) ([]*registration.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*registration.Registration
	for _, r := range m.regs {
		if r.CourseID == courseID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRegistrationRepo) ListTraineeIDs(_ context.Context, courseID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range m.regs {
		if r.CourseID == courseID && !seen[r.TraineeID] {
			seen[r.TraineeID] = true
			out = append(out, r.TraineeID)
		}
	}
	return out, nil
}

// ── Mock response repositories ──

type mockResponseRepo struct {
	resps []*response.Response
}

func (m *mockResponseRepo) ListByCourse(_ context.Context, courseID string) ([]*response.Response, error) {
	var out []*response.Response
	for _, r := range m.resps {
		if r.CourseID == courseID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockFormRepo struct {
	forms map[string]*response.FormTemplate
}

func (m *mockFormRepo) GetByIDs(_ context.Context, ids []string) (map[string]*response.FormTemplate, error) {
	out := make(map[string]*response.FormTemplate)
	for _, id := range ids {
		if f, ok := m.forms[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

type mockTraineeDirectory struct {
	trainees map[string]*response.Trainee
}

func (m *mockTraineeDirectory) GetByIDs(_ context.Context, ids []string) (map[string]*response.Trainee, error) {
	out := make(map[string]*response.Trainee)
	for _, id := range ids {
		if t, ok := m.trainees[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

// ── Mock notification.LogRepository ──

type mockLogRepo struct {
	mu       sync.Mutex
	entries  map[string]notification.LogEntry
	released []string
}

func newMockLogRepo() *mockLogRepo {
	return &mockLogRepo{entries: make(map[string]notification.LogEntry)}
}

func logKey(e notification.LogEntry) string {
	return e.CourseID + "|" + string(e.Checkpoint) + "|" + e.Date
}

func (m *mockLogRepo) Claim(_ context.Context, e notification.LogEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[logKey(e)]; ok {
		return false, nil
	}
	m.entries[logKey(e)] = e
	return true, nil
}

func (m *mockLogRepo) Complete(_ context.Context, e notification.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[logKey(e)] = e
	return nil
}

func (m *mockLogRepo) Release(_ context.Context, e notification.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, logKey(e))
	m.released = append(m.released, logKey(e))
	return nil
}

// ── Recording gateway ──

type multicastCall struct {
	Recipients []string
	Message    push.Message
}

type recordingGateway struct {
	mu     sync.Mutex
	calls  []multicastCall
	failOn map[string]error // keyed by course id found in the deep link
}

func (g *recordingGateway) Multicast(_ context.Context, recipients []string, msg push.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, multicastCall{Recipients: append([]string(nil), recipients...), Message: msg})
	for courseID, err := range g.failOn {
		if msg.PrimaryURI() == notification.DeepLink("liff-test", courseID) {
			return err
		}
	}
	return nil
}

func (g *recordingGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// ── Recording publisher ──

type recordingPublisher struct {
	mu       sync.Mutex
	outcomes []notification.Outcome
}

func (p *recordingPublisher) PublishOutcome(_ context.Context, o notification.Outcome) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, o)
	return nil
}
