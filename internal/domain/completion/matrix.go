// Package completion builds the trainee × checkpoint completion matrix from raw records.
// Everything here is a pure function of its inputs.
package completion

import (
	"math"
	"sort"

	"course_followup_service/internal/domain/course"
	"course_followup_service/internal/domain/registration"
	"course_followup_service/internal/domain/response"
)

// Row is one trainee's line in the matrix.
type Row struct {
	TraineeID  string                        `json:"traineeId"`
	Registered bool                          `json:"registered"`
	Done       map[course.CheckpointKey]bool `json:"done"`
	Completed  int                           `json:"completed"`
	Percent    int                           `json:"percent"`
}

// Complete is true only when every tracked checkpoint has a response.
func (r Row) Complete() bool {
	return r.Percent == 100
}

type Summary struct {
	KnownTrainees      int                          `json:"knownTrainees"`
	RegisteredTrainees int                          `json:"registeredTrainees"`
	RespondedTrainees  int                          `json:"respondedTrainees"`
	CompleteTrainees   int                          `json:"completeTrainees"`
	PerCheckpoint      map[course.CheckpointKey]int `json:"perCheckpoint"`
}

type Matrix struct {
	CourseID    string                 `json:"courseId"`
	Checkpoints []course.CheckpointKey `json:"checkpoints"`
	Rows        []Row                  `json:"rows"`
	Summary     Summary                `json:"summary"`
}

// Build joins registrations and responses for courseID over the tracked checkpoints.
// Known trainees are the union of registered ids and responder ids; duplicate
// registrations or repeated submissions count once. Records for other courses are ignored.
func Build(courseID string, checkpoints []course.CheckpointKey, regs []*registration.Registration, resps []*response.Response) *Matrix {
	tracked := make(map[course.CheckpointKey]bool, len(checkpoints))
	for _, k := range checkpoints {
		tracked[k] = true
	}

	registered := make(map[string]bool)
	for _, r := range regs {
		if r == nil || r.CourseID != courseID || r.TraineeID == "" {
			continue
		}
		registered[r.TraineeID] = true
	}

	submitted := make(map[string]map[course.CheckpointKey]bool)
	for _, r := range resps {
		if r == nil || r.CourseID != courseID || r.TraineeID == "" {
			continue
		}
		if submitted[r.TraineeID] == nil {
			submitted[r.TraineeID] = make(map[course.CheckpointKey]bool)
		}
		submitted[r.TraineeID][r.Checkpoint] = true
	}

	known := make(map[string]bool, len(registered)+len(submitted))
	for id := range registered {
		known[id] = true
	}
	for id := range submitted {
		known[id] = true
	}
	ids := make([]string, 0, len(known))
	for id := range known {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	m := &Matrix{
		CourseID:    courseID,
		Checkpoints: append([]course.CheckpointKey(nil), checkpoints...),
		Rows:        make([]Row, 0, len(ids)),
		Summary: Summary{
			KnownTrainees:      len(ids),
			RegisteredTrainees: len(registered),
			PerCheckpoint:      make(map[course.CheckpointKey]int, len(checkpoints)),
		},
	}
	for _, k := range checkpoints {
		m.Summary.PerCheckpoint[k] = 0
	}

	for _, id := range ids {
		row := Row{
			TraineeID:  id,
			Registered: registered[id],
			Done:       make(map[course.CheckpointKey]bool, len(checkpoints)),
		}
		for _, k := range checkpoints {
			done := submitted[id][k]
			row.Done[k] = done
			if done {
				row.Completed++
				m.Summary.PerCheckpoint[k]++
			}
		}
		row.Percent = Percent(row.Completed, len(checkpoints))
		if len(submitted[id]) > 0 {
			m.Summary.RespondedTrainees++
		}
		if row.Complete() {
			m.Summary.CompleteTrainees++
		}
		m.Rows = append(m.Rows, row)
	}
	return m
}

// Percent rounds done/total to the nearest whole percent. An empty checkpoint set yields 0.
func Percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(done) * 100 / float64(total)))
}
