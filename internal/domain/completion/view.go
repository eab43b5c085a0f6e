package completion

import (
	"sort"
	"strings"
)

// Class filters rows by completion.
type Class string

const (
	ClassAll        Class = "all"
	ClassComplete   Class = "complete"
	ClassIncomplete Class = "incomplete"
)

// SortKey orders filtered rows.
type SortKey string

const (
	SortByTrainee    SortKey = "trainee"
	SortByCompletion SortKey = "completion"
)

// Query describes a filtered, sorted view of the matrix.
type Query struct {
	Search string
	Class  Class
	Sort   SortKey
	// DisplayNames maps trainee ids to names for search and name-based output.
	DisplayNames map[string]string
}

// View returns the rows matching q. The matrix itself is left untouched.
func (m *Matrix) View(q Query) []Row {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Row, 0, len(m.Rows))
	for _, row := range m.Rows {
		if needle != "" && !matches(row.TraineeID, q.DisplayNames[row.TraineeID], needle) {
			continue
		}
		switch q.Class {
		case ClassComplete:
			if !row.Complete() {
				continue
			}
		case ClassIncomplete:
			if row.Complete() {
				continue
			}
		}
		out = append(out, row)
	}

	switch q.Sort {
	case SortByCompletion:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Percent != out[j].Percent {
				return out[i].Percent > out[j].Percent
			}
			return out[i].TraineeID < out[j].TraineeID
		})
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].TraineeID < out[j].TraineeID })
	}
	return out
}

func matches(id, name, needle string) bool {
	return strings.Contains(strings.ToLower(id), needle) ||
		(name != "" && strings.Contains(strings.ToLower(name), needle))
}

// ParseClass maps free input to a Class, defaulting to ClassAll.
func ParseClass(s string) Class {
	switch Class(strings.ToLower(strings.TrimSpace(s))) {
	case ClassComplete:
		return ClassComplete
	case ClassIncomplete:
		return ClassIncomplete
	default:
		return ClassAll
	}
}

// ParseSortKey maps free input to a SortKey, defaulting to SortByTrainee.
func ParseSortKey(s string) SortKey {
	if SortKey(strings.ToLower(strings.TrimSpace(s))) == SortByCompletion {
		return SortByCompletion
	}
	return SortByTrainee
}
