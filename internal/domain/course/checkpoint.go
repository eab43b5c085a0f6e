// internal/domain/course/checkpoint.go
package course

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CheckpointKey names a point in a course's post-completion timeline.
// Numeric keys are week offsets from the end of the course.
type CheckpointKey string

const (
	CheckpointPre   CheckpointKey = "pre"
	CheckpointWeek0 CheckpointKey = "0"
	CheckpointWeek2 CheckpointKey = "2"
	CheckpointWeek4 CheckpointKey = "4"
	CheckpointWeek6 CheckpointKey = "6"
	CheckpointWeek8 CheckpointKey = "8"
)

// AllCheckpoints lists every key a course calendar may carry, in timeline order.
var AllCheckpoints = []CheckpointKey{CheckpointPre, CheckpointWeek0, CheckpointWeek2, CheckpointWeek4, CheckpointWeek6, CheckpointWeek8}

// ParseCheckpointKey accepts "pre" or a week number and rejects anything outside AllCheckpoints.
func ParseCheckpointKey(raw string) (CheckpointKey, error) {
	k := CheckpointKey(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllCheckpoints {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCheckpoint, raw)
}

// Week returns the numeric week offset. ok is false for "pre".
func (k CheckpointKey) Week() (int, bool) {
	n, err := strconv.Atoi(string(k))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Label is the human name used in reports and exports.
func (k CheckpointKey) Label() string {
	switch k {
	case CheckpointPre:
		return "Pre-training"
	case CheckpointWeek0:
		return "Week 0"
	default:
		return "Week " + string(k)
	}
}

// MarshalJSON writes week keys as JSON numbers (4) and "pre" as a string.
func (k CheckpointKey) MarshalJSON() ([]byte, error) {
	if n, ok := k.Week(); ok {
		return []byte(strconv.Itoa(n)), nil
	}
	return json.Marshal(string(k))
}

// UnmarshalJSON accepts both JSON numbers (4) and strings ("4", "pre").
func (k *CheckpointKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if errNum := json.Unmarshal(data, &n); errNum != nil {
			return fmt.Errorf("%w: %s", ErrInvalidCheckpoint, string(data))
		}
		s = n.String()
	}
	*k = CheckpointKey(strings.ToLower(strings.TrimSpace(s)))
	return nil
}

// CheckpointPolicy holds the business rules about which checkpoints take part in which flow.
type CheckpointPolicy struct {
	// Scanned are matched automatically against the calendar by the daily scan.
	Scanned []CheckpointKey
	// Tracked form the columns of the completion matrix.
	Tracked []CheckpointKey
	// Sendable may be dispatched ad hoc by an operator.
	Sendable []CheckpointKey
	// Finish is sent once, when the course is marked finished.
	Finish CheckpointKey
}

// DefaultPolicy mirrors the production schedule shape.
func DefaultPolicy() CheckpointPolicy {
	return CheckpointPolicy{
		Scanned:  []CheckpointKey{CheckpointWeek2, CheckpointWeek4, CheckpointWeek6, CheckpointWeek8},
		Tracked:  []CheckpointKey{CheckpointWeek0, CheckpointWeek2, CheckpointWeek4, CheckpointWeek6, CheckpointWeek8},
		Sendable: []CheckpointKey{CheckpointWeek0, CheckpointWeek2, CheckpointWeek4, CheckpointWeek6, CheckpointWeek8},
		Finish:   CheckpointWeek0,
	}
}

// WithPreSend returns a copy that also allows ad-hoc sends of "pre".
func (p CheckpointPolicy) WithPreSend() CheckpointPolicy {
	if p.CanSend(CheckpointPre) {
		return p
	}
	sendable := make([]CheckpointKey, 0, len(p.Sendable)+1)
	sendable = append(sendable, CheckpointPre)
	sendable = append(sendable, p.Sendable...)
	p.Sendable = sendable
	return p
}

func (p CheckpointPolicy) CanSend(k CheckpointKey) bool {
	return contains(p.Sendable, k)
}

func contains(keys []CheckpointKey, k CheckpointKey) bool {
	for _, candidate := range keys {
		if candidate == k {
			return true
		}
	}
	return false
}
