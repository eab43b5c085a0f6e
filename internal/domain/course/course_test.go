package course

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCheckpointKey(t *testing.T) {
	k, err := ParseCheckpointKey(" PRE ")
	require.NoError(t, err)
	assert.Equal(t, CheckpointPre, k)

	k, err = ParseCheckpointKey("6")
	require.NoError(t, err)
	assert.Equal(t, CheckpointWeek6, k)

	_, err = ParseCheckpointKey("3")
	assert.ErrorIs(t, err, ErrInvalidCheckpoint)
}

func TestCheckpointKey_UnmarshalJSON(t *testing.T) {
	var body struct {
		Key CheckpointKey `json:"key"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"key":4}`), &body))
	assert.Equal(t, CheckpointWeek4, body.Key)

	require.NoError(t, json.Unmarshal([]byte(`{"key":"pre"}`), &body))
	assert.Equal(t, CheckpointPre, body.Key)

	assert.Error(t, json.Unmarshal([]byte(`{"key":true}`), &body))
}

func TestCheckpointKey_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		Week CheckpointKey   `json:"week"`
		Pre  CheckpointKey   `json:"pre"`
		All  []CheckpointKey `json:"all"`
	}{CheckpointWeek4, CheckpointPre, []CheckpointKey{CheckpointWeek0, CheckpointWeek8}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"week":4,"pre":"pre","all":[0,8]}`, string(out))

	var back CheckpointKey
	require.NoError(t, json.Unmarshal([]byte("4"), &back))
	assert.Equal(t, CheckpointWeek4, back)
}

func TestCourse_DueOn(t *testing.T) {
	c := &Course{WeekDates: map[CheckpointKey]string{
		CheckpointWeek0: "2026-03-10",
		CheckpointWeek2: "2026-03-10",
		CheckpointWeek4: "2026-03-24",
		CheckpointWeek6: "",
	}}
	due := c.DueOn("2026-03-10", DefaultPolicy().Scanned)
	assert.Equal(t, []CheckpointKey{CheckpointWeek2}, due)
	assert.Empty(t, c.DueOn("2026-01-01", DefaultPolicy().Scanned))
}

func TestCourse_Deliverable(t *testing.T) {
	c := &Course{
		WeekDates: map[CheckpointKey]string{CheckpointWeek2: "2026-03-10", CheckpointWeek4: "2026-03-24"},
		WeekForms: map[CheckpointKey]string{CheckpointWeek2: "form-1", CheckpointWeek4: ""},
	}
	assert.True(t, c.Deliverable(CheckpointWeek2))
	assert.False(t, c.Deliverable(CheckpointWeek4))
	assert.False(t, c.Deliverable(CheckpointWeek8))
}

func TestPolicy_WithPreSend(t *testing.T) {
	p := DefaultPolicy()
	assert.False(t, p.CanSend(CheckpointPre))
	withPre := p.WithPreSend()
	assert.True(t, withPre.CanSend(CheckpointPre))
	assert.True(t, withPre.CanSend(CheckpointWeek8))
	assert.False(t, p.CanSend(CheckpointPre), "original policy is unchanged")
}

func TestCheckpointKey_Week(t *testing.T) {
	n, ok := CheckpointWeek8.Week()
	assert.True(t, ok)
	assert.Equal(t, 8, n)
	_, ok = CheckpointPre.Week()
	assert.False(t, ok)
}
