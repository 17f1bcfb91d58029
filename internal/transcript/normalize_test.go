package transcript

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SegmentsShapeDropsBlankText(t *testing.T) {
	segs, err := Parse([]byte(`{"segments":[{"speaker":{"name":"A"},"text":"hi"},{"speaker":{"name":"B"},"text":"  "}]}`))
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "A: hi", Render(segs))
}

func TestNormalize_SegmentSpeakerFallbacks(t *testing.T) {
	data := `{"utterances":[
		{"participant":{"display_name":"Dee"},"utterance":"from utterance"},
		{"participant":{"id":42},"text":"by id"},
		{"speaker":"Sam","text":"plain speaker"},
		{"text":"nobody"}
	]}`
	segs, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, segs, 4)

	assert.Equal(t, "Dee", segs[0].Speaker)
	assert.Equal(t, "from utterance", segs[0].Text)
	assert.Equal(t, "42", segs[1].Speaker)
	assert.Equal(t, "Sam", segs[2].Speaker)
	assert.Equal(t, UnknownSpeaker, segs[3].Speaker)
}

func TestNormalize_ParticipantPreferredOverSpeaker(t *testing.T) {
	segs, err := Parse([]byte(`{"results":[{"participant":{"name":"P"},"speaker":{"name":"S"},"text":"x","start":1.25,"end":2}]}`))
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "P", segs[0].Speaker)
	assert.Equal(t, json.Number("1.25"), segs[0].Start)
	assert.Equal(t, json.Number("2"), segs[0].End)
}

func TestNormalize_KeyOrder(t *testing.T) {
	segs, err := Parse([]byte(`{"data":[{"text":"data"}],"segments":[{"text":"segments"}]}`))
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "segments", segs[0].Text)
}

func TestNormalize_WordsShapePreservesOrder(t *testing.T) {
	data := `[
		{"participant":{"name":"Alice","id":1},"words":[
			{"text":"hello","start_timestamp":{"absolute":"2024-01-01T10:00:00Z"},"end_timestamp":{"absolute":"2024-01-01T10:00:01Z"}},
			{"text":"there"}
		]},
		{"participant":{"id":7},"words":[{"text":"hey"}]}
	]`
	segs, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, segs, 3)

	assert.Equal(t, Segment{Speaker: "Alice", Start: "2024-01-01T10:00:00Z", End: "2024-01-01T10:00:01Z", Text: "hello"}, segs[0])
	assert.Equal(t, "Alice", segs[1].Speaker)
	assert.Nil(t, segs[1].Start)
	assert.Equal(t, "7", segs[2].Speaker)
	assert.Equal(t, "Alice: hello\nAlice: there\n7: hey", Render(segs))
}

func TestNormalize_TimestampsNotResorted(t *testing.T) {
	segs := Normalize([]any{
		map[string]any{"participant": map[string]any{"name": "B"}, "words": []any{
			map[string]any{"text": "later", "start_timestamp": map[string]any{"absolute": 20.0}},
		}},
		map[string]any{"participant": map[string]any{"name": "A"}, "words": []any{
			map[string]any{"text": "earlier", "start_timestamp": map[string]any{"absolute": 10.0}},
		}},
	})
	assert.Equal(t, "B: later\nA: earlier", Render(segs))
}

func TestNormalize_UnrecognizedShapes(t *testing.T) {
	for _, raw := range []string{`{"foo":"bar"}`, `"text"`, `42`, `null`, `{"segments":"nope"}`} {
		segs, err := Parse([]byte(raw))
		require.NoError(t, err, raw)
		assert.Empty(t, segs, raw)
		assert.Equal(t, "", Render(segs), raw)
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{"segments":`))
	assert.Error(t, err)
}

func TestRender_Deterministic(t *testing.T) {
	segs := []Segment{{Speaker: "A", Text: "  one "}, {Speaker: "", Text: "two"}, {Speaker: "C", Text: "\t"}}
	first := Render(segs)
	assert.Equal(t, "A: one\nUnknown: two", first)
	assert.Equal(t, first, Render(segs))
}
