package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// UnknownSpeaker is used when no participant name or id can be found.
const UnknownSpeaker = "Unknown"

// segmentListKeys are tried in order on mapping-shaped payloads.
var segmentListKeys = []string{"segments", "results", "utterances", "data"}

// Segment is a single normalized utterance. Start and End are copied verbatim
// from the source payload and may be nil.
type Segment struct {
	Speaker string `json:"speaker"`
	Start   any    `json:"start"`
	End     any    `json:"end"`
	Text    string `json:"text"`
}

// Parse decodes raw transcript JSON and normalizes it. Numbers are kept as
// json.Number so timestamps survive untouched. Only malformed JSON is an error.
func Parse(data []byte) ([]Segment, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode transcript json: %w", err)
	}
	return Normalize(raw), nil
}

// Normalize converts the transcript shapes the provider emits into an ordered
// list of segments. Unrecognized shapes yield an empty result.
func Normalize(raw any) []Segment {
	out := []Segment{}

	switch v := raw.(type) {
	case map[string]any:
		for _, key := range segmentListKeys {
			items, ok := v[key].([]any)
			if !ok {
				continue
			}
			for _, item := range items {
				seg, ok := item.(map[string]any)
				if !ok {
					continue
				}
				out = append(out, mapSegment(seg))
			}
			return out
		}
	case []any:
		for _, item := range v {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			participant, _ := entry["participant"].(map[string]any)
			speaker := firstString(participant, "name", "id")
			if speaker == "" {
				speaker = UnknownSpeaker
			}
			words, _ := entry["words"].([]any)
			for _, w := range words {
				word, ok := w.(map[string]any)
				if !ok {
					continue
				}
				out = append(out, Segment{
					Speaker: speaker,
					Start:   absoluteTimestamp(word["start_timestamp"]),
					End:     absoluteTimestamp(word["end_timestamp"]),
					Text:    stringValue(word["text"]),
				})
			}
		}
	}
	return out
}

// Render joins non-blank segments as "speaker: text" lines in input order.
func Render(segments []Segment) string {
	lines := make([]string, 0, len(segments))
	for _, s := range segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		speaker := s.Speaker
		if speaker == "" {
			speaker = UnknownSpeaker
		}
		lines = append(lines, speaker+": "+text)
	}
	return strings.Join(lines, "\n")
}

func mapSegment(seg map[string]any) Segment {
	speaker := ""
	p := seg["participant"]
	if isEmpty(p) {
		p = seg["speaker"]
	}
	switch who := p.(type) {
	case map[string]any:
		speaker = firstString(who, "name", "display_name", "id")
	case nil:
	default:
		speaker = stringValue(who)
	}
	if speaker == "" {
		speaker = UnknownSpeaker
	}

	text := stringValue(seg["text"])
	if text == "" {
		text = stringValue(seg["utterance"])
	}
	return Segment{
		Speaker: speaker,
		Start:   seg["start"],
		End:     seg["end"],
		Text:    text,
	}
}

func absoluteTimestamp(v any) any {
	ts, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return ts["absolute"]
}

// firstString returns the first non-empty value among keys, stringified.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringValue(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case bool, float64, int, int64:
		return fmt.Sprint(s)
	default:
		return ""
	}
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case map[string]any:
		return len(x) == 0
	default:
		return false
	}
}
