package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/lumoracare/lumora/pkg/memory"
)

// ErrUnparsable reports model output that could not be read as the expected
// JSON shape. Callers swallow it; it exists so logs can classify the failure.
var ErrUnparsable = errors.New("extract: unparsable extraction output")

// rawDelta accepts the loosest shape the model might return. Every slot is
// optional and leaf values are coerced rather than rejected where possible.
type rawDelta struct {
	PersonalInfo   map[string]any `json:"personal_info"`
	Memories       []any          `json:"memories"`
	Preferences    map[string]any `json:"preferences"`
	Topics         []any          `json:"topics"`
	EmotionalState any            `json:"emotional_state"`
}

// parseDelta reads model output into a Delta. Markdown code fences and prose
// around the JSON object are tolerated; a missing or malformed object is not.
func parseDelta(text string) (*memory.Delta, error) {
	payload, ok := isolateJSON(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object found", ErrUnparsable)
	}
	var raw rawDelta
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	delta := &memory.Delta{
		PersonalInfo:   coerceStringMap(raw.PersonalInfo),
		Memories:       coerceStringList(raw.Memories),
		Preferences:    coerceStringMap(raw.Preferences),
		Topics:         coerceStringList(raw.Topics),
		EmotionalState: coerceString(raw.EmotionalState),
	}
	return delta, nil
}

// isolateJSON cuts the outermost {...} out of the model's reply, skipping
// any ```json fences or commentary the model wrapped around it.
func isolateJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func coerceStringMap(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if s := coerceString(v); s != "" {
			out[k] = s
		}
	}
	return out
}

func coerceStringList(in []any) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if s := coerceString(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", val), "0"), ".")
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return ""
	}
}
