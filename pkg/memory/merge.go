package memory

// Delta is the set of field-level changes one extraction pass proposes.
// EmotionalState is part of the extraction contract but is deliberately not
// merged into any persisted field.
type Delta struct {
	PersonalInfo   map[string]string `json:"personal_info"`
	Memories       []string          `json:"memories"`
	Preferences    map[string]string `json:"preferences"`
	Topics         []string          `json:"topics"`
	EmotionalState string            `json:"emotional_state"`
}

// Empty reports whether applying the delta would change nothing.
func (d *Delta) Empty() bool {
	if d == nil {
		return true
	}
	return len(d.PersonalInfo) == 0 && len(d.Memories) == 0 &&
		len(d.Preferences) == 0 && len(d.Topics) == 0
}

// Apply folds the delta into the record:
//
//   - personal_info and preferences overwrite by key, last write wins
//   - memories append only when the exact string is not already present
//   - every listed topic increments its counter by one, starting at one
//
// Replaying the identical delta therefore changes nothing except
// topics_discussed, which double-counts. That asymmetry is intentional.
func (r *Record) Apply(d *Delta) {
	if d == nil {
		return
	}
	r.normalize()
	for key, value := range d.PersonalInfo {
		r.PersonalInfo[key] = value
	}
	for _, mem := range d.Memories {
		if !containsString(r.ImportantMemories, mem) {
			r.ImportantMemories = append(r.ImportantMemories, mem)
		}
	}
	for key, value := range d.Preferences {
		r.Preferences[key] = value
	}
	for _, topic := range d.Topics {
		r.TopicsDiscussed[topic]++
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
