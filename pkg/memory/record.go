// Package memory holds the durable per-patient record: accumulated personal
// facts, notable memories, preferences, topic counters, and the raw
// conversation log, together with the merge rules that fold freshly
// extracted knowledge into it.
package memory

import "time"

// TimestampLayout is the wire format for conversation timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Exchange is one completed conversation turn.
type Exchange struct {
	Timestamp string `json:"timestamp"`
	Patient   string `json:"patient"`
	Assistant string `json:"assistant"`
}

// Record is the whole of what the companion durably knows about one patient.
// All five fields are always non-nil after NewRecord or a store Load.
type Record struct {
	PersonalInfo        map[string]string `json:"personal_info"`
	ImportantMemories   []string          `json:"important_memories"`
	Preferences         map[string]string `json:"preferences"`
	ConversationHistory []Exchange        `json:"conversation_history"`
	TopicsDiscussed     map[string]int    `json:"topics_discussed"`
}

// NewRecord returns an empty record with every field initialized.
func NewRecord() *Record {
	return &Record{
		PersonalInfo:        map[string]string{},
		ImportantMemories:   []string{},
		Preferences:         map[string]string{},
		ConversationHistory: []Exchange{},
		TopicsDiscussed:     map[string]int{},
	}
}

// normalize backfills nil fields so a partially populated or hand-edited
// persisted form never leaks nil maps into merge code.
func (r *Record) normalize() {
	if r.PersonalInfo == nil {
		r.PersonalInfo = map[string]string{}
	}
	if r.ImportantMemories == nil {
		r.ImportantMemories = []string{}
	}
	if r.Preferences == nil {
		r.Preferences = map[string]string{}
	}
	if r.ConversationHistory == nil {
		r.ConversationHistory = []Exchange{}
	}
	if r.TopicsDiscussed == nil {
		r.TopicsDiscussed = map[string]int{}
	}
}

// AppendExchange appends one turn to the conversation log. The log is
// chronological and append-only; nothing in this package ever prunes it.
func (r *Record) AppendExchange(at time.Time, patient, assistant string) {
	r.ConversationHistory = append(r.ConversationHistory, Exchange{
		Timestamp: at.Format(TimestampLayout),
		Patient:   patient,
		Assistant: assistant,
	})
}

// HasMemoryContext reports whether rendering a memory preamble would produce
// anything: personal info or important memories must be present.
func (r *Record) HasMemoryContext() bool {
	return len(r.PersonalInfo) > 0 || len(r.ImportantMemories) > 0
}

// Clone returns a deep copy, used to keep snapshots isolated from later merges.
func (r *Record) Clone() *Record {
	clone := &Record{
		PersonalInfo:        make(map[string]string, len(r.PersonalInfo)),
		ImportantMemories:   append([]string(nil), r.ImportantMemories...),
		Preferences:         make(map[string]string, len(r.Preferences)),
		ConversationHistory: append([]Exchange(nil), r.ConversationHistory...),
		TopicsDiscussed:     make(map[string]int, len(r.TopicsDiscussed)),
	}
	for k, v := range r.PersonalInfo {
		clone.PersonalInfo[k] = v
	}
	for k, v := range r.Preferences {
		clone.Preferences[k] = v
	}
	for k, v := range r.TopicsDiscussed {
		clone.TopicsDiscussed[k] = v
	}
	clone.normalize()
	return clone
}
