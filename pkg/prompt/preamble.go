package prompt

import (
	"sort"
	"strings"

	"github.com/lumoracare/lumora/pkg/memory"
)

// Preamble renders the session-opening message: the behavioral policy,
// followed by a memory-context block when the record has anything worth
// reintroducing. The output is deterministic for a given record, map
// subsections are listed in sorted key order.
//
// The preamble is sent once at session start and not repeated per turn; the
// backend's own dialogue context carries it forward for the session's life.
func Preamble(rec *memory.Record) string {
	return PreambleWithPolicy(Policy, rec)
}

// PreambleWithPolicy renders the opening message with a caller-supplied
// policy text instead of the built-in one.
func PreambleWithPolicy(policy string, rec *memory.Record) string {
	var b strings.Builder
	b.WriteString(policy)
	b.WriteString("\n\nPlease follow these guidelines strictly.")

	if rec == nil || !rec.HasMemoryContext() {
		return b.String()
	}

	b.WriteString("\n\nPatient memory context:\n")
	if len(rec.PersonalInfo) > 0 {
		b.WriteString("Personal information:\n")
		writeSortedPairs(&b, rec.PersonalInfo)
	}
	if len(rec.ImportantMemories) > 0 {
		b.WriteString("\nImportant memories shared:\n")
		for _, mem := range rec.ImportantMemories {
			b.WriteString("- " + mem + "\n")
		}
	}
	if len(rec.Preferences) > 0 {
		b.WriteString("\nPreferences:\n")
		writeSortedPairs(&b, rec.Preferences)
	}
	return b.String()
}

// Turn wraps one patient utterance into the per-turn prompt, restating the
// policy so the model keeps its persona regardless of how long the session
// has run.
func Turn(userText string) string {
	return TurnWithPolicy(Policy, userText)
}

// TurnWithPolicy builds the per-turn prompt with a caller-supplied policy.
func TurnWithPolicy(policy, userText string) string {
	var b strings.Builder
	b.WriteString("System Instruction: ")
	b.WriteString(policy)
	b.WriteString("\n\nPatient: ")
	b.WriteString(userText)
	b.WriteString("\nLumora:")
	return b.String()
}

func writeSortedPairs(b *strings.Builder, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("- " + k + ": " + m[k] + "\n")
	}
}
