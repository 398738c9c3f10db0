package prompt

import (
	"strings"
	"testing"

	"github.com/lumoracare/lumora/pkg/memory"
)

func TestPreambleEmptyRecordHasNoMemoryBlock(t *testing.T) {
	out := Preamble(memory.NewRecord())
	if !strings.Contains(out, "You are Lumora") {
		t.Fatal("preamble missing policy text")
	}
	if strings.Contains(out, "Patient memory context") {
		t.Fatal("empty record should not produce a memory context block")
	}
}

func TestPreambleNilRecord(t *testing.T) {
	if out := Preamble(nil); strings.Contains(out, "Patient memory context") {
		t.Fatalf("nil record produced memory block: %q", out)
	}
}

func TestPreambleIncludesSubsections(t *testing.T) {
	rec := memory.NewRecord()
	rec.PersonalInfo["name"] = "Margaret"
	rec.PersonalInfo["daughter"] = "Sarah"
	rec.ImportantMemories = append(rec.ImportantMemories, "worked as a nurse")
	rec.Preferences["tea"] = "chamomile"

	out := Preamble(rec)
	for _, want := range []string{
		"Patient memory context:",
		"Personal information:",
		"- daughter: Sarah",
		"- name: Margaret",
		"Important memories shared:",
		"- worked as a nurse",
		"Preferences:",
		"- tea: chamomile",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("preamble missing %q:\n%s", want, out)
		}
	}
	// Sorted keys keep the render deterministic.
	if strings.Index(out, "- daughter:") > strings.Index(out, "- name:") {
		t.Fatal("personal info keys not sorted")
	}
}

func TestPreambleOmitsEmptySubsections(t *testing.T) {
	rec := memory.NewRecord()
	rec.ImportantMemories = append(rec.ImportantMemories, "kept bees")

	out := Preamble(rec)
	if strings.Contains(out, "Personal information:") {
		t.Fatal("empty personal info subsection rendered")
	}
	if strings.Contains(out, "Preferences:") {
		t.Fatal("empty preferences subsection rendered")
	}
	if !strings.Contains(out, "- kept bees") {
		t.Fatal("memories subsection missing")
	}
}

func TestPreambleDeterministic(t *testing.T) {
	rec := memory.NewRecord()
	rec.PersonalInfo["b"] = "2"
	rec.PersonalInfo["a"] = "1"
	rec.PersonalInfo["c"] = "3"
	first := Preamble(rec)
	for i := 0; i < 10; i++ {
		if Preamble(rec) != first {
			t.Fatal("preamble render is not deterministic")
		}
	}
}

func TestTurnWrapsUtterance(t *testing.T) {
	out := Turn("I saw my granddaughter today")
	if !strings.Contains(out, "Patient: I saw my granddaughter today") {
		t.Fatalf("turn prompt missing utterance: %q", out)
	}
	if !strings.HasSuffix(out, "Lumora:") {
		t.Fatalf("turn prompt should end with the assistant cue: %q", out)
	}
	if !strings.Contains(out, "System Instruction:") {
		t.Fatal("turn prompt must restate the policy")
	}
}

func TestExtractionEmbedsExchange(t *testing.T) {
	out := Extraction("my daughter is Sarah", "That's wonderful")
	if !strings.Contains(out, "Patient: my daughter is Sarah") {
		t.Fatal("extraction prompt missing patient text")
	}
	if !strings.Contains(out, "Lumora: That's wonderful") {
		t.Fatal("extraction prompt missing assistant text")
	}
	if !strings.Contains(out, `"emotional_state": ""`) {
		t.Fatal("extraction prompt missing JSON skeleton")
	}
}
