package companion

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/lumoracare/lumora/pkg/memory"
	"github.com/lumoracare/lumora/pkg/model"
)

// scriptModel routes conversational and extraction calls separately so tests
// can fail one path without the other.
type scriptModel struct {
	chatReply   string
	chatErr     error
	extractJSON string
	extractErr  error

	chatCalls    int
	extractCalls int
}

func (s *scriptModel) Generate(_ context.Context, messages []model.Message) (model.Message, error) {
	last := messages[len(messages)-1].Content
	if strings.Contains(last, "respond in JSON format only") {
		s.extractCalls++
		if s.extractErr != nil {
			return model.Message{}, s.extractErr
		}
		return model.Message{Role: model.RoleAssistant, Content: s.extractJSON}, nil
	}
	s.chatCalls++
	if s.chatErr != nil {
		return model.Message{}, s.chatErr
	}
	return model.Message{Role: model.RoleAssistant, Content: s.chatReply}, nil
}

func newTestSession(t *testing.T, m model.Model) (*Session, memory.Store) {
	t.Helper()
	backend, err := memory.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	store := memory.NewFileStore(backend, nil)
	fixed := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	sess := NewSession("margaret", m, store, WithClock(func() time.Time { return fixed }))
	return sess, store
}

func TestSendSuccessfulTurn(t *testing.T) {
	script := &scriptModel{
		chatReply:   "Hello Margaret, how lovely to hear from you.",
		extractJSON: `{"personal_info": {"name": "Margaret"}, "topics": ["greetings"]}`,
	}
	sess, store := newTestSession(t, script)

	reply, err := sess.Send(context.Background(), "Hello, my name is Margaret")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply != "Hello Margaret, how lovely to hear from you." {
		t.Fatalf("reply = %q", reply)
	}
	if script.extractCalls != 1 {
		t.Fatalf("extraction calls = %d, want 1", script.extractCalls)
	}

	persisted := store.Load("margaret")
	if persisted.PersonalInfo["name"] != "Margaret" {
		t.Fatalf("extracted info not persisted: %+v", persisted)
	}
	if persisted.TopicsDiscussed["greetings"] != 1 {
		t.Fatalf("topics not persisted: %+v", persisted.TopicsDiscussed)
	}
	if len(persisted.ConversationHistory) != 1 {
		t.Fatalf("conversation_history len = %d, want 1", len(persisted.ConversationHistory))
	}
	got := persisted.ConversationHistory[0]
	if got.Patient != "Hello, my name is Margaret" || got.Assistant != reply {
		t.Fatalf("history entry = %+v", got)
	}
	if got.Timestamp != "2025-06-01 09:00:00" {
		t.Fatalf("timestamp = %q", got.Timestamp)
	}
}

func TestSendModelFailureReturnsFallback(t *testing.T) {
	script := &scriptModel{chatErr: model.NewGenerationError("gemini", errors.New("connection refused"))}
	sess, store := newTestSession(t, script)

	reply, err := sess.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.HasPrefix(reply, "I'm having a little trouble understanding right now.") {
		t.Fatalf("reply = %q, want apology", reply)
	}
	if !strings.Contains(reply, "connection refused") {
		t.Fatalf("fallback should embed the error detail: %q", reply)
	}
	if script.extractCalls != 0 {
		t.Fatal("failed turn must not attempt extraction")
	}
	// Nothing is persisted for a failed turn.
	if got := store.Load("margaret"); !reflect.DeepEqual(got, memory.NewRecord()) {
		t.Fatalf("failed turn persisted state: %+v", got)
	}

	// The session stays usable for the next turn.
	script.chatErr = nil
	script.chatReply = "I'm here now."
	script.extractJSON = `{}`
	if reply, err = sess.Send(context.Background(), "are you there?"); err != nil || reply != "I'm here now." {
		t.Fatalf("next turn after failure: reply=%q err=%v", reply, err)
	}
}

func TestSendExtractionFailureIsolated(t *testing.T) {
	script := &scriptModel{
		chatReply:  "That sounds like a lovely afternoon.",
		extractErr: errors.New("backend exploded"),
	}
	sess, store := newTestSession(t, script)

	before := sess.Record()
	reply, err := sess.Send(context.Background(), "I sat in the garden")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply != "That sounds like a lovely afternoon." {
		t.Fatalf("extraction failure changed the reply: %q", reply)
	}

	after := store.Load("margaret")
	if !reflect.DeepEqual(after.PersonalInfo, before.PersonalInfo) ||
		!reflect.DeepEqual(after.Preferences, before.Preferences) ||
		!reflect.DeepEqual(after.ImportantMemories, before.ImportantMemories) ||
		!reflect.DeepEqual(after.TopicsDiscussed, before.TopicsDiscussed) {
		t.Fatalf("extraction failure mutated merge fields: %+v", after)
	}
	// The exchange itself is still recorded and persisted.
	if len(after.ConversationHistory) != 1 {
		t.Fatalf("conversation_history len = %d, want 1", len(after.ConversationHistory))
	}
}

func TestSendUnparsableExtractionIsolated(t *testing.T) {
	script := &scriptModel{
		chatReply:   "Tell me more about Harold.",
		extractJSON: "sorry, I cannot produce JSON today",
	}
	sess, store := newTestSession(t, script)

	if _, err := sess.Send(context.Background(), "Harold loved to dance"); err != nil {
		t.Fatalf("send: %v", err)
	}
	after := store.Load("margaret")
	if len(after.ImportantMemories) != 0 || len(after.TopicsDiscussed) != 0 {
		t.Fatalf("unparsable extraction mutated record: %+v", after)
	}
	if len(after.ConversationHistory) != 1 {
		t.Fatal("conversation_history should still gain one entry")
	}
}

func TestCleanResponse(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`"Hello there"`, "Hello there"},
		{`""Hello there""`, "Hello there"},
		{`'Hello there'`, "Hello there"},
		{`"'nested'"`, "nested"},
		{`plain text`, "plain text"},
		{`It\'s fine`, "It's fine"},
		{`She said \"hello\"`, `She said "hello"`},
		{`"She said \"hello\""`, `She said "hello"`},
		{`"unbalanced`, `"unbalanced`},
		{`"`, `"`},
		{``, ``},
	}
	for _, tc := range cases {
		if got := cleanResponse(tc.in); got != tc.want {
			t.Fatalf("cleanResponse(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTopicCountsAccumulateAcrossTurns(t *testing.T) {
	script := &scriptModel{
		chatReply:   "How nice.",
		extractJSON: `{"topics": ["family"]}`,
	}
	sess, store := newTestSession(t, script)

	const turns = 4
	for i := 0; i < turns; i++ {
		if _, err := sess.Send(context.Background(), "we talked about family"); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if got := store.Load("margaret").TopicsDiscussed["family"]; got != turns {
		t.Fatalf("topics_discussed[family] = %d, want %d", got, turns)
	}
}
