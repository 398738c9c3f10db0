package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/lumoracare/lumora/pkg/memory"
	"github.com/lumoracare/lumora/pkg/model"
)

type stubModel struct {
	reply string
}

func (s *stubModel) Generate(_ context.Context, messages []model.Message) (model.Message, error) {
	last := messages[len(messages)-1].Content
	if strings.Contains(last, "respond in JSON format only") {
		return model.Message{Role: model.RoleAssistant, Content: `{"topics": ["visits"]}`}, nil
	}
	return model.Message{Role: model.RoleAssistant, Content: s.reply}, nil
}

func newTestServer(t *testing.T) (*Server, memory.Store) {
	t.Helper()
	backend, err := memory.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	store := memory.NewFileStore(backend, nil)
	return New(&stubModel{reply: "Hello!"}, store, nil), store
}

func TestHandleMessage(t *testing.T) {
	srv, store := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/patients/margaret/messages",
		strings.NewReader(`{"message": "good morning"}`))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var payload map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["reply"] != "Hello!" {
		t.Fatalf("reply = %q", payload["reply"])
	}
	rec := store.Load("margaret")
	if len(rec.ConversationHistory) != 1 {
		t.Fatalf("history len = %d, want 1", len(rec.ConversationHistory))
	}
	if rec.TopicsDiscussed["visits"] != 1 {
		t.Fatalf("topics = %+v", rec.TopicsDiscussed)
	}
}

func TestHandleMessageRejectsEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/patients/margaret/messages",
		strings.NewReader(`{"message": "  "}`))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHandleMemory(t *testing.T) {
	srv, store := newTestServer(t)
	seeded := memory.NewRecord()
	seeded.PersonalInfo["name"] = "Margaret"
	if err := store.Save("margaret", seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/patients/margaret/memory", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var rec memory.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.PersonalInfo["name"] != "Margaret" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestHandleResetRequiresConfirm(t *testing.T) {
	srv, store := newTestServer(t)
	seeded := memory.NewRecord()
	seeded.PersonalInfo["name"] = "Margaret"
	if err := store.Save("margaret", seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/patients/margaret/memory", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unconfirmed reset status = %d, want 400", rr.Code)
	}
	if store.Load("margaret").PersonalInfo["name"] != "Margaret" {
		t.Fatal("unconfirmed reset wiped memory")
	}

	req = httptest.NewRequest(http.MethodDelete, "/patients/margaret/memory?confirm=true", nil)
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("confirmed reset status = %d", rr.Code)
	}
	if len(store.Load("margaret").PersonalInfo) != 0 {
		t.Fatal("confirmed reset left memory behind")
	}
}

func TestHandleNewConversation(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/patients/margaret/sessions", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["session_id"] == "" {
		t.Fatal("missing session_id")
	}
}

func TestRegistryReusesSessionPerIdentity(t *testing.T) {
	srv, _ := newTestServer(t)
	a, err := srv.sessions.acquire(context.Background(), "margaret")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	b, err := srv.sessions.acquire(context.Background(), "margaret")
	if err != nil {
		t.Fatalf("acquire again: %v", err)
	}
	if a != b {
		t.Fatal("same identity must map to the same session")
	}
	c, err := srv.sessions.acquire(context.Background(), "arthur")
	if err != nil {
		t.Fatalf("acquire other: %v", err)
	}
	if c == a {
		t.Fatal("different identities must not share a session")
	}
}

func TestRegistryRejectsBadIdentity(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, id := range []string{"", "  ", "a/b", `a\b`} {
		if _, err := srv.sessions.acquire(context.Background(), id); err == nil {
			t.Fatalf("identity %q should be rejected", id)
		}
	}
}
