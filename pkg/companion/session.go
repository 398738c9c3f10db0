// Package companion owns the live dialogue with the model backend: one
// Session per patient, holding the conversation-so-far plus the patient's
// memory record, and serializing turns end to end.
package companion

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumoracare/lumora/pkg/extract"
	"github.com/lumoracare/lumora/pkg/memory"
	"github.com/lumoracare/lumora/pkg/model"
	"github.com/lumoracare/lumora/pkg/prompt"
)

// Session is one active dialogue for one patient. The dialogue transcript is
// in-memory only; nothing survives a restart except what extraction has
// merged into the memory record.
//
// A Session serializes its own turns: one Send runs to completion, including
// extraction and persist, before the next begins.
type Session struct {
	id        string
	identity  string
	model     model.Model
	store     memory.Store
	extractor *extract.Extractor
	logger    *slog.Logger
	now       func() time.Time
	policy    string

	mu       sync.Mutex
	record   *memory.Record
	dialogue []model.Message
}

// Option customizes a Session.
type Option func(*Session)

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithExtractionModel routes extraction calls to a different backend than
// the conversational one.
func WithExtractionModel(m model.Model) Option {
	return func(s *Session) {
		if m != nil {
			s.extractor = extract.New(m)
		}
	}
}

// WithPolicy replaces the built-in behavioral policy text for every prompt
// this session builds.
func WithPolicy(policy string) Option {
	return func(s *Session) {
		if policy != "" {
			s.policy = policy
		}
	}
}

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession loads the patient's record and prepares a session. The dialogue
// is not started yet; call Start before the first Send.
func NewSession(identity string, m model.Model, store memory.Store, opts ...Option) *Session {
	s := &Session{
		id:        uuid.New().String(),
		identity:  identity,
		model:     m,
		store:     store,
		extractor: extract.New(m),
		logger:    slog.Default(),
		now:       time.Now,
		policy:    prompt.Policy,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.record = store.Load(identity)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Identity returns the patient identity this session serves.
func (s *Session) Identity() string { return s.identity }

// Record returns a snapshot of the current memory record. Mutating the
// snapshot does not affect the session.
func (s *Session) Record() *memory.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// Start resets the dialogue context and transmits the behavioral policy with
// the rendered memory preamble as the opening message. No user-visible reply
// is expected; callers typically ignore the error the same way they would a
// failed turn.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

func (s *Session) startLocked(ctx context.Context) error {
	s.dialogue = s.dialogue[:0]
	opening := prompt.PreambleWithPolicy(s.policy, s.record)
	s.dialogue = append(s.dialogue, model.Message{Role: model.RoleUser, Content: opening})
	reply, err := s.model.Generate(ctx, s.dialogue)
	if err != nil {
		s.logger.Warn("session bootstrap failed", "session", s.id, "error", err)
		return err
	}
	s.dialogue = append(s.dialogue, reply)
	return nil
}
