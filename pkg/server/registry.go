package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/lumoracare/lumora/pkg/companion"
	"github.com/lumoracare/lumora/pkg/memory"
	"github.com/lumoracare/lumora/pkg/model"
)

// ErrBadIdentity rejects identities that are empty or unsafe as path keys.
var ErrBadIdentity = errors.New("server: invalid patient identity")

// registry maps patient identities to their single live session. Two
// concurrent requests for the same patient get the same Session, whose own
// lock then serializes their turns.
type registry struct {
	model  model.Model
	store  memory.Store
	logger *slog.Logger
	opts   []companion.Option

	mu       sync.Mutex
	sessions map[string]*companion.Session
}

func newRegistry(m model.Model, store memory.Store, logger *slog.Logger, opts ...companion.Option) *registry {
	return &registry{
		model:    m,
		store:    store,
		logger:   logger,
		opts:     opts,
		sessions: make(map[string]*companion.Session),
	}
}

// acquire returns the live session for identity, creating and starting one
// on first use. A failed bootstrap does not prevent later turns; it is
// logged and the session is handed out anyway.
func (r *registry) acquire(ctx context.Context, identity string) (*companion.Session, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" || strings.ContainsAny(identity, "/\\") {
		return nil, ErrBadIdentity
	}

	r.mu.Lock()
	sess, ok := r.sessions[identity]
	if !ok {
		opts := append([]companion.Option{companion.WithLogger(r.logger)}, r.opts...)
		sess = companion.NewSession(identity, r.model, r.store, opts...)
		r.sessions[identity] = sess
	}
	r.mu.Unlock()

	if !ok {
		if err := sess.Start(ctx); err != nil {
			r.logger.Warn("session bootstrap failed, continuing", "identity", identity, "error", err)
		}
	}
	return sess, nil
}
