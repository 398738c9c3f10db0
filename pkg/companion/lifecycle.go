package companion

import "context"

// NewConversation discards the dialogue context and starts a fresh one with
// the current, unmodified memory record. What the patient has shared before
// survives; only the running chat state is lost.
func (s *Session) NewConversation(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

// ResetMemory irreversibly wipes the patient's memory record, then restarts
// the dialogue. The wipe happens first so the new session's preamble reflects
// the now-empty memory, never a stale one. Callers are expected to gate this
// behind explicit confirmation.
func (s *Session) ResetMemory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.store.Reset(s.identity)
	if err != nil {
		return err
	}
	s.record = rec
	return s.startLocked(ctx)
}
