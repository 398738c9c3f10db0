package companion

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lumoracare/lumora/pkg/model"
	"github.com/lumoracare/lumora/pkg/prompt"
	"github.com/lumoracare/lumora/pkg/telemetry"
)

// fallbackFormat is the degraded-but-usable reply for a failed model call.
const fallbackFormat = "I'm having a little trouble understanding right now. Could you please repeat that? (Error: %v)"

// Send submits one patient utterance and returns the assistant's cleaned
// reply. A single model attempt is made, no retries.
//
// On model failure the returned text is a fixed apology embedding the error
// detail; no extraction runs and nothing is persisted for that turn, and the
// session stays usable. On success the exchange is appended to the
// conversation log, extraction runs inline as best effort, and the record is
// persisted unconditionally. The returned error is non-nil only when that
// final persist fails; the reply text is valid either way.
func (s *Session) Send(ctx context.Context, userText string) (_ string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "companion.turn",
		trace.WithAttributes(
			attribute.String("session.id", s.id),
			attribute.String("patient.identity", s.identity),
		),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	turn := model.Message{Role: model.RoleUser, Content: prompt.TurnWithPolicy(s.policy, userText)}
	reply, genErr := s.model.Generate(ctx, append(s.dialogue, turn))
	if genErr != nil {
		s.logger.Warn("turn generation failed", "session", s.id, "error", genErr)
		return fmt.Sprintf(fallbackFormat, genErr), nil
	}

	cleaned := cleanResponse(reply.Content)
	s.dialogue = append(s.dialogue, turn, model.Message{Role: model.RoleAssistant, Content: cleaned})

	s.record.AppendExchange(s.now(), userText, cleaned)
	if delta, exErr := s.extractor.Extract(ctx, userText, cleaned); exErr != nil {
		// Best-effort enrichment: log and move on, the reply is already final.
		s.logger.Warn("memory extraction failed", "session", s.id, "error", exErr)
	} else {
		s.record.Apply(delta)
	}

	if saveErr := s.store.Save(s.identity, s.record); saveErr != nil {
		s.logger.Error("memory persist failed", "session", s.id, "error", saveErr)
		return cleaned, saveErr
	}
	return cleaned, nil
}

// cleanResponse strips matching leading/trailing quote pairs until none
// remain, then un-escapes escaped quotes. Unquoted text passes through
// untouched.
func cleanResponse(text string) string {
	for len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if first != last || (first != '"' && first != '\'') {
			break
		}
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	text = strings.ReplaceAll(text, `\"`, `"`)
	return strings.ReplaceAll(text, `\'`, `'`)
}
