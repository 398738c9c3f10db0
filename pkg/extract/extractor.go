// Package extract turns one raw conversational exchange into a structured
// memory delta through a second, stateless model call.
//
// Everything a model returns here is treated as untrusted input: extraction
// is best-effort enrichment, and no failure on this path may ever influence
// the conversational reply the patient already received.
package extract

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lumoracare/lumora/pkg/memory"
	"github.com/lumoracare/lumora/pkg/model"
	"github.com/lumoracare/lumora/pkg/prompt"
	"github.com/lumoracare/lumora/pkg/telemetry"
)

// Extractor distills (patient, assistant) pairs into memory deltas.
type Extractor struct {
	model model.Model
}

// New creates an Extractor backed by the given model.
func New(m model.Model) *Extractor {
	return &Extractor{model: m}
}

// Extract issues an independent model call for the exchange and parses its
// output. On success it returns the proposed delta; on any failure, backend
// or parse, it returns a nil delta and the error for the caller to log and
// discard.
func (e *Extractor) Extract(ctx context.Context, patientText, assistantText string) (_ *memory.Delta, err error) {
	ctx, span := telemetry.StartSpan(ctx, "extract.exchange",
		trace.WithAttributes(attribute.Int("exchange.patient_len", len(patientText))),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	// Fresh single-message context, independent of the ongoing conversation.
	messages := []model.Message{{
		Role:    model.RoleUser,
		Content: prompt.Extraction(patientText, assistantText),
	}}
	reply, err := e.model.Generate(ctx, messages)
	if err != nil {
		return nil, err
	}
	return parseDelta(reply.Content)
}
