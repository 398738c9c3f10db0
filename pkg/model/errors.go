package model

import (
	"errors"
	"fmt"
)

// ErrGeneration is the sentinel all backend failures wrap, so callers can
// classify a failed turn without inspecting provider-specific error types.
var ErrGeneration = errors.New("model: generation failed")

// GenerationError reports a failed backend call: network problems, auth or
// quota rejections, and malformed responses all surface through it.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("model: %s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrGeneration) match any GenerationError.
func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// NewGenerationError wraps a provider failure. A nil err returns nil.
func NewGenerationError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &GenerationError{Provider: provider, Err: err}
}
