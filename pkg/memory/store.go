package memory

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"
)

// ErrInvalidIdentity reports an empty or whitespace-only patient identity.
var ErrInvalidIdentity = errors.New("memory: patient identity required")

// Store is the durable home of patient records.
//
// Load fails soft: a missing or unreadable record yields a fresh empty one,
// never an error. Save rewrites the full record; it must be safe to call
// after every turn. Reset is irreversible and expected to be gated behind
// explicit confirmation by the caller.
type Store interface {
	Load(identity string) *Record
	Save(identity string, rec *Record) error
	Reset(identity string) (*Record, error)
}

// FileStore keeps one JSON document per patient on a Backend.
type FileStore struct {
	backend Backend
	logger  *slog.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore wires a store over the given backend. A nil logger falls back
// to slog.Default.
func NewFileStore(backend Backend, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{backend: backend, logger: logger}
}

// Load reads the record for identity. Missing or corrupt data is recovered
// locally by substituting an empty record; the condition is logged, never
// surfaced.
func (s *FileStore) Load(identity string) *Record {
	p, err := recordPath(identity)
	if err != nil {
		s.logger.Warn("memory load: bad identity, using empty record", "identity", identity)
		return NewRecord()
	}
	data, err := s.backend.Read(p)
	if err != nil {
		return NewRecord()
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("memory load: unreadable record, using empty record",
			"identity", identity, "error", err)
		return NewRecord()
	}
	rec.normalize()
	return &rec
}

// Save overwrites the full persisted record for identity.
func (s *FileStore) Save(identity string, rec *Record) error {
	p, err := recordPath(identity)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = NewRecord()
	}
	rec.normalize()
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return err
	}
	return s.backend.Write(p, data)
}

// Reset discards everything known about identity, persists the empty record,
// and returns it.
func (s *FileStore) Reset(identity string) (*Record, error) {
	rec := NewRecord()
	if err := s.Save(identity, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func recordPath(identity string) (string, error) {
	trimmed := strings.TrimSpace(identity)
	if trimmed == "" {
		return "", ErrInvalidIdentity
	}
	return "/patients/" + trimmed + ".json", nil
}
