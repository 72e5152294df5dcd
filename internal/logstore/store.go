package logstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// MaxEntries bounds the number of entries kept in memory and on disk.
	MaxEntries = 1000

	// StorageKey names the durable slot holding the serialized entries.
	StorageKey = "wallbox_app_logs"
)

// Observer receives counters about store activity. Implementations must be cheap
// and must not call back into the Store.
type Observer interface {
	EntryRecorded(level Level)
	PersistFailed()
}

// Store is a bounded, persisted, chronologically ordered log buffer. It is
// safe for concurrent use. No method returns an error or panics: every
// failure is reported to the Sink instead.
type Store struct {
	mu      sync.Mutex
	entries []Entry

	backend  Backend
	key      string
	capacity int
	sink     Sink
	saver    Saver
	observer Observer
	now      func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithSink routes diagnostics to sink instead of discarding them.
func WithSink(sink Sink) Option {
	return func(s *Store) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithSaver sets the collaborator used by Download.
func WithSaver(saver Saver) Option {
	return func(s *Store) { s.saver = saver }
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithClock overrides time.Now for timestamps and download filenames.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCapacity overrides MaxEntries. Values below one are ignored.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// New builds a Store over backend and loads any previously persisted entries.
// A missing or unreadable slot starts the store empty.
func New(backend Backend, opts ...Option) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	s := &Store{
		backend:  backend,
		key:      StorageKey,
		capacity: MaxEntries,
		sink:     NopSink{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.entries = s.load()
	return s
}

func (s *Store) load() (entries []Entry) {
	defer func() {
		if r := recover(); r != nil {
			s.report("Failed to load logs", fmt.Errorf("backend panic: %v", r))
			entries = nil
		}
	}()
	raw, err := s.backend.Load(s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.report("Failed to load logs", err)
		}
		return nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.report("Failed to parse stored logs", err)
		return nil
	}
	if over := len(entries) - s.capacity; over > 0 {
		entries = entries[over:]
	}
	return entries
}

// Record appends an entry, trims the oldest entries beyond capacity, writes the
// result through to the backend and echoes the entry to the sink.
func (s *Store) Record(level Level, message string, data any) {
	raw, encodeErr := encodeData(data)
	entry := Entry{Level: level, Message: message, Data: raw}

	s.mu.Lock()
	// Stamped under the lock so insertion order matches timestamp order.
	entry.Timestamp = formatTimestamp(s.now())
	s.entries = append(s.entries, entry)
	if over := len(s.entries) - s.capacity; over > 0 {
		copy(s.entries, s.entries[over:])
		s.entries = s.entries[:s.capacity]
	}
	persistErr := s.persistLocked()
	s.mu.Unlock()

	s.emit(entry)
	if encodeErr != nil {
		s.report("Failed to serialize log data", encodeErr)
	}
	if persistErr != nil {
		if s.observer != nil {
			s.observer.PersistFailed()
		}
		s.report("Failed to save logs", persistErr)
	}
	if s.observer != nil {
		s.observer.EntryRecorded(level)
	}
}

// Debug records a DEBUG entry. Only the first data value is kept.
func (s *Store) Debug(message string, data ...any) { s.Record(LevelDebug, message, first(data)) }

// Info records an INFO entry.
func (s *Store) Info(message string, data ...any) { s.Record(LevelInfo, message, first(data)) }

// Warn records a WARN entry.
func (s *Store) Warn(message string, data ...any) { s.Record(LevelWarn, message, first(data)) }

// Error records an ERROR entry.
func (s *Store) Error(message string, data ...any) { s.Record(LevelError, message, first(data)) }

func first(data []any) any {
	if len(data) == 0 {
		return nil
	}
	return data[0]
}

// Entries returns a copy of the buffered entries, oldest first.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of buffered entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear drops all entries and removes the durable slot. Clearing an empty
// store is a no-op.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = nil
	err := s.removeLocked()
	s.mu.Unlock()

	if err != nil && !errors.Is(err, ErrNotFound) {
		s.report("Failed to remove stored logs", err)
	}
}

// Export renders every entry as one line, joined by newlines.
func (s *Store) Export() string {
	return renderLines(s.Entries(), LevelDebug)
}

// ExportFiltered renders entries at or above min.
func (s *Store) ExportFiltered(min Level) string {
	return renderLines(s.Entries(), min)
}

// DownloadFilename returns the artifact name used for a download at t.
func DownloadFilename(t time.Time) string {
	return "wallbox-logs-" + formatTimestamp(t) + ".txt"
}

// Download hands the export text to the configured Saver and returns the
// generated filename, or "" when nothing was saved.
func (s *Store) Download() string {
	return s.DownloadTo(s.saver)
}

// DownloadTo is Download with an explicit Saver, e.g. the clipboard.
func (s *Store) DownloadTo(saver Saver) string {
	if saver == nil {
		s.report("Failed to download logs", errors.New("no saver configured"))
		return ""
	}
	name := DownloadFilename(s.now())
	if err := safeSave(saver, s.Export(), name); err != nil {
		s.report("Failed to download logs", err)
		return ""
	}
	return name
}

func safeSave(saver Saver, content, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("saver panic: %v", r)
		}
	}()
	return saver.Save(content, name)
}

func (s *Store) persistLocked() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode logs: %w", err)
	}
	if err := s.backend.Save(s.key, raw); err != nil {
		return fmt.Errorf("write logs: %w", err)
	}
	return nil
}

func (s *Store) removeLocked() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	return s.backend.Remove(s.key)
}

func (s *Store) emit(entry Entry) {
	defer func() { _ = recover() }()
	line := entry.sinkLine()
	switch entry.Level {
	case LevelError:
		s.sink.Error(line, entry.Data)
	case LevelWarn:
		s.sink.Warn(line, entry.Data)
	case LevelInfo:
		s.sink.Info(line, entry.Data)
	default:
		s.sink.Debug(line, entry.Data)
	}
}

func (s *Store) report(message string, err error) {
	defer func() { _ = recover() }()
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	s.sink.Error(message, payload)
}
