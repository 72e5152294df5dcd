package logstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type failingBackend struct {
	loadErr  error
	saveErr  error
	saves    int
	removeOK bool
}

func (f *failingBackend) Load(string) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return nil, ErrNotFound
}

func (f *failingBackend) Save(string, []byte) error {
	f.saves++
	return f.saveErr
}

func (f *failingBackend) Remove(string) error {
	if f.removeOK {
		return nil
	}
	return errors.New("remove failed")
}

type panickyBackend struct{}

func (panickyBackend) Load(string) ([]byte, error) { panic("load boom") }
func (panickyBackend) Save(string, []byte) error   { panic("save boom") }
func (panickyBackend) Remove(string) error         { panic("remove boom") }

type sinkCall struct {
	channel string
	line    string
	data    string
}

type recordingSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (r *recordingSink) add(channel, line string, data json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, sinkCall{channel: channel, line: line, data: string(data)})
}

func (r *recordingSink) Debug(line string, data json.RawMessage) { r.add("debug", line, data) }
func (r *recordingSink) Info(line string, data json.RawMessage)  { r.add("info", line, data) }
func (r *recordingSink) Warn(line string, data json.RawMessage)  { r.add("warn", line, data) }
func (r *recordingSink) Error(line string, data json.RawMessage) { r.add("error", line, data) }

func (r *recordingSink) channelCount(channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.channel == channel {
			n++
		}
	}
	return n
}

type countingObserver struct {
	recorded map[Level]int
	failures int
}

func (c *countingObserver) EntryRecorded(level Level) {
	if c.recorded == nil {
		c.recorded = make(map[Level]int)
	}
	c.recorded[level]++
}

func (c *countingObserver) PersistFailed() { c.failures++ }

type memorySaver struct {
	content  string
	filename string
	err      error
}

func (m *memorySaver) Save(content, filename string) error {
	if m.err != nil {
		return m.err
	}
	m.content = content
	m.filename = filename
	return nil
}

func fixedClock() func() time.Time {
	base := time.Date(2025, 3, 4, 5, 6, 7, 890_000_000, time.UTC)
	var n int
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Millisecond)
	}
}

func TestStore_RecordScenarioOrderAndExport(t *testing.T) {
	s := New(NewMemoryBackend(), WithClock(fixedClock()))

	s.Info("A")
	s.Error("B", map[string]int{"code": 1})
	s.Debug("C")

	entries := s.Entries()
	if len(entries) != 3 {
		t.Fatalf("len(Entries) = %d, want 3", len(entries))
	}
	wantMessages := []string{"A", "B", "C"}
	wantLevels := []Level{LevelInfo, LevelError, LevelDebug}
	for i, entry := range entries {
		if entry.Message != wantMessages[i] || entry.Level != wantLevels[i] {
			t.Fatalf("entry %d = %s/%q, want %s/%q", i, entry.Level, entry.Message, wantLevels[i], wantMessages[i])
		}
	}

	export := s.Export()
	lines := strings.Split(export, "\n")
	if len(lines) != 3 {
		t.Fatalf("export has %d lines, want 3: %q", len(lines), export)
	}
	if !strings.Contains(lines[1], "[ERROR] B") || !strings.HasSuffix(lines[1], ` {"code":1}`) {
		t.Fatalf("line 2 = %q, want [ERROR] B with {\"code\":1}", lines[1])
	}
	if lines[0] != "[2025-03-04T05:06:07.891Z] [INFO] A" {
		t.Fatalf("line 1 = %q, want exact INFO rendering", lines[0])
	}
	if strings.HasSuffix(lines[2], " ") {
		t.Fatalf("line 3 = %q, should not carry a trailing payload separator", lines[2])
	}
}

func TestStore_TrimsToCapacityKeepingNewest(t *testing.T) {
	backend := NewMemoryBackend()
	s := New(backend)

	for i := 0; i < 1005; i++ {
		s.Info(fmt.Sprintf("m%d", i))
	}

	entries := s.Entries()
	if len(entries) != MaxEntries {
		t.Fatalf("len(Entries) = %d, want %d", len(entries), MaxEntries)
	}
	if entries[0].Message != "m5" || entries[len(entries)-1].Message != "m1004" {
		t.Fatalf("window = %q..%q, want m5..m1004", entries[0].Message, entries[len(entries)-1].Message)
	}
	for i, entry := range entries {
		if want := fmt.Sprintf("m%d", i+5); entry.Message != want {
			t.Fatalf("entry %d = %q, want %q", i, entry.Message, want)
		}
	}

	raw, err := backend.Load(StorageKey)
	if err != nil {
		t.Fatalf("backend.Load: %v", err)
	}
	var persisted []Entry
	if err := json.Unmarshal(raw, &persisted); err != nil {
		t.Fatalf("persisted slot is not JSON: %v", err)
	}
	if len(persisted) != MaxEntries || persisted[0].Message != "m5" {
		t.Fatalf("persisted %d entries starting %q, want %d starting m5", len(persisted), persisted[0].Message, MaxEntries)
	}
}

func TestStore_ReloadRestoresPersistedEntries(t *testing.T) {
	backend := FileBackend{Dir: t.TempDir()}

	first := New(backend)
	first.Info("hello", map[string]string{"k": "v"})
	first.Warn("careful")

	second := New(backend)
	entries := second.Entries()
	if len(entries) != 2 {
		t.Fatalf("reloaded %d entries, want 2", len(entries))
	}
	if entries[0].Message != "hello" || string(entries[0].Data) != `{"k":"v"}` {
		t.Fatalf("entry 0 = %#v, want hello with payload", entries[0])
	}
	if entries[1].Level != LevelWarn {
		t.Fatalf("entry 1 level = %s, want WARN", entries[1].Level)
	}
}

func TestStore_ClearRemovesDurableRecord(t *testing.T) {
	dir := t.TempDir()
	backend := FileBackend{Dir: dir}

	s := New(backend)
	s.Info("one")
	s.Info("two")
	s.Clear()

	if got := s.Entries(); len(got) != 0 {
		t.Fatalf("Entries after Clear = %d, want 0", len(got))
	}
	if _, err := os.Stat(filepath.Join(dir, StorageKey+".json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("slot file still present after Clear: %v", err)
	}
	if reloaded := New(backend); reloaded.Len() != 0 {
		t.Fatalf("reloaded store has %d entries, want 0", reloaded.Len())
	}

	// Idempotent on an already-empty store.
	sink := &recordingSink{}
	empty := New(backend, WithSink(sink))
	empty.Clear()
	empty.Clear()
	if n := sink.channelCount("error"); n != 0 {
		t.Fatalf("Clear on empty store reported %d errors, want 0", n)
	}
}

func TestStore_WriteFailuresNeverEscape(t *testing.T) {
	backend := &failingBackend{saveErr: errors.New("quota exceeded")}
	sink := &recordingSink{}
	obs := &countingObserver{}
	s := New(backend, WithSink(sink), WithObserver(obs))

	for i := 0; i < 1005; i++ {
		s.Info(fmt.Sprintf("m%d", i))
	}

	entries := s.Entries()
	if len(entries) != MaxEntries || entries[0].Message != "m5" {
		t.Fatalf("in-memory window = %d entries from %q, want %d from m5", len(entries), entries[0].Message, MaxEntries)
	}
	if backend.saves != 1005 {
		t.Fatalf("backend saves = %d, want 1005", backend.saves)
	}
	if obs.failures != 1005 {
		t.Fatalf("observer failures = %d, want 1005", obs.failures)
	}
	if obs.recorded[LevelInfo] != 1005 {
		t.Fatalf("observer recorded = %d, want 1005", obs.recorded[LevelInfo])
	}
	if n := sink.channelCount("error"); n != 1005 {
		t.Fatalf("sink error reports = %d, want 1005", n)
	}
}

func TestStore_PanickingBackendIsContained(t *testing.T) {
	s := New(panickyBackend{})
	s.Error("still works")
	s.Clear()
	s.Info("after clear")
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestStore_UnserializablePayload(t *testing.T) {
	backend := NewMemoryBackend()
	sink := &recordingSink{}
	s := New(backend, WithSink(sink))

	s.Info("channel payload", make(chan int))
	s.Info("func payload", func() {})
	s.Info("fine", map[string]bool{"ok": true})

	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
	raw, err := backend.Load(StorageKey)
	if err != nil {
		t.Fatalf("slot not persisted: %v", err)
	}
	var persisted []Entry
	if err := json.Unmarshal(raw, &persisted); err != nil {
		t.Fatalf("persisted slot invalid: %v", err)
	}
	if len(persisted) != 3 {
		t.Fatalf("persisted %d entries, want 3", len(persisted))
	}
	var fallback string
	if err := json.Unmarshal(persisted[0].Data, &fallback); err != nil || fallback == "" {
		t.Fatalf("payload fallback = %s, want a JSON string", persisted[0].Data)
	}
	if n := sink.channelCount("error"); n != 2 {
		t.Fatalf("serialization reports = %d, want 2", n)
	}
}

type panicMarshaler struct{}

func (panicMarshaler) MarshalJSON() ([]byte, error) { panic("marshal boom") }

func TestStore_PanickingMarshalerIsContained(t *testing.T) {
	s := New(nil)
	s.Warn("bad marshaler", panicMarshaler{})
	entries := s.Entries()
	if len(entries) != 1 || !entries[0].HasData() {
		t.Fatalf("entries = %#v, want one entry with fallback data", entries)
	}
}

func TestStore_CorruptSlotStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, StorageKey+".json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	sink := &recordingSink{}
	s := New(FileBackend{Dir: dir}, WithSink(sink))
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0 for corrupt slot", s.Len())
	}
	if n := sink.channelCount("error"); n != 1 {
		t.Fatalf("load reports = %d, want 1", n)
	}

	s.Info("recovered")
	if reloaded := New(FileBackend{Dir: dir}); reloaded.Len() != 1 {
		t.Fatalf("reloaded Len = %d, want 1 after overwrite", reloaded.Len())
	}
}

func TestStore_LoadFailureStartsEmpty(t *testing.T) {
	s := New(&failingBackend{loadErr: errors.New("storage unavailable"), removeOK: true})
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
}

func TestStore_OversizedSlotIsTrimmedOnLoad(t *testing.T) {
	backend := NewMemoryBackend()
	big := New(backend, WithCapacity(20))
	for i := 0; i < 20; i++ {
		big.Info(fmt.Sprintf("m%d", i))
	}

	small := New(backend, WithCapacity(5))
	entries := small.Entries()
	if len(entries) != 5 || entries[0].Message != "m15" {
		t.Fatalf("trimmed load = %d entries from %q, want 5 from m15", len(entries), entries[0].Message)
	}
}

func TestStore_ExportIsIdempotent(t *testing.T) {
	s := New(nil)
	for i := 0; i < 10; i++ {
		s.Record(Levels()[i%4], fmt.Sprintf("msg %d", i), i)
	}
	a := s.Export()
	b := s.Export()
	if a != b {
		t.Fatalf("Export not idempotent")
	}
	if lines := strings.Split(a, "\n"); len(lines) != s.Len() {
		t.Fatalf("export lines = %d, want %d", len(lines), s.Len())
	}
	if s.Len() != 10 {
		t.Fatalf("Export mutated the store: Len = %d", s.Len())
	}
}

func TestStore_ExportOmitsFalsyPayloads(t *testing.T) {
	s := New(nil)
	s.Info("zero", 0)
	s.Info("false", false)
	s.Info("empty", "")
	s.Info("nil", nil)
	s.Info("one", 1)

	lines := strings.Split(s.Export(), "\n")
	for i, want := range []string{"] zero", "] false", "] empty", "] nil", "] one 1"} {
		if !strings.HasSuffix(lines[i], want) {
			t.Fatalf("line %d = %q, want suffix %q", i, lines[i], want)
		}
	}
}

func TestStore_ExportFiltered(t *testing.T) {
	s := New(nil)
	s.Debug("d")
	s.Info("i")
	s.Warn("w")
	s.Error("e")

	got := s.ExportFiltered(LevelWarn)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "[WARN] w") || !strings.Contains(lines[1], "[ERROR] e") {
		t.Fatalf("ExportFiltered(WARN) = %q", got)
	}
	if s.ExportFiltered(LevelDebug) != s.Export() {
		t.Fatalf("ExportFiltered(DEBUG) should equal Export")
	}
}

func TestStore_SinkChannels(t *testing.T) {
	sink := &recordingSink{}
	s := New(nil, WithSink(sink), WithClock(fixedClock()))

	s.Debug("d")
	s.Info("i", map[string]int{"n": 1})
	s.Warn("w")
	s.Error("e")
	s.Record(Level("TRACE"), "t", nil)

	want := []sinkCall{
		{"debug", "[2025-03-04T05:06:07.891Z] [DEBUG] d", ""},
		{"info", "[2025-03-04T05:06:07.892Z] [INFO] i", `{"n":1}`},
		{"warn", "[2025-03-04T05:06:07.893Z] [WARN] w", ""},
		{"error", "[2025-03-04T05:06:07.894Z] [ERROR] e", ""},
		{"debug", "[2025-03-04T05:06:07.895Z] [TRACE] t", ""},
	}
	if len(sink.calls) != len(want) {
		t.Fatalf("sink calls = %d, want %d", len(sink.calls), len(want))
	}
	for i := range want {
		if sink.calls[i] != want[i] {
			t.Fatalf("sink call %d = %#v, want %#v", i, sink.calls[i], want[i])
		}
	}
}

func TestStore_Download(t *testing.T) {
	saver := &memorySaver{}
	s := New(nil, WithSaver(saver), WithClock(fixedClock()))
	s.Info("exported")

	name := s.Download()
	if name != "wallbox-logs-2025-03-04T05:06:07.892Z.txt" {
		t.Fatalf("Download name = %q", name)
	}
	if saver.filename != name || saver.content != s.Export() {
		t.Fatalf("saver got (%q, %q), want export under %q", saver.content, saver.filename, name)
	}
}

func TestStore_DownloadFailuresReturnEmpty(t *testing.T) {
	if got := New(nil).Download(); got != "" {
		t.Fatalf("Download without saver = %q, want empty", got)
	}
	failing := New(nil, WithSaver(&memorySaver{err: errors.New("no disk")}))
	if got := failing.Download(); got != "" {
		t.Fatalf("Download with failing saver = %q, want empty", got)
	}
}

func TestStore_ConcurrentRecordKeepsTimestampOrder(t *testing.T) {
	base := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	entered := make(chan struct{})
	var calls atomic.Int64
	clock := func() time.Time {
		n := calls.Add(1)
		if n == 1 {
			close(entered)
			time.Sleep(50 * time.Millisecond)
		}
		return base.Add(time.Duration(n) * time.Millisecond)
	}
	s := New(nil, WithClock(clock))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Info("first")
	}()
	<-entered
	go func() {
		defer wg.Done()
		s.Info("second")
	}()
	wg.Wait()

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Message != "first" || entries[1].Message != "second" {
		t.Fatalf("order = %s, %s; want first, second", entries[0].Message, entries[1].Message)
	}
	if entries[0].Timestamp >= entries[1].Timestamp {
		t.Fatalf("timestamps %s then %s are not increasing", entries[0].Timestamp, entries[1].Timestamp)
	}
}

func TestStore_ConcurrentRecordKeepsBound(t *testing.T) {
	s := New(nil, WithCapacity(50))
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Info(fmt.Sprintf("g%d-%d", g, i))
			}
		}(g)
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Fatalf("Len = %d, want 50", s.Len())
	}
}
