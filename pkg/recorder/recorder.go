// Package recorder writes the append-only textual recording stream
// (spec.md §4.10): one line per producer/engine event, timestamp-keyed,
// tagged by operation kind, readable and replayable offline. It mirrors
// pkg/wal's Persister shape (mutex-guarded writer, explicit Sync/Close,
// a no-op null implementation) but is a flat text log rather than a
// binary mmap structure, since the recording stream's whole purpose is
// to be grep-able and replayable, not randomly addressable.
package recorder

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/flowbridge/syncd/pkg/metrics"
	"github.com/flowbridge/syncd/pkg/sai"
)

// Tag is one of the single-character operation markers spec.md §4.10
// defines for the recording stream.
type Tag byte

const (
	TagCreate        Tag = 'c'
	TagRemove        Tag = 'r'
	TagSet           Tag = 's'
	TagGet           Tag = 'g'
	TagGetResponse   Tag = 'G'
	TagBulkCreate    Tag = 'C'
	TagBulkSet       Tag = 'S'
	TagApplyRequest  Tag = 'a'
	TagApplyResponse Tag = 'A'
	TagNotify        Tag = 'n'
	TagSleep         Tag = '@'
	TagComment       Tag = '#'
)

// timestampFormat matches the original recording tool's wall-clock key:
// local time to microsecond resolution.
const timestampFormat = "2006-01-02.15:04:05.000000"

// Recorder is the append-only recording stream writer. It holds its own
// mutex, independent of the producer-facing API mutex (§5: "guarded by
// its own mutex ... so that signal-triggered rotation doesn't deadlock").
type Recorder struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *bufio.Writer

	reopen atomic.Bool
	now    func() time.Time

	metrics *metrics.RecorderMetrics
}

// SetMetrics installs a RecorderMetrics instance, instrumenting every
// subsequent write's latency by tag. Passing nil (the default) disables
// instrumentation.
func (r *Recorder) SetMetrics(m *metrics.RecorderMetrics) {
	r.metrics = m
}

// New opens path for appending and starts a recording stream there. The
// file is created if absent.
func New(path string) (*Recorder, error) {
	r := &Recorder{path: path, now: time.Now}
	if err := r.open(); err != nil {
		return nil, err
	}
	r.writeLocked(TagComment, "recording on: "+path)
	return r, nil
}

func (r *Recorder) open() error {
	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("recorder: open %s: %w", r.path, err)
	}
	r.file = f
	r.w = bufio.NewWriter(f)
	return nil
}

// RequestReopen sets the signal-safe flag that causes the next write to
// close and reopen the file at the same path, cooperating with an
// external log-rotation daemon that has already renamed it out from
// under this process (§4.10). Safe to call from a signal handler.
func (r *Recorder) RequestReopen() {
	r.reopen.Store(true)
}

func (r *Recorder) reopenIfRequested() {
	if !r.reopen.CompareAndSwap(true, false) {
		return
	}
	if r.w != nil {
		r.w.Flush()
	}
	if r.file != nil {
		r.file.Close()
	}
	if err := r.open(); err != nil {
		return
	}
	r.writeLocked(TagComment, "logrotate on: "+r.path)
}

func (r *Recorder) writeLocked(tag Tag, data string) error {
	line := fmt.Sprintf("%s|%c|%s\n", r.now().Format(timestampFormat), tag, data)
	if _, err := r.w.WriteString(line); err != nil {
		return fmt.Errorf("recorder: write: %w", err)
	}
	return nil
}

func (r *Recorder) record(tag Tag, data string) error {
	start := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reopenIfRequested()
	err := r.writeLocked(tag, data)
	r.metrics.ObserveWrite(string(tag), r.now().Sub(start))
	return err
}

// Create records a create request and its key/attribute payload.
func (r *Recorder) Create(key sai.Key, attrs map[sai.AttrID]sai.Value) error {
	return r.record(TagCreate, key.String()+"|"+FormatAttrs(attrs))
}

// Remove records a remove request.
func (r *Recorder) Remove(key sai.Key) error {
	return r.record(TagRemove, key.String())
}

// Set records a single-attribute set request.
func (r *Recorder) Set(key sai.Key, id sai.AttrID, value sai.Value) error {
	return r.record(TagSet, key.String()+"|"+FormatAttr(id, value))
}

// Get records a get request naming which attributes were asked for.
func (r *Recorder) Get(key sai.Key, ids []sai.AttrID) error {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	return r.record(TagGet, key.String()+"|"+strings.Join(names, ","))
}

// GetResponse records a get response: attributes on success, or just a
// count on BUFFER_OVERFLOW (§6).
func (r *Recorder) GetResponse(status string, attrs map[sai.AttrID]sai.Value, overflowCount int) error {
	if attrs == nil && overflowCount > 0 {
		return r.record(TagGetResponse, fmt.Sprintf("%s|%d", status, overflowCount))
	}
	return r.record(TagGetResponse, status+"|"+FormatAttrs(attrs))
}

// BulkCreate records a bulk-create request across multiple keys.
func (r *Recorder) BulkCreate(keys []sai.Key, attrs []map[sai.AttrID]sai.Value) error {
	parts := make([]string, len(keys))
	for i, k := range keys {
		var a map[sai.AttrID]sai.Value
		if i < len(attrs) {
			a = attrs[i]
		}
		parts[i] = k.String() + "#" + FormatAttrs(a)
	}
	return r.record(TagBulkCreate, strings.Join(parts, ";"))
}

// BulkSet records a bulk-set request across multiple keys.
func (r *Recorder) BulkSet(keys []sai.Key, id sai.AttrID, values []sai.Value) error {
	parts := make([]string, len(keys))
	for i, k := range keys {
		var v sai.Value
		if i < len(values) {
			v = values[i]
		}
		parts[i] = k.String() + "#" + FormatAttr(id, v)
	}
	return r.record(TagBulkSet, strings.Join(parts, ";"))
}

// ApplyRequest records an apply-view request and returns a correlation
// id to pass to the matching ApplyResponse, so an apply-view's request
// and outcome can be joined across the log even when other operations
// (counters thread, notifications) interleave lines between them.
func (r *Recorder) ApplyRequest() (string, error) {
	id := uuid.NewString()
	return id, r.record(TagApplyRequest, id)
}

// ApplyResponse records the outcome of the apply-view handshake started
// by the given correlation id (§6: "a durable checkpoint").
func (r *Recorder) ApplyResponse(id string, success bool) error {
	status := "SUCCESS"
	if !success {
		status = "FAILURE"
	}
	return r.record(TagApplyResponse, id+"|"+status)
}

// Notify records a driver notification (INIT_VIEW/APPLY_VIEW or an
// async event such as port state or FDB change).
func (r *Recorder) Notify(name, payload string) error {
	return r.record(TagNotify, name+"|"+payload)
}

// Sleep records a synthetic delay, used by replay to reproduce the
// original pacing between recorded requests.
func (r *Recorder) Sleep(d time.Duration) error {
	return r.record(TagSleep, d.String())
}

// Comment writes a free-text comment line, used for rotation/session
// markers.
func (r *Recorder) Comment(msg string) error {
	return r.record(TagComment, msg)
}

// Sync flushes buffered writes to the underlying file.
func (r *Recorder) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w.Flush()
}

// Close flushes and closes the recording file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Flush(); err != nil {
		return err
	}
	return r.file.Close()
}

// Stream is the interface internal/engine depends on, so recording can
// be switched off entirely (NullStream) without the engine branching on
// a nil *Recorder everywhere it logs an event.
type Stream interface {
	Create(key sai.Key, attrs map[sai.AttrID]sai.Value) error
	Remove(key sai.Key) error
	Set(key sai.Key, id sai.AttrID, value sai.Value) error
	Get(key sai.Key, ids []sai.AttrID) error
	GetResponse(status string, attrs map[sai.AttrID]sai.Value, overflowCount int) error
	BulkCreate(keys []sai.Key, attrs []map[sai.AttrID]sai.Value) error
	BulkSet(keys []sai.Key, id sai.AttrID, values []sai.Value) error
	ApplyRequest() (string, error)
	ApplyResponse(id string, success bool) error
	Notify(name, payload string) error
	Sleep(d time.Duration) error
	Comment(msg string) error
	Sync() error
	Close() error
}

var _ Stream = (*Recorder)(nil)

// NullStream discards every event. Used when recording is disabled
// (the default; recording "needs to be enabled explicitly" per the
// original tool).
type NullStream struct{}

func (NullStream) Create(sai.Key, map[sai.AttrID]sai.Value) error       { return nil }
func (NullStream) Remove(sai.Key) error                                 { return nil }
func (NullStream) Set(sai.Key, sai.AttrID, sai.Value) error             { return nil }
func (NullStream) Get(sai.Key, []sai.AttrID) error                      { return nil }
func (NullStream) GetResponse(string, map[sai.AttrID]sai.Value, int) error { return nil }
func (NullStream) BulkCreate([]sai.Key, []map[sai.AttrID]sai.Value) error  { return nil }
func (NullStream) BulkSet([]sai.Key, sai.AttrID, []sai.Value) error     { return nil }
func (NullStream) ApplyRequest() (string, error)                       { return "", nil }
func (NullStream) ApplyResponse(string, bool) error                    { return nil }
func (NullStream) Notify(string, string) error                         { return nil }
func (NullStream) Sleep(time.Duration) error                           { return nil }
func (NullStream) Comment(string) error                                { return nil }
func (NullStream) Sync() error                                         { return nil }
func (NullStream) Close() error                                        { return nil }

var _ Stream = NullStream{}
