// Package tracker owns the working state of the time tracker: the entry in
// progress, the log of completed entries and the day session. Every change
// is persisted to the local store before the remote mirror hears about it.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Tiliavir/boat-time-tracker/internal/mirror"
	"github.com/Tiliavir/boat-time-tracker/internal/model"
	"github.com/Tiliavir/boat-time-tracker/internal/storage"
	"github.com/Tiliavir/boat-time-tracker/internal/timecalc"
)

// NotificationSink receives best-effort notifications about state changes.
// A nil error only means the transmission attempt completed; it says
// nothing about whether the remote side stored the row.
type NotificationSink interface {
	NotifyEntryStart(ctx context.Context, f mirror.Fields) error
	NotifyEntryStop(ctx context.Context, f mirror.Fields) error
	NotifyEntryTimesUpdated(ctx context.Context, f mirror.Fields) error
	NotifyDayHeader(ctx context.Context, f mirror.Fields) error
	NotifyDayFinalized(ctx context.Context, f mirror.Fields) error
	NotifyLegacyEntry(ctx context.Context, f mirror.Fields) error
}

// Options configures a Tracker. Zero values pick defaults.
type Options struct {
	Now         func() time.Time
	NewID       func() string
	Logger      *log.Logger
	SoftTimeout time.Duration
	// LegacyCombined replaces the start/stop pair with one combined row
	// sent when the entry stops.
	LegacyCombined bool
}

// Tracker is the session state machine. Its methods are safe for concurrent
// use; they are serialized by one lock.
type Tracker struct {
	store       storage.Store
	sink        NotificationSink
	log         *log.Logger
	now         func() time.Time
	newID       func() string
	softTimeout time.Duration
	legacy      bool

	mu        sync.Mutex
	active    *model.Entry
	completed []model.Entry
	session   *model.DaySession
	closed    bool

	current  *Stream[*model.Entry]
	entries  *Stream[[]model.Entry]
	sessions *Stream[*model.DaySession]

	inflight sync.WaitGroup
}

// Open builds a Tracker and restores its state from store. A nil sink
// disables the remote mirror.
func Open(store storage.Store, sink NotificationSink, opts Options) (*Tracker, error) {
	if sink == nil {
		sink = mirror.New(mirror.Options{})
	}
	t := &Tracker{
		store:       store,
		sink:        sink,
		log:         opts.Logger,
		now:         opts.Now,
		newID:       opts.NewID,
		softTimeout: opts.SoftTimeout,
		legacy:      opts.LegacyCombined,
		current:     newStream[*model.Entry](nil),
		entries:     newStream[[]model.Entry](nil),
		sessions:    newStream[*model.DaySession](nil),
	}
	if t.log == nil {
		t.log = log.New(io.Discard)
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.newID == nil {
		t.newID = uuid.NewString
	}
	if t.softTimeout <= 0 {
		t.softTimeout = mirror.DefaultTimeout
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.restoreLocked(); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload re-reads all state from the store, applying the same
// reconciliation as Open. It picks up changes written by another process.
func (t *Tracker) Reload() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	return t.restoreLocked()
}

// Flush waits for in-flight fire-and-forget notifications. Each is bounded
// by the soft timeout.
func (t *Tracker) Flush() {
	t.inflight.Wait()
}

// Close flushes pending notifications and detaches all subscribers. The
// store is owned by the caller and stays open.
func (t *Tracker) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.inflight.Wait()
	t.current.close()
	t.entries.close()
	t.sessions.close()
	return nil
}

// Current streams the active entry; nil means idle.
func (t *Tracker) Current() *Stream[*model.Entry] { return t.current }

// Entries streams the completed entries in completion order.
func (t *Tracker) Entries() *Stream[[]model.Entry] { return t.entries }

// DaySession streams the open day session; nil means none.
func (t *Tracker) DaySession() *Stream[*model.DaySession] { return t.sessions }

// ActiveEntry returns a copy of the entry in progress.
func (t *Tracker) ActiveEntry() (model.Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return model.Entry{}, false
	}
	return t.active.Clone(), true
}

// CompletedEntries returns a copy of the completed log.
func (t *Tracker) CompletedEntries() []model.Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneEntries(t.completed)
}

// OpenDaySession returns a copy of the open day session.
func (t *Tracker) OpenDaySession() (model.DaySession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return model.DaySession{}, false
	}
	return t.session.Clone(), true
}

// restoreLocked loads the three snapshots. A current entry already marked
// completed, or already present in the completed log, is discarded. A day
// session from another calendar day is discarded.
func (t *Tracker) restoreLocked() error {
	entries, _, err := loadSnapshot[[]model.Entry](t, storage.KeyEntries)
	if err != nil {
		return err
	}

	current, ok, err := loadSnapshot[model.Entry](t, storage.KeyCurrentEntry)
	if err != nil {
		return err
	}
	var active *model.Entry
	if ok {
		switch {
		case current.Completed:
			t.log.Warn("discarding completed entry found in current slot", "id", current.ID)
			t.removeLocked(storage.KeyCurrentEntry)
		case containsID(entries, current.ID):
			t.log.Warn("discarding current entry already in completed log", "id", current.ID)
			t.removeLocked(storage.KeyCurrentEntry)
		default:
			active = &current
		}
	}

	session, ok, err := loadSnapshot[model.DaySession](t, storage.KeyDaySession)
	if err != nil {
		return err
	}
	var open *model.DaySession
	if ok {
		if today := timecalc.DateKey(t.now()); session.Date != today {
			t.log.Info("discarding stale day session", "date", session.Date, "today", today)
			t.removeLocked(storage.KeyDaySession)
		} else {
			open = &session
		}
	}

	t.completed = entries
	t.active = active
	t.session = open
	t.publishAllLocked()
	return nil
}

// quarantiner is implemented by stores that can set a corrupt value aside.
type quarantiner interface {
	Quarantine(key string) (string, error)
}

// loadSnapshot decodes key. Undecodable values are moved aside (or removed)
// and read as absent; only store failures are returned.
func loadSnapshot[T any](t *Tracker, key string) (T, bool, error) {
	var v T
	data, ok, err := t.store.Get(key)
	if err != nil {
		return v, false, fmt.Errorf("loading %s: %w", key, err)
	}
	if !ok {
		return v, false, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		if q, isQ := t.store.(quarantiner); isQ {
			backup, qerr := q.Quarantine(key)
			t.log.Warn("corrupt snapshot moved aside", "key", key, "backup", backup, "err", err, "quarantine_err", qerr)
		} else {
			t.log.Warn("corrupt snapshot discarded", "key", key, "err", err)
			t.removeLocked(key)
		}
		return zero, false, nil
	}
	return v, true, nil
}

func (t *Tracker) putLocked(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := t.store.Put(key, data); err != nil {
		return fmt.Errorf("persisting %s: %w", key, err)
	}
	return nil
}

// removeLocked clears key. A failure is logged only: the next restore
// reconciles a leftover snapshot.
func (t *Tracker) removeLocked(key string) {
	if err := t.store.Remove(key); err != nil {
		t.log.Error("failed to clear snapshot", "key", key, "err", err)
	}
}

func (t *Tracker) publishAllLocked() {
	t.publishEntriesLocked()
	t.publishCurrentLocked()
	t.publishSessionLocked()
}

func (t *Tracker) publishCurrentLocked() {
	if t.active == nil {
		t.current.publish(nil)
		return
	}
	e := t.active.Clone()
	t.current.publish(&e)
}

func (t *Tracker) publishEntriesLocked() {
	t.entries.publish(cloneEntries(t.completed))
}

func (t *Tracker) publishSessionLocked() {
	if t.session == nil {
		t.sessions.publish(nil)
		return
	}
	s := t.session.Clone()
	t.sessions.publish(&s)
}

// dispatch sends a fire-and-forget notification in the background. Failures,
// including panics in the sink, are logged and never reach the caller.
func (t *Tracker) dispatch(kind mirror.Kind, id string, send func(context.Context) error) {
	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.softTimeout)
		defer cancel()
		if err := safeSend(ctx, send); err != nil {
			t.log.Warn("mirror notification failed", "kind", kind, "id", id, "err", err)
		}
	}()
}

// await sends a notification whose outcome gates a local change.
func (t *Tracker) await(ctx context.Context, kind mirror.Kind, send func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.softTimeout)
	defer cancel()
	if err := safeSend(ctx, send); err != nil {
		t.log.Error("acknowledged mirror notification failed", "kind", kind, "err", err)
		return &MirrorError{Kind: kind, Err: err}
	}
	return nil
}

func safeSend(ctx context.Context, send func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notification panicked: %v", r)
		}
	}()
	return send(ctx)
}

func cloneEntries(in []model.Entry) []model.Entry {
	out := make([]model.Entry, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}

func containsID(entries []model.Entry, id string) bool {
	return slices.ContainsFunc(entries, func(e model.Entry) bool { return e.ID == id })
}

