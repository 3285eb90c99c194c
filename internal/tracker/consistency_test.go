package tracker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/boat-time-tracker/internal/mirror"
	"github.com/Tiliavir/boat-time-tracker/internal/model"
	"github.com/Tiliavir/boat-time-tracker/internal/storage"
	"github.com/Tiliavir/boat-time-tracker/internal/timecalc"
	"github.com/Tiliavir/boat-time-tracker/internal/tracker"
)

var errDiskFull = errors.New("disk full")

// flakyStore is a MemoryStore whose Put can be switched to fail.
type flakyStore struct {
	*storage.MemoryStore
	mu      sync.Mutex
	failPut bool
}

func (s *flakyStore) setFailPut(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPut = v
}

func (s *flakyStore) Put(key string, value []byte) error {
	s.mu.Lock()
	fail := s.failPut
	s.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return s.MemoryStore.Put(key, value)
}

func getJSON[T any](t *testing.T, s storage.Store, key string) (T, bool) {
	t.Helper()
	var v T
	data, ok, err := s.Get(key)
	require.NoError(t, err)
	if !ok {
		return v, false
	}
	require.NoError(t, json.Unmarshal(data, &v))
	return v, true
}

// peek is getJSON for use off the test goroutine: unreadable reads as absent.
func peek[T any](s storage.Store, key string) (T, bool) {
	var v T
	data, ok, err := s.Get(key)
	if err != nil || !ok || json.Unmarshal(data, &v) != nil {
		return v, false
	}
	return v, true
}

// snapshot is what a notification saw in the store while it was running.
type snapshot struct {
	current   *model.Entry
	entries   []model.Entry
	session   *model.DaySession
	published *model.Entry
}

func TestNotificationsSeePersistedState(t *testing.T) {
	f := newFixture(t, false)
	var mu sync.Mutex
	seen := map[mirror.Kind]snapshot{}
	capture := func(kind mirror.Kind) func() {
		return func() {
			var snap snapshot
			if e, ok := peek[model.Entry](f.store, storage.KeyCurrentEntry); ok {
				snap.current = &e
			}
			snap.entries, _ = peek[[]model.Entry](f.store, storage.KeyEntries)
			if s, ok := peek[model.DaySession](f.store, storage.KeyDaySession); ok {
				snap.session = &s
			}
			snap.published = f.tr.Current().Value()
			mu.Lock()
			seen[kind] = snap
			mu.Unlock()
		}
	}
	for _, kind := range []mirror.Kind{mirror.KindEntryStart, mirror.KindEntryStop, mirror.KindDayHeader} {
		f.sink.onSend(kind, capture(kind))
	}

	_, err := f.tr.StartEntry("Båt 1")
	require.NoError(t, err)
	f.tr.Flush()
	f.clock.Advance(time.Hour)
	_, err = f.tr.StopEntry("hull check")
	require.NoError(t, err)
	f.tr.Flush()
	_, err = f.tr.StartDaySession(t0.Add(-time.Hour))
	require.NoError(t, err)
	f.tr.Flush()

	mu.Lock()
	defer mu.Unlock()

	start := seen[mirror.KindEntryStart]
	require.NotNil(t, start.current, "start sent before the current entry was stored")
	assert.Equal(t, "id-1", start.current.ID)
	require.NotNil(t, start.published, "start sent before the current entry was published")
	assert.Equal(t, "id-1", start.published.ID)

	stop := seen[mirror.KindEntryStop]
	require.Len(t, stop.entries, 1, "stop sent before the log was stored")
	assert.Equal(t, "id-1", stop.entries[0].ID)
	assert.Nil(t, stop.current)
	assert.Nil(t, stop.published)

	header := seen[mirror.KindDayHeader]
	require.NotNil(t, header.session, "header sent before the day session was stored")
	assert.Equal(t, "2024-05-10", header.session.Date)
}

func TestFireAndForgetNotificationsAreNotAwaited(t *testing.T) {
	f := newFixture(t, false)
	release := make(chan struct{})
	defer close(release)
	entered := make(chan mirror.Kind, 3)
	for _, kind := range []mirror.Kind{mirror.KindEntryStart, mirror.KindEntryStop, mirror.KindDayHeader} {
		f.sink.onSend(kind, func() {
			entered <- kind
			<-release
		})
	}

	returned := make(chan struct{})
	go func() {
		defer close(returned)
		_, err := f.tr.StartEntry("Båt 2")
		assert.NoError(t, err)
		_, err = f.tr.StopEntry("sail repair")
		assert.NoError(t, err)
		_, err = f.tr.StartDaySession(t0)
		assert.NoError(t, err)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("operations waited for a blocked notification")
	}

	got := make([]mirror.Kind, 0, 3)
	for range 3 {
		select {
		case k := <-entered:
			got = append(got, k)
		case <-time.After(2 * time.Second):
			t.Fatalf("notifications dispatched: %v", got)
		}
	}
	assert.ElementsMatch(t, []mirror.Kind{mirror.KindEntryStart, mirror.KindEntryStop, mirror.KindDayHeader}, got)
	assert.Len(t, f.tr.CompletedEntries(), 1)
	_, ok := f.tr.OpenDaySession()
	assert.True(t, ok)
}

func TestFailedPersistLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, false)
	fs := &flakyStore{MemoryStore: storage.NewMemoryStore()}
	sink := newSink()
	tr, err := tracker.Open(fs, sink, f.opts)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })

	published := 0
	tr.Current().Subscribe(func(*model.Entry) { published++ })
	tr.Entries().Subscribe(func([]model.Entry) { published++ })
	tr.DaySession().Subscribe(func(*model.DaySession) { published++ })
	published = 0

	fs.setFailPut(true)
	_, err = tr.StartEntry("Båt 1")
	require.ErrorIs(t, err, errDiskFull)
	_, ok := tr.ActiveEntry()
	assert.False(t, ok)
	_, err = tr.StartDaySession(t0)
	require.ErrorIs(t, err, errDiskFull)
	_, ok = tr.OpenDaySession()
	assert.False(t, ok)
	tr.Flush()
	assert.Empty(t, sink.kinds())
	assert.Zero(t, published)

	fs.setFailPut(false)
	started, err := tr.StartEntry("Båt 1")
	require.NoError(t, err)
	_, err = tr.StartDaySession(t0)
	require.NoError(t, err)
	tr.Flush()
	kinds := sink.kinds()
	published = 0

	fs.setFailPut(true)
	f.clock.Advance(time.Hour)
	_, err = tr.StopEntry("done")
	require.ErrorIs(t, err, errDiskFull)
	require.ErrorIs(t, tr.EndDaySession(t0.Add(8*time.Hour)), errDiskFull)
	require.ErrorIs(t, tr.UpdateDraftDescription("draft"), errDiskFull)

	active, ok := tr.ActiveEntry()
	require.True(t, ok)
	assert.Equal(t, started, active)
	assert.Empty(t, tr.CompletedEntries())
	assert.Empty(t, tr.Entries().Value())
	session, ok := tr.OpenDaySession()
	require.True(t, ok)
	assert.Nil(t, session.DayEnd)
	assert.Nil(t, tr.DaySession().Value().DayEnd)

	stored, ok := getJSON[model.Entry](t, fs, storage.KeyCurrentEntry)
	require.True(t, ok)
	assert.Equal(t, started.ID, stored.ID)
	assert.Empty(t, stored.Description)
	_, ok = getJSON[[]model.Entry](t, fs, storage.KeyEntries)
	assert.False(t, ok)

	tr.Flush()
	assert.Equal(t, kinds, sink.kinds())
	assert.Zero(t, published)
}

func TestEditAbandonedWhenEntryStoppedElsewhere(t *testing.T) {
	f := newFixture(t, false)
	started, err := f.tr.StartEntry("Båt 1")
	require.NoError(t, err)
	f.tr.Flush()

	other, err := tracker.Open(f.store, newSink(), f.opts)
	require.NoError(t, err)
	defer other.Close()

	f.clock.Advance(time.Hour)
	f.sink.onSend(mirror.KindEntryTimesUpdated, func() {
		_, err := other.StopEntry("stopped elsewhere")
		assert.NoError(t, err)
		assert.NoError(t, f.tr.Reload())
	})

	end := timecalc.Clock{Hour: 9, Minute: 40}
	err = f.tr.EditActiveTimes(context.Background(), timecalc.Clock{Hour: 8, Minute: 30}, &end, "edited")
	require.ErrorIs(t, err, tracker.ErrEntryChanged)

	_, ok := f.tr.ActiveEntry()
	assert.False(t, ok)
	entries := f.tr.CompletedEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, started.ID, entries[0].ID)
	assert.True(t, entries[0].Start.Equal(t0), "edited start was committed")
	assert.Equal(t, "stopped elsewhere", entries[0].Description)

	logged, ok := getJSON[[]model.Entry](t, f.store, storage.KeyEntries)
	require.True(t, ok)
	require.Len(t, logged, 1)
	assert.Equal(t, "stopped elsewhere", logged[0].Description)

	f.tr.Flush()
	assert.ElementsMatch(t, []mirror.Kind{mirror.KindEntryStart, mirror.KindEntryTimesUpdated}, f.sink.kinds())
}

func TestFinalizeAbandonedWhenSessionReplaced(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.tr.StartDaySession(t0)
	require.NoError(t, err)
	require.NoError(t, f.tr.EndDaySession(t0.Add(8*time.Hour)))

	other, err := tracker.Open(f.store, newSink(), f.opts)
	require.NoError(t, err)
	defer other.Close()

	f.sink.onSend(mirror.KindDayFinalized, func() {
		_, err := other.StartDaySession(t0.Add(time.Hour))
		assert.NoError(t, err)
		assert.NoError(t, f.tr.Reload())
	})

	err = f.tr.FinalizeDaySession(context.Background())
	require.ErrorIs(t, err, tracker.ErrDayChanged)

	s, ok := f.tr.OpenDaySession()
	require.True(t, ok)
	assert.True(t, s.DayStart.Equal(t0.Add(time.Hour)))
	assert.Nil(t, s.DayEnd)

	stored, ok := getJSON[model.DaySession](t, f.store, storage.KeyDaySession)
	require.True(t, ok, "replacement session was removed")
	assert.True(t, stored.DayStart.Equal(t0.Add(time.Hour)))
}

func TestLegacyEditSendsOnlyTheCombinedRow(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.tr.StartEntry("Båt 4")
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	end := timecalc.Clock{Hour: 9, Minute: 50}
	require.NoError(t, f.tr.EditActiveTimes(context.Background(), timecalc.Clock{Hour: 9, Minute: 15}, &end, "rigging"))
	f.tr.Flush()

	assert.Equal(t, []mirror.Kind{mirror.KindLegacyEntry}, f.sink.kinds())
	assert.Equal(t, mirror.Fields{
		"resource": "Båt 4", "startTime": "09:15", "endTime": "09:50", "description": "rigging",
	}, f.sink.last(mirror.KindLegacyEntry))
}
