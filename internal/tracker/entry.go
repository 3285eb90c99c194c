package tracker

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Tiliavir/boat-time-tracker/internal/mirror"
	"github.com/Tiliavir/boat-time-tracker/internal/model"
	"github.com/Tiliavir/boat-time-tracker/internal/storage"
	"github.com/Tiliavir/boat-time-tracker/internal/timecalc"
)

// StartEntry opens a new entry for resource starting now. It fails with
// ErrEntryActive if another entry is in progress.
func (t *Tracker) StartEntry(resource string) (model.Entry, error) {
	resource = strings.TrimSpace(resource)
	if resource == "" {
		return model.Entry{}, ErrEmptyResource
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return model.Entry{}, ErrClosed
	}
	if t.active != nil {
		return model.Entry{}, fmt.Errorf("%w: %s since %s", ErrEntryActive,
			t.active.Resource, timecalc.ClockString(t.active.Start))
	}

	e := model.Entry{
		ID:       t.newID(),
		Resource: resource,
		Start:    t.now(),
	}
	if err := t.putLocked(storage.KeyCurrentEntry, e); err != nil {
		return model.Entry{}, err
	}
	t.active = &e
	t.publishCurrentLocked()
	t.log.Info("entry started", "id", e.ID, "resource", e.Resource)

	if !t.legacy {
		fields := mirror.StartFields(e)
		t.dispatch(mirror.KindEntryStart, e.ID, func(ctx context.Context) error {
			return t.sink.NotifyEntryStart(ctx, fields)
		})
	}
	return e.Clone(), nil
}

// UpdateDraftDescription replaces the description of the entry in progress
// and persists it so a restart keeps the draft. Nothing is sent remotely.
func (t *Tracker) UpdateDraftDescription(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.active == nil {
		return ErrNoActiveEntry
	}

	updated := t.active.Clone()
	updated.Description = text
	if err := t.putLocked(storage.KeyCurrentEntry, updated); err != nil {
		return err
	}
	t.active = &updated
	t.publishCurrentLocked()
	return nil
}

// StopEntry completes the entry in progress with description, ending now.
func (t *Tracker) StopEntry(description string) (model.Entry, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return model.Entry{}, ErrEmptyDescription
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return model.Entry{}, ErrClosed
	}
	if t.active == nil {
		return model.Entry{}, ErrNoActiveEntry
	}

	done := t.active.Clone()
	end := t.now()
	done.End = &end
	done.Description = description
	done.Completed = true
	if err := t.completeLocked(done); err != nil {
		return model.Entry{}, err
	}
	return done.Clone(), nil
}

// EditActiveTimes moves the start of the entry in progress and optionally
// ends it. Both clocks are read on the calendar day the entry started; an
// end earlier than the start lands on the next day. Supplying end also
// completes the entry, which then needs a description.
//
// The remote is told first. Only when that transmission succeeds are the
// new times committed; on failure the entry is left exactly as it was.
// In legacy combined mode nothing is sent until the entry stops.
func (t *Tracker) EditActiveTimes(ctx context.Context, start timecalc.Clock, end *timecalc.Clock, description string) error {
	description = strings.TrimSpace(description)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.active == nil {
		t.mu.Unlock()
		return ErrNoActiveEntry
	}
	if end != nil && description == "" {
		t.mu.Unlock()
		return ErrEmptyDescription
	}
	id := t.active.ID
	newStart, newEnd := timecalc.EditRange(t.active.Start, start, end)
	t.mu.Unlock()

	// In combined mode the remote has no row for the entry until it stops,
	// and that row carries the edited times.
	if !t.legacy {
		fields := mirror.TimesFields(id, newStart, newEnd)
		if err := t.await(ctx, mirror.KindEntryTimesUpdated, func(ctx context.Context) error {
			return t.sink.NotifyEntryTimesUpdated(ctx, fields)
		}); err != nil {
			return err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.active == nil || t.active.ID != id {
		return ErrEntryChanged
	}

	updated := t.active.Clone()
	updated.Start = newStart
	if description != "" {
		updated.Description = description
	}
	if newEnd == nil {
		if err := t.putLocked(storage.KeyCurrentEntry, updated); err != nil {
			return err
		}
		t.active = &updated
		t.publishCurrentLocked()
		t.log.Info("entry times edited", "id", id, "start", timecalc.ClockString(newStart))
		return nil
	}

	updated.End = newEnd
	updated.Completed = true
	return t.completeLocked(updated)
}

// completeLocked appends done to the completed log, clears the current
// slot and fires the stop notification.
func (t *Tracker) completeLocked(done model.Entry) error {
	entries := append(slices.Clone(t.completed), done)
	if err := t.putLocked(storage.KeyEntries, entries); err != nil {
		return err
	}
	t.completed = entries
	t.active = nil
	t.removeLocked(storage.KeyCurrentEntry)
	t.publishEntriesLocked()
	t.publishCurrentLocked()
	t.log.Info("entry stopped", "id", done.ID, "resource", done.Resource, "duration", done.Duration())

	if t.legacy {
		fields := mirror.LegacyFields(done)
		t.dispatch(mirror.KindLegacyEntry, done.ID, func(ctx context.Context) error {
			return t.sink.NotifyLegacyEntry(ctx, fields)
		})
		return nil
	}
	fields := mirror.StopFields(done)
	t.dispatch(mirror.KindEntryStop, done.ID, func(ctx context.Context) error {
		return t.sink.NotifyEntryStop(ctx, fields)
	})
	return nil
}
