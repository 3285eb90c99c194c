package tracker

import (
	"context"
	"time"

	"github.com/Tiliavir/boat-time-tracker/internal/mirror"
	"github.com/Tiliavir/boat-time-tracker/internal/model"
	"github.com/Tiliavir/boat-time-tracker/internal/storage"
	"github.com/Tiliavir/boat-time-tracker/internal/timecalc"
)

// StartDaySession opens today's session at dayStart. An open session is
// replaced without merging.
func (t *Tracker) StartDaySession(dayStart time.Time) (model.DaySession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return model.DaySession{}, ErrClosed
	}

	s := model.DaySession{
		Date:     timecalc.DateKey(t.now()),
		DayStart: dayStart,
	}
	if err := t.putLocked(storage.KeyDaySession, s); err != nil {
		return model.DaySession{}, err
	}
	if t.session != nil {
		t.log.Warn("replacing open day session", "date", t.session.Date)
	}
	t.session = &s
	t.publishSessionLocked()
	t.log.Info("day started", "date", s.Date, "dayStart", timecalc.ClockString(dayStart))

	fields := mirror.HeaderFields(s)
	t.dispatch(mirror.KindDayHeader, s.Date, func(ctx context.Context) error {
		return t.sink.NotifyDayHeader(ctx, fields)
	})
	return s.Clone(), nil
}

// EndDaySession records the end of the open session. The session stays
// open until FinalizeDaySession succeeds.
func (t *Tracker) EndDaySession(dayEnd time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.session == nil {
		return ErrNoDaySession
	}

	updated := t.session.Clone()
	updated.DayEnd = &dayEnd
	if err := t.putLocked(storage.KeyDaySession, updated); err != nil {
		return err
	}
	t.session = &updated
	t.publishSessionLocked()
	return nil
}

// FinalizeDaySession sends the closed day to the remote and waits for the
// transmission. On success the session is cleared from memory and the
// store; on failure it is kept so the caller can retry.
func (t *Tracker) FinalizeDaySession(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.session == nil {
		t.mu.Unlock()
		return ErrNoDaySession
	}
	if t.session.DayEnd == nil {
		t.mu.Unlock()
		return ErrDayNotEnded
	}
	snap := t.session.Clone()
	t.mu.Unlock()

	fields := mirror.FinalizeFields(snap)
	if err := t.await(ctx, mirror.KindDayFinalized, func(ctx context.Context) error {
		return t.sink.NotifyDayFinalized(ctx, fields)
	}); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if !sameSession(t.session, snap) {
		return ErrDayChanged
	}
	if err := t.store.Remove(storage.KeyDaySession); err != nil {
		return err
	}
	t.session = nil
	t.publishSessionLocked()
	t.log.Info("day finalized", "date", snap.Date)
	return nil
}

func sameSession(cur *model.DaySession, snap model.DaySession) bool {
	if cur == nil || cur.Date != snap.Date || !cur.DayStart.Equal(snap.DayStart) {
		return false
	}
	return cur.DayEnd != nil && snap.DayEnd != nil && cur.DayEnd.Equal(*snap.DayEnd)
}
