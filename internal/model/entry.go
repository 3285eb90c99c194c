package model

import "time"

// Entry represents a single tracked interval of work against a resource.
// An entry with End == nil is in progress.
type Entry struct {
	ID          string     `json:"id"`
	Resource    string     `json:"resource"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end,omitempty"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
}

// Duration returns End-Start for a closed entry and zero otherwise.
func (e Entry) Duration() time.Duration {
	if e.End == nil {
		return 0
	}
	return e.End.Sub(e.Start)
}

// Clone returns a deep copy so callers cannot mutate tracker-owned state.
func (e Entry) Clone() Entry {
	if e.End != nil {
		end := *e.End
		e.End = &end
	}
	return e
}

// DaySession marks the boundary of one working day.
type DaySession struct {
	Date     string     `json:"date"`
	DayStart time.Time  `json:"dayStart"`
	DayEnd   *time.Time `json:"dayEnd,omitempty"`
}

// Clone returns a deep copy of the session.
func (s DaySession) Clone() DaySession {
	if s.DayEnd != nil {
		end := *s.DayEnd
		s.DayEnd = &end
	}
	return s
}
