package mirror

import (
	"time"

	"github.com/Tiliavir/boat-time-tracker/internal/model"
	"github.com/Tiliavir/boat-time-tracker/internal/timecalc"
)

// Fields is the flat string payload of one notification.
type Fields map[string]string

// Kind identifies a notification event.
type Kind string

const (
	KindDayHeader         Kind = "header"
	KindDayFinalized      Kind = "finalize"
	KindEntryStart        Kind = "entry-start"
	KindEntryStop         Kind = "entry-stop"
	KindEntryTimesUpdated Kind = "entry-times-update"
	KindLegacyEntry       Kind = "legacy-combined-entry"
)

// wireTypes are the "type" values the spreadsheet script dispatches on.
var wireTypes = map[Kind]string{
	KindDayHeader:         "daySessionHeader",
	KindDayFinalized:      "updateDaySessionEndTime",
	KindEntryStart:        "boatLogStart",
	KindEntryStop:         "boatLogStop",
	KindEntryTimesUpdated: "boatLogUpdateTimes",
	KindLegacyEntry:       "boatLog",
}

// WireType returns the value sent in the "type" field.
func (k Kind) WireType() string {
	if t, ok := wireTypes[k]; ok {
		return t
	}
	return string(k)
}

// Acknowledged reports whether the caller waits for the transmission result
// of this kind and acts on failure.
func (k Kind) Acknowledged() bool {
	return k == KindEntryTimesUpdated || k == KindDayFinalized
}

// HeaderFields is the payload sent when a day opens.
func HeaderFields(s model.DaySession) Fields {
	return Fields{
		"date":     s.Date,
		"dayStart": timecalc.ClockString(s.DayStart),
	}
}

// FinalizeFields is the payload closing a day. DayEnd must be set.
func FinalizeFields(s model.DaySession) Fields {
	f := HeaderFields(s)
	f["dayEnd"] = ""
	if s.DayEnd != nil {
		f["dayEnd"] = timecalc.ClockString(*s.DayEnd)
	}
	return f
}

// StartFields is the payload for a newly started entry.
func StartFields(e model.Entry) Fields {
	return Fields{
		"resource":  e.Resource,
		"startTime": timecalc.ClockString(e.Start),
		"id":        e.ID,
	}
}

// StopFields is the payload for a stopped entry, correlated by id.
func StopFields(e model.Entry) Fields {
	f := Fields{
		"id":          e.ID,
		"endTime":     "",
		"description": e.Description,
	}
	if e.End != nil {
		f["endTime"] = timecalc.ClockString(*e.End)
	}
	return f
}

// TimesFields is the payload for edited times. A blank endTime means the
// entry is still open.
func TimesFields(id string, start time.Time, end *time.Time) Fields {
	f := Fields{
		"id":        id,
		"startTime": timecalc.ClockString(start),
		"endTime":   "",
	}
	if end != nil {
		f["endTime"] = timecalc.ClockString(*end)
	}
	return f
}

// LegacyFields is the single combined row older spreadsheet scripts expect.
func LegacyFields(e model.Entry) Fields {
	f := Fields{
		"resource":    e.Resource,
		"startTime":   timecalc.ClockString(e.Start),
		"endTime":     "",
		"description": e.Description,
	}
	if e.End != nil {
		f["endTime"] = timecalc.ClockString(*e.End)
	}
	return f
}
