package chat

import (
	"sort"
	"time"
)

const (
	DayLayout          = "January 2, 2006"
	TimeLayout         = "3:04 PM"
	IndeterminateLabel = "Unknown Date"
)

// DayKind tells which field of a message decided its calendar day.
type DayKind int

const (
	DayFromFormatted DayKind = iota
	DayFromServer
	DayFromClient
	DayIndeterminate
)

// Day is a resolved calendar day. Date is midnight in the display location,
// zero for the indeterminate day.
type Day struct {
	Kind  DayKind
	Label string
	Date  time.Time
}

// ResolveDay never fails: a message without any usable time field
// lands in the indeterminate day.
func ResolveDay(m Message, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	if m.FormattedDate != "" {
		if t, err := time.ParseInLocation(DayLayout, m.FormattedDate, loc); err == nil {
			return Day{Kind: DayFromFormatted, Label: t.Format(DayLayout), Date: t}
		}
	}
	if !m.ServerTime.IsZero() {
		return dayOf(DayFromServer, m.ServerTime, loc)
	}
	if !m.ClientTime.IsZero() {
		return dayOf(DayFromClient, m.ClientTime, loc)
	}
	return Day{Kind: DayIndeterminate, Label: IndeterminateLabel}
}

func dayOf(kind DayKind, t time.Time, loc *time.Location) Day {
	local := t.In(loc)
	y, mo, d := local.Date()
	date := time.Date(y, mo, d, 0, 0, 0, 0, loc)
	return Day{Kind: kind, Label: date.Format(DayLayout), Date: date}
}

// FormatDay is the label the composer precomputes for a new message.
func FormatDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DayLayout)
}

// DayBucket holds the messages of one calendar day, oldest first.
type DayBucket struct {
	Day      Day
	Messages []Message
}

// GroupByDay turns the log order (newest first) into chronological day buckets.
// Buckets are ordered by date with the indeterminate bucket last.
func GroupByDay(newestFirst []Message, loc *time.Location) []DayBucket {
	chronological := make([]Message, len(newestFirst))
	for i, m := range newestFirst {
		chronological[len(newestFirst)-1-i] = m
	}

	index := make(map[string]int)
	var buckets []DayBucket
	for _, m := range chronological {
		day := ResolveDay(m, loc)
		i, ok := index[day.Label]
		if !ok {
			i = len(buckets)
			index[day.Label] = i
			buckets = append(buckets, DayBucket{Day: day})
		}
		buckets[i].Messages = append(buckets[i].Messages, m)
	}

	for i := range buckets {
		msgs := buckets[i].Messages
		sort.SliceStable(msgs, func(a, b int) bool {
			ta, okA := msgs[a].EffectiveTime()
			tb, okB := msgs[b].EffectiveTime()
			if okA != okB {
				return okA
			}
			return okA && ta.Before(tb)
		})
	}

	sort.SliceStable(buckets, func(a, b int) bool {
		da, db := buckets[a].Day, buckets[b].Day
		if (da.Kind == DayIndeterminate) != (db.Kind == DayIndeterminate) {
			return db.Kind == DayIndeterminate
		}
		return da.Date.Before(db.Date)
	})
	return buckets
}
