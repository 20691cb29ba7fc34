// Package chat contains the core concepts of the group chat.
// Messages are immutable once appended to the log.
package chat

import (
	"time"

	"github.com/samber/lo"
)

// DefaultMessageLimit bounds the recent window kept for a group.
const DefaultMessageLimit = 500

// Message is an immutable record of the append-only message log.
// A zero ServerTime means the log has not acknowledged the write yet.
type Message struct {
	ID            string
	Text          string
	AuthorID      string
	Group         GroupID
	ServerTime    time.Time
	ClientTime    time.Time
	FormattedDate string
}

// EffectiveTime returns the ordering timestamp of the message,
// preferring the log time over the local creation time.
func (m Message) EffectiveTime() (time.Time, bool) {
	switch {
	case !m.ServerTime.IsZero():
		return m.ServerTime, true
	case !m.ClientTime.IsZero():
		return m.ClientTime, true
	default:
		return time.Time{}, false
	}
}

// FeedSnapshot is the complete bounded window of a group as last delivered.
type FeedSnapshot struct {
	Group    GroupID
	Messages []Message // newest first, as fetched from the log
	Days     []DayBucket
	Settled  bool
	Stale    bool
}

// AuthorIDs lists the distinct senders visible in the snapshot.
func (s FeedSnapshot) AuthorIDs() []string {
	return lo.Uniq(lo.Map(s.Messages, func(m Message, _ int) string { return m.AuthorID }))
}
