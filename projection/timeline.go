// Package projection turns day buckets and resolved profiles into the
// flat list of items a chat view displays.
// It is pure: no clock, no store, no hidden state.
package projection

import (
	"groovon/domain/chat"
	"time"

	"github.com/samber/lo"
)

// ProfileLookup resolves a sender. It must never return empty fields.
type ProfileLookup interface {
	Lookup(userID string) chat.Profile
}

type ItemKind int

const (
	DaySeparator ItemKind = iota
	MessageItem
)

// DisplayItem is either a day separator or a message row.
type DisplayItem struct {
	Kind ItemKind
	// DaySeparator
	DayLabel string
	// MessageItem
	MessageID  string
	Text       string
	SenderID   string
	SenderName string
	AvatarURL  string
	TimeLabel  string
	IsOwn      bool
	ShowName   bool
}

// Render emits one separator per bucket followed by its messages, in order.
// Calling it twice with the same inputs yields the same items.
func Render(days []chat.DayBucket, profiles ProfileLookup, currentUserID string, loc *time.Location) []DisplayItem {
	if loc == nil {
		loc = time.Local
	}
	items := make([]DisplayItem, 0, len(days)+lo.SumBy(days, func(d chat.DayBucket) int { return len(d.Messages) }))
	for _, day := range days {
		items = append(items, DisplayItem{Kind: DaySeparator, DayLabel: day.Day.Label})
		for _, m := range day.Messages {
			items = append(items, messageItem(m, profiles.Lookup(m.AuthorID), currentUserID, loc))
		}
	}
	return items
}

func messageItem(m chat.Message, sender chat.Profile, currentUserID string, loc *time.Location) DisplayItem {
	own := currentUserID != "" && m.AuthorID == currentUserID
	return DisplayItem{
		Kind:       MessageItem,
		MessageID:  m.ID,
		Text:       m.Text,
		SenderID:   m.AuthorID,
		SenderName: sender.DisplayName,
		AvatarURL:  sender.AvatarURL,
		TimeLabel:  timeLabel(m, loc),
		IsOwn:      own,
		ShowName:   !own,
	}
}

// timeLabel prefers the log time, then the creation time, else stays empty.
func timeLabel(m chat.Message, loc *time.Location) string {
	t, ok := m.EffectiveTime()
	if !ok {
		return ""
	}
	return t.In(loc).Format(chat.TimeLayout)
}
