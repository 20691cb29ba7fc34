package projection

import (
	"groovon/domain/chat"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type staticProfiles map[string]chat.Profile

func (s staticProfiles) Lookup(userID string) chat.Profile {
	return chat.Profile{ID: userID}.Merge(s[userID]).WithDefaults()
}

func TestRender_Separators_And_Ownership(t *testing.T) {
	req := require.New(t)
	loc := time.UTC
	late := time.Date(2026, 5, 4, 23, 59, 0, 0, loc)
	early := time.Date(2026, 5, 5, 0, 1, 0, 0, loc)
	newestFirst := []chat.Message{
		{ID: "2", Text: "morning", AuthorID: "bob", Group: "general", ServerTime: early},
		{ID: "1", Text: "night", AuthorID: "alice", Group: "general", ServerTime: late},
	}
	profiles := staticProfiles{"alice": {DisplayName: "Alice"}}

	// When alice renders the feed
	items := Render(chat.GroupByDay(newestFirst, loc), profiles, "alice", loc)

	// Then each day gets its separator before its messages
	req.Len(items, 4)
	req.Equal(DaySeparator, items[0].Kind)
	req.Equal("May 4, 2026", items[0].DayLabel)
	req.Equal("night", items[1].Text)
	req.Equal("11:59 PM", items[1].TimeLabel)
	req.True(items[1].IsOwn)
	req.False(items[1].ShowName)
	req.Equal("May 5, 2026", items[2].DayLabel)
	req.Equal("12:01 AM", items[3].TimeLabel)

	// And an unresolved sender gets placeholders
	req.False(items[3].IsOwn)
	req.True(items[3].ShowName)
	req.Equal(chat.PlaceholderName("bob"), items[3].SenderName)
	req.Equal(chat.DefaultAvatarURL(), items[3].AvatarURL)
}

func TestRender_Same_Feed_Two_Viewers(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	days := chat.GroupByDay([]chat.Message{{ID: "1", Text: "hi", AuthorID: "alice", ServerTime: at}}, time.UTC)

	forAlice := Render(days, staticProfiles{}, "alice", time.UTC)
	forBob := Render(days, staticProfiles{}, "bob", time.UTC)

	req.True(forAlice[1].IsOwn)
	req.False(forBob[1].IsOwn)
}

func TestRender_Idempotent(t *testing.T) {
	req := require.New(t)
	days := chat.GroupByDay([]chat.Message{
		{ID: "3", Text: "untimed", AuthorID: "carol"},
		{ID: "2", Text: "client only", AuthorID: "bob", ClientTime: time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC)},
		{ID: "1", Text: "line one\nline two", AuthorID: "alice", FormattedDate: "January 1, 2026"},
	}, time.UTC)
	profiles := staticProfiles{"bob": {DisplayName: "Bob", AvatarURL: chat.AvatarURL("Milo")}}

	first := Render(days, profiles, "bob", time.UTC)
	second := Render(days, profiles, "bob", time.UTC)

	req.Equal(first, second)
	for _, item := range first {
		if item.Kind == MessageItem {
			req.NotEmpty(item.SenderName)
			req.NotEmpty(item.AvatarURL)
		}
	}
	last := first[len(first)-1]
	req.Equal("untimed", last.Text)
	req.Empty(last.TimeLabel)
}

func TestRender_Empty(t *testing.T) {
	require.Empty(t, Render(nil, staticProfiles{}, "", nil))
}
