package repositories

import (
	"groovon/domain/chat"
	"groovon/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func Test_Decode_Message_Skips_Unknown_Fields(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	msg := chat.Message{
		ID: "m1", Text: "first\nsecond", AuthorID: "alice", Group: "tech",
		ServerTime: at, FormattedDate: "January 2, 2026",
	}

	// Given a record written by a newer version with an extra field
	b, err := encodeMessage(msg)
	req.NoError(err)
	b = protowire.AppendTag(b, 42, protowire.BytesType)
	b = protowire.AppendString(b, "future")

	// When decoding
	decoded, err := decodeMessage(b)

	// Then the known fields are read back
	req.NoError(err)
	req.Equal(msg, decoded)
	req.True(decoded.ClientTime.IsZero())
}

func Test_Decode_Message_From_Raw_Wire(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	// Given a record laid out field by field as records.proto declares it
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "m1")
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendString(b, "hello")
	b = protowire.AppendTag(b, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(at.UnixNano()))

	decoded, err := decodeMessage(b)

	req.NoError(err)
	req.Equal(chat.Message{ID: "m1", Text: "hello", ServerTime: at}, decoded)
}

func Test_Decode_Truncated_Record(t *testing.T) {
	req := require.New(t)
	b, err := encodeMessage(chat.Message{ID: "m1", Text: "hello"})
	req.NoError(err)

	_, err = decodeMessage(b[:len(b)-2])

	req.ErrorIs(err, errors.ErrMalformedRecord)
}

func Test_Profile_Record(t *testing.T) {
	req := require.New(t)
	record := profileRecord{
		Profile:   chat.Profile{ID: "u1", DisplayName: "Zoé", AvatarURL: chat.AvatarURL("Milo")},
		UpdatedAt: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
	}

	b, err := encodeProfile(record)
	req.NoError(err)
	decoded, err := decodeProfile(b)

	req.NoError(err)
	req.Equal(record, decoded)
}

func Test_Account_Roles(t *testing.T) {
	req := require.New(t)
	account := Account{ID: "u1", Email: "a@b.c", Roles: []string{"user", "admin"}}

	b, err := encodeAccount(account)
	req.NoError(err)
	decoded, err := decodeAccount(b)

	req.NoError(err)
	req.Equal(account, decoded)
}
