package repositories

import (
	"fmt"
	"groovon/domain/chat"
	"groovon/errors"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Field numbers of records.proto.
const (
	messageID            protoreflect.FieldNumber = 1
	messageGroup         protoreflect.FieldNumber = 2
	messageAuthor        protoreflect.FieldNumber = 3
	messageText          protoreflect.FieldNumber = 4
	messageServerTime    protoreflect.FieldNumber = 5
	messageClientTime    protoreflect.FieldNumber = 6
	messageFormattedDate protoreflect.FieldNumber = 7

	profileID          protoreflect.FieldNumber = 1
	profileDisplayName protoreflect.FieldNumber = 2
	profileAvatarURL   protoreflect.FieldNumber = 3
	profileUpdatedAt   protoreflect.FieldNumber = 4

	accountID           protoreflect.FieldNumber = 1
	accountEmail        protoreflect.FieldNumber = 2
	accountPasswordHash protoreflect.FieldNumber = 3
	accountRoles        protoreflect.FieldNumber = 4
	accountCreatedAt    protoreflect.FieldNumber = 5
	accountDisplayName  protoreflect.FieldNumber = 6
)

var (
	recordsFile       = mustRecordsFile()
	messageDescriptor = recordsFile.Messages().ByName("MessageRecord")
	profileDescriptor = recordsFile.Messages().ByName("ProfileRecord")
	accountDescriptor = recordsFile.Messages().ByName("AccountRecord")
)

// mustRecordsFile builds the descriptors of records.proto.
func mustRecordsFile() protoreflect.FileDescriptor {
	str := descriptorpb.FieldDescriptorProto_TYPE_STRING
	i64 := descriptorpb.FieldDescriptorProto_TYPE_INT64
	file := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("groovon/records.proto"),
		Package: proto.String("groovon.records"),
		Syntax:  proto.String("proto2"),
		MessageType: []*descriptorpb.DescriptorProto{
			record("MessageRecord",
				field("id", messageID, str, false),
				field("group", messageGroup, str, false),
				field("author_id", messageAuthor, str, false),
				field("text", messageText, str, false),
				field("server_time", messageServerTime, i64, false),
				field("client_time", messageClientTime, i64, false),
				field("formatted_date", messageFormattedDate, str, false),
			),
			record("ProfileRecord",
				field("id", profileID, str, false),
				field("display_name", profileDisplayName, str, false),
				field("avatar_url", profileAvatarURL, str, false),
				field("updated_at", profileUpdatedAt, i64, false),
			),
			record("AccountRecord",
				field("id", accountID, str, false),
				field("email", accountEmail, str, false),
				field("password_hash", accountPasswordHash, str, false),
				field("roles", accountRoles, str, true),
				field("created_at", accountCreatedAt, i64, false),
				field("display_name", accountDisplayName, str, false),
			),
		},
	}
	fd, err := protodesc.NewFile(file, new(protoregistry.Files))
	if err != nil {
		panic(fmt.Sprintf("invalid records descriptor: %v", err))
	}
	return fd
}

func record(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func field(name string, num protoreflect.FieldNumber, typ descriptorpb.FieldDescriptorProto_Type, repeated bool) *descriptorpb.FieldDescriptorProto {
	label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	if repeated {
		label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	}
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(int32(num)),
		Type:   typ.Enum(),
		Label:  label.Enum(),
	}
}

func encodeMessage(m chat.Message) ([]byte, error) {
	r := dynamicpb.NewMessage(messageDescriptor)
	setString(r, messageID, m.ID)
	setString(r, messageGroup, string(m.Group))
	setString(r, messageAuthor, m.AuthorID)
	setString(r, messageText, m.Text)
	setTime(r, messageServerTime, m.ServerTime)
	setTime(r, messageClientTime, m.ClientTime)
	setString(r, messageFormattedDate, m.FormattedDate)
	return proto.Marshal(r)
}

func decodeMessage(b []byte) (chat.Message, error) {
	r, err := unmarshal(messageDescriptor, b)
	if err != nil {
		return chat.Message{}, err
	}
	return chat.Message{
		ID:            getString(r, messageID),
		Group:         chat.GroupID(getString(r, messageGroup)),
		AuthorID:      getString(r, messageAuthor),
		Text:          getString(r, messageText),
		ServerTime:    getTime(r, messageServerTime),
		ClientTime:    getTime(r, messageClientTime),
		FormattedDate: getString(r, messageFormattedDate),
	}, nil
}

type profileRecord struct {
	Profile   chat.Profile
	UpdatedAt time.Time
}

func encodeProfile(p profileRecord) ([]byte, error) {
	r := dynamicpb.NewMessage(profileDescriptor)
	setString(r, profileID, p.Profile.ID)
	setString(r, profileDisplayName, p.Profile.DisplayName)
	setString(r, profileAvatarURL, p.Profile.AvatarURL)
	setTime(r, profileUpdatedAt, p.UpdatedAt)
	return proto.Marshal(r)
}

func decodeProfile(b []byte) (profileRecord, error) {
	r, err := unmarshal(profileDescriptor, b)
	if err != nil {
		return profileRecord{}, err
	}
	return profileRecord{
		Profile: chat.Profile{
			ID:          getString(r, profileID),
			DisplayName: getString(r, profileDisplayName),
			AvatarURL:   getString(r, profileAvatarURL),
		},
		UpdatedAt: getTime(r, profileUpdatedAt),
	}, nil
}

func encodeAccount(a Account) ([]byte, error) {
	r := dynamicpb.NewMessage(accountDescriptor)
	setString(r, accountID, a.ID)
	setString(r, accountEmail, a.Email)
	setString(r, accountPasswordHash, a.PasswordHash)
	roles := r.Mutable(accountDescriptor.Fields().ByNumber(accountRoles)).List()
	for _, role := range a.Roles {
		roles.Append(protoreflect.ValueOfString(role))
	}
	setTime(r, accountCreatedAt, a.CreatedAt)
	setString(r, accountDisplayName, a.DisplayName)
	return proto.Marshal(r)
}

func decodeAccount(b []byte) (Account, error) {
	r, err := unmarshal(accountDescriptor, b)
	if err != nil {
		return Account{}, err
	}
	a := Account{
		ID:           getString(r, accountID),
		Email:        getString(r, accountEmail),
		PasswordHash: getString(r, accountPasswordHash),
		CreatedAt:    getTime(r, accountCreatedAt),
		DisplayName:  getString(r, accountDisplayName),
	}
	roles := r.Get(accountDescriptor.Fields().ByNumber(accountRoles)).List()
	for i := 0; i < roles.Len(); i++ {
		a.Roles = append(a.Roles, roles.Get(i).String())
	}
	return a, nil
}

// unmarshal keeps fields it does not know as unknown fields, so records
// written by a newer version still decode.
func unmarshal(desc protoreflect.MessageDescriptor, b []byte) (*dynamicpb.Message, error) {
	r := dynamicpb.NewMessage(desc)
	if err := proto.Unmarshal(b, r); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrMalformedRecord, desc.Name(), err)
	}
	return r, nil
}

func setString(r *dynamicpb.Message, num protoreflect.FieldNumber, v string) {
	if v == "" {
		return
	}
	r.Set(r.Descriptor().Fields().ByNumber(num), protoreflect.ValueOfString(v))
}

func setTime(r *dynamicpb.Message, num protoreflect.FieldNumber, t time.Time) {
	if t.IsZero() {
		return
	}
	r.Set(r.Descriptor().Fields().ByNumber(num), protoreflect.ValueOfInt64(t.UnixNano()))
}

func getString(r *dynamicpb.Message, num protoreflect.FieldNumber) string {
	return r.Get(r.Descriptor().Fields().ByNumber(num)).String()
}

func getTime(r *dynamicpb.Message, num protoreflect.FieldNumber) time.Time {
	v := r.Get(r.Descriptor().Fields().ByNumber(num)).Int()
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v).UTC()
}
