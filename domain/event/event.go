// Package event holds the change notifications flowing out of the stores
// and the identity provider.
package event

import (
	"groovon/domain/chat"
	"time"
)

// DomainEvent is a change notification routed by topic.
type DomainEvent interface {
	Topic() string
}

func GroupTopic(group chat.GroupID) string {
	return "messages:" + string(group)
}

func ProfileTopic(userID string) string {
	return "users:" + userID
}

// MessageAppended is published after a message is committed to the log.
type MessageAppended struct {
	ID    string
	Group chat.GroupID
	At    time.Time
}

func (m MessageAppended) Topic() string {
	return GroupTopic(m.Group)
}

// ProfileChanged is published after a user document is written.
type ProfileChanged struct {
	UserID string
}

func (p ProfileChanged) Topic() string {
	return ProfileTopic(p.UserID)
}

type AuthKind int

const (
	SignedIn AuthKind = iota
	SignedOut
)

func (k AuthKind) String() string {
	if k == SignedIn {
		return "signed_in"
	}
	return "signed_out"
}

// AuthChanged is emitted by the identity provider on sign-in and sign-out.
type AuthChanged struct {
	Kind AuthKind
	User chat.User
}
