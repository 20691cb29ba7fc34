package chat

import (
	"net/url"
	"strings"
)

const (
	avatarBaseURL     = "https://api.dicebear.com/9.x/pixel-art/svg?seed="
	DefaultAvatarSeed = "Destiny"
)

// AvatarSeeds are the seeds offered by the avatar chooser.
var AvatarSeeds = []string{
	"Destiny", "Felix", "Aneka", "Milo", "Luna", "Oscar",
	"Sasha", "Nala", "Jasper", "Zoe", "Leo", "Ruby",
}

// AvatarURL builds the avatar reference for a chooser seed.
func AvatarURL(seed string) string {
	return avatarBaseURL + url.QueryEscape(seed)
}

func DefaultAvatarURL() string {
	return AvatarURL(DefaultAvatarSeed)
}

// PlaceholderName is the generated display name of a user without one.
func PlaceholderName(userID string) string {
	short := userID
	if runes := []rune(short); len(runes) > 6 {
		short = string(runes[:6])
	}
	if short == "" {
		return "Unknown"
	}
	return "User " + short
}

// Profile is the public metadata attached to a user's messages.
type Profile struct {
	ID          string
	DisplayName string
	AvatarURL   string
}

// WithDefaults fills every missing field with its placeholder.
func (p Profile) WithDefaults() Profile {
	if strings.TrimSpace(p.DisplayName) == "" {
		p.DisplayName = PlaceholderName(p.ID)
	}
	if p.AvatarURL == "" {
		p.AvatarURL = DefaultAvatarURL()
	}
	return p
}

// Merge overlays the non-empty fields of other onto p.
func (p Profile) Merge(other Profile) Profile {
	if strings.TrimSpace(other.DisplayName) != "" {
		p.DisplayName = other.DisplayName
	}
	if other.AvatarURL != "" {
		p.AvatarURL = other.AvatarURL
	}
	return p
}

// ProfilePatch is a partial update; nil fields are left untouched.
type ProfilePatch struct {
	DisplayName *string
	AvatarURL   *string
}

func (p ProfilePatch) Apply(profile Profile) Profile {
	if p.DisplayName != nil {
		profile.DisplayName = *p.DisplayName
	}
	if p.AvatarURL != nil {
		profile.AvatarURL = *p.AvatarURL
	}
	return profile
}

// User is the signed-in identity with its session profile.
type User struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   string
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}
