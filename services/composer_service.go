package services

import (
	"context"
	"fmt"
	"groovon/contract"
	"groovon/domain/chat"
	"groovon/errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"
)

// DraftKey is the local storage key of the unsent draft.
const DraftKey = "groovon.draft"

type IComposerService interface {
	SetText(text string) error
	Text() string
	SoftNewline() error
	CanSubmit() bool
	InFlight() bool
	Submit(ctx context.Context) (chat.Message, bool, error)
}

// GroupSelection gives the group new messages are posted to.
type GroupSelection interface {
	Get() chat.GroupID
}

// ComposerService owns the single outbound draft.
// At most one submission is in flight at any time.
type ComposerService struct {
	mu       sync.Mutex
	log      *slog.Logger
	messages contract.MessageLog
	identity contract.IdentityProvider
	groups   GroupSelection
	filter   contract.ContentFilter
	local    contract.KeyValueStore
	loc      *time.Location
	now      func() time.Time
	text     string
	inFlight bool
}

// NewComposerService restores the persisted draft, if any.
func NewComposerService(log *slog.Logger, messages contract.MessageLog, identity contract.IdentityProvider,
	groups GroupSelection, filter contract.ContentFilter, local contract.KeyValueStore, loc *time.Location) *ComposerService {
	c := &ComposerService{
		log:      log,
		messages: messages,
		identity: identity,
		groups:   groups,
		filter:   filter,
		local:    local,
		loc:      loc,
		now:      time.Now,
	}
	draft, ok, err := local.Get(DraftKey)
	if err != nil {
		log.Warn("Unable to restore draft", "error", err)
	}
	if ok {
		c.text = draft
	}
	return c
}

// SetText replaces the draft and persists it right away.
func (c *ComposerService) SetText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	return c.persist(text)
}

func (c *ComposerService) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// SoftNewline inserts a line break without submitting.
func (c *ComposerService) SoftNewline() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text += "\n"
	return c.persist(c.text)
}

func (c *ComposerService) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(c.text) != "" && !c.inFlight
}

func (c *ComposerService) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Submit posts the filtered draft to the selected group.
// It returns sent=false without error when there is nothing to send or a
// submission is already in flight. On failure the draft is kept.
func (c *ComposerService) Submit(ctx context.Context) (chat.Message, bool, error) {
	c.mu.Lock()
	if strings.TrimSpace(c.text) == "" || c.inFlight {
		c.mu.Unlock()
		return chat.Message{}, false, nil
	}
	user, ok := c.identity.CurrentUser()
	if !ok {
		c.mu.Unlock()
		return chat.Message{}, false, errors.ErrNotSignedIn
	}
	submitted := c.text
	c.inFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	filtered, words := c.filter.Censor(submitted)
	info := whatlanggo.Detect(filtered)
	c.log.Debug("Submitting message",
		"lang", info.Lang.Iso6391(),
		"confidence", info.Confidence,
		"censored", words)

	now := c.now()
	msg, err := c.messages.Append(ctx, chat.Message{
		Text:          filtered,
		AuthorID:      user.ID,
		Group:         c.groups.Get(),
		ClientTime:    now,
		FormattedDate: chat.FormatDay(now, c.loc),
	})
	if err != nil {
		c.log.Warn("Message submission failed", "error", err)
		return chat.Message{}, false, fmt.Errorf("%w: %w", errors.ErrSubmissionFailed, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Text typed while the message was in flight stays in the draft.
	if c.text == submitted {
		c.text = ""
		if err := c.persist(""); err != nil {
			c.log.Warn("Unable to clear draft", "error", err)
		}
	}
	return msg, true, nil
}

func (c *ComposerService) persist(text string) error {
	if text == "" {
		return c.local.Remove(DraftKey)
	}
	return c.local.Set(DraftKey, text)
}
