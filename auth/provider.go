package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"groovon/contract"
	"groovon/domain/chat"
	"groovon/domain/event"
	"groovon/errors"
	"groovon/repositories"
	"groovon/runtime"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

// SessionKey is the local storage key of the persisted session token.
const SessionKey = "groovon.session"

var _ contract.IdentityProvider = (*LocalProvider)(nil)

// LocalProvider is a password identity provider backed by the user repository.
// The signed-in session survives restarts through a token kept in local storage.
type LocalProvider struct {
	mu        sync.Mutex
	log       *slog.Logger
	users     repositories.IUserRepository
	local     contract.KeyValueStore
	tokens    *TokenIssuer
	params    Argon2Params
	current   *chat.User
	listeners map[int]func(event.AuthChanged)
	nextID    int
}

func NewLocalProvider(log *slog.Logger, users repositories.IUserRepository,
	local contract.KeyValueStore, tokens *TokenIssuer, params Argon2Params) *LocalProvider {
	return &LocalProvider{
		log:       log,
		users:     users,
		local:     local,
		tokens:    tokens,
		params:    params,
		listeners: make(map[int]func(event.AuthChanged)),
	}
}

// Register creates the account with its default profile and signs it in.
func (p *LocalProvider) Register(ctx context.Context, email, password, displayName string) (chat.User, error) {
	// Validation happens before any expensive cryptographic operation
	if err := ValidateRegister(RegisterRequest{Email: email, Password: password, DisplayName: displayName}); err != nil {
		return chat.User{}, fmt.Errorf("register: %w", err)
	}
	hash, err := p.params.HashPassword(password)
	if err != nil {
		return chat.User{}, fmt.Errorf("hashing failed: %w", err)
	}
	account, err := p.users.CreateAccount(ctx, email, hash, displayName)
	if err != nil {
		return chat.User{}, err
	}
	p.log.Info("Account created", "user_id", account.ID)
	return p.startSession(ctx, account, "")
}

// SignIn checks the credentials. Any failure is reported as ErrInvalidCredentials
// so that the caller cannot tell a wrong password from an unknown email.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (chat.User, error) {
	if err := ValidateLogin(LoginRequest{Email: email, Password: password}); err != nil {
		return chat.User{}, errors.ErrInvalidCredentials
	}
	account, err := p.users.GetAccountByEmail(email)
	if err != nil {
		if !stderrors.Is(err, badger.ErrKeyNotFound) {
			p.log.Warn("Account lookup failed", "error", err)
		}
		return chat.User{}, errors.ErrInvalidCredentials
	}
	match, err := ComparePassword(password, account.PasswordHash)
	if err != nil || !match {
		return chat.User{}, errors.ErrInvalidCredentials
	}
	return p.startSession(ctx, account, "")
}

// Restore signs in again from the persisted session token, if still valid.
// An expired or tampered token is discarded.
func (p *LocalProvider) Restore(ctx context.Context) (chat.User, bool, error) {
	token, ok, err := p.local.Get(SessionKey)
	if err != nil || !ok {
		return chat.User{}, false, err
	}
	claims, err := p.tokens.Validate(token)
	if err != nil {
		p.log.Info("Discarding persisted session", "error", err)
		return chat.User{}, false, p.local.Remove(SessionKey)
	}
	account, err := p.users.GetAccountByEmail(claims.Email)
	if err != nil || account.ID != claims.UserID {
		p.log.Info("Discarding session of unknown account", "user_id", claims.UserID)
		return chat.User{}, false, p.local.Remove(SessionKey)
	}
	user, err := p.startSession(ctx, account, token)
	if err != nil {
		return chat.User{}, false, err
	}
	return user, true, nil
}

func (p *LocalProvider) startSession(ctx context.Context, account repositories.Account, token string) (chat.User, error) {
	if err := p.users.EnsureProfile(ctx, chat.Profile{ID: account.ID, DisplayName: account.DisplayName}); err != nil {
		return chat.User{}, err
	}
	profile, _, err := p.users.GetProfile(account.ID)
	if err != nil {
		return chat.User{}, err
	}
	profile = profile.WithDefaults()

	if token == "" {
		token, err = p.tokens.Generate(account.ID, account.Email, account.Roles)
		if err != nil {
			return chat.User{}, err
		}
		if err := p.local.Set(SessionKey, token); err != nil {
			return chat.User{}, err
		}
	}

	user := chat.User{
		ID:          account.ID,
		Email:       account.Email,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
	}
	p.mu.Lock()
	previous := p.current
	switched := previous != nil && previous.ID != user.ID
	if switched {
		p.current = nil
	}
	p.mu.Unlock()
	// Another account taking over the device ends the previous session first.
	if switched {
		p.log.Info("User signed out", "user_id", previous.ID)
		p.notify(event.AuthChanged{Kind: event.SignedOut, User: *previous})
	}

	p.mu.Lock()
	p.current = &user
	p.mu.Unlock()

	p.log.Info("User signed in", "user_id", user.ID)
	p.notify(event.AuthChanged{Kind: event.SignedIn, User: user})
	return user, nil
}

func (p *LocalProvider) CurrentUser() (chat.User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return chat.User{}, false
	}
	return *p.current, true
}

// SignOut forgets the session. Signing out twice is a no-op.
func (p *LocalProvider) SignOut(_ context.Context) error {
	if err := p.local.Remove(SessionKey); err != nil {
		return err
	}
	p.mu.Lock()
	previous := p.current
	p.current = nil
	p.mu.Unlock()

	if previous == nil {
		return nil
	}
	p.log.Info("User signed out", "user_id", previous.ID)
	p.notify(event.AuthChanged{Kind: event.SignedOut, User: *previous})
	return nil
}

// OnAuthStateChanged registers fn for every later sign-in and sign-out.
// fn is called on the goroutine performing the change.
func (p *LocalProvider) OnAuthStateChanged(fn func(event.AuthChanged)) contract.Subscription {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return runtime.SubscriptionFunc(func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	})
}

func (p *LocalProvider) notify(e event.AuthChanged) {
	p.mu.Lock()
	listeners := lo.Values(p.listeners)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(e)
	}
}
