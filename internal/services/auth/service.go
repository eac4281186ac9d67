package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/arenalab/arena-server/internal/dependencies/clock"
	"github.com/arenalab/arena-server/internal/dependencies/random"
	"github.com/arenalab/arena-server/internal/model"
	"github.com/arenalab/arena-server/internal/services/account"
	"github.com/arenalab/arena-server/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// ProviderAnonymous names the guest provider
const ProviderAnonymous = "anonymous"

// Session represents an authenticated session
type Session struct {
	Token     string
	Identity  model.Identity
	Account   model.Account
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
	}
}

// Service handles authentication and session management. First
// authentication of an unseen identity runs the account bootstrap hook.
type Service struct {
	storage  storage.Storage
	accounts *account.Service
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	sessionDuration time.Duration
}

// New creates a new auth Service
func New(
	storage storage.Storage,
	accounts *account.Service,
	clock clock.Clock,
	random random.Random,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		storage:         storage,
		accounts:        accounts,
		clock:           clock,
		random:          random,
		logger:          logger.With(slog.String("component", "auth")),
		sessions:        make(map[string]*Session),
		sessionDuration: cfg.SessionDuration,
	}
}

// Authenticate logs an identity in. A previously-unseen identity has an
// account bootstrapped (which may fail validation) and the secret stored;
// a known identity must present the matching secret.
func (s *Service) Authenticate(ctx context.Context, provider string, identity model.Identity, secret string) (*Session, error) {
	cred, err := s.storage.GetCredential(ctx, identity)
	switch {
	case errors.Is(err, model.ErrAccountNotFound):
		return s.firstAuthentication(ctx, provider, identity, secret)
	case err != nil:
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(secret)) != nil {
		return nil, ErrInvalidCredentials
	}

	acct, err := s.accounts.Get(ctx, identity)
	if err != nil {
		return nil, err
	}

	return s.createSession(acct), nil
}

// Guest provisions an anonymous identity and logs it in
func (s *Service) Guest(ctx context.Context) (*Session, error) {
	identity := model.Identity(s.random.Token("guest_"))
	acct, err := s.accounts.Bootstrap(ctx, ProviderAnonymous, identity)
	if err != nil {
		return nil, err
	}
	return s.createSession(acct), nil
}

// firstAuthentication bootstraps the account, then stores the credential.
// Bootstrap failing validation leaves no account behind.
func (s *Service) firstAuthentication(ctx context.Context, provider string, identity model.Identity, secret string) (*Session, error) {
	acct, err := s.accounts.Bootstrap(ctx, provider, identity)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	cred := &model.Credential{
		Identity:     identity,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.storage.SaveCredential(ctx, cred); err != nil {
		return nil, err
	}

	return s.createSession(acct), nil
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrInvalidSession
	}

	return session, nil
}

// InvalidateSession removes a session
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
}

// createSession creates a new session for an account
func (s *Service) createSession(acct *model.Account) *Session {
	token := s.random.Token("sess_")
	now := s.clock.Now()

	session := &Session{
		Token:     token,
		Identity:  acct.Identity,
		Account:   *acct,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	s.mu.Lock()
	s.sessions[token] = session
	s.mu.Unlock()

	return session
}
