package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/arenalab/arena-server/internal/dependencies/clock"
	"github.com/arenalab/arena-server/internal/model"
	"github.com/arenalab/arena-server/internal/storage"
)

// ProviderEmail is the provider name whose identity claims are validated as
// email addresses. Other providers (e.g. "anonymous") pass through.
const ProviderEmail = "email"

// ValidateIdentity decides whether an identity claim from a provider is
// acceptable. Returning false aborts account creation.
type ValidateIdentity func(provider string, identity model.Identity) bool

// EmailValidator is the default identity predicate: email-provider claims
// must parse as a bare address, everything else is accepted
func EmailValidator(provider string, identity model.Identity) bool {
	if provider != ProviderEmail {
		return true
	}
	addr, err := mail.ParseAddress(string(identity))
	if err != nil {
		return false
	}
	// Reject display-name forms; the identity must be the address itself
	return addr.Address == string(identity) && !strings.ContainsAny(string(identity), " <>")
}

// Service runs the account enrichment hook and bootstraps accounts on first
// authentication
type Service struct {
	storage  storage.Storage
	clock    clock.Clock
	validate ValidateIdentity
	logger   *slog.Logger
}

// New creates a new account Service. A nil validate falls back to
// EmailValidator.
func New(storage storage.Storage, clock clock.Clock, validate ValidateIdentity, logger *slog.Logger) *Service {
	if validate == nil {
		validate = EmailValidator
	}
	return &Service{
		storage:  storage,
		clock:    clock,
		validate: validate,
		logger:   logger.With(slog.String("component", "account")),
	}
}

// Enrich validates the identity claim and stamps the default profile onto
// the in-flight insert payload. It is pure apart from mutating profile: no
// account is touched here, and the caller must not invoke it for identities
// that already have one.
func (s *Service) Enrich(provider string, identity model.Identity, profile *model.ProfileMetadata) error {
	if !s.validate(provider, identity) {
		return fmt.Errorf("%w: provider %q rejected identity %q", model.ErrValidation, provider, identity)
	}
	*profile = model.DefaultProfileMetadata()
	return nil
}

// Bootstrap returns the account for an identity, creating and enriching it
// on first authentication. An existing account is returned untouched;
// enrichment runs exactly once per identity.
func (s *Service) Bootstrap(ctx context.Context, provider string, identity model.Identity) (*model.Account, error) {
	existing, err := s.storage.GetAccountByIdentity(ctx, identity)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, model.ErrAccountNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	account := &model.Account{
		Identity:  identity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Enrich(provider, identity, &account.Profile); err != nil {
		return nil, err
	}

	if err := s.storage.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, model.ErrAccountExists) {
			// Lost a create race; the winner's record is canonical
			return s.storage.GetAccountByIdentity(ctx, identity)
		}
		return nil, err
	}

	s.logger.Info("account created",
		slog.String("identity", string(identity)),
		slog.String("provider", provider))

	return account, nil
}

// Get retrieves an existing account
func (s *Service) Get(ctx context.Context, identity model.Identity) (*model.Account, error) {
	return s.storage.GetAccountByIdentity(ctx, identity)
}
