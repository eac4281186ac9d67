package memory

import (
	"context"
	"sync"

	"github.com/arenalab/arena-server/internal/model"
	"github.com/arenalab/arena-server/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	accounts    map[model.Identity]*model.Account
	credentials map[model.Identity]*model.Credential
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		accounts:    make(map[model.Identity]*model.Account),
		credentials: make(map[model.Identity]*model.Credential),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.Identity]; ok {
		return model.ErrAccountExists
	}
	s.accounts[account.Identity] = account
	return nil
}

func (s *Storage) GetAccountByIdentity(ctx context.Context, identity model.Identity) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[identity]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return account, nil
}

func (s *Storage) UpdateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.Identity]; !ok {
		return model.ErrAccountNotFound
	}
	s.accounts[account.Identity] = account
	return nil
}

func (s *Storage) AccountExists(ctx context.Context, identity model.Identity) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[identity]
	return ok, nil
}

// Credential operations

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[cred.Identity] = cred
	return nil
}

func (s *Storage) GetCredential(ctx context.Context, identity model.Identity) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[identity]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return cred, nil
}
