package storage

import (
	"context"

	"github.com/arenalab/arena-server/internal/model"
)

// Storage defines the interface for account persistence. Room state is
// never persisted; only accounts and credentials survive the process.
type Storage interface {
	// Account operations
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByIdentity(ctx context.Context, identity model.Identity) (*model.Account, error)
	UpdateAccount(ctx context.Context, account *model.Account) error
	AccountExists(ctx context.Context, identity model.Identity) (bool, error)

	// Credential operations
	SaveCredential(ctx context.Context, cred *model.Credential) error
	GetCredential(ctx context.Context, identity model.Identity) (*model.Credential, error)
}
