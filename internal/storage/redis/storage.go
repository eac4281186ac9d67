package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arenalab/arena-server/internal/model"
	"github.com/arenalab/arena-server/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	// SETNX so a concurrent create of the same identity loses cleanly
	ok, err := s.client.SetNX(ctx, accountKey(account.Identity), data, s.accountTTL(account.Identity)).Result()
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrAccountExists
	}
	return nil
}

func (s *Storage) GetAccountByIdentity(ctx context.Context, identity model.Identity) (*model.Account, error) {
	data, err := s.client.Get(ctx, accountKey(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Storage) UpdateAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	key := accountKey(account.Identity)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrAccountNotFound
	}

	return s.client.Set(ctx, key, data, s.accountTTL(account.Identity)).Err()
}

func (s *Storage) AccountExists(ctx context.Context, identity model.Identity) (bool, error) {
	exists, err := s.client.Exists(ctx, accountKey(identity)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Credential operations

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, credentialKey(cred.Identity), data, 0).Err()
}

func (s *Storage) GetCredential(ctx context.Context, identity model.Identity) (*model.Credential, error) {
	data, err := s.client.Get(ctx, credentialKey(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var cred model.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// accountTTL applies the guest TTL to guest identities only
func (s *Storage) accountTTL(identity model.Identity) time.Duration {
	if strings.HasPrefix(string(identity), "guest_") {
		return s.cfg.GuestAccountTTL
	}
	return 0
}
