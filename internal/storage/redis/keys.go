package redis

import (
	"fmt"

	"github.com/arenalab/arena-server/internal/model"
)

// Key prefix for all arena data
const keyPrefix = "arena"

// accountKey returns the Redis key for an Account
func accountKey(identity model.Identity) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, identity)
}

// credentialKey returns the Redis key for a Credential
func credentialKey(identity model.Identity) string {
	return fmt.Sprintf("%s:credential:%s", keyPrefix, identity)
}
