// Package storage implements the client's local store: a persistent
// key-value table holding the task list, the active filter, session
// credentials, and the device-scoped ID allocator state.
package storage

import "context"

// Well-known keys. Exactly one credential scheme's keys are present at a
// time: KeyPINHash for hash mode, or KeyPIN/KeyIV/KeyAuthTag for the
// deprecated envelope mode.
const (
	KeyTasks   = "tasks"
	KeyFilter  = "filter"
	KeyUserID  = "userId"
	KeyPINHash = "pinHash"
	KeyPIN     = "pin"
	KeyIV      = "iv"
	KeyAuthTag = "authTag"
	KeyLastID  = "last_id"
)

// Store is the local persistence contract. All operations are safe to call
// before initialization completes: reads resolve to common.ErrNotFound and
// writes are dropped, none of them panic. Ready is closed once the store is
// usable; dependents that need durable writes should wait on it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Ready() <-chan struct{}
	Close() error
}
