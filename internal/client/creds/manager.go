// Package creds owns session identity for the pintask client: PIN
// generation and verification, and persistence of the session credential
// material in the local store.
//
// Two credential schemes exist across the product's history. Hash mode
// (hex SHA-256 of the PIN) is the active scheme and the only one new
// sessions are created with. The encrypted-envelope scheme is a deprecated
// migration path: an existing envelope session is still loaded and
// forwarded to the server for comparison, but never generated here.
package creds

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pintask/internal/client/storage"
	"github.com/dmitrijs2005/pintask/internal/common"
	"github.com/dmitrijs2005/pintask/internal/cryptox"
)

// Credential is the server-facing verification material for a session.
// Exactly one of PINHash or Envelope is set.
type Credential struct {
	PINHash  string
	Envelope *cryptox.Envelope
}

// Session is a remembered identity: the remote user id plus the credential
// that authenticates requests for it.
type Session struct {
	UserID     int64
	Credential Credential
}

// Manager creates, verifies, and persists session credentials.
type Manager struct {
	store storage.Store
}

func NewManager(store storage.Store) *Manager {
	return &Manager{store: store}
}

// Generate produces a fresh random 4-digit PIN and its stored form. The
// plain PIN is surfaced to the user exactly once and is not re-derivable
// from the stored hash.
func (m *Manager) Generate() (plainPIN string, storedForm string, err error) {
	pin, err := cryptox.GeneratePIN()
	if err != nil {
		return "", "", err
	}
	return pin, cryptox.HashPIN(pin), nil
}

// Verify re-derives the stored form from the supplied PIN and compares.
// It returns false on malformed input, never an error.
func (m *Manager) Verify(plainPIN string, storedForm string) bool {
	return cryptox.VerifyPIN(plainPIN, storedForm)
}

// SaveSession persists the session identity. Keys belonging to the
// inactive scheme are removed so the two never coexist.
func (m *Manager) SaveSession(ctx context.Context, s *Session) error {
	if err := storage.SaveUserID(ctx, m.store, s.UserID); err != nil {
		return fmt.Errorf("failed to persist user id: %w", err)
	}

	if env := s.Credential.Envelope; env != nil {
		if err := m.store.Set(ctx, storage.KeyPIN, []byte(env.EncryptedPIN)); err != nil {
			return err
		}
		if err := m.store.Set(ctx, storage.KeyIV, []byte(env.IV)); err != nil {
			return err
		}
		if err := m.store.Set(ctx, storage.KeyAuthTag, []byte(env.AuthTag)); err != nil {
			return err
		}
		return m.store.Remove(ctx, storage.KeyPINHash)
	}

	if err := m.store.Set(ctx, storage.KeyPINHash, []byte(s.Credential.PINHash)); err != nil {
		return err
	}
	for _, key := range []string{storage.KeyPIN, storage.KeyIV, storage.KeyAuthTag} {
		if err := m.store.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// LoadSession reads the remembered session. An absent credential is "no
// session" (common.ErrNoSession), not a failure.
func (m *Manager) LoadSession(ctx context.Context) (*Session, error) {
	userID, err := storage.LoadUserID(ctx, m.store)
	if err != nil {
		return nil, err
	}
	if userID == 0 {
		return nil, common.ErrNoSession
	}

	if hash, err := m.store.Get(ctx, storage.KeyPINHash); err == nil {
		return &Session{UserID: userID, Credential: Credential{PINHash: string(hash)}}, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	env, err := m.loadEnvelope(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{UserID: userID, Credential: Credential{Envelope: env}}, nil
}

func (m *Manager) loadEnvelope(ctx context.Context) (*cryptox.Envelope, error) {
	pin, err := m.store.Get(ctx, storage.KeyPIN)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	iv, err := m.store.Get(ctx, storage.KeyIV)
	if err != nil {
		return nil, common.ErrNoSession
	}
	authTag, err := m.store.Get(ctx, storage.KeyAuthTag)
	if err != nil {
		return nil, common.ErrNoSession
	}
	return &cryptox.Envelope{
		EncryptedPIN: string(pin),
		IV:           string(iv),
		AuthTag:      string(authTag),
	}, nil
}

// ClearSession removes all credential keys regardless of the active
// scheme. Local tasks are untouched; going offline keeps the list.
func (m *Manager) ClearSession(ctx context.Context) error {
	for _, key := range []string{storage.KeyUserID, storage.KeyPINHash, storage.KeyPIN, storage.KeyIV, storage.KeyAuthTag} {
		if err := m.store.Remove(ctx, key); err != nil {
			return fmt.Errorf("failed to clear session key %q: %w", key, err)
		}
	}
	return nil
}
