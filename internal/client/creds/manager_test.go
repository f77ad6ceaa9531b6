package creds

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/pintask/internal/client/storage"
	"github.com/dmitrijs2005/pintask/internal/common"
	"github.com/dmitrijs2005/pintask/internal/cryptox"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newManager(t *testing.T) (*Manager, storage.Store) {
	t.Helper()
	s := storage.NewSQLiteStore()
	err := s.Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewManager(s), s
}

func TestGenerate(t *testing.T) {
	m, _ := newManager(t)

	pin, stored, err := m.Generate()
	require.NoError(t, err)
	require.Len(t, pin, 4)
	require.Equal(t, cryptox.HashPIN(pin), stored)
	require.True(t, m.Verify(pin, stored))
	require.False(t, m.Verify("0000", stored))
}

func TestVerifyMalformedInput(t *testing.T) {
	m, _ := newManager(t)

	require.False(t, m.Verify("", ""))
	require.False(t, m.Verify("1234", "garbage"))
}

func TestSessionRoundTripHashMode(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	_, err := m.LoadSession(ctx)
	require.ErrorIs(t, err, common.ErrNoSession)

	want := &Session{UserID: 42, Credential: Credential{PINHash: cryptox.HashPIN("1234")}}
	require.NoError(t, m.SaveSession(ctx, want))

	got, err := m.LoadSession(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSessionRoundTripEnvelopeMode(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	env := &cryptox.Envelope{EncryptedPIN: "aa", IV: "bb", AuthTag: "cc"}
	want := &Session{UserID: 7, Credential: Credential{Envelope: env}}
	require.NoError(t, m.SaveSession(ctx, want))

	got, err := m.LoadSession(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSaveSessionEvictsOtherScheme(t *testing.T) {
	ctx := context.Background()
	m, s := newManager(t)

	env := &cryptox.Envelope{EncryptedPIN: "aa", IV: "bb", AuthTag: "cc"}
	require.NoError(t, m.SaveSession(ctx, &Session{UserID: 7, Credential: Credential{Envelope: env}}))
	require.NoError(t, m.SaveSession(ctx, &Session{UserID: 7, Credential: Credential{PINHash: "deadbeef"}}))

	_, err := s.Get(ctx, storage.KeyPIN)
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = s.Get(ctx, storage.KeyIV)
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = s.Get(ctx, storage.KeyAuthTag)
	require.ErrorIs(t, err, common.ErrNotFound)

	got, err := m.LoadSession(ctx)
	require.NoError(t, err)
	require.Equal(t, "deadbeef", got.Credential.PINHash)
}

func TestClearSession(t *testing.T) {
	ctx := context.Background()
	m, s := newManager(t)

	require.NoError(t, m.SaveSession(ctx, &Session{UserID: 42, Credential: Credential{PINHash: "deadbeef"}}))
	// local tasks survive the logout
	require.NoError(t, s.Set(ctx, storage.KeyTasks, []byte(`[{"id":1,"title":"a"}]`)))

	require.NoError(t, m.ClearSession(ctx))

	_, err := m.LoadSession(ctx)
	require.ErrorIs(t, err, common.ErrNoSession)

	tasks, err := s.Get(ctx, storage.KeyTasks)
	require.NoError(t, err)
	require.NotEmpty(t, tasks)
}
