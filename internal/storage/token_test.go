package storage

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]TokenStore {
	t.Helper()

	mem, err := OpenBadger("", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })

	return map[string]TokenStore{
		"memory": NewMemoryTokenStore(),
		"badger": mem,
	}
}

func TestTokenStore_Empty(t *testing.T) {
	t.Parallel()

	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.LoadToken()
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestTokenStore_LastWriteWins(t *testing.T) {
	t.Parallel()

	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.StoreToken("first"))
			require.NoError(t, s.StoreToken("second"))

			token, err := s.LoadToken()
			require.NoError(t, err)
			assert.Equal(t, "second", token)
		})
	}
}

func TestBadgerStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	s, err := OpenBadger(dir, logger)
	require.NoError(t, err)
	require.NoError(t, s.StoreToken("persisted"))
	require.NoError(t, s.Close())

	s, err = OpenBadger(dir, logger)
	require.NoError(t, err)
	defer s.Close()

	token, err := s.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "persisted", token)
}
