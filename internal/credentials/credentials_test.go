package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	m.Run()
}

func TestAPIKey(t *testing.T) {
	_, err := LoadAPIKey()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, StoreAPIKey("KEY-1"))
	got, err := LoadAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "KEY-1", got)

	DeleteAPIKey()
	_, err = LoadAPIKey()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppSecret(t *testing.T) {
	require.NoError(t, StoreAppSecret("hash_key", "abc"))
	got, err := LoadAppSecret("hash_key")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	_, err = LoadAppSecret("other")
	assert.ErrorIs(t, err, ErrNotFound)

	DeleteAppSecret("hash_key")
	_, err = LoadAppSecret("hash_key")
	assert.ErrorIs(t, err, ErrNotFound)
}
