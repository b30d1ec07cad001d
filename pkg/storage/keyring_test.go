package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringCredentialStore(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringCredentialStore()

	require.NoError(t, store.Set("alpha", "one"))
	require.NoError(t, store.Set("beta", "two"))
	require.NoError(t, store.Set("alpha", "uno"))

	v, err := store.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "uno", v)

	keys, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, keys)

	require.NoError(t, store.Delete("alpha"))
	_, err = store.Get("alpha")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
	assert.ErrorIs(t, store.Delete("alpha"), ErrCredentialNotFound)

	keys, err = store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, keys)
}

func TestKeyringCredentialStore_EmptyKey(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringCredentialStore()

	assert.Error(t, store.Set("", "x"))
	_, err := store.Get("")
	assert.Error(t, err)
	assert.Error(t, store.Delete(""))
}

func TestTokenStore(t *testing.T) {
	keyring.MockInit()
	tokens := TokenStore{Store: NewKeyringCredentialStore()}

	tok, err := tokens.Token("http://localhost:8000/api")
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, tokens.SetToken("http://localhost:8000/api/", "secret"))
	tok, err = tokens.Token("http://localhost:8000/api")
	require.NoError(t, err)
	assert.Equal(t, "secret", tok)

	assert.Error(t, tokens.SetToken("http://other", "  "))

	backends, err := tokens.Backends()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:8000/api"}, backends)

	require.NoError(t, tokens.DeleteToken("http://localhost:8000/api"))
	tok, err = tokens.Token("http://localhost:8000/api")
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestTokenKey(t *testing.T) {
	assert.Equal(t, "backend:http://h/api", TokenKey(" http://h/api/ "))
}
