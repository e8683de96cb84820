package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore() *Store {
	return NewStore(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32))
}

func TestStore_IssueVerify(t *testing.T) {
	t.Parallel()

	s := newStore()
	token, err := s.Issue("desktop")
	require.NoError(t, err)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "desktop", claims.Host)
	assert.NotEmpty(t, claims.ID)

	_, err = newStore().Verify(token)
	assert.Error(t, err, "other keys must reject the token")

	_, err = s.Verify("garbage")
	assert.Error(t, err)
}

func TestStore_VerifyCachesDecodedTokens(t *testing.T) {
	t.Parallel()

	s := NewStore(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32),
		WithVerifyTTL(time.Minute))
	token, err := s.Issue("desktop")
	require.NoError(t, err)

	first, err := s.Verify(token)
	require.NoError(t, err)
	again, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, s.Cached())

	_, err = s.Verify("garbage")
	assert.Error(t, err)
	assert.Equal(t, 1, s.Cached(), "rejected tokens are not kept")
}

func TestToken_Sources(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/?token=q", nil)
	r.Header.Set(HeaderName, "h")
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "c"})

	tok, fromQuery := Token(r)
	assert.Equal(t, "h", tok)
	assert.False(t, fromQuery)

	r.Header.Del(HeaderName)
	tok, fromQuery = Token(r)
	assert.Equal(t, "q", tok)
	assert.True(t, fromQuery)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "c"})
	tok, _ = Token(r)
	assert.Equal(t, "c", tok)
}

func TestStore_Load(t *testing.T) {
	t.Parallel()

	s := newStore()
	_, err := s.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoToken)

	token, err := s.Issue("cli")
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderName, token)
	claims, err := s.Load(r)
	require.NoError(t, err)
	assert.Equal(t, "cli", claims.Host)
}

func TestStore_SetCookie(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newStore().SetCookie(w, "abc")
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}
