// Package session issues and verifies the bridge token that
// authenticates a host against the local HTTP transport.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"

	"github.com/arko-chat/flurrybridge/internal/cache"
)

const (
	CookieName = "flurrybridge_token"
	HeaderName = "X-Bridge-Token"
	QueryParam = "token"
)

// verifiedTokens bounds how many decoded tokens are kept. A host holds
// one token per tab, so this is generous.
const verifiedTokens = 64

var ErrNoToken = errors.New("session: no bridge token")

// Claims is what a bridge token carries.
type Claims struct {
	ID       string `json:"id"`
	Host     string `json:"host"`
	IssuedAt int64  `json:"iat"`
}

type Store struct {
	codec    *securecookie.SecureCookie
	verified *cache.Store[Claims]
}

type Option func(*options)

type options struct {
	verifyTTL time.Duration
}

// WithVerifyTTL sets how long a decoded token is kept before it is
// decoded again in the background.
func WithVerifyTTL(d time.Duration) Option {
	return func(o *options) { o.verifyTTL = d }
}

// NewStore signs tokens with hashKey and encrypts them with blockKey.
// Tokens never expire; rotating the keys invalidates them.
func NewStore(hashKey, blockKey []byte, opts ...Option) *Store {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(0)
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &Store{
		codec:    codec,
		verified: cache.MustNew[Claims](verifiedTokens, o.verifyTTL),
	}
}

// Issue returns a new token for host.
func (s *Store) Issue(host string) (string, error) {
	claims := Claims{
		ID:       uuid.NewString(),
		Host:     host,
		IssuedAt: time.Now().Unix(),
	}
	token, err := s.codec.Encode(CookieName, claims)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return token, nil
}

// Verify decodes token. Every request carries the token, so decoded
// claims are cached by the token text; a token's claims never change
// under the same keys. Failures are not cached.
func (s *Store) Verify(token string) (Claims, error) {
	return s.verified.Get(token, func() (Claims, error) {
		var claims Claims
		if err := s.codec.Decode(CookieName, token, &claims); err != nil {
			return Claims{}, fmt.Errorf("decode token: %w", err)
		}
		return claims, nil
	})
}

// Cached reports how many decoded tokens are held.
func (s *Store) Cached() int {
	return s.verified.Len()
}

// Token extracts the raw token from the header, the query string or the
// cookie, in that order. fromQuery is set when the query string won.
func Token(r *http.Request) (token string, fromQuery bool) {
	if v := r.Header.Get(HeaderName); v != "" {
		return v, false
	}
	if v := r.URL.Query().Get(QueryParam); v != "" {
		return v, true
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value, false
	}
	return "", false
}

// Load verifies the token carried by r.
func (s *Store) Load(r *http.Request) (Claims, error) {
	token, _ := Token(r)
	if token == "" {
		return Claims{}, ErrNoToken
	}
	return s.Verify(token)
}

func (s *Store) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
