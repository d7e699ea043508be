// Package auth verifies the bearer tokens that guard the storefront admin API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// ErrMissingRole is returned for a valid token that lacks the configured admin role.
var ErrMissingRole = errors.New("token lacks the admin role")

type Verifier interface {
	Verify(ctx context.Context, tokenString string) (jwt.Token, error)
}

// JWTVerifier checks tokens against the IdP key set. The set is fetched at most once per
// MinInterval; when a refresh fails the previous set stays in use.
type JWTVerifier struct {
	cfg   config.IdP
	fetch func(ctx context.Context, url string) (jwk.Set, error)

	mu        sync.RWMutex
	keys      jwk.Set
	fetchedAt time.Time
}

// NewJWTVerifier fetches the key set once, so a wrong JWKS URL fails at startup.
func NewJWTVerifier(ctx context.Context, cfg config.IdP) (*JWTVerifier, error) {
	v := &JWTVerifier{
		cfg: cfg,
		fetch: func(ctx context.Context, url string) (jwk.Set, error) {
			return jwk.Fetch(ctx, url)
		},
	}
	if _, err := v.keySet(ctx); err != nil {
		return nil, fmt.Errorf("initial JWKS fetch failed: %w", err)
	}
	return v, nil
}

func (v *JWTVerifier) cached() (jwk.Set, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.keys, v.keys != nil && time.Since(v.fetchedAt) < v.cfg.MinInterval
}

func (v *JWTVerifier) keySet(ctx context.Context) (jwk.Set, error) {
	if set, fresh := v.cached(); fresh {
		return set, nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.keys != nil && time.Since(v.fetchedAt) < v.cfg.MinInterval {
		return v.keys, nil
	}
	set, err := v.fetch(ctx, v.cfg.JwksURL)
	if err != nil {
		if v.keys != nil {
			return v.keys, nil
		}
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", v.cfg.JwksURL, err)
	}
	v.keys = set
	v.fetchedAt = time.Now()
	return set, nil
}

// Verify checks signature, expiry, issuer and authorized party, then the admin role if one is configured.
func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (jwt.Token, error) {
	set, err := v.keySet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get keyset for verification: %w", err)
	}
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithClaimValue("azp", v.cfg.ClientID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	if v.cfg.AdminRole != "" && !slices.Contains(roles(token), v.cfg.AdminRole) {
		return nil, ErrMissingRole
	}
	return token, nil
}

// roles collects Keycloak realm roles and a flat "roles" claim.
func roles(token jwt.Token) []string {
	var out []string
	var realm map[string]any
	if err := token.Get("realm_access", &realm); err == nil {
		out = appendStrings(out, realm["roles"])
	}
	var flat []any
	if err := token.Get("roles", &flat); err == nil {
		out = appendStrings(out, flat)
	}
	return out
}

func appendStrings(dst []string, v any) []string {
	list, _ := v.([]any)
	for _, item := range list {
		if s, ok := item.(string); ok {
			dst = append(dst, s)
		}
	}
	return dst
}
