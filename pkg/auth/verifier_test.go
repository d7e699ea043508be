package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "http://idp.test/realms/storefront"
	testClientID = "storefront"
	testRole     = "storefront-admin"
)

type signer struct {
	key jwk.Key
	set jwk.Set
}

func newSigner(t *testing.T) signer {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	priv, err := jwk.Import(raw)
	require.NoError(t, err)
	require.NoError(t, priv.Set(jwk.KeyIDKey, "test-kid"))
	require.NoError(t, priv.Set(jwk.AlgorithmKey, jwa.RS256()))
	pub, err := jwk.PublicKeyOf(priv)
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	return signer{key: priv, set: set}
}

func (s signer) sign(t *testing.T, customize func(b *jwt.Builder) *jwt.Builder) string {
	t.Helper()
	b := jwt.NewBuilder().
		Issuer(testIssuer).
		Subject("admin-1").
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Hour)).
		Claim("azp", testClientID)
	if customize != nil {
		b = customize(b)
	}
	token, err := b.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256(), s.key))
	require.NoError(t, err)
	return string(signed)
}

func newTestVerifier(cfg config.IdP, fetch func(context.Context, string) (jwk.Set, error)) *JWTVerifier {
	return &JWTVerifier{cfg: cfg, fetch: fetch}
}

func testIdP() config.IdP {
	return config.IdP{Enabled: true, JwksURL: "http://idp.test/certs", Issuer: testIssuer, ClientID: testClientID,
		AdminRole: testRole, MinInterval: time.Minute}
}

func Test_JWTVerifier_Verify(t *testing.T) {
	s := newSigner(t)
	withRealmRole := func(role string) func(b *jwt.Builder) *jwt.Builder {
		return func(b *jwt.Builder) *jwt.Builder {
			return b.Claim("realm_access", map[string]any{"roles": []string{"offline_access", role}})
		}
	}
	testCases := []struct {
		name        string
		adminRole   string
		customize   func(b *jwt.Builder) *jwt.Builder
		expectErr   bool
		expectErrIs error
	}{
		{name: "realm role", adminRole: testRole, customize: withRealmRole(testRole)},
		{name: "flat roles claim", adminRole: testRole, customize: func(b *jwt.Builder) *jwt.Builder {
			return b.Claim("roles", []string{testRole})
		}},
		{name: "missing role", adminRole: testRole, customize: withRealmRole("customer"), expectErrIs: ErrMissingRole},
		{name: "no role required", adminRole: ""},
		{name: "wrong issuer", adminRole: "", expectErr: true, customize: func(b *jwt.Builder) *jwt.Builder {
			return b.Issuer("http://evil.test")
		}},
		{name: "wrong authorized party", adminRole: "", expectErr: true, customize: func(b *jwt.Builder) *jwt.Builder {
			return b.Claim("azp", "other-client")
		}},
		{name: "expired", adminRole: "", expectErr: true, customize: func(b *jwt.Builder) *jwt.Builder {
			return b.Expiration(time.Now().Add(-time.Hour))
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			cfg := testIdP()
			cfg.AdminRole = tc.adminRole
			v := newTestVerifier(cfg, func(context.Context, string) (jwk.Set, error) { return s.set, nil })
			tokenString := s.sign(t, tc.customize)

			// when
			token, err := v.Verify(context.Background(), tokenString)

			// then
			switch {
			case tc.expectErrIs != nil:
				assert.ErrorIs(t, err, tc.expectErrIs)
			case tc.expectErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				subject, ok := token.Subject()
				assert.True(t, ok)
				assert.Equal(t, "admin-1", subject)
			}
		})
	}
}

func Test_JWTVerifier_KeepsKeysWhenRefreshFails(t *testing.T) {
	// given
	s := newSigner(t)
	cfg := testIdP()
	cfg.MinInterval = time.Nanosecond
	calls := 0
	v := newTestVerifier(cfg, func(context.Context, string) (jwk.Set, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("idp unavailable")
		}
		return s.set, nil
	})
	tokenString := s.sign(t, func(b *jwt.Builder) *jwt.Builder { return b.Claim("roles", []string{testRole}) })
	_, err := v.Verify(context.Background(), tokenString)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	// when
	_, err = v.Verify(context.Background(), tokenString)

	// then
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func Test_JWTVerifier_CachesKeys(t *testing.T) {
	// given
	s := newSigner(t)
	calls := 0
	v := newTestVerifier(testIdP(), func(context.Context, string) (jwk.Set, error) {
		calls++
		return s.set, nil
	})
	tokenString := s.sign(t, func(b *jwt.Builder) *jwt.Builder { return b.Claim("roles", []string{testRole}) })

	// when
	for range 3 {
		_, err := v.Verify(context.Background(), tokenString)
		require.NoError(t, err)
	}

	// then
	assert.Equal(t, 1, calls)
}

func Test_JWTVerifier_FirstFetchFails(t *testing.T) {
	// given
	v := newTestVerifier(testIdP(), func(context.Context, string) (jwk.Set, error) {
		return nil, errors.New("connection refused")
	})

	// when
	_, err := v.Verify(context.Background(), "irrelevant")

	// then
	assert.ErrorContains(t, err, "connection refused")
}
