package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "client-id.apps.googleusercontent.com"
	testIssuer   = "https://accounts.google.com"
	testKID      = "test-kid"
)

type googleTestEnv struct {
	verifier *GoogleVerifier
	key      *rsa.PrivateKey
}

func newGoogleTestEnv(t *testing.T) googleTestEnv {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": testKID,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(srv.Close)

	return googleTestEnv{
		verifier: NewGoogleVerifierForTest(testClientID, srv.URL, nil),
		key:      key,
	}
}

func (e googleTestEnv) signToken(t *testing.T, claims jwt.MapClaims, kid string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(e.key)
	require.NoError(t, err)
	return signed
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            testIssuer,
		"aud":            testClientID,
		"sub":            "google-sub-1",
		"email":          "ann@x.com",
		"email_verified": true,
		"name":           "Ann",
		"exp":            time.Now().Add(time.Hour).Unix(),
		"iat":            time.Now().Unix(),
	}
}

func TestVerifyIDToken(t *testing.T) {
	env := newGoogleTestEnv(t)

	raw := env.signToken(t, baseClaims(), testKID)
	claims, err := env.verifier.VerifyIDToken(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, "ann@x.com", claims.Email)
	require.Equal(t, "Ann", claims.Name)
	require.Equal(t, "google-sub-1", claims.Subject)
	require.True(t, claims.EmailVerified)
}

func TestVerifyIDTokenRejectsWrongAudience(t *testing.T) {
	env := newGoogleTestEnv(t)

	c := baseClaims()
	c["aud"] = "some-other-client"
	_, err := env.verifier.VerifyIDToken(context.Background(), env.signToken(t, c, testKID))
	require.ErrorIs(t, err, ErrInvalidGoogleToken)
}

func TestVerifyIDTokenRejectsWrongIssuer(t *testing.T) {
	env := newGoogleTestEnv(t)

	c := baseClaims()
	c["iss"] = "https://evil.example"
	_, err := env.verifier.VerifyIDToken(context.Background(), env.signToken(t, c, testKID))
	require.ErrorIs(t, err, ErrInvalidGoogleToken)
}

func TestVerifyIDTokenRejectsExpired(t *testing.T) {
	env := newGoogleTestEnv(t)

	c := baseClaims()
	c["exp"] = time.Now().Add(-time.Minute).Unix()
	_, err := env.verifier.VerifyIDToken(context.Background(), env.signToken(t, c, testKID))
	require.ErrorIs(t, err, ErrInvalidGoogleToken)
}

func TestVerifyIDTokenRejectsUnknownKID(t *testing.T) {
	env := newGoogleTestEnv(t)

	_, err := env.verifier.VerifyIDToken(context.Background(), env.signToken(t, baseClaims(), "other-kid"))
	require.ErrorIs(t, err, ErrInvalidGoogleToken)
}

func TestVerifyIDTokenRejectsGarbage(t *testing.T) {
	env := newGoogleTestEnv(t)

	_, err := env.verifier.VerifyIDToken(context.Background(), "not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidGoogleToken)
}
