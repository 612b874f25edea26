package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const googleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

// ErrInvalidGoogleToken covers every verification failure mode; callers never
// learn which check failed.
var ErrInvalidGoogleToken = errors.New("identity: invalid google token")

// GoogleClaims are the fields this application trusts out of a verified
// Google ID token.
type GoogleClaims struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

// GoogleVerifier validates Google ID tokens against Google's published JWKS.
// The key set is cached and refetched after expiry.
type GoogleVerifier struct {
	audience   string
	certsURL   string
	issuers    []string // empty means the Google defaults
	httpClient *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	refreshAt time.Time
}

// NewGoogleVerifier builds a verifier for ID tokens minted for clientID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		audience:   clientID,
		certsURL:   googleCertsURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewGoogleVerifierForTest builds a verifier against a custom JWKS endpoint
// and accepted issuer set. Only tests use this.
func NewGoogleVerifierForTest(clientID, certsURL string, issuers []string) *GoogleVerifier {
	v := NewGoogleVerifier(clientID)
	v.certsURL = certsURL
	if issuers != nil {
		v.issuers = issuers
	}
	return v
}

type googleIDClaims struct {
	jwt.RegisteredClaims

	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// VerifyIDToken parses and validates an ID token: RS256 signature against the
// JWKS, issuer, audience and expiry. It deliberately maps every failure to
// ErrInvalidGoogleToken.
func (v *GoogleVerifier) VerifyIDToken(ctx context.Context, rawToken string) (GoogleClaims, error) {
	claims := &googleIDClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return v.keyForKID(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return GoogleClaims{}, ErrInvalidGoogleToken
	}

	if !v.acceptedIssuer(claims.Issuer) {
		return GoogleClaims{}, ErrInvalidGoogleToken
	}

	return GoogleClaims{
		Subject:       claims.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		EmailVerified: claims.EmailVerified,
	}, nil
}

var defaultGoogleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

func (v *GoogleVerifier) acceptedIssuer(iss string) bool {
	issuers := v.issuers
	if len(issuers) == 0 {
		issuers = defaultGoogleIssuers
	}
	for _, candidate := range issuers {
		if iss == candidate {
			return true
		}
	}
	return false
}

func (v *GoogleVerifier) keyForKID(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := time.Now().Before(v.refreshAt)
	v.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}

	if err := v.refreshKeys(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok = v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	return key, nil
}

// jwk is the subset of RFC 7517 needed for Google's RSA signing keys.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (v *GoogleVerifier) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return err
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks fetch returned status %d", resp.StatusCode)
	}

	var keySet struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&keySet); err != nil {
		return fmt.Errorf("failed to decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(keySet.Keys))
	for _, k := range keySet.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := rsaKeyFromJWK(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("jwks contained no usable RSA keys")
	}

	v.mu.Lock()
	v.keys = keys
	v.refreshAt = time.Now().Add(time.Hour)
	v.mu.Unlock()
	return nil
}

func rsaKeyFromJWK(k jwk) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}
