// Package identitytest provides an in-memory identity.Provider for tests.
// It mimics the provider's observable behavior: argon2id password storage,
// consumable OTP codes per purpose, rotating refresh tokens and purgeable
// credential records.
package identitytest

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/paybackfitness/authapi/internal/authapi/identity"
	"github.com/paybackfitness/authapi/pkg/cryptox"
)

type account struct {
	id           string
	email        string
	name         string
	passwordHash string
	confirmed    bool
}

// Fake is a threadsafe in-memory identity provider.
type Fake struct {
	mu sync.Mutex

	accounts map[string]*account // keyed by email
	otps     map[string]string   // email+":"+purpose -> code
	access   map[string]string   // access token -> account id
	refresh  map[string]string   // refresh token -> account id

	otpSeq int
}

func NewFake() *Fake {
	return &Fake{
		accounts: make(map[string]*account),
		otps:     make(map[string]string),
		access:   make(map[string]string),
		refresh:  make(map[string]string),
	}
}

func apiErr(status int, code, msg string) *identity.APIError {
	return &identity.APIError{StatusCode: status, Code: code, Message: msg}
}

func (f *Fake) SignUp(ctx context.Context, email, password string, metadata map[string]any) (identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.accounts[email]; exists {
		return identity.Identity{}, apiErr(http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return identity.Identity{}, err
	}

	name, _ := metadata["name"].(string)
	acct := &account{
		id:           uuid.New().String(),
		email:        email,
		name:         name,
		passwordHash: hash,
	}
	f.accounts[email] = acct
	f.issueOTPLocked(email, identity.PurposeEmail)

	return f.identityLocked(acct), nil
}

func (f *Fake) SignInWithPassword(ctx context.Context, email, password string) (identity.Identity, identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	acct, ok := f.accounts[email]
	if !ok || acct.passwordHash == "" {
		return identity.Identity{}, identity.Session{}, apiErr(http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
	}
	if err := cryptox.VerifyPassword(password, acct.passwordHash); err != nil {
		return identity.Identity{}, identity.Session{}, apiErr(http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
	}

	return f.identityLocked(acct), f.mintSessionLocked(acct.id), nil
}

func (f *Fake) VerifyOTP(ctx context.Context, email, code string, purpose identity.OTPPurpose) (identity.Identity, identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := otpKey(email, purpose)
	want, ok := f.otps[key]
	if !ok || want != code {
		return identity.Identity{}, identity.Session{}, apiErr(http.StatusForbidden, "otp_expired", "Token has expired or is invalid")
	}
	delete(f.otps, key)

	acct := f.accounts[email]
	if acct == nil {
		return identity.Identity{}, identity.Session{}, apiErr(http.StatusForbidden, "otp_expired", "Token has expired or is invalid")
	}
	if purpose == identity.PurposeEmail {
		acct.confirmed = true
	}

	return f.identityLocked(acct), f.mintSessionLocked(acct.id), nil
}

func (f *Fake) ResendSignupOTP(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.accounts[email]; !ok {
		return apiErr(http.StatusBadRequest, "user_not_found", "User not found")
	}
	f.issueOTPLocked(email, identity.PurposeEmail)
	return nil
}

func (f *Fake) RefreshSession(ctx context.Context, refreshToken string) (identity.Identity, identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.refresh[refreshToken]
	if !ok {
		return identity.Identity{}, identity.Session{}, apiErr(http.StatusBadRequest, "refresh_token_not_found", "Invalid Refresh Token")
	}
	delete(f.refresh, refreshToken)

	acct := f.accountByIDLocked(id)
	if acct == nil {
		return identity.Identity{}, identity.Session{}, apiErr(http.StatusBadRequest, "refresh_token_not_found", "Invalid Refresh Token")
	}
	return f.identityLocked(acct), f.mintSessionLocked(acct.id), nil
}

func (f *Fake) UserFromToken(ctx context.Context, accessToken string) (identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.access[accessToken]
	if !ok {
		return identity.Identity{}, apiErr(http.StatusUnauthorized, "bad_jwt", "invalid JWT")
	}
	acct := f.accountByIDLocked(id)
	if acct == nil {
		return identity.Identity{}, apiErr(http.StatusUnauthorized, "bad_jwt", "invalid JWT")
	}
	return f.identityLocked(acct), nil
}

func (f *Fake) RequestPasswordRecovery(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.accounts[email]; !ok {
		return apiErr(http.StatusBadRequest, "user_not_found", "User not found")
	}
	f.issueOTPLocked(email, identity.PurposeRecovery)
	return nil
}

func (f *Fake) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.access[accessToken]
	if !ok {
		return apiErr(http.StatusUnauthorized, "bad_jwt", "invalid JWT")
	}
	acct := f.accountByIDLocked(id)
	if acct == nil {
		return apiErr(http.StatusUnauthorized, "bad_jwt", "invalid JWT")
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	acct.passwordHash = hash
	return nil
}

func (f *Fake) AdminCreateUser(ctx context.Context, email string, metadata map[string]any, emailConfirmed bool) (identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.accounts[email]; exists {
		return identity.Identity{}, apiErr(http.StatusUnprocessableEntity, "email_exists", "Email address already registered")
	}

	name, _ := metadata["name"].(string)
	acct := &account{
		id:        uuid.New().String(),
		email:     email,
		name:      name,
		confirmed: emailConfirmed,
	}
	f.accounts[email] = acct
	return f.identityLocked(acct), nil
}

func (f *Fake) AdminGenerateMagicLink(ctx context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	acct, ok := f.accounts[email]
	if !ok {
		return "", apiErr(http.StatusBadRequest, "user_not_found", "User not found")
	}

	// The hashed single-use token doubles as a short-lived access token, the
	// same way the provider's verify endpoint would redeem it.
	token := cryptox.FingerprintToken(cryptox.MustGenerateToken(cryptox.TokenSize128))
	f.access[token] = acct.id
	return token, nil
}

func (f *Fake) AdminDeleteIdentity(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for email, acct := range f.accounts {
		if acct.id == id {
			delete(f.accounts, email)
			return nil
		}
	}
	return apiErr(http.StatusNotFound, "user_not_found", "User not found")
}

// Test helpers.

// PendingOTP returns the current code for email and purpose, or "".
func (f *Fake) PendingOTP(email string, purpose identity.OTPPurpose) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.otps[otpKey(email, purpose)]
}

// Has reports whether a credential record exists for email.
func (f *Fake) Has(email string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.accounts[email]
	return ok
}

// MintAccessToken creates a valid access token for an existing account,
// bypassing the sign-in flow. Guard tests use this.
func (f *Fake) MintAccessToken(email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	acct, ok := f.accounts[email]
	if !ok {
		return "", fmt.Errorf("identitytest: no account for %s", email)
	}
	return f.mintSessionLocked(acct.id).AccessToken, nil
}

func (f *Fake) identityLocked(acct *account) identity.Identity {
	return identity.Identity{
		ID:            acct.id,
		Email:         acct.email,
		Name:          acct.name,
		EmailVerified: acct.confirmed,
	}
}

func (f *Fake) accountByIDLocked(id string) *account {
	for _, acct := range f.accounts {
		if acct.id == id {
			return acct
		}
	}
	return nil
}

func (f *Fake) mintSessionLocked(accountID string) identity.Session {
	session := identity.Session{
		AccessToken:  cryptox.MustGenerateToken(cryptox.TokenSize256),
		RefreshToken: cryptox.MustGenerateToken(cryptox.TokenSize256),
	}
	f.access[session.AccessToken] = accountID
	f.refresh[session.RefreshToken] = accountID
	return session
}

func (f *Fake) issueOTPLocked(email string, purpose identity.OTPPurpose) {
	f.otpSeq++
	f.otps[otpKey(email, purpose)] = fmt.Sprintf("%06d", f.otpSeq)
}

func otpKey(email string, purpose identity.OTPPurpose) string {
	return email + ":" + string(purpose)
}
