// Package identity wraps the external identity provider (a GoTrue-shaped
// auth API) behind a narrow interface. The provider owns credentials, OTP
// codes and session issuance; this application only keeps a dependent local
// record keyed by the provider-issued id.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// OTPPurpose tags what an OTP redemption is for. The provider shares one
// redemption mechanism across purposes and discriminates on this tag.
type OTPPurpose string

const (
	// PurposeEmail confirms a signup email address.
	PurposeEmail OTPPurpose = "email"
	// PurposeRecovery redeems a password-reset code.
	PurposeRecovery OTPPurpose = "recovery"
)

// Identity is the provider's view of an account.
type Identity struct {
	ID            string
	Email         string
	Name          string
	EmailVerified bool
}

// Session is a provider-issued token pair.
type Session struct {
	AccessToken  string
	RefreshToken string
}

// Provider is the contract the reconciliation service consumes. The concrete
// implementation is the HTTP Client below; tests use identitytest.Fake.
type Provider interface {
	// SignUp creates a credential record with email confirmation pending.
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (Identity, error)

	// SignInWithPassword performs a password grant.
	SignInWithPassword(ctx context.Context, email, password string) (Identity, Session, error)

	// VerifyOTP redeems a one-time code for the given purpose, consuming it.
	VerifyOTP(ctx context.Context, email, code string, purpose OTPPurpose) (Identity, Session, error)

	// ResendSignupOTP asks the provider to resend the verification email.
	ResendSignupOTP(ctx context.Context, email string) error

	// RefreshSession exchanges a refresh token for a new session.
	RefreshSession(ctx context.Context, refreshToken string) (Identity, Session, error)

	// UserFromToken resolves an access token to the owning identity.
	UserFromToken(ctx context.Context, accessToken string) (Identity, error)

	// RequestPasswordRecovery emails a password-reset code.
	RequestPasswordRecovery(ctx context.Context, email string) error

	// UpdatePassword overwrites the password under the authority of the
	// given access token (typically one from a redeemed recovery code).
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error

	// AdminCreateUser creates a passwordless credential record through the
	// privileged API. Used for federated signups.
	AdminCreateUser(ctx context.Context, email string, metadata map[string]any, emailConfirmed bool) (Identity, error)

	// AdminGenerateMagicLink mints a single-use login token for email.
	// The returned value is the hashed exchange token, not a full session.
	AdminGenerateMagicLink(ctx context.Context, email string) (string, error)

	// AdminDeleteIdentity removes a credential record. Best-effort
	// compensation path; callers log failures and move on.
	AdminDeleteIdentity(ctx context.Context, id string) error
}

// APIError is a typed provider error carrying the HTTP status, the provider's
// machine code when present, and a human-readable message.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("identity: %s", e.Message)
}

// IsAlreadyRegistered reports whether the provider rejected a signup because
// the email already has a credential record.
func (e *APIError) IsAlreadyRegistered() bool {
	if e.Code == "user_already_exists" || e.Code == "email_exists" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "already registered")
}

// AsAPIError unwraps err into an *APIError when the provider produced it.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
