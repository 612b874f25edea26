package service

import (
	"context"
	"errors"
	"log/slog"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/paybackfitness/authapi/internal/authapi/domain"
	"github.com/paybackfitness/authapi/internal/authapi/identity"
	"github.com/paybackfitness/authapi/internal/authapi/store"
	"github.com/paybackfitness/authapi/pkg/idx"
	"github.com/paybackfitness/authapi/pkg/slogx"
)

// referralCodeAlphabet avoids lowercase so codes survive being read aloud
// or typed from a screenshot.
const (
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referralCodeLength   = 8
)

// GoogleTokenVerifier checks a Google-issued ID token and returns its
// claims. Satisfied by identity.GoogleVerifier.
type GoogleTokenVerifier interface {
	VerifyIDToken(ctx context.Context, rawToken string) (identity.GoogleClaims, error)
}

// AuthService reconciles two records of the same user: the credential held
// by the identity provider and the application row in the local store. The
// provider-issued id is the source of truth; the local row is a dependent
// read-model keyed by it.
type AuthService struct {
	Store    store.Store
	Provider identity.Provider
	Google   GoogleTokenVerifier
}

// SignUp creates a provider credential and the matching local user row.
// No session is returned: the email must be verified via OTP first.
func (s *AuthService) SignUp(ctx context.Context, email, password, name string, referredByUserID *string) (domain.User, error) {
	log := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)

	// 1. Reject duplicates locally before touching the provider.
	_, err := s.Store.Users().GetByEmail(ctx, email)
	if err == nil {
		return domain.User{}, Conflict("User already exists with this email")
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to check for existing user", slog.Any("error", err))
		return domain.User{}, err
	}

	// 2. Create the credential record in the provider.
	ident, err := s.Provider.SignUp(ctx, email, password, map[string]any{"name": name})
	if err != nil {
		if apiErr, ok := identity.AsAPIError(err); ok {
			if apiErr.IsAlreadyRegistered() {
				return domain.User{}, Conflict("User already exists with this email")
			}
			return domain.User{}, BadRequest(apiErr.Message)
		}
		log.Error("provider signup failed", slog.Any("error", err))
		return domain.User{}, BadRequest("Failed to create user")
	}

	code, err := newReferralCode()
	if err != nil {
		log.Error("failed to generate referral code", slog.Any("error", err))
		return domain.User{}, s.compensateSignUp(ctx, ident.ID, err)
	}

	user := domain.User{
		ID:                 ident.ID,
		Email:              email,
		Name:               name,
		EmailVerified:      false,
		ReferralCode:       code,
		ReferredByUserID:   referredByUserID,
		SubscriptionStatus: domain.SubscriptionFree,
	}

	// 3. Create the local row keyed by the provider id, plus the referral
	// edge when one was seeded. Both commit together.
	err = s.Store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		if referredByUserID != nil {
			edge := domain.Referral{
				ID:             idx.New().String(),
				ReferrerUserID: *referredByUserID,
				ReferredUserID: user.ID,
			}
			if err := tx.Referrals().Create(ctx, edge); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to create user record",
			slog.String("provider_id", ident.ID),
			slog.Any("error", err),
		)
		return domain.User{}, s.compensateSignUp(ctx, ident.ID, err)
	}

	return user, nil
}

// compensateSignUp best-effort deletes a provider credential whose local
// counterpart could not be written, so the email is not permanently
// blocked. The primary error is returned, never the deletion's.
func (s *AuthService) compensateSignUp(ctx context.Context, providerID string, primary error) error {
	log := slogx.FromContext(ctx)

	if err := s.Provider.AdminDeleteIdentity(ctx, providerID); err != nil {
		log.Warn("failed to delete orphaned provider credential",
			slog.String("provider_id", providerID),
			slog.Any("error", err),
		)
	}

	var svcErr *Error
	if errors.As(primary, &svcErr) {
		return svcErr
	}
	return BadRequest("Failed to create account")
}

// SignIn exchanges credentials for a session. The local row must exist and
// be email-verified.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (domain.User, domain.Session, error) {
	log := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)

	// 1. Delegate the credential check. Provider detail is not leaked.
	ident, sess, err := s.Provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return domain.User{}, domain.Session{}, Unauthorized("Invalid credentials")
	}

	// 2. The provider knowing the user is not enough: the local row is the
	// application's view and may be missing after a partial signup.
	user, err := s.Store.Users().GetByID(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("provider identity has no local user",
				slog.String("provider_id", ident.ID),
			)
			return domain.User{}, domain.Session{}, Unauthorized("User not found in database")
		}
		return domain.User{}, domain.Session{}, err
	}

	// 3. Unverified accounts cannot sign in.
	if !user.EmailVerified {
		return domain.User{}, domain.Session{}, Unauthorized("Your email is not verified")
	}

	return user, domain.Session(sess), nil
}

// GoogleAuth signs a user in with a Google ID token, creating the provider
// credential and local row on first contact. The returned session carries
// only an access token: the magic-link channel produces no refresh half.
func (s *AuthService) GoogleAuth(ctx context.Context, idToken string) (domain.User, domain.Session, error) {
	log := slogx.FromContext(ctx)

	// 1. Verify the token cryptographically against Google's keys. With no
	// verifier configured every token is rejected.
	if s.Google == nil {
		return domain.User{}, domain.Session{}, Unauthorized("Invalid Google token")
	}
	claims, err := s.Google.VerifyIDToken(ctx, idToken)
	if err != nil {
		return domain.User{}, domain.Session{}, Unauthorized("Invalid Google token")
	}

	// 2. An unverified upstream email must never mint a trusted account.
	if claims.Email == "" || !claims.EmailVerified {
		return domain.User{}, domain.Session{}, Unauthorized("Email is required and must be verified")
	}

	email := domain.NormalizeEmail(claims.Email)
	name := claims.Name
	if name == "" {
		name = "Google User"
	}

	// 3. Find or create. Existing users log in without mutation.
	user, err := s.Store.Users().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		user, err = s.createGoogleUser(ctx, email, name)
		if err != nil {
			return domain.User{}, domain.Session{}, err
		}
	} else if err != nil {
		log.Error("failed to look up user", slog.Any("error", err))
		return domain.User{}, domain.Session{}, err
	}

	// 4. Federated login has no password grant, so a session comes from the
	// admin magic-link side-channel: its hashed token is a one-time access
	// credential with no refresh token.
	token, err := s.Provider.AdminGenerateMagicLink(ctx, email)
	if err != nil {
		log.Error("failed to generate magic link", slog.Any("error", err))
		return domain.User{}, domain.Session{}, BadRequest("Failed to sign in with Google")
	}

	return user, domain.Session{AccessToken: token}, nil
}

func (s *AuthService) createGoogleUser(ctx context.Context, email, name string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// Passwordless admin creation: Google users authenticate federated only.
	ident, err := s.Provider.AdminCreateUser(ctx, email,
		map[string]any{"name": name, "provider": "google"}, true)
	if err != nil {
		log.Error("provider admin create failed", slog.Any("error", err))
		return domain.User{}, BadRequest("Failed to create account")
	}

	code, err := newReferralCode()
	if err != nil {
		log.Error("failed to generate referral code", slog.Any("error", err))
		return domain.User{}, s.compensateSignUp(ctx, ident.ID, err)
	}

	user := domain.User{
		ID:                 ident.ID,
		Email:              email,
		Name:               name,
		EmailVerified:      true,
		ReferralCode:       code,
		SubscriptionStatus: domain.SubscriptionFree,
	}
	if err := s.Store.Users().Create(ctx, user); err != nil {
		log.Error("failed to create user record",
			slog.String("provider_id", ident.ID),
			slog.Any("error", err),
		)
		return domain.User{}, s.compensateSignUp(ctx, ident.ID, err)
	}

	return user, nil
}

// VerifyOTP redeems an email-confirmation code and flips the local
// verified flag. The code is single-use against state: an already-verified
// user gets a Conflict even if the provider would accept the code again.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (domain.User, domain.Session, error) {
	log := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)

	// 1. Redeem against the provider. This consumes the code.
	ident, sess, err := s.Provider.VerifyOTP(ctx, email, code, identity.PurposeEmail)
	if err != nil {
		if apiErr, ok := identity.AsAPIError(err); ok && apiErr.Message != "" {
			return domain.User{}, domain.Session{}, BadRequest(apiErr.Message)
		}
		return domain.User{}, domain.Session{}, BadRequest("Invalid or expired OTP code")
	}

	// 2. The local row must exist and must not already be verified.
	user, err := s.Store.Users().GetByID(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.Session{}, Unauthorized("User not found in database")
		}
		return domain.User{}, domain.Session{}, err
	}
	if user.EmailVerified {
		return domain.User{}, domain.Session{}, Conflict("Email already verified")
	}

	// 3. Flip the flag and return the refreshed row.
	user, err = s.Store.Users().SetEmailVerified(ctx, user.ID)
	if err != nil {
		log.Error("failed to mark email verified",
			slog.String("user_id", ident.ID),
			slog.Any("error", err),
		)
		return domain.User{}, domain.Session{}, err
	}

	return user, domain.Session(sess), nil
}

// ResendOTP asks the provider to send a fresh verification code.
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)

	if err := s.Provider.ResendSignupOTP(ctx, email); err != nil {
		if apiErr, ok := identity.AsAPIError(err); ok && apiErr.Message != "" {
			return BadRequest(apiErr.Message)
		}
		return BadRequest("Failed to resend OTP")
	}
	return nil
}

// RefreshToken exchanges a refresh token for a new session pair. The local
// user must still exist but need not be verified: a user mid-verification
// may still refresh.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (domain.Session, error) {
	ident, sess, err := s.Provider.RefreshSession(ctx, refreshToken)
	if err != nil {
		return domain.Session{}, Unauthorized("Failed to refresh token")
	}

	if _, err := s.Store.Users().GetByID(ctx, ident.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, Unauthorized("User not found in database")
		}
		return domain.Session{}, err
	}

	return domain.Session(sess), nil
}

// ForgotPassword requests a password-reset code for the address.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)

	if err := s.Provider.RequestPasswordRecovery(ctx, email); err != nil {
		if apiErr, ok := identity.AsAPIError(err); ok && apiErr.Message != "" {
			return BadRequest(apiErr.Message)
		}
		return BadRequest("Failed to send reset OTP")
	}
	return nil
}

// VerifyForgotPasswordOTP redeems a recovery code for a short-lived
// session. The session's authority is what SetNewPassword acts under.
func (s *AuthService) VerifyForgotPasswordOTP(ctx context.Context, email, code string) (domain.Session, error) {
	email = domain.NormalizeEmail(email)

	_, sess, err := s.Provider.VerifyOTP(ctx, email, code, identity.PurposeRecovery)
	if err != nil {
		if apiErr, ok := identity.AsAPIError(err); ok && apiErr.Message != "" {
			return domain.Session{}, BadRequest(apiErr.Message)
		}
		return domain.Session{}, BadRequest("Invalid reset OTP")
	}

	return domain.Session(sess), nil
}

// SetNewPassword overwrites the password under the authority of the access
// token from the recovery session.
func (s *AuthService) SetNewPassword(ctx context.Context, accessToken, newPassword string) error {
	if err := s.Provider.UpdatePassword(ctx, accessToken, newPassword); err != nil {
		if apiErr, ok := identity.AsAPIError(err); ok && apiErr.Message != "" {
			return BadRequest(apiErr.Message)
		}
		return BadRequest("Failed to update password")
	}
	return nil
}

// ValidateToken resolves an access token to the local user. This is the
// primitive behind the bearer guard; every failure collapses to an
// undifferentiated Unauthorized.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (domain.User, error) {
	ident, err := s.Provider.UserFromToken(ctx, token)
	if err != nil {
		return domain.User{}, Unauthorized("Invalid token")
	}

	user, err := s.Store.Users().GetByID(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, Unauthorized("User not found")
		}
		return domain.User{}, err
	}

	return user, nil
}

func newReferralCode() (string, error) {
	return gonanoid.Generate(referralCodeAlphabet, referralCodeLength)
}
