package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paybackfitness/authapi/internal/authapi/domain"
	"github.com/paybackfitness/authapi/internal/authapi/identity"
	"github.com/paybackfitness/authapi/internal/authapi/identity/identitytest"
	"github.com/paybackfitness/authapi/internal/authapi/service"
	"github.com/paybackfitness/authapi/internal/authapi/store"
	"github.com/paybackfitness/authapi/internal/authapi/store/drivers/gormstore"
)

type stubGoogle struct {
	claims identity.GoogleClaims
	err    error
}

func (s stubGoogle) VerifyIDToken(ctx context.Context, rawToken string) (identity.GoogleClaims, error) {
	return s.claims, s.err
}

func newAuthService(t *testing.T) (*service.AuthService, *identitytest.Fake) {
	t.Helper()

	st, err := gormstore.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate())
	t.Cleanup(func() { _ = st.Close() })

	fake := identitytest.NewFake()
	return &service.AuthService{Store: st, Provider: fake}, fake
}

func requireKind(t *testing.T, err error, want service.Kind) {
	t.Helper()
	kind, ok := service.KindOf(err)
	require.True(t, ok, "expected a tagged service error, got %v", err)
	require.Equal(t, want, kind)
}

func TestSignUpCreatesUnverifiedUser(t *testing.T) {
	svc, fake := newAuthService(t)
	ctx := context.Background()

	user, err := svc.SignUp(ctx, "Ann@X.com", "secret1", "Ann", nil)
	require.NoError(t, err)

	require.Equal(t, "ann@x.com", user.Email)
	require.Equal(t, "Ann", user.Name)
	require.False(t, user.EmailVerified)
	require.Equal(t, domain.SubscriptionFree, user.SubscriptionStatus)
	require.Len(t, user.ReferralCode, 8)
	require.True(t, fake.Has("ann@x.com"))

	stored, err := svc.Store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, stored.ID)
}

func TestSignUpDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ann@x.com", "secret1", "Ann", nil)
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, "ANN@x.com", "other99", "Annie", nil)
	requireKind(t, err, service.KindConflict)
	require.EqualError(t, err, "User already exists with this email")
}

func TestSignUpProviderConflictMapsToConflict(t *testing.T) {
	svc, fake := newAuthService(t)
	ctx := context.Background()

	// Credential exists in the provider but there is no local row.
	_, err := fake.AdminCreateUser(ctx, "ann@x.com", nil, false)
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, "ann@x.com", "secret1", "Ann", nil)
	requireKind(t, err, service.KindConflict)
}

func TestSignUpSeededReferrerCreatesEdge(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	referrer, err := svc.SignUp(ctx, "ref@x.com", "secret1", "Ref", nil)
	require.NoError(t, err)

	user, err := svc.SignUp(ctx, "ann@x.com", "secret1", "Ann", &referrer.ID)
	require.NoError(t, err)
	require.NotNil(t, user.ReferredByUserID)
	require.Equal(t, referrer.ID, *user.ReferredByUserID)

	_, err = svc.Store.Referrals().GetByPair(ctx, referrer.ID, user.ID)
	require.NoError(t, err)
}

// txFailStore delegates reads but fails every transaction, simulating the
// local store going down between provider create and local create.
type txFailStore struct {
	store.Store
}

func (s txFailStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return errors.New("disk I/O error")
}

func TestSignUpCompensatesProviderOnLocalFailure(t *testing.T) {
	svc, fake := newAuthService(t)
	ctx := context.Background()

	healthy := svc.Store
	svc.Store = txFailStore{healthy}

	_, err := svc.SignUp(ctx, "ann@x.com", "secret1", "Ann", nil)
	requireKind(t, err, service.KindBadRequest)
	require.EqualError(t, err, "Failed to create account")

	// The orphaned credential was cleaned up, so the email can retry once
	// the store recovers.
	require.False(t, fake.Has("ann@x.com"))
	svc.Store = healthy
	_, err = svc.SignUp(ctx, "ann@x.com", "secret1", "Ann", nil)
	require.NoError(t, err)
}

func TestSignInLifecycle(t *testing.T) {
	svc, fake := newAuthService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "A@x.com", "secret1", "Ann", nil)
	require.NoError(t, err)

	// Unverified accounts cannot sign in even with correct credentials.
	_, _, err = svc.SignIn(ctx, "a@x.com", "secret1")
	requireKind(t, err, service.KindUnauthorized)
	require.EqualError(t, err, "Your email is not verified")

	// Verify via OTP; a session is issued alongside.
	code := fake.PendingOTP("a@x.com", identity.PurposeEmail)
	require.NotEmpty(t, code)

	user, sess, err := svc.VerifyOTP(ctx, "a@X.com", code)
	require.NoError(t, err)
	require.True(t, user.EmailVerified)
	require.NotEmpty(t, sess.AccessToken)
	require.NotEmpty(t, sess.RefreshToken)

	// Now sign-in succeeds, case-insensitively.
	user, sess, err = svc.SignIn(ctx, "A@X.COM", "secret1")
	require.NoError(t, err)
	require.True(t, user.EmailVerified)
	require.NotEmpty(t, sess.AccessToken)
}

func TestSignInWrongPassword(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ann@x.com", "secret1", "Ann", nil)
	require.NoError(t, err)

	_, _, err = svc.SignIn(ctx, "ann@x.com", "wrong")
	requireKind(t, err, service.KindUnauthorized)
	require.EqualError(t, err, "Invalid credentials")
}

func TestSignInUnknownEmail(t *testing.T) {
	svc, _ := newAuthService(t)

	_, _, err := svc.SignIn(context.Background(), "ghost@x.com", "secret1")
	requireKind(t, err, service.KindUnauthorized)
	require.EqualError(t, err, "Invalid credentials")
}

func TestSignInProviderWithoutLocalRow(t *testing.T) {
	svc, fake := newAuthService(t)
	ctx := context.Background()

	// Provider credential with a password but no local counterpart.
	_, err := fake.SignUp(ctx, "ann@x.com", "secret1", nil)
	require.NoError(t, err)

	_, _, err = svc.SignIn(ctx, "ann@x.com", "secret1")
	requireKind(t, err, service.KindUnauthorized)
	require.EqualError(t, err, "User not found in database")
}

func TestVerifyOTPInvalidCode(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ann@x.com", "secret1", "Ann", nil)
	require.NoError(t, err)

	_, _, err = svc.VerifyOTP(ctx, "ann@x.com", "000000")
	requireKind(t, err, service.KindBadRequest)
}

func TestVerifyOTPAlreadyVerified(t *testing.T) {
	svc, fake := newAuthService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ann@x.com", "secret1", "Ann", nil)
	require.NoError(t, err)

	code := fake.PendingOTP("ann@x.com", identity.PurposeEmail)
	_, _, err = svc.VerifyOTP(ctx, "ann@x.com", code)
	require.NoError(t, err)

	// A second redemption is dead both ways: the provider consumed the
	// code, and a fresh one still hits the verified-state conflict.
	_, _, err = svc.VerifyOTP(ctx, "ann@x.com", code)
	requireKind(t, err, service.KindBadRequest)

	require.NoError(t, fake.ResendSignupOTP(ctx, "ann@x.com"))
	fresh := fake.PendingOTP("ann@x.com", identity.PurposeEmail)
	_, _, err = svc.VerifyOTP(ctx, "ann@x.com", fresh)
	requireKind(t, err, service.KindConflict)
	require.EqualError(t, err, "Email already verified")
}

func TestResendOTP(t *testing.T) {
	svc, fake := newAuthService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ann@x.com", "secret1", "Ann", nil)
	require.NoError(t, err)
	first := fake.PendingOTP("ann@x.com", identity.PurposeEmail)

	require.NoError(t, svc.ResendOTP(ctx, "Ann@X.com"))
	second := fake.PendingOTP("ann@x.com", identity.PurposeEmail)
	require.NotEqual(t, first, second)

	err = svc.ResendOTP(ctx, "ghost@x.com")
	requireKind(t, err, service.KindBadRequest)
}

func TestRefreshTokenRotatesSession(t *testing.T) {
	svc, fake := newAuthService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ann@x.com", "secret1", "Ann", nil)
	require.NoError(t, err)
	code := fake.PendingOTP("ann@x.com", identity.PurposeEmail)
	_, sess, err := svc.VerifyOTP(ctx, "ann@x.com", code)
	require.NoError(t, err)

	next, err := svc.RefreshToken(ctx, sess.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, sess.AccessToken, next.AccessToken)
	require.NotEqual(t, sess.RefreshToken, next.RefreshToken)

	// The old refresh token was consumed by rotation.
	_, err = svc.RefreshToken(ctx, sess.RefreshToken)
	requireKind(t, err, service.KindUnauthorized)
}

func TestRefreshTokenDoesNotRequireVerification(t *testing.T) {
	svc, fake := newAuthService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ann@x.com", "secret1", "Ann", nil)
	require.NoError(t, err)

	// The fake grants password sessions regardless of verification, which
	// stands in for a recovery session here.
	_, sess, err := fake.SignInWithPassword(ctx, "ann@x.com", "secret1")
	require.NoError(t, err)

	_, err = svc.RefreshToken(ctx, sess.RefreshToken)
	require.NoError(t, err)
}

func TestForgotPasswordFlow(t *testing.T) {
	svc, fake := newAuthService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ann@x.com", "secret1", "Ann", nil)
	require.NoError(t, err)
	code := fake.PendingOTP("ann@x.com", identity.PurposeEmail)
	_, _, err = svc.VerifyOTP(ctx, "ann@x.com", code)
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "Ann@X.com"))
	reset := fake.PendingOTP("ann@x.com", identity.PurposeRecovery)
	require.NotEmpty(t, reset)

	sess, err := svc.VerifyForgotPasswordOTP(ctx, "ann@x.com", reset)
	require.NoError(t, err)
	require.NotEmpty(t, sess.AccessToken)

	require.NoError(t, svc.SetNewPassword(ctx, sess.AccessToken, "newpass1"))

	_, _, err = svc.SignIn(ctx, "ann@x.com", "secret1")
	requireKind(t, err, service.KindUnauthorized)

	_, _, err = svc.SignIn(ctx, "ann@x.com", "newpass1")
	require.NoError(t, err)
}

func TestVerifyForgotPasswordOTPBadCode(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ann@x.com", "secret1", "Ann", nil)
	require.NoError(t, err)

	_, err = svc.VerifyForgotPasswordOTP(ctx, "ann@x.com", "000000")
	requireKind(t, err, service.KindBadRequest)
}

func TestValidateToken(t *testing.T) {
	svc, fake := newAuthService(t)
	ctx := context.Background()

	signedUp, err := svc.SignUp(ctx, "ann@x.com", "secret1", "Ann", nil)
	require.NoError(t, err)

	token, err := fake.MintAccessToken("ann@x.com")
	require.NoError(t, err)

	user, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, signedUp.ID, user.ID)

	_, err = svc.ValidateToken(ctx, "garbage")
	requireKind(t, err, service.KindUnauthorized)
}

func TestValidateTokenWithoutLocalRow(t *testing.T) {
	svc, fake := newAuthService(t)
	ctx := context.Background()

	_, err := fake.SignUp(ctx, "ann@x.com", "secret1", nil)
	require.NoError(t, err)
	token, err := fake.MintAccessToken("ann@x.com")
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, token)
	requireKind(t, err, service.KindUnauthorized)
	require.EqualError(t, err, "User not found")
}

func TestGoogleAuthCreatesThenReuses(t *testing.T) {
	svc, fake := newAuthService(t)
	ctx := context.Background()

	svc.Google = stubGoogle{claims: identity.GoogleClaims{
		Subject:       "google-sub-1",
		Email:         "Ann@X.com",
		Name:          "Ann",
		EmailVerified: true,
	}}

	user, sess, err := svc.GoogleAuth(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, "ann@x.com", user.Email)
	require.True(t, user.EmailVerified)
	require.NotEmpty(t, sess.AccessToken)
	require.Empty(t, sess.RefreshToken)
	require.True(t, fake.Has("ann@x.com"))

	// Second login is idempotent.
	again, _, err := svc.GoogleAuth(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, user.ID, again.ID)

	// The magic-link token resolves through the guard primitive.
	resolved, err := svc.ValidateToken(ctx, sess.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved.ID)
}

func TestGoogleAuthRejectsBadToken(t *testing.T) {
	svc, _ := newAuthService(t)

	svc.Google = stubGoogle{err: errors.New("bad signature")}
	_, _, err := svc.GoogleAuth(context.Background(), "token")
	requireKind(t, err, service.KindUnauthorized)
	require.EqualError(t, err, "Invalid Google token")
}

func TestGoogleAuthRejectsUnverifiedEmail(t *testing.T) {
	svc, _ := newAuthService(t)

	svc.Google = stubGoogle{claims: identity.GoogleClaims{
		Subject: "sub", Email: "ann@x.com", EmailVerified: false,
	}}
	_, _, err := svc.GoogleAuth(context.Background(), "token")
	requireKind(t, err, service.KindUnauthorized)
	require.EqualError(t, err, "Email is required and must be verified")
}

func TestGoogleAuthDefaultsMissingName(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	svc.Google = stubGoogle{claims: identity.GoogleClaims{
		Subject: "sub", Email: "ann@x.com", EmailVerified: true,
	}}
	user, _, err := svc.GoogleAuth(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, "Google User", user.Name)
}
