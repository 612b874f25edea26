package authapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReferralClaimFlow(t *testing.T) {
	e := setupServer(t)

	referrer, _ := e.signUpAndVerify(t, "ref@example.com", "secret1", "Ref")
	_, claimerSession := e.signUpAndVerify(t, "claimer@example.com", "secret1", "Claimer")

	// Guarded route: no token, no entry.
	code, _ := e.post(t, "/api/referral/claim", map[string]any{
		"referralCode": referrer.ReferralCode,
	}, "")
	require.Equal(t, http.StatusUnauthorized, code)

	code, env := e.post(t, "/api/referral/claim", map[string]any{
		"referralCode": referrer.ReferralCode,
	}, claimerSession.AccessToken)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Referral code claimed successfully", env.Message)

	// Claiming twice is refused, with any code.
	code, env = e.post(t, "/api/referral/claim", map[string]any{
		"referralCode": referrer.ReferralCode,
	}, claimerSession.AccessToken)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "You have already claimed a referral code", env.Message)
}

func TestReferralClaimRejectsSelfAndUnknown(t *testing.T) {
	e := setupServer(t)

	user, session := e.signUpAndVerify(t, "ann@example.com", "secret1", "Ann")

	code, env := e.post(t, "/api/referral/claim", map[string]any{
		"referralCode": user.ReferralCode,
	}, session.AccessToken)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "You cannot use your own referral code", env.Message)

	code, env = e.post(t, "/api/referral/claim", map[string]any{
		"referralCode": "ZZZZ9999",
	}, session.AccessToken)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Invalid referral code", env.Message)
}
