package authapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	api "github.com/paybackfitness/authapi/internal/authapi/http"
	"github.com/paybackfitness/authapi/internal/authapi/identity"
	"github.com/paybackfitness/authapi/internal/authapi/identity/identitytest"
	"github.com/paybackfitness/authapi/internal/authapi/service"
	"github.com/paybackfitness/authapi/internal/authapi/store/drivers/gormstore"
	"github.com/paybackfitness/authapi/pkg/slogx"
)

type envelope struct {
	Success bool            `json:"success"`
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type userPayload struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	EmailVerified      bool   `json:"emailVerified"`
	ReferralCode       string `json:"referralCode"`
	PFCoinBalance      string `json:"pfCoinBalance"`
	SubscriptionStatus string `json:"subscriptionStatus"`
}

type sessionPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type testEnv struct {
	server *httptest.Server
	fake   *identitytest.Fake
	auth   *service.AuthService
}

// setupServer runs the full HTTP stack in-process: real router, real
// services, real store, fake identity provider.
func setupServer(t *testing.T) *testEnv {
	t.Helper()

	st, err := gormstore.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate())

	fake := identitytest.NewFake()
	auth := &service.AuthService{Store: st, Provider: fake}
	referral := &service.ReferralService{Store: st}

	logger := slogx.New(slogx.Config{Service: "authapi-e2e", Level: "error"})
	router := api.NewRouter("e2e", st, auth, referral, logger)
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		_ = st.Close()
	})

	return &testEnv{server: server, fake: fake, auth: auth}
}

func (e *testEnv) post(t *testing.T, path string, body any, bearer string) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp.StatusCode, env
}

// signUpAndVerify walks a user through signup and email verification,
// returning the user view and the session from OTP redemption.
func (e *testEnv) signUpAndVerify(t *testing.T, email, password, name string) (userPayload, sessionPayload) {
	t.Helper()

	code, env := e.post(t, "/api/auth/signup", map[string]any{
		"email": email, "password": password, "name": name,
	}, "")
	require.Equal(t, http.StatusCreated, code, "signup failed: %s", env.Message)

	otp := e.fake.PendingOTP(email, identity.PurposeEmail)
	require.NotEmpty(t, otp)

	code, env = e.post(t, "/api/auth/verify-otp", map[string]any{
		"email": email, "token": otp,
	}, "")
	require.Equal(t, http.StatusOK, code, "verify-otp failed: %s", env.Message)

	var data struct {
		User    userPayload    `json:"user"`
		Session sessionPayload `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.User, data.Session
}
