package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitByIPBlocksAfterBurst(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	h := Chain(okHandler(), RateLimitByIP(cfg))

	for i := range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", nil)
		req.RemoteAddr = "198.51.100.7:4455"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if i < 2 {
			require.Equal(t, http.StatusOK, rec.Code)
		} else {
			require.Equal(t, http.StatusTooManyRequests, rec.Code)
			require.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
}

func TestRateLimitKeysAreIndependent(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	h := Chain(okHandler(), RateLimitByIP(cfg))

	first := httptest.NewRequest(http.MethodPost, "/", nil)
	first.RemoteAddr = "203.0.113.1:1000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	other := httptest.NewRequest(http.MethodPost, "/", nil)
	other.RemoteAddr = "203.0.113.2:1000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestIPKeyExtractorPrefersForwardedFor(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "192.0.2.44, 10.0.0.1")
	require.Equal(t, "192.0.2.44", IPKeyExtractor(req))

	req.Header.Del("X-Forwarded-For")
	require.Equal(t, "10.0.0.1", IPKeyExtractor(req))
}

func TestRateLimitByUserFallsBackToIP(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	h := Chain(okHandler(), RateLimitByUser(cfg))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "203.0.113.9:1000"
	req = req.WithContext(ContextWithUserID(req.Context(), "user-a"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestJSONFieldKeyExtractorPeeksWithoutConsuming(t *testing.T) {
	t.Parallel()

	extract := JSONFieldKeyExtractor("email")

	req := httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"email": " Ann@X.com ", "password": "secret1"}`))
	require.Equal(t, "ann@x.com", extract(req))

	// The handler must still be able to decode the body afterwards.
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
	require.Equal(t, " Ann@X.com ", body.Email)
	require.Equal(t, "secret1", body.Password)
}

func TestJSONFieldKeyExtractorEmptyOnBadInput(t *testing.T) {
	t.Parallel()

	extract := JSONFieldKeyExtractor("email")

	cases := []struct {
		name string
		body string
	}{
		{"not json", "email=ann@x.com"},
		{"field missing", `{"password": "secret1"}`},
		{"field not a string", `{"email": 42}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			require.Empty(t, extract(req))
		})
	}

	require.Empty(t, extract(httptest.NewRequest(http.MethodPost, "/", nil)))
}

func TestCompositeKeySeparatesEmailsBehindOneIP(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	h := Chain(okHandler(), RateLimitMiddleware(cfg,
		CompositeKeyExtractor("|", IPKeyExtractor, JSONFieldKeyExtractor("email"))))

	signin := func(email string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signin",
			strings.NewReader(`{"email": "`+email+`"}`))
		req.RemoteAddr = "198.51.100.7:4455"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, signin("ann@x.com"))
	require.Equal(t, http.StatusTooManyRequests, signin("ann@x.com"))

	// Same address, different account: separate bucket.
	require.Equal(t, http.StatusOK, signin("bob@x.com"))

	// Case variants fold into the exhausted bucket.
	require.Equal(t, http.StatusTooManyRequests, signin("ANN@X.com"))
}
