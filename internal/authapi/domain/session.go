package domain

// Session is the provider-issued token pair, passed through to callers
// unmodified and never persisted locally. Federated (Google) logins may carry
// only the access half; see AuthService.GoogleAuth.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
