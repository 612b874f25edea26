package http

import (
	"net/http"

	"github.com/paybackfitness/authapi/internal/authapi/service"
	"github.com/paybackfitness/authapi/pkg/httpx"
)

type GoogleAuthRequest struct {
	IDToken string `json:"idToken"`
}

type GoogleAuthResponse struct {
	User    UserPayload    `json:"user"`
	Session SessionPayload `json:"session"`
}

type GoogleAuthHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Google Sign In Endpoint
//	@Description	Sign in with a Google ID token, creating the account on first contact.
//	@Description	The returned session carries only an access token; the refresh half is empty.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		GoogleAuthRequest	true	"idToken"
//	@Success		200		{object}	Envelope{data=GoogleAuthResponse}
//	@Failure		400		{object}	Envelope
//	@Failure		401		{object}	Envelope	"invalid or unverified Google token"
//	@Router			/api/auth/google [post].
func (h *GoogleAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req GoogleAuthRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	if req.IDToken == "" {
		writeBadRequest(w, "idToken is required")
		return
	}

	user, sess, err := h.AuthService.GoogleAuth(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Google authentication successful", GoogleAuthResponse{
		User:    newUserPayload(user),
		Session: newSessionPayload(sess),
	})
}
