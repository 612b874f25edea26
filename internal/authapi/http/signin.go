package http

import (
	"net/http"

	"github.com/paybackfitness/authapi/internal/authapi/service"
	"github.com/paybackfitness/authapi/pkg/httpx"
)

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInResponse struct {
	User    UserPayload    `json:"user"`
	Session SessionPayload `json:"session"`
}

type SignInHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Sign In Endpoint
//	@Description	Exchange email and password for a session pair
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SignInRequest	true	"email, password"
//	@Success		200		{object}	Envelope{data=SignInResponse}
//	@Failure		400		{object}	Envelope
//	@Failure		401		{object}	Envelope	"invalid credentials or unverified email"
//	@Router			/api/auth/signin [post].
func (h *SignInHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	if !validEmail(req.Email) {
		writeBadRequest(w, "A valid email is required")
		return
	}
	if req.Password == "" {
		writeBadRequest(w, "Password is required")
		return
	}

	user, sess, err := h.AuthService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Sign in successful", SignInResponse{
		User:    newUserPayload(user),
		Session: newSessionPayload(sess),
	})
}
