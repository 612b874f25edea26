package http

import (
	"net/http"

	"github.com/paybackfitness/authapi/internal/authapi/service"
	"github.com/paybackfitness/authapi/pkg/httpx"
)

type SignUpRequest struct {
	Email            string  `json:"email"`
	Password         string  `json:"password"`
	Name             string  `json:"name"`
	ReferredByUserID *string `json:"referredByUserId,omitempty"`
}

type SignUpHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Sign Up Endpoint
//	@Description	Create a new account. A verification code is emailed out-of-band;
//	@Description	the account cannot sign in until the email is verified.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SignUpRequest	true	"email, password, name"
//	@Success		201		{object}	Envelope
//	@Failure		400		{object}	Envelope	"invalid request or provider rejection"
//	@Failure		409		{object}	Envelope	"email already registered"
//	@Router			/api/auth/signup [post].
func (h *SignUpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	if !validEmail(req.Email) {
		writeBadRequest(w, "A valid email is required")
		return
	}
	if len(req.Password) < 6 {
		writeBadRequest(w, "Password must be at least 6 characters")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "Name is required")
		return
	}

	_, err := h.AuthService.SignUp(r.Context(), req.Email, req.Password, req.Name, req.ReferredByUserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Please check your email to verify your account.", nil)
}
