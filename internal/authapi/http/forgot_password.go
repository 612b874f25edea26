package http

import (
	"net/http"

	"github.com/paybackfitness/authapi/internal/authapi/service"
	"github.com/paybackfitness/authapi/pkg/httpx"
)

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ForgotPasswordHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Forgot Password Endpoint
//	@Description	Email a password-reset code. First step of the three-step recovery flow.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ForgotPasswordRequest	true	"email"
//	@Success		200		{object}	Envelope
//	@Failure		400		{object}	Envelope
//	@Router			/api/auth/forgot-password [post].
func (h *ForgotPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	if !validEmail(req.Email) {
		writeBadRequest(w, "A valid email is required")
		return
	}

	if err := h.AuthService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Password reset OTP sent", nil)
}
