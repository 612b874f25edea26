package http

import (
	"net/http"

	"github.com/paybackfitness/authapi/internal/authapi/service"
	"github.com/paybackfitness/authapi/pkg/httpx"
)

type ResendOTPRequest struct {
	Email string `json:"email"`
}

type ResendOTPHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Resend Verification OTP Endpoint
//	@Description	Email a fresh verification code to an unverified account
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ResendOTPRequest	true	"email"
//	@Success		200		{object}	Envelope
//	@Failure		400		{object}	Envelope
//	@Router			/api/auth/resend-otp [post].
func (h *ResendOTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ResendOTPRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	if !validEmail(req.Email) {
		writeBadRequest(w, "A valid email is required")
		return
	}

	if err := h.AuthService.ResendOTP(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Verification email sent successfully", nil)
}
