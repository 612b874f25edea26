package http

import (
	"net/http"

	"github.com/paybackfitness/authapi/internal/authapi/service"
	"github.com/paybackfitness/authapi/pkg/httpx"
)

type VerifyForgotPasswordOTPRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type VerifyForgotPasswordOTPResponse struct {
	Session SessionPayload `json:"session"`
}

type VerifyForgotPasswordOTPHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Verify Password Reset OTP Endpoint
//	@Description	Redeem a reset code for a short-lived session. The session's
//	@Description	access token authorizes the set-new-password step.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		VerifyForgotPasswordOTPRequest	true	"email, token"
//	@Success		200		{object}	Envelope{data=VerifyForgotPasswordOTPResponse}
//	@Failure		400		{object}	Envelope	"invalid or expired code"
//	@Router			/api/auth/verify-forgot-password-otp [post].
func (h *VerifyForgotPasswordOTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyForgotPasswordOTPRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	if !validEmail(req.Email) {
		writeBadRequest(w, "A valid email is required")
		return
	}
	if req.Token == "" {
		writeBadRequest(w, "token is required")
		return
	}

	sess, err := h.AuthService.VerifyForgotPasswordOTP(r.Context(), req.Email, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "OTP verified successfully", VerifyForgotPasswordOTPResponse{
		Session: newSessionPayload(sess),
	})
}
