package http

import (
	"net/http"

	"github.com/paybackfitness/authapi/internal/authapi/service"
	"github.com/paybackfitness/authapi/pkg/httpx"
)

type VerifyOTPRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type VerifyOTPResponse struct {
	User    UserPayload    `json:"user"`
	Session SessionPayload `json:"session"`
}

type VerifyOTPHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Verify Email OTP Endpoint
//	@Description	Redeem the emailed verification code, marking the account verified
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		VerifyOTPRequest	true	"email, token"
//	@Success		200		{object}	Envelope{data=VerifyOTPResponse}
//	@Failure		400		{object}	Envelope	"invalid or expired code"
//	@Failure		401		{object}	Envelope	"no matching user"
//	@Failure		409		{object}	Envelope	"already verified"
//	@Router			/api/auth/verify-otp [post].
func (h *VerifyOTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
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

	user, sess, err := h.AuthService.VerifyOTP(r.Context(), req.Email, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Email verified successfully", VerifyOTPResponse{
		User:    newUserPayload(user),
		Session: newSessionPayload(sess),
	})
}
