package http

import (
	"net/http"

	"github.com/paybackfitness/authapi/internal/authapi/service"
	"github.com/paybackfitness/authapi/pkg/httpx"
)

type SetNewPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

type SetNewPasswordHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Set New Password Endpoint
//	@Description	Overwrite the password under the authority of the bearer session
//	@Description	obtained from the reset-OTP step
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SetNewPasswordRequest	true	"newPassword"
//	@Success		200		{object}	Envelope
//	@Failure		400		{object}	Envelope
//	@Failure		401		{object}	Envelope
//	@Security		BearerAuth
//	@Router			/api/auth/set-new-password [post].
func (h *SetNewPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req SetNewPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	if len(req.NewPassword) < 6 {
		writeBadRequest(w, "Password must be at least 6 characters")
		return
	}

	// The guard stashed the raw bearer token; the provider needs it as the
	// acting session when overwriting the password.
	token := tokenFromContext(r.Context())
	if token == "" {
		writeError(w, service.Unauthorized("Invalid or expired token"))
		return
	}

	if err := h.AuthService.SetNewPassword(r.Context(), token, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Password updated successfully", nil)
}
