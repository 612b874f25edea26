package http

import (
	"net/http"

	"github.com/paybackfitness/authapi/internal/authapi/service"
	"github.com/paybackfitness/authapi/pkg/httpx"
)

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshTokenResponse struct {
	Session SessionPayload `json:"session"`
}

type RefreshTokenHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Refresh Token Endpoint
//	@Description	Exchange a refresh token for a new session pair. The old refresh token is consumed.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RefreshTokenRequest	true	"refreshToken"
//	@Success		200		{object}	Envelope{data=RefreshTokenResponse}
//	@Failure		400		{object}	Envelope
//	@Failure		401		{object}	Envelope	"token rejected or user gone"
//	@Router			/api/auth/refresh-token [post].
func (h *RefreshTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	if req.RefreshToken == "" {
		writeBadRequest(w, "refreshToken is required")
		return
	}

	sess, err := h.AuthService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Token refreshed successfully", RefreshTokenResponse{
		Session: newSessionPayload(sess),
	})
}
