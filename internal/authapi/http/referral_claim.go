package http

import (
	"net/http"

	"github.com/paybackfitness/authapi/internal/authapi/service"
	"github.com/paybackfitness/authapi/pkg/httpx"
)

type ClaimReferralRequest struct {
	ReferralCode string `json:"referralCode"`
}

type ClaimReferralResponse struct {
	Message string `json:"message"`
}

type ClaimReferralHandler struct {
	ReferralService *service.ReferralService
}

// ServeHTTP godoc
//
//	@Summary		Claim Referral Endpoint
//	@Description	Attribute the signed-in user to the owner of a referral code.
//	@Description	A user can claim at most one referral, ever.
//	@Tags			Referral
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ClaimReferralRequest	true	"referralCode"
//	@Success		200		{object}	Envelope{data=ClaimReferralResponse}
//	@Failure		400		{object}	Envelope	"invalid code or self-referral"
//	@Failure		401		{object}	Envelope
//	@Failure		404		{object}	Envelope
//	@Failure		409		{object}	Envelope	"already referred"
//	@Security		BearerAuth
//	@Router			/api/referral/claim [post].
func (h *ClaimReferralHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, service.Unauthorized("Invalid or expired token"))
		return
	}

	var req ClaimReferralRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	if req.ReferralCode == "" {
		writeBadRequest(w, "referralCode is required")
		return
	}

	msg, err := h.ReferralService.ClaimReferral(r.Context(), user.ID, req.ReferralCode)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, msg, ClaimReferralResponse{Message: msg})
}
