package http

import (
	"errors"
	"net/http"
	"net/mail"
	"strconv"

	"github.com/paybackfitness/authapi/internal/authapi/domain"
	"github.com/paybackfitness/authapi/internal/authapi/service"
	"github.com/paybackfitness/authapi/pkg/httpx"
)

// Envelope is the shape every endpoint responds with, success or failure.
type Envelope struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// UserPayload is the caller-facing view of a user. The coin balance is
// serialized as a string so clients never lose precision parsing it.
type UserPayload struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	EmailVerified      bool   `json:"emailVerified"`
	ReferralCode       string `json:"referralCode"`
	PFCoinBalance      string `json:"pfCoinBalance"`
	SubscriptionStatus string `json:"subscriptionStatus"`
}

type SessionPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func newUserPayload(u domain.User) UserPayload {
	return UserPayload{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		EmailVerified:      u.EmailVerified,
		ReferralCode:       u.ReferralCode,
		PFCoinBalance:      strconv.FormatInt(u.PFCoinBalance, 10),
		SubscriptionStatus: u.SubscriptionStatus,
	}
}

func newSessionPayload(s domain.Session) SessionPayload {
	return SessionPayload{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	httpx.WriteJSON(w, status, Envelope{
		Success: true,
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// writeError maps a tagged service error to its status code. Anything
// untagged is an internal fault and stays opaque to the caller.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		message = svcErr.Message
		switch svcErr.Kind {
		case service.KindBadRequest:
			status = http.StatusBadRequest
		case service.KindUnauthorized:
			status = http.StatusUnauthorized
		case service.KindConflict:
			status = http.StatusConflict
		case service.KindNotFound:
			status = http.StatusNotFound
		}
	}

	httpx.WriteJSON(w, status, Envelope{
		Success: false,
		Status:  status,
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, service.BadRequest(message))
}

func validEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
