package esign

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Callback is a verified provider status notification.
type Callback struct {
	EventID     string
	AgreementID string
	Event       string
}

// Provider event names carried in status callbacks.
const (
	EventAgreementSigned   = "AGREEMENT_SIGNED"
	EventAgreementRejected = "AGREEMENT_REJECTED"
	EventAgreementExpired  = "AGREEMENT_EXPIRED"
)

// ErrInvalidCallback signals a callback token that failed verification.
var ErrInvalidCallback = errors.New("esign: invalid callback token")

// VerifyCallback validates a provider callback token (HS256 JWT signed with
// the shared webhook secret) and extracts the event payload.
func VerifyCallback(tokenString string, secret []byte) (Callback, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return Callback{}, fmt.Errorf("esign: parse callback token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Callback{}, ErrInvalidCallback
	}

	cb := Callback{}
	if cb.EventID, ok = claims["event_id"].(string); !ok || cb.EventID == "" {
		return Callback{}, fmt.Errorf("esign: callback missing event_id: %w", ErrInvalidCallback)
	}
	if cb.AgreementID, ok = claims["agreement_id"].(string); !ok || cb.AgreementID == "" {
		return Callback{}, fmt.Errorf("esign: callback missing agreement_id: %w", ErrInvalidCallback)
	}
	if cb.Event, ok = claims["event"].(string); !ok {
		return Callback{}, fmt.Errorf("esign: callback missing event: %w", ErrInvalidCallback)
	}
	switch cb.Event {
	case EventAgreementSigned, EventAgreementRejected, EventAgreementExpired:
	default:
		return Callback{}, fmt.Errorf("esign: unknown callback event %q: %w", cb.Event, ErrInvalidCallback)
	}

	return cb, nil
}
