package handler

import (
	"encoding/base64"
	"net/http"
	"time"

	dErrors "paygate/pkg/domain-errors"
)

// PaymentDataCookie carries the sealed payment payload between protocol
// steps. The cookie is only a carrier: the server-side signed state entry
// keyed by the payload hash is what authorizes settlement, so a tampered
// cookie fails the hash lookup.
const PaymentDataCookie = "PaymentData"

func writePaymentCookie(w http.ResponseWriter, payload []byte, validity time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     PaymentDataCookie,
		Value:    base64.StdEncoding.EncodeToString(payload),
		Path:     "/",
		MaxAge:   int(validity / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func readPaymentCookie(r *http.Request) ([]byte, error) {
	c, err := r.Cookie(PaymentDataCookie)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeStateTampered, "payment state invalid")
	}
	payload, err := base64.StdEncoding.DecodeString(c.Value)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeStateTampered, "payment state invalid")
	}
	return payload, nil
}

func clearPaymentCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     PaymentDataCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
