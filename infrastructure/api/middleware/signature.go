package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
)

// signatureHeader carries the hex HMAC-SHA256 of the raw request body.
const signatureHeader = "X-Hub-Signature-256"

// maxWebhookBody bounds how much of a delivery is read for verification.
const maxWebhookBody = 5 << 20

// VerifyWebhookSignature rejects requests whose body does not carry a
// valid HMAC-SHA256 signature. Verification happens before any parsing;
// a rejected delivery has no side effects. The body is replaced so
// downstream handlers can read it again.
func VerifyWebhookSignature(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
			if err != nil {
				WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unreadable body"})
				return
			}
			_ = r.Body.Close()

			if !ValidSignature(secret, body, r.Header.Get(signatureHeader)) {
				WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid signature"})
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// ValidSignature reports whether header matches the HMAC-SHA256 of body.
// The comparison is constant time.
func ValidSignature(secret string, body []byte, header string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}

	got, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
