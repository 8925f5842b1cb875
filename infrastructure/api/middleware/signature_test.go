package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func echoHandler(got *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*got = string(body)
		w.WriteHeader(http.StatusOK)
	})
}

func TestVerifyWebhookSignature_Valid(t *testing.T) {
	body := `{"action":"opened"}`
	var got string
	handler := VerifyWebhookSignature("s3cret")(echoHandler(&got))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", strings.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sign("s3cret", []byte(body)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got != body {
		t.Errorf("downstream body = %q, want %q", got, body)
	}
}

func TestVerifyWebhookSignature_WrongSecret(t *testing.T) {
	body := `{"action":"opened"}`
	var got string
	handler := VerifyWebhookSignature("s3cret")(echoHandler(&got))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", strings.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sign("wrong", []byte(body)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if got != "" {
		t.Errorf("handler ran despite invalid signature")
	}
}

func TestVerifyWebhookSignature_MissingHeader(t *testing.T) {
	handler := VerifyWebhookSignature("s3cret")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestVerifyWebhookSignature_TamperedBody(t *testing.T) {
	handler := VerifyWebhookSignature("s3cret")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", strings.NewReader(`{"action":"closed"}`))
	req.Header.Set("X-Hub-Signature-256", sign("s3cret", []byte(`{"action":"opened"}`)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestValidSignature_MalformedHeader(t *testing.T) {
	if ValidSignature("s", []byte("body"), "not-a-signature") {
		t.Error("accepted header without sha256 prefix")
	}
	if ValidSignature("s", []byte("body"), "sha256=zzzz") {
		t.Error("accepted non-hex digest")
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
