package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/codeowl/codeowl/internal/log"
)

func TestLogging_PropagatesRequestID(t *testing.T) {
	var gotID string
	handler := chimw.RequestID(Logging(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = log.RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotID == "" {
		t.Error("request id missing from context")
	}
}
