package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	if err := httpRequestsTotal.WithLabelValues(labels...).Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestMetricsMiddleware_LabelsByPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{code}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	})
	handler := MetricsMiddleware(mux)

	before := counterValue(t, "GET", "GET /{code}", "302")

	for _, code := range []string{"abc123", "XYZ789", "qwerty"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+code, nil))
	}

	if got := counterValue(t, "GET", "GET /{code}", "302") - before; got != 3 {
		t.Errorf("got %v requests under the pattern label, want 3", got)
	}
	if got := counterValue(t, "GET", "/abc123", "302"); got != 0 {
		t.Errorf("raw path leaked into labels: %v", got)
	}
}

func TestMetricsMiddleware_Unmatched(t *testing.T) {
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := counterValue(t, "GET", "unmatched", "418")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whatever", nil))

	if got := counterValue(t, "GET", "unmatched", "418") - before; got != 1 {
		t.Errorf("got %v, want 1", got)
	}
}
