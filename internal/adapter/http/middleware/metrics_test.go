package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/vslaledger/internal/infrastructure/metrics"
)

func TestMetricsMiddlewareRecordsRoutePattern(t *testing.T) {
	testCases := []struct {
		name       string
		method     string
		path       string
		wantPath   string
		statusCode int
	}{
		{
			name:       "labels with route pattern",
			method:     http.MethodGet,
			path:       "/api/v1/loans/42",
			wantPath:   "/api/v1/loans/{loanID}",
			statusCode: http.StatusTeapot,
		},
		{
			name:       "unmatched route",
			method:     http.MethodGet,
			path:       "/nowhere",
			wantPath:   "unmatched",
			statusCode: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := metrics.New(prometheus.NewRegistry())

			r := chi.NewRouter()
			r.Use(Metrics(m))
			r.Get("/api/v1/loans/{loanID}", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
			})

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))

			if got := testutil.ToFloat64(m.HTTPInFlight); got != 0 {
				t.Fatalf("expected in-flight gauge to return to 0, got %v", got)
			}

			if got := testutil.CollectAndCount(m.HTTPRequests); got != 1 {
				t.Fatalf("expected one series, got %d", got)
			}
			counter := m.HTTPRequests.WithLabelValues(tc.method, tc.wantPath, strconv.Itoa(tc.statusCode))
			if got := testutil.ToFloat64(counter); got != 1 {
				t.Fatalf("expected counter to be 1, got %v", got)
			}
		})
	}
}
