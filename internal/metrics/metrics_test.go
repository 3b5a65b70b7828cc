package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/clients/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/clients/{id}", "418"))
	for _, path := range []string{"/clients/1", "/clients/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/clients/{id}", "418"))
	assert.Equal(t, before+2, after)
}

func TestMiddleware_ImplicitOK(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "200"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "200")))
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(LeadTransitionsTotal.WithLabelValues("new", "won"))
	RecordTransition("new", "won")
	assert.Equal(t, before+1, testutil.ToFloat64(LeadTransitionsTotal.WithLabelValues("new", "won")))

	c := testutil.ToFloat64(InteractionsCompletedTotal)
	RecordCompletion()
	assert.Equal(t, c+1, testutil.ToFloat64(InteractionsCompletedTotal))

	s := testutil.ToFloat64(SignupsTotal)
	RecordSignup()
	assert.Equal(t, s+1, testutil.ToFloat64(SignupsTotal))
}
