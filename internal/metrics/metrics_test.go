package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, Register)
	assert.NotPanics(t, Register)
}

func TestHandlerExposesMenuCollectors(t *testing.T) {
	Register()
	FetchCounter.WithLabelValues("dishes", "ok").Inc()

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "menu_row_fetches_total")
	assert.GreaterOrEqual(t, testutil.ToFloat64(FetchCounter.WithLabelValues("dishes", "ok")), 1.0)
}
