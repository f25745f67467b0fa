package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
	assert.NotNil(t, fetchesTotal)
}

func TestObserversAreSafeBeforeInit(t *testing.T) {
	// The package-level guards keep early callers from panicking when a
	// test binary never calls Init.
	ObserveFetch("tesco", "http", "ok", 10)
	ObserveRender("tesco", "ok")
	ObserveRow("success")
	ObserveScore("tesco", 80)
	ObserveBlocked("tesco")
	IncActiveRows()
	DecActiveRows()
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	ObserveFetch("tesco", "http", "ok", 128)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "aisle_fetches_total")
}
