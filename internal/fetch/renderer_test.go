package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/basketdata/aisle-crawler/internal/pipeline"
)

func newTestRenderer(t *testing.T, handler http.HandlerFunc, quota int) (*ExternalRenderer, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	r := NewExternalRenderer(RendererConfig{
		Endpoint:   srv.URL,
		APIKey:     "test-key",
		DailyQuota: quota,
	}, zap.NewNop())
	return r, srv
}

func TestRenderSuccess(t *testing.T) {
	var gotQuery map[string][]string
	r, _ := newTestRenderer(t, func(w http.ResponseWriter, req *http.Request) {
		gotQuery = req.URL.Query()
		_, _ = w.Write([]byte(strings.Repeat("<p>rendered product page</p>", 40)))
	}, 10)

	res := r.Render(context.Background(), "https://ocado.example/p/1", "ocado")
	require.Equal(t, pipeline.FetchOK, res.StatusHint)
	assert.Equal(t, MethodRenderer, res.Method)
	assert.Equal(t, []string{"true"}, gotQuery["js_render"])
	assert.Equal(t, []string{"true"}, gotQuery["premium_proxy"])
	assert.Equal(t, []string{"test-key"}, gotQuery["apikey"])
	assert.NotEmpty(t, gotQuery["wait"])
	assert.Equal(t, 1, r.Used())
}

func TestRenderQuotaExhaustion(t *testing.T) {
	r, _ := newTestRenderer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 600)))
	}, 2)

	ctx := context.Background()
	_ = r.Render(ctx, "https://a.example/1", "tesco")
	_ = r.Render(ctx, "https://a.example/2", "tesco")
	assert.False(t, r.Exhausted())

	res := r.Render(ctx, "https://a.example/3", "tesco")
	assert.Equal(t, pipeline.FetchError, res.StatusHint)
	assert.True(t, r.Exhausted())
	assert.Equal(t, 2, r.Used())
}

func TestRenderQuotaStatusCodeDisablesRenderer(t *testing.T) {
	r, _ := newTestRenderer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}, 10)

	res := r.Render(context.Background(), "https://a.example/1", "tesco")
	assert.Equal(t, pipeline.FetchError, res.StatusHint)
	assert.True(t, r.Exhausted())

	// Once exhausted, further calls are no-ops.
	res = r.Render(context.Background(), "https://a.example/2", "tesco")
	assert.Equal(t, pipeline.FetchError, res.StatusHint)
	assert.Equal(t, 1, r.Used())
}

func TestRenderBlockedBodyStillBlocked(t *testing.T) {
	r, _ := newTestRenderer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("access denied " + strings.Repeat("x", 600)))
	}, 10)

	res := r.Render(context.Background(), "https://a.example/1", "tesco")
	assert.Equal(t, pipeline.FetchBlocked, res.StatusHint)
}

func TestRenderWithoutAPIKeyIsExhausted(t *testing.T) {
	r := NewExternalRenderer(RendererConfig{}, zap.NewNop())
	assert.True(t, r.Exhausted())
}

func TestRenderSkipsOptedOutRetailer(t *testing.T) {
	called := false
	r, _ := newTestRenderer(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
		_, _ = w.Write([]byte(strings.Repeat("x", 600)))
	}, 10)

	res := r.Render(context.Background(), "https://poundland.example/p/1", "poundland")
	assert.Equal(t, pipeline.FetchError, res.StatusHint)
	assert.False(t, called)
}
