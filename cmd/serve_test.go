package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auto-market-pulse/pulse-cli/internal/llm"
	"github.com/auto-market-pulse/pulse-cli/internal/metrics"
	"github.com/auto-market-pulse/pulse-cli/internal/model"
	"github.com/auto-market-pulse/pulse-cli/internal/signals"
	"github.com/auto-market-pulse/pulse-cli/internal/store"
	"github.com/auto-market-pulse/pulse-cli/internal/story"
)

// newTestEnv wires an env with no reachable providers: every story request
// resolves through the deterministic fallback, so tests run offline.
func newTestEnv(t *testing.T) *appEnv {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pulse.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	gateway := llm.NewGateway(nil)

	return &appEnv{
		Store:  st,
		Engine: metrics.NewEngine(0),
		Refiner: story.NewRefiner(
			gateway,
			story.NewCritic(gateway),
			story.NewValidator(story.DefaultRuleset()),
			story.NewSynthesizer().WithNow(time.Date(2026, time.January, 15, 9, 30, 0, 0, time.UTC)),
			story.RefinerConfig{Pause: time.Millisecond},
		),
		Keywords: story.NewKeywordExtractor(gateway),
		Detector: signals.NewDetector(signals.Config{}, nil),
	}
}

func TestServeHealth(t *testing.T) {
	srv := httptest.NewServer(newRouter(newTestEnv(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServeStoryRoundTrip(t *testing.T) {
	srv := httptest.NewServer(newRouter(newTestEnv(t)))
	defer srv.Close()

	payload := `{"records":[{"symbol":"SPY","close":450.00,"pct_change":1.23,"vol_mult":1.0}]}`
	resp, err := http.Post(srv.URL+"/story", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run model.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))

	assert.NotEmpty(t, run.ID)
	require.NotEmpty(t, run.Story.Bullets)
	assert.Equal(t, "SPY closed +1.23% at $450.00", run.Story.Bullets[0].Text)
	assert.Len(t, run.Keywords, 3)

	// The saved run is retrievable.
	getResp, err := http.Get(srv.URL + "/runs/" + run.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)

	listResp, err := http.Get(srv.URL + "/runs")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var runs []model.Run
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&runs))
	assert.Len(t, runs, 1)
}

func TestServeStoryBadRequests(t *testing.T) {
	srv := httptest.NewServer(newRouter(newTestEnv(t)))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/story", "application/json", strings.NewReader("not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/story", "application/json", strings.NewReader(`{"records":[]}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeRunNotFound(t *testing.T) {
	srv := httptest.NewServer(newRouter(newTestEnv(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/runs/does-not-exist")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeCORSHeaders(t *testing.T) {
	srv := httptest.NewServer(newRouter(newTestEnv(t)))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/story", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
