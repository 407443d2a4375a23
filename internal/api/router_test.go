package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchforge/rank_fusion/fuse"
	"github.com/searchforge/rank_fusion/internal/contract"
	"github.com/searchforge/rank_fusion/internal/controller"
	"github.com/searchforge/rank_fusion/policy"
	"github.com/searchforge/rank_fusion/testutil"
)

func newServer(t *testing.T, defaults fuse.Options, maxBody int64) *httptest.Server {
	t.Helper()
	return newGuardedServer(t, defaults, policy.GuardConfig{}, Config{MaxBodyBytes: maxBody})
}

func newGuardedServer(t *testing.T, defaults fuse.Options, guardCfg policy.GuardConfig, cfg Config) *httptest.Server {
	t.Helper()
	guard, err := policy.NewGuard(guardCfg, nil)
	require.NoError(t, err)
	ctrl, err := controller.New(controller.Config{Defaults: defaults, Guard: guard})
	require.NoError(t, err)
	mux, err := NewRouter(ctrl, cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any, header http.Header) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestFuseEndpoint(t *testing.T) {
	srv := newServer(t, fuse.Options{}, 0)

	resp := postJSON(t, srv.URL+"/v1/fuse", map[string]any{"lists": testutil.ScenarioLists()},
		http.Header{contract.TraceIDHeader: []string{"abc-123"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc-123", resp.Header.Get(contract.TraceIDHeader))

	var body contract.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, contract.CodeOK, body.RetCode)
	assert.Equal(t, "abc-123", body.TraceID)
	assert.Equal(t, testutil.ScenarioOrder, testutil.Keys(body.Items))
	assert.Equal(t, 1.0, body.Items[0].Weight)
	require.Len(t, body.Items[0].Contributions, 2)
	assert.Equal(t, 800.0, body.Items[0].Contributions[0].Raw)
}

func TestFuseEndpointGeneratesTraceID(t *testing.T) {
	srv := newServer(t, fuse.Options{}, 0)

	resp := postJSON(t, srv.URL+"/v1/fuse", map[string]any{"lists": testutil.ScenarioLists()}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resp.Header.Get(contract.TraceIDHeader), 36)
}

func TestFuseEndpointErrors(t *testing.T) {
	srv := newServer(t, fuse.Options{Degenerate: fuse.DegenerateError}, 512)

	resp := postJSON(t, srv.URL+"/v1/fuse", map[string]any{
		"lists": []contract.List{{Source: "flat", Items: []fuse.Item{{Key: "x", Weight: 2}, {Key: "y", Weight: 2}}}},
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var errBody contract.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.Equal(t, contract.CodeDegenerateRange, errBody.RetCode)
	assert.Equal(t, "flat", errBody.Source)
	assert.NotEmpty(t, errBody.TraceID)

	resp = postJSON(t, srv.URL+"/v1/fuse", map[string]any{
		"lists":   testutil.ScenarioLists(),
		"options": map[string]any{"tie_break": "coin-flip"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.Equal(t, contract.CodeBadConfig, errBody.RetCode)
	assert.Equal(t, "tie_break", errBody.Option)

	resp = postJSON(t, srv.URL+"/v1/fuse", map[string]any{"lists": testutil.ScenarioLists(), "extra": 1}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/v1/fuse", map[string]any{"lists": testutil.RandomLists(1, 4, 50)}, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.Equal(t, contract.CodeInputTooLarge, errBody.RetCode)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newServer(t, fuse.Options{Conflation: fuse.ConflateMean}, 0)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var ready map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ready))
	assert.Equal(t, true, ready["ready"])
	assert.Equal(t, "mean", ready["conflation"])
}

func TestFuseEndpointRejectsGet(t *testing.T) {
	srv := newServer(t, fuse.Options{}, 0)
	resp, err := http.Get(srv.URL + "/v1/fuse")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestClientID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/fuse", strings.NewReader("{}"))
	req.RemoteAddr = "10.0.0.7:5555"
	req.Header.Set(contract.ClientIDHeader, "search-frontend")

	direct := &Router{}
	assert.Equal(t, "10.0.0.7", direct.clientID(req))

	proxied := &Router{trustClientID: true}
	assert.Equal(t, "search-frontend", proxied.clientID(req))

	req.Header.Del(contract.ClientIDHeader)
	assert.Equal(t, "10.0.0.7", proxied.clientID(req))
}

func statusesWithRotatingClientID(t *testing.T, cfg Config, n int) []int {
	t.Helper()
	srv := newGuardedServer(t, fuse.Options{}, policy.GuardConfig{
		Rate: policy.RateLimitConfig{Capacity: 1, RefillTokens: 1, RefillEvery: time.Hour},
	}, cfg)

	statuses := make([]int, n)
	for i := range statuses {
		resp := postJSON(t, srv.URL+"/v1/fuse", map[string]any{"lists": testutil.ScenarioLists()},
			http.Header{contract.ClientIDHeader: []string{fmt.Sprintf("client-%d", i)}})
		statuses[i] = resp.StatusCode
	}
	return statuses
}

func TestRateLimitIgnoresClientHeaderByDefault(t *testing.T) {
	statuses := statusesWithRotatingClientID(t, Config{}, 4)
	assert.Equal(t, []int{200, 429, 429, 429}, statuses)
}

func TestRateLimitTrustsClientHeaderWhenConfigured(t *testing.T) {
	statuses := statusesWithRotatingClientID(t, Config{TrustClientID: true}, 4)
	assert.Equal(t, []int{200, 200, 200, 200}, statuses)
}
