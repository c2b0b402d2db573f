package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/availops/orbitd/pkg/dispatcher"
	"github.com/availops/orbitd/pkg/driver"
	"github.com/availops/orbitd/pkg/registry"
	"github.com/availops/orbitd/pkg/store"
	"github.com/availops/orbitd/pkg/types"
	"github.com/availops/orbitd/pkg/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d"

type fixture struct {
	server   *Server
	registry *registry.Registry
	driver   *driver.FakeDriver
}

func newFixture(t *testing.T, apiKeys []string) *fixture {
	t.Helper()

	env := map[string]string{
		"DEPLOYER_PRIVATE_KEY":     testKey,
		"BATCH_POSTER_PRIVATE_KEY": testKey,
		"VALIDATOR_PRIVATE_KEY":    testKey,
		"AVAIL_ADDR_SEED":          "avail seed entropy for tests",
	}
	v, err := vault.Load(func(key string) string { return env[key] })
	require.NoError(t, err)

	reg := registry.NewRegistry(store.NewMemoryStore(), nil)
	require.NoError(t, reg.Create(context.Background(), &types.Rollup{
		ID:    "orbit-1",
		State: types.RollupStateRunning,
		Chain: types.ChainConfig{
			ChainID:        20121999,
			ParentChainRPC: "https://sepolia-rollup.arbitrum.io/rpc",
			AvailAppID:     "1",
			NodeImage:      "availj/avail-nitro-node:v2.1.0-upstream-v3.1.1",
		},
	}))

	drv := driver.NewFakeDriver()
	disp := dispatcher.NewDispatcher(reg, drv, v, nil)
	srv := NewServer(reg, disp, drv, nil, Options{Addr: ":0", APIKeys: apiKeys})

	return &fixture{server: srv, registry: reg, driver: drv}
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/v1/rollups/orbit-1/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "orbit-1", resp.ID)
	assert.Equal(t, types.RollupStateRunning, resp.State)
	assert.Equal(t, uint64(20121999), resp.Chain.ChainID)

	// Credential material never appears in any status payload
	assert.NotContains(t, rec.Body.String(), testKey)
}

func TestStatusNotFound(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/v1/rollups/missing/status", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not-found", resp.Kind)
}

func TestListEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/v1/rollups", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "orbit-1", resp[0].ID)
}

func TestLogsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.registry.AppendLog("orbit-1", "step render-artifacts: succeeded")
	f.registry.AppendLog("orbit-1", "step start-node: succeeded")

	rec := f.do(t, http.MethodGet, "/v1/rollups/orbit-1/logs?tail=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp logsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"step start-node: succeeded"}, resp.Lines)
}

func TestLogsNodeSource(t *testing.T) {
	f := newFixture(t, nil)
	f.driver.LogLines = []string{"node line one", "node line two"}

	rec := f.do(t, http.MethodGet, "/v1/rollups/orbit-1/logs?source=node&tail=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp logsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"node line two"}, resp.Lines)
}

func TestLogsBadTail(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/v1/rollups/orbit-1/logs?tail=banana", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.registry.SetHealth("orbit-1", types.HealthStatus{Healthy: true, CheckedAt: time.Now()})

	rec := f.do(t, http.MethodGet, "/v1/rollups/orbit-1/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Healthy)
}

func TestJobSubmission(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/v1/rollups/orbit-1/jobs/restart", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result types.TransitionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, types.OutcomeSucceeded, result.Outcome)
	assert.Equal(t, types.RollupStateRunning, result.State)

	calls := f.driver.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, types.OperationRestart, calls[0].Operation)
}

func TestJobWithArgs(t *testing.T) {
	f := newFixture(t, nil)

	body := `{"args":{"name":"Avail Orbit"}}`
	rec := f.do(t, http.MethodPost, "/v1/rollups/orbit-1/jobs/update-metadata", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := f.registry.Get("orbit-1")
	require.NoError(t, err)
	assert.Equal(t, "Avail Orbit", got.Metadata.Name)
}

func TestJobRejectionStatusCodes(t *testing.T) {
	f := newFixture(t, nil)

	// Unknown operation name
	rec := f.do(t, http.MethodPost, "/v1/rollups/orbit-1/jobs/explode", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown rollup
	rec = f.do(t, http.MethodPost, "/v1/rollups/missing/jobs/restart", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Inadmissible transition: deploy from Running
	rec = f.do(t, http.MethodPost, "/v1/rollups/orbit-1/jobs/deploy", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Secret-shaped argument
	body := `{"args":{"privateKey":"x"}}`
	rec = f.do(t, http.MethodPost, "/v1/rollups/orbit-1/jobs/update-metadata", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.driver.Calls())
}

func TestJobFailureStatusCode(t *testing.T) {
	f := newFixture(t, nil)
	f.driver.ExecuteErr[types.OperationRestart] = types.NewStepFailureError("stop-node", errors.New("container gone"))

	rec := f.do(t, http.MethodPost, "/v1/rollups/orbit-1/jobs/restart", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var result types.TransitionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, types.OutcomeFailed, result.Outcome)
	assert.Equal(t, "step-failure", result.ErrorKind)
}

func TestAPIKeyGuardsJobs(t *testing.T) {
	f := newFixture(t, []string{"orbitd-test-token"})

	// Reads stay open
	rec := f.do(t, http.MethodGet, "/v1/rollups/orbit-1/status", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Jobs without a key are refused
	rec = f.do(t, http.MethodPost, "/v1/rollups/orbit-1/jobs/restart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.driver.Calls())

	// Wrong key refused
	rec = f.do(t, http.MethodPost, "/v1/rollups/orbit-1/jobs/restart", "",
		map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Right key accepted
	rec = f.do(t, http.MethodPost, "/v1/rollups/orbit-1/jobs/restart", "",
		map[string]string{"Authorization": "Bearer orbitd-test-token"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	body := `{"chainId":424242,"parentChainRpc":"https://sepolia-rollup.arbitrum.io/rpc","availAppId":"7","nodeImage":"availj/avail-nitro-node:v2.1.0-upstream-v3.1.1"}`
	rec := f.do(t, http.MethodPost, "/v1/rollups", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, types.RollupStateUninitialized, resp.State)

	got, err := f.registry.Get(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(424242), got.Chain.ChainID)
}

func TestCreateEndpointRejectsInvalid(t *testing.T) {
	f := newFixture(t, nil)

	// Missing parent chain RPC
	body := `{"chainId":424242,"availAppId":"7","nodeImage":"availj/avail-nitro-node:v2.1.0-upstream-v3.1.1"}`
	rec := f.do(t, http.MethodPost, "/v1/rollups", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Duplicate ID
	body = `{"id":"orbit-1","chainId":424242,"parentChainRpc":"https://x","availAppId":"7","nodeImage":"img"}`
	rec = f.do(t, http.MethodPost, "/v1/rollups", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLivenessEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
