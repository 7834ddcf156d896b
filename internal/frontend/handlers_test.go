package frontend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/relay/internal/accountant"
	"github.com/rapidaai/relay/internal/auth"
	"github.com/rapidaai/relay/internal/logging"
	"github.com/rapidaai/relay/internal/pool"
	"github.com/rapidaai/relay/internal/types"
)

type stubStore struct {
	principal *types.Principal
	err       error
}

func (s *stubStore) Authenticate(context.Context, types.Credentials) (*types.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.principal, nil
}

func (s *stubStore) QuotaFor(context.Context, string) (types.Quotas, error) {
	if s.principal == nil {
		return types.Quotas{}, nil
	}
	return s.principal.Quotas, nil
}

// quotaFailingStore authenticates successfully but fails the quota lookup,
// exercising authenticateUpgrade's refresh step independently of identity
// verification.
type quotaFailingStore struct {
	principal *types.Principal
}

func (s *quotaFailingStore) Authenticate(context.Context, types.Credentials) (*types.Principal, error) {
	return s.principal, nil
}

func (s *quotaFailingStore) QuotaFor(context.Context, string) (types.Quotas, error) {
	return types.Quotas{}, errors.New("quota backend unavailable")
}

type noopMinter struct{}

func (noopMinter) Mint(context.Context, types.SessionConfig) (types.EphemeralCredential, error) {
	return types.EphemeralCredential{}, errors.New("not used in this test")
}

func newTestServer(store auth.Store) *Server {
	p := pool.New(logging.NewNop(), noopMinter{}, "wss://example.invalid", "v1", 5)
	acct := accountant.New(logging.NewNop(), accountant.Config{Capacity: 100, RefillPerMin: 100, Shards: 4}, nil)
	return New(logging.NewNop(), store, p, acct, nil)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHandleHealth_ReportsPoolStats(t *testing.T) {
	s := newTestServer(&stubStore{})
	engine := s.Engine()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "invalid JSON response")
	assert.Equal(t, float64(5), body["pool_capacity"])
}

func TestHandleMetrics_IncludesUsageWhenPrincipalGiven(t *testing.T) {
	s := newTestServer(&stubStore{})
	s.accountant.RecordResponseDone(context.Background(), "p1", 10, 20, 0)
	engine := s.Engine()

	req := httptest.NewRequest(http.MethodGet, "/metrics?principal_id=p1", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	usage, ok := body["usage"].(map[string]interface{})
	require.True(t, ok, "expected a usage object in the response")
	assert.Equal(t, float64(10), usage["input_tokens"])
}

func TestHandleLogin_ValidCredentialsReturnsPrincipal(t *testing.T) {
	s := newTestServer(&stubStore{principal: &types.Principal{ID: "p1", Tier: types.TierFree}})
	engine := s.Engine()

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "secret"})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHandleLogin_InvalidCredentialsReturns401(t *testing.T) {
	s := newTestServer(&stubStore{err: auth.ErrUnauthenticated})
	engine := s.Engine()

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleUpgrade_ConcurrentSessionQuotaExceededReturns403(t *testing.T) {
	s := newTestServer(&stubStore{principal: &types.Principal{
		ID:     "p1",
		Tier:   types.TierFree,
		Quotas: types.Quotas{ConcurrentSessions: 1},
	}})
	s.connections.add("already-open", "p1")
	engine := s.Engine()

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleUpgrade_QuotaLookupFailureReturns401(t *testing.T) {
	s := newTestServer(&quotaFailingStore{principal: &types.Principal{ID: "p1", Tier: types.TierFree}})
	engine := s.Engine()

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleLogin_MissingFieldsReturns400(t *testing.T) {
	s := newTestServer(&stubStore{})
	engine := s.Engine()

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
