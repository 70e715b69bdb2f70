package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerwire/signaling/internal/middleware"
	"github.com/peerwire/signaling/internal/models"
	"github.com/peerwire/signaling/internal/registry"
)

const testSecret = "test-secret"

type stubConn struct {
	mu     sync.Mutex
	closed bool
}

func (s *stubConn) Send(data []byte) bool { return true }

func (s *stubConn) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubConn) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func newAPIRouter(reg *registry.Registry) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", Health(reg, time.Now()))
	router.POST("/api/auth/login", Login(testSecret))
	router.GET("/api/peers", ListPeers(reg))
	router.GET("/api/peers/count", CountPeers(reg))
	router.DELETE("/api/peers/:peerId", middleware.JWTAuth(testSecret), KickPeer(reg))
	return router
}

func operatorToken(t *testing.T) string {
	t.Helper()

	claims := middleware.JWTClaims{
		UserID: "ops",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestHealth(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("alice", &stubConn{}))
	router := newAPIRouter(reg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status models.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, 1, status.PeerCount)
	assert.GreaterOrEqual(t, status.UptimeSeconds, 0.0)
}

func TestListPeers(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("alice", &stubConn{}))
	require.NoError(t, reg.Register("bob", &stubConn{}))
	router := newAPIRouter(reg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/peers", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.PeerListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []string{"alice", "bob"}, resp.Peers)
	assert.Equal(t, 2, resp.Count)
}

func TestLoginIssuesValidToken(t *testing.T) {
	router := newAPIRouter(registry.New())

	body := bytes.NewBufferString(`{"username":"ops","password":"whatever"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ops", resp.UserID)

	claims := &middleware.JWTClaims{}
	token, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "ops", claims.UserID)
}

func TestKickPeerRequiresAuth(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("alice", &stubConn{}))
	router := newAPIRouter(reg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/peers/alice", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, ok := reg.Lookup("alice")
	assert.True(t, ok, "unauthorized request must not touch the registry")
}

func TestKickPeerDisconnects(t *testing.T) {
	reg := registry.New()
	conn := &stubConn{}
	require.NoError(t, reg.Register("alice", conn))
	router := newAPIRouter(reg)

	req := httptest.NewRequest(http.MethodDelete, "/api/peers/alice", nil)
	req.Header.Set("Authorization", "Bearer "+operatorToken(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	_, ok := reg.Lookup("alice")
	assert.False(t, ok)
	assert.True(t, conn.isClosed())
}

func TestKickUnknownPeer(t *testing.T) {
	router := newAPIRouter(registry.New())

	req := httptest.NewRequest(http.MethodDelete, "/api/peers/ghost", nil)
	req.Header.Set("Authorization", "Bearer "+operatorToken(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
