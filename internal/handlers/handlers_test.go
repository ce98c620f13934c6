package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"dexfolio/internal/database"
	"dexfolio/internal/market"
	"dexfolio/internal/models"
	"dexfolio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	pairs     []market.TokenPair
	lastQuery string
}

func (f *fakeMarket) FetchTokens(ctx context.Context, addresses []string) ([]market.TokenPair, error) {
	return f.pairs, nil
}

func (f *fakeMarket) GetTokens(ctx context.Context, addresses []string) []market.TokenPair {
	return f.pairs
}

func (f *fakeMarket) SearchTokens(ctx context.Context, query string) []market.TokenPair {
	f.lastQuery = query
	return f.pairs
}

func (f *fakeMarket) GetTokenPairs(ctx context.Context, chainID, tokenAddress string) []market.TokenPair {
	return []market.TokenPair{}
}

func (f *fakeMarket) GetPairByAddress(ctx context.Context, chainID, pairAddress string) (market.TokenPair, bool) {
	for _, p := range f.pairs {
		if p.ChainID == chainID && p.PairAddress == pairAddress {
			return p, true
		}
	}
	return market.TokenPair{}, false
}

type testServer struct {
	router *gin.Engine
	market *fakeMarket
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	m := &fakeMarket{pairs: []market.TokenPair{{
		ChainID:     "solana",
		PairAddress: "PAIR1",
		BaseToken:   market.Token{Address: "SOL", Symbol: "SOL"},
		QuoteToken:  market.Token{Address: "USDC", Symbol: "USDC"},
		PriceUsd:    "150",
	}}}
	store := database.NewMemoryStore()
	auth := service.NewAuthService(store.Users, service.NewMemorySessions(0), service.SHA256Hasher{}, log)
	portfolio := service.NewPortfolioService(m, store.Portfolios, store.Holdings, log)

	r := gin.New()
	NewHandler(auth, portfolio, m, log).Routes(r)
	return testServer{router: r, market: m}
}

func (s testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s testServer) register(t *testing.T, username string) models.AuthPayload {
	t.Helper()
	w := s.do(t, http.MethodPost, "/auth/register", "", gin.H{"username": username, "password": "pw"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var payload models.AuthPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	assert.NotEmpty(t, alice.Token)

	w := s.do(t, http.MethodPost, "/auth/register", "", gin.H{"username": "alice", "password": "x"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "alice", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "alice", "password": "pw"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/auth/recover", "", gin.H{"username": "bob", "recovery_phrase": "x", "new_password": "y"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodPost, "/auth/recover", "", gin.H{"username": "alice", "recovery_phrase": "wrong", "new_password": "y"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodPost, "/auth/recover", "", gin.H{"username": "alice", "recovery_phrase": alice.User.RecoveryPhrase, "new_password": "y"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeAndLogout(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")

	w := s.do(t, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())

	w = s.do(t, http.MethodGet, "/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.PublicUser
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, alice.User.ID, me.ID)
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(t, http.MethodPost, "/auth/logout", alice.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/me", alice.Token, nil)
	assert.Equal(t, "null", w.Body.String())
}

func TestMarketRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/tokens?addresses=SOL,%20USDC", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var pairs []market.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pairs))
	assert.Len(t, pairs, 1)

	w = s.do(t, http.MethodGet, "/tokens?addresses=", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/tokens/search?q=sol", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sol", s.market.lastQuery)
	w = s.do(t, http.MethodGet, "/tokens/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/tokens/pairs/solana/SOL", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = s.do(t, http.MethodGet, "/pairs/solana/PAIR1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/pairs/solana/NOPE", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHoldingsLifecycle(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	base := "/users/" + alice.User.ID

	w := s.do(t, http.MethodPost, base+"/holdings", alice.Token, gin.H{
		"token_address": "SOL", "token_symbol": "SOL", "token_name": "Solana",
		"quantity": "2", "average_price": "100",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var h models.Holding
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	assert.True(t, h.CurrentValue.Equal(decimal.NewFromInt(200)))

	w = s.do(t, http.MethodGet, base+"/portfolio", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p models.Portfolio
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.True(t, p.TotalValue.Equal(decimal.NewFromInt(300)), p.TotalValue.String())

	w = s.do(t, http.MethodPatch, "/holdings/"+h.ID, alice.Token, gin.H{"quantity": "3"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	assert.True(t, h.Quantity.Equal(decimal.NewFromInt(3)))

	w = s.do(t, http.MethodDelete, "/holdings/"+h.ID, alice.Token, nil)
	assert.JSONEq(t, `{"removed":true}`, w.Body.String())
	w = s.do(t, http.MethodDelete, "/holdings/"+h.ID, alice.Token, nil)
	assert.JSONEq(t, `{"removed":false}`, w.Body.String())

	w = s.do(t, http.MethodPatch, "/holdings/"+h.ID, alice.Token, gin.H{"quantity": "1"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, base+"/holdings", alice.Token, nil)
	assert.Equal(t, "[]", w.Body.String())
}

func TestHoldingValidation(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	path := "/users/" + alice.User.ID + "/holdings"

	w := s.do(t, http.MethodPost, path, alice.Token, gin.H{"token_address": "SOL"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, path, alice.Token, gin.H{
		"token_address": "SOL", "token_symbol": "SOL", "token_name": "Solana",
		"quantity": "-1", "average_price": "1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPortfolioAccessControl(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	w := s.do(t, http.MethodGet, "/users/"+alice.User.ID+"/portfolio", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodGet, "/users/"+alice.User.ID+"/portfolio", bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/users/"+alice.User.ID+"/holdings", alice.Token, gin.H{
		"token_address": "SOL", "token_symbol": "SOL", "token_name": "Solana",
		"quantity": 1, "average_price": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var h models.Holding
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))

	w = s.do(t, http.MethodPatch, "/holdings/"+h.ID, bob.Token, gin.H{"quantity": "5"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodDelete, "/holdings/"+h.ID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodDelete, "/holdings/"+h.ID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
