package market

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const solPair = `{
	"chainId": "solana",
	"dexId": "raydium",
	"pairAddress": "PAIR1",
	"baseToken": {"address": "SOL", "name": "Wrapped SOL", "symbol": "SOL"},
	"quoteToken": {"address": "USDC", "name": "USD Coin", "symbol": "USDC"},
	"priceNative": "1",
	"priceUsd": "142.35",
	"txns": {"h24": {"buys": 10, "sells": 4}},
	"volume": {"m5": 1, "h1": 2, "h6": 3, "h24": 4.5},
	"priceChange": {"h24": -1.25},
	"liquidity": {"usd": 1000000.5, "base": 10, "quote": 20},
	"fdv": 123.4,
	"marketCap": 99.9,
	"pairCreatedAt": 1700000000000,
	"info": {"imageUrl": "https://img", "websites": [{"url": "https://sol"}], "socials": [{"platform": "x", "handle": "sol"}]}
}`

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(Config{BaseURL: srv.URL, MinInterval: time.Millisecond, Timeout: 2 * time.Second}, quietLogger())
	return c, srv
}

func TestGetTokens_Success(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprintf(w, "[%s]", solPair)
	})

	pairs := c.GetTokens(context.Background(), []string{"SOL", "USDC"})
	require.Len(t, pairs, 1)
	assert.Equal(t, "/tokens/v1/solana/SOL,USDC", gotPath)

	p := pairs[0]
	assert.Equal(t, "PAIR1", p.PairAddress)
	assert.Equal(t, "Wrapped SOL", p.BaseToken.Name)
	assert.True(t, p.PriceUSD().Equal(decimal.RequireFromString("142.35")))
	require.NotNil(t, p.Txns)
	require.NotNil(t, p.Txns.H24)
	assert.Equal(t, 10, p.Txns.H24.Buys)
	require.NotNil(t, p.Liquidity)
	assert.Equal(t, 1000000.5, p.Liquidity.USD)
	require.NotNil(t, p.Info)
	assert.Equal(t, "sol", p.Info.Socials[0].Handle)
}

func TestGetTokens_UpstreamErrorIsEmpty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	pairs := c.GetTokens(context.Background(), []string{"SOL"})
	assert.NotNil(t, pairs)
	assert.Empty(t, pairs)
}

func TestGetTokens_MalformedBodyIsEmpty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"not":"an array"`)
	})

	assert.Empty(t, c.GetTokens(context.Background(), []string{"SOL"}))
}

func TestFetchTokens_ReportsUnavailable(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := c.FetchTokens(context.Background(), []string{"SOL"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestSearchTokens(t *testing.T) {
	var query string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/search", r.URL.Path)
		query = r.URL.Query().Get("q")
		fmt.Fprintf(w, `{"schemaVersion":"1.0.0","pairs":[%s]}`, solPair)
	})

	pairs := c.SearchTokens(context.Background(), "sol usdc")
	require.Len(t, pairs, 1)
	assert.Equal(t, "sol usdc", query)
}

func TestSearchTokens_NullPairs(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"pairs":null}`)
	})

	pairs := c.SearchTokens(context.Background(), "nothing")
	assert.NotNil(t, pairs)
	assert.Empty(t, pairs)
}

func TestGetTokenPairs(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token-pairs/v1/solana/SOL", r.URL.Path)
		fmt.Fprintf(w, "[%s,%s]", solPair, solPair)
	})

	assert.Len(t, c.GetTokenPairs(context.Background(), "solana", "SOL"), 2)
}

func TestGetPairByAddress(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/latest/dex/pairs/solana/PAIR1":
			fmt.Fprintf(w, `{"pairs":[%s]}`, solPair)
		case "/latest/dex/pairs/solana/EMPTY":
			io.WriteString(w, `{"pairs":[]}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	ctx := context.Background()

	p, ok := c.GetPairByAddress(ctx, "solana", "PAIR1")
	require.True(t, ok)
	assert.Equal(t, "PAIR1", p.PairAddress)

	_, ok = c.GetPairByAddress(ctx, "solana", "EMPTY")
	assert.False(t, ok)

	_, ok = c.GetPairByAddress(ctx, "solana", "BROKEN")
	assert.False(t, ok)
}

type recordingTransport struct {
	mu     sync.Mutex
	issued []time.Time
	base   http.RoundTripper
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	rt.issued = append(rt.issued, time.Now())
	rt.mu.Unlock()
	return rt.base.RoundTrip(req)
}

func TestClient_ConcurrentCallsAreRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "[]")
	}))
	defer srv.Close()

	interval := 50 * time.Millisecond
	rt := &recordingTransport{base: http.DefaultTransport}
	c := NewClient(Config{
		BaseURL:     srv.URL,
		MinInterval: interval,
		HTTPClient:  &http.Client{Transport: rt, Timeout: 2 * time.Second},
	}, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.GetTokens(context.Background(), []string{"SOL"})
		}()
	}
	wg.Wait()

	require.Len(t, rt.issued, 2)
	gap := rt.issued[1].Sub(rt.issued[0])
	if gap < 0 {
		gap = -gap
	}
	// the limiter stamps just before the round trip, allow scheduling slack
	assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond)
}

func TestFirstMatch_ResponseOrderWins(t *testing.T) {
	pairs := []TokenPair{
		{PairAddress: "A", BaseToken: Token{Address: "X"}, PriceUsd: "1"},
		{PairAddress: "B", QuoteToken: Token{Address: "MINT"}, PriceUsd: "2"},
		{PairAddress: "C", BaseToken: Token{Address: "MINT"}, PriceUsd: "3"},
	}

	p, ok := FirstMatch(pairs, "MINT")
	require.True(t, ok)
	assert.Equal(t, "B", p.PairAddress)

	_, ok = FirstMatch(pairs, "NONE")
	assert.False(t, ok)
}

func TestPriceUSD_Unparsable(t *testing.T) {
	assert.True(t, TokenPair{PriceUsd: "n/a"}.PriceUSD().IsZero())
	assert.True(t, TokenPair{}.PriceUSD().IsZero())
}

func TestPopularTokens(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprintf(w, "[%s]", solPair)
	})

	assert.Len(t, c.PopularTokens(context.Background()), 1)
	assert.Contains(t, gotPath, "/tokens/v1/solana/So11111111111111111111111111111111111111112,")
}

func TestProbe_RepeatsUntilCancelled(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		io.WriteString(w, "[]")
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.Probe(ctx, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return hits >= 3
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
}

func TestProbe_OnceWithoutInterval(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		io.WriteString(w, "[]")
	})

	c.Probe(context.Background(), 0)
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits)
}
