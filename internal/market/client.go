package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL     = "https://api.dexscreener.com"
	DefaultChain       = "solana"
	DefaultMinInterval = time.Second
	DefaultTimeout     = 10 * time.Second
)

// ErrUnavailable wraps every upstream failure: transport, status or decode.
var ErrUnavailable = errors.New("market data unavailable")

// popularTokens are probed at startup to check the upstream is reachable.
var popularTokens = []string{
	"So11111111111111111111111111111111111111112",  // SOL
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", // USDT
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",  // JUP
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", // BONK
}

type Config struct {
	BaseURL     string
	Chain       string
	MinInterval time.Duration
	Timeout     time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the pair-data provider. All methods share one Limiter, so
// building a single Client per process makes the rate limit process-wide.
type Client struct {
	baseURL string
	chain   string
	http    *http.Client
	limiter *Limiter
	log     *logrus.Logger
}

func NewClient(cfg Config, log *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Chain == "" {
		cfg.Chain = DefaultChain
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		chain:   cfg.Chain,
		http:    hc,
		limiter: NewLimiter(cfg.MinInterval),
		log:     log,
	}
}

type pairsEnvelope struct {
	Pairs []TokenPair `json:"pairs"`
}

// FetchTokens is the batch lookup with the failure kept explicit.
func (c *Client) FetchTokens(ctx context.Context, addresses []string) ([]TokenPair, error) {
	escaped := make([]string, len(addresses))
	for i, a := range addresses {
		escaped[i] = url.PathEscape(a)
	}
	var pairs []TokenPair
	if err := c.get(ctx, "/tokens/v1/"+url.PathEscape(c.chain)+"/"+strings.Join(escaped, ","), &pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

// GetTokens returns the pairs for addresses, or an empty slice when the
// provider could not be reached. Empty means "no data", not "no tokens".
func (c *Client) GetTokens(ctx context.Context, addresses []string) []TokenPair {
	pairs, err := c.FetchTokens(ctx, addresses)
	if err != nil {
		c.log.Errorf("error fetching tokens: %v", err)
		return []TokenPair{}
	}
	return nonNil(pairs)
}

func (c *Client) SearchTokens(ctx context.Context, query string) []TokenPair {
	var env pairsEnvelope
	if err := c.get(ctx, "/latest/dex/search?q="+url.QueryEscape(query), &env); err != nil {
		c.log.Errorf("error searching tokens: %v", err)
		return []TokenPair{}
	}
	return nonNil(env.Pairs)
}

func (c *Client) GetTokenPairs(ctx context.Context, chainID, tokenAddress string) []TokenPair {
	var pairs []TokenPair
	if err := c.get(ctx, "/token-pairs/v1/"+url.PathEscape(chainID)+"/"+url.PathEscape(tokenAddress), &pairs); err != nil {
		c.log.Errorf("error fetching token pairs: %v", err)
		return []TokenPair{}
	}
	return nonNil(pairs)
}

// GetPairByAddress returns the first pair the provider lists for the address.
func (c *Client) GetPairByAddress(ctx context.Context, chainID, pairAddress string) (TokenPair, bool) {
	var env pairsEnvelope
	if err := c.get(ctx, "/latest/dex/pairs/"+url.PathEscape(chainID)+"/"+url.PathEscape(pairAddress), &env); err != nil {
		c.log.Errorf("error fetching pair: %v", err)
		return TokenPair{}, false
	}
	if len(env.Pairs) == 0 {
		return TokenPair{}, false
	}
	return env.Pairs[0], true
}

func (c *Client) PopularTokens(ctx context.Context) []TokenPair {
	return c.GetTokens(ctx, popularTokens)
}

// Probe is a reachability check on the popular tokens. With a positive
// interval it keeps probing in the background until ctx is done.
func (c *Client) Probe(ctx context.Context, interval time.Duration) {
	c.log.Info("testing market data connection")
	c.log.Infof("fetched %d popular token pairs", len(c.PopularTokens(ctx)))
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.log.Info("market probe stopping")
				return
			case <-ticker.C:
				n := len(c.PopularTokens(ctx))
				if n == 0 {
					c.log.Warn("market probe returned no pairs")
					continue
				}
				c.log.Debugf("market probe fetched %d pairs", n)
			}
		}
	}()
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	issued := c.limiter.Wait()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"path":    req.URL.Path,
		"status":  resp.StatusCode,
		"elapsed": time.Since(issued).String(),
	}).Debug("market request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: GET %s: %s", ErrUnavailable, req.URL.Path, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, req.URL.Path, err)
	}
	return nil
}

func nonNil(pairs []TokenPair) []TokenPair {
	if pairs == nil {
		return []TokenPair{}
	}
	return pairs
}
