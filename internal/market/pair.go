package market

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type TxnCount struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

type Txns struct {
	M5  *TxnCount `json:"m5,omitempty"`
	H1  *TxnCount `json:"h1,omitempty"`
	H6  *TxnCount `json:"h6,omitempty"`
	H24 *TxnCount `json:"h24,omitempty"`
}

// Windowed holds a metric over the 5m, 1h, 6h and 24h windows.
type Windowed struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

type Liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

type Website struct {
	URL string `json:"url"`
}

type Social struct {
	Platform string `json:"platform"`
	Handle   string `json:"handle"`
}

type Info struct {
	ImageURL string    `json:"imageUrl,omitempty"`
	Websites []Website `json:"websites,omitempty"`
	Socials  []Social  `json:"socials,omitempty"`
}

// TokenPair is one trading pair on one venue as returned by the upstream
// provider.
type TokenPair struct {
	ChainID       string     `json:"chainId"`
	DexID         string     `json:"dexId"`
	URL           string     `json:"url,omitempty"`
	PairAddress   string     `json:"pairAddress"`
	BaseToken     Token      `json:"baseToken"`
	QuoteToken    Token      `json:"quoteToken"`
	PriceNative   string     `json:"priceNative,omitempty"`
	PriceUsd      string     `json:"priceUsd,omitempty"`
	Txns          *Txns      `json:"txns,omitempty"`
	Volume        *Windowed  `json:"volume,omitempty"`
	PriceChange   *Windowed  `json:"priceChange,omitempty"`
	Liquidity     *Liquidity `json:"liquidity,omitempty"`
	FDV           float64    `json:"fdv,omitempty"`
	MarketCap     float64    `json:"marketCap,omitempty"`
	PairCreatedAt float64    `json:"pairCreatedAt,omitempty"`
	Info          *Info      `json:"info,omitempty"`
}

// Matches reports whether address is the base or the quote token of the pair.
func (p TokenPair) Matches(address string) bool {
	return p.BaseToken.Address == address || p.QuoteToken.Address == address
}

// PriceUSD parses the quoted USD price. Missing or malformed prices are zero.
func (p TokenPair) PriceUSD() decimal.Decimal {
	s := strings.TrimSpace(p.PriceUsd)
	if s == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// FirstMatch returns the first pair in response order that trades address.
func FirstMatch(pairs []TokenPair, address string) (TokenPair, bool) {
	for _, p := range pairs {
		if p.Matches(address) {
			return p, true
		}
	}
	return TokenPair{}, false
}
