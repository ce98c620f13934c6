package service

import (
	"context"
	"fmt"
	"sync"

	"dexfolio/internal/database"
	"dexfolio/internal/market"
	"dexfolio/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PriceSource is the batch lookup the valuation needs. Errors mean the
// provider was unavailable; the caller falls back to stored prices.
type PriceSource interface {
	FetchTokens(ctx context.Context, addresses []string) ([]market.TokenPair, error)
}

// PortfolioService keeps holdings per user and values them against live
// prices on every read.
type PortfolioService struct {
	mu         sync.Mutex
	portfolios map[string]*models.Portfolio
	// creation order, for persistence
	portfolioList []*models.Portfolio
	holdings      map[string][]*models.Holding
	userOrder     []string
	owners        map[string]string

	prices         PriceSource
	portfolioStore database.Collection[models.Portfolio]
	holdingStore   database.Collection[models.Holding]
	log            *logrus.Logger
}

func NewPortfolioService(prices PriceSource, portfolios database.Collection[models.Portfolio], holdings database.Collection[models.Holding], log *logrus.Logger) *PortfolioService {
	return &PortfolioService{
		portfolios:     map[string]*models.Portfolio{},
		holdings:       map[string][]*models.Holding{},
		owners:         map[string]string{},
		prices:         prices,
		portfolioStore: portfolios,
		holdingStore:   holdings,
		log:            log,
	}
}

func (s *PortfolioService) Load(ctx context.Context) error {
	portfolios, err := s.portfolioStore.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load portfolios: %w", err)
	}
	holdings, err := s.holdingStore.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load holdings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolios = make(map[string]*models.Portfolio, len(portfolios))
	s.portfolioList = s.portfolioList[:0]
	for i := range portfolios {
		p := portfolios[i]
		s.portfolios[p.UserID] = &p
		s.portfolioList = append(s.portfolioList, &p)
	}
	s.holdings = map[string][]*models.Holding{}
	s.userOrder = s.userOrder[:0]
	s.owners = make(map[string]string, len(holdings))
	for i := range holdings {
		h := holdings[i]
		s.appendLocked(&h)
	}
	s.log.Infof("loaded %d portfolios and %d holdings", len(portfolios), len(holdings))
	return nil
}

// GetPortfolio values the user's holdings and records the total. A missing
// portfolio is created on the fly.
func (s *PortfolioService) GetPortfolio(ctx context.Context, userID string) models.Portfolio {
	s.mu.Lock()
	p, ok := s.portfolios[userID]
	if !ok {
		p = &models.Portfolio{ID: uuid.NewString(), UserID: userID, TotalValue: decimal.Zero}
		s.portfolios[userID] = p
		s.portfolioList = append(s.portfolioList, p)
	}
	s.mu.Unlock()

	holdings := s.GetHoldings(ctx, userID)
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.CurrentValue)
	}

	s.mu.Lock()
	p.TotalValue = total
	s.persistPortfoliosLocked(ctx)
	out := models.Portfolio{ID: p.ID, UserID: p.UserID, TotalValue: total, Holdings: holdings}
	s.mu.Unlock()
	return out
}

// GetHoldings returns the user's holdings valued at the first matching live
// pair price, or at their average price when no pair matches or the provider
// is down. Users without holdings cost no upstream request.
func (s *PortfolioService) GetHoldings(ctx context.Context, userID string) []models.Holding {
	s.mu.Lock()
	stored := s.holdings[userID]
	holdings := make([]models.Holding, 0, len(stored))
	for _, h := range stored {
		holdings = append(holdings, *h)
	}
	s.mu.Unlock()

	if len(holdings) == 0 {
		return holdings
	}

	var addresses []string
	seen := map[string]bool{}
	for _, h := range holdings {
		if !seen[h.TokenAddress] {
			seen[h.TokenAddress] = true
			addresses = append(addresses, h.TokenAddress)
		}
	}

	pairs, err := s.prices.FetchTokens(ctx, addresses)
	if err != nil {
		s.log.Warnf("error updating holding prices, using average prices: %v", err)
		pairs = nil
	}

	for i := range holdings {
		h := &holdings[i]
		price := h.AveragePrice
		if pair, ok := market.FirstMatch(pairs, h.TokenAddress); ok {
			price = pair.PriceUSD()
		}
		h.Revalue(price)
	}
	return holdings
}

// AddHolding records a position valued at its own average price. The result
// is not refreshed from the market.
func (s *PortfolioService) AddHolding(ctx context.Context, userID string, in models.HoldingInput) (models.Holding, error) {
	if in.Quantity.IsNegative() || in.AveragePrice.IsNegative() {
		return models.Holding{}, ErrInvalidHolding
	}
	h := &models.Holding{
		ID:           uuid.NewString(),
		UserID:       userID,
		TokenAddress: in.TokenAddress,
		TokenSymbol:  in.TokenSymbol,
		TokenName:    in.TokenName,
		Quantity:     in.Quantity,
		AveragePrice: in.AveragePrice,
	}
	h.Revalue(in.AveragePrice)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(h)
	s.persistHoldingsLocked(ctx)
	return *h, nil
}

// UpdateHolding applies the set fields and revalues at the holding's last
// known price, without asking the market.
func (s *PortfolioService) UpdateHolding(ctx context.Context, holdingID string, upd models.HoldingUpdate) (models.Holding, error) {
	if (upd.Quantity != nil && upd.Quantity.IsNegative()) || (upd.AveragePrice != nil && upd.AveragePrice.IsNegative()) {
		return models.Holding{}, ErrInvalidHolding
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h, _ := s.findLocked(holdingID)
	if h == nil {
		return models.Holding{}, ErrHoldingNotFound
	}
	if upd.Quantity != nil {
		h.Quantity = *upd.Quantity
	}
	if upd.AveragePrice != nil {
		h.AveragePrice = *upd.AveragePrice
	}
	price := h.CurrentPrice
	if price.IsZero() {
		price = h.AveragePrice
	}
	h.Revalue(price)
	s.persistHoldingsLocked(ctx)
	return *h, nil
}

// RemoveHolding reports whether a holding was deleted. Unknown ids are not an
// error.
func (s *PortfolioService) RemoveHolding(ctx context.Context, holdingID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, idx := s.findLocked(holdingID)
	if h == nil {
		return false
	}
	list := s.holdings[h.UserID]
	s.holdings[h.UserID] = append(list[:idx:idx], list[idx+1:]...)
	delete(s.owners, holdingID)
	s.persistHoldingsLocked(ctx)
	return true
}

// HoldingOwner returns the user id a holding belongs to.
func (s *PortfolioService) HoldingOwner(holdingID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.owners[holdingID]
	return owner, ok
}

func (s *PortfolioService) appendLocked(h *models.Holding) {
	if _, ok := s.holdings[h.UserID]; !ok {
		s.userOrder = append(s.userOrder, h.UserID)
	}
	s.holdings[h.UserID] = append(s.holdings[h.UserID], h)
	s.owners[h.ID] = h.UserID
}

func (s *PortfolioService) findLocked(holdingID string) (*models.Holding, int) {
	owner, ok := s.owners[holdingID]
	if !ok {
		return nil, -1
	}
	for i, h := range s.holdings[owner] {
		if h.ID == holdingID {
			return h, i
		}
	}
	return nil, -1
}

func (s *PortfolioService) persistHoldingsLocked(ctx context.Context) {
	var all []models.Holding
	for _, userID := range s.userOrder {
		for _, h := range s.holdings[userID] {
			all = append(all, *h)
		}
	}
	if err := s.holdingStore.ReplaceAll(ctx, all); err != nil {
		s.log.Errorf("error saving holdings: %v", err)
	}
}

func (s *PortfolioService) persistPortfoliosLocked(ctx context.Context) {
	all := make([]models.Portfolio, 0, len(s.portfolioList))
	for _, p := range s.portfolioList {
		all = append(all, models.Portfolio{ID: p.ID, UserID: p.UserID, TotalValue: p.TotalValue})
	}
	if err := s.portfolioStore.ReplaceAll(ctx, all); err != nil {
		s.log.Errorf("error saving portfolio data: %v", err)
	}
}
