package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	RecoveryPhrase string    `json:"recovery_phrase"`
	CreatedAt      time.Time `json:"created_at"`
}

// PublicUser is what callers get back. The recovery phrase stays visible for
// the lifetime of the account.
type PublicUser struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	RecoveryPhrase string    `json:"recovery_phrase"`
	CreatedAt      time.Time `json:"created_at"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, RecoveryPhrase: u.RecoveryPhrase, CreatedAt: u.CreatedAt}
}

type AuthPayload struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

type Holding struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	TokenAddress string          `json:"token_address"`
	TokenSymbol  string          `json:"token_symbol"`
	TokenName    string          `json:"token_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`

	// derived on every read, never persisted
	CurrentPrice         decimal.Decimal `json:"current_price"`
	CurrentValue         decimal.Decimal `json:"current_value"`
	ProfitLoss           decimal.Decimal `json:"profit_loss"`
	ProfitLossPercentage decimal.Decimal `json:"profit_loss_percentage"`
}

// Revalue recomputes the derived fields of h at the given price.
func (h *Holding) Revalue(price decimal.Decimal) {
	h.CurrentPrice = price
	h.CurrentValue = h.Quantity.Mul(price)
	h.ProfitLoss = h.CurrentValue.Sub(h.Quantity.Mul(h.AveragePrice))
	if h.AveragePrice.LessThanOrEqual(decimal.Zero) {
		h.ProfitLossPercentage = decimal.Zero
		return
	}
	h.ProfitLossPercentage = price.Sub(h.AveragePrice).Div(h.AveragePrice).Mul(decimal.NewFromInt(100))
}

type HoldingInput struct {
	TokenAddress string          `json:"token_address" binding:"required"`
	TokenSymbol  string          `json:"token_symbol" binding:"required"`
	TokenName    string          `json:"token_name" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
}

// HoldingUpdate only applies the fields that are set.
type HoldingUpdate struct {
	Quantity     *decimal.Decimal `json:"quantity"`
	AveragePrice *decimal.Decimal `json:"average_price"`
}

type Portfolio struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	TotalValue decimal.Decimal `json:"total_value"`
	Holdings   []Holding       `json:"holdings"`
}
