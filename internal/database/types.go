package database

import (
	"time"

	"dexfolio/internal/models"

	"github.com/shopspring/decimal"
)

type UserRow struct {
	Position       int    `db:"position" json:"-"`
	ID             string `db:"id" json:"id"`
	Username       string `db:"username" json:"username"`
	PasswordHash   string `db:"password_hash" json:"password"`
	RecoveryPhrase string `db:"recovery_phrase" json:"recoveryPhrase"`
	CreatedAt      string `db:"created_at" json:"createdAt"`
}

// PortfolioRow only carries identifying fields plus the last computed total,
// which is a cache and is recomputed on every read.
type PortfolioRow struct {
	Position   int             `db:"position" json:"-"`
	ID         string          `db:"id" json:"id"`
	UserID     string          `db:"user_id" json:"userId"`
	TotalValue decimal.Decimal `db:"total_value" json:"totalValue"`
}

type HoldingRow struct {
	Position     int             `db:"position" json:"-"`
	ID           string          `db:"id" json:"id"`
	UserID       string          `db:"user_id" json:"userId"`
	TokenAddress string          `db:"token_address" json:"tokenAddress"`
	TokenSymbol  string          `db:"token_symbol" json:"tokenSymbol"`
	TokenName    string          `db:"token_name" json:"tokenName"`
	Quantity     decimal.Decimal `db:"quantity" json:"quantity"`
	AveragePrice decimal.Decimal `db:"average_price" json:"averagePrice"`
}

func userToRow(u models.User) UserRow {
	return UserRow{
		ID:             u.ID,
		Username:       u.Username,
		PasswordHash:   u.PasswordHash,
		RecoveryPhrase: u.RecoveryPhrase,
		CreatedAt:      u.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func userFromRow(r UserRow) models.User {
	created, _ := time.Parse(time.RFC3339Nano, r.CreatedAt)
	return models.User{
		ID:             r.ID,
		Username:       r.Username,
		PasswordHash:   r.PasswordHash,
		RecoveryPhrase: r.RecoveryPhrase,
		CreatedAt:      created,
	}
}

func portfolioToRow(p models.Portfolio) PortfolioRow {
	return PortfolioRow{ID: p.ID, UserID: p.UserID, TotalValue: p.TotalValue}
}

func portfolioFromRow(r PortfolioRow) models.Portfolio {
	return models.Portfolio{ID: r.ID, UserID: r.UserID, TotalValue: r.TotalValue}
}

func holdingToRow(h models.Holding) HoldingRow {
	return HoldingRow{
		ID:           h.ID,
		UserID:       h.UserID,
		TokenAddress: h.TokenAddress,
		TokenSymbol:  h.TokenSymbol,
		TokenName:    h.TokenName,
		Quantity:     h.Quantity,
		AveragePrice: h.AveragePrice,
	}
}

func holdingFromRow(r HoldingRow) models.Holding {
	return models.Holding{
		ID:           r.ID,
		UserID:       r.UserID,
		TokenAddress: r.TokenAddress,
		TokenSymbol:  r.TokenSymbol,
		TokenName:    r.TokenName,
		Quantity:     r.Quantity,
		AveragePrice: r.AveragePrice,
	}
}
