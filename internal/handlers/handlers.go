package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"dexfolio/internal/market"
	"dexfolio/internal/models"
	"dexfolio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Market is the part of the market client exposed over HTTP.
type Market interface {
	GetTokens(ctx context.Context, addresses []string) []market.TokenPair
	SearchTokens(ctx context.Context, query string) []market.TokenPair
	GetTokenPairs(ctx context.Context, chainID, tokenAddress string) []market.TokenPair
	GetPairByAddress(ctx context.Context, chainID, pairAddress string) (market.TokenPair, bool)
}

type Handler struct {
	auth      *service.AuthService
	portfolio *service.PortfolioService
	market    Market
	log       *logrus.Logger
}

func NewHandler(a *service.AuthService, p *service.PortfolioService, m Market, log *logrus.Logger) *Handler {
	return &Handler{auth: a, portfolio: p, market: m, log: log}
}

// Routes mounts every endpoint on r behind the Authenticate middleware.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/", h.Authenticate)
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/recover", h.Recover)
	api.POST("/auth/logout", h.Logout)
	api.GET("/me", h.Me)

	api.GET("/tokens", h.GetTokens)
	api.GET("/tokens/search", h.SearchTokens)
	api.GET("/tokens/pairs/:chainId/:tokenAddress", h.GetTokenPairs)
	api.GET("/pairs/:chainId/:pairAddress", h.GetPair)

	api.GET("/users/:userId/portfolio", h.GetPortfolio)
	api.GET("/users/:userId/holdings", h.GetHoldings)
	api.POST("/users/:userId/holdings", h.AddHolding)
	api.PATCH("/holdings/:holdingId", h.UpdateHolding)
	api.DELETE("/holdings/:holdingId", h.RemoveHolding)
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type recoverRequest struct {
	Username       string `json:"username" binding:"required"`
	RecoveryPhrase string `json:"recovery_phrase" binding:"required"`
	NewPassword    string `json:"new_password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	payload, err := h.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, payload)
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	payload, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (h *Handler) Recover(c *gin.Context) {
	var req recoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	payload, err := h.auth.RecoverPassword(c.Request.Context(), req.Username, req.RecoveryPhrase, req.NewPassword)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// Logout always succeeds, even for unknown tokens.
func (h *Handler) Logout(c *gin.Context) {
	h.auth.Logout(bearerToken(c))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me answers null for anonymous callers.
func (h *Handler) Me(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) GetTokens(c *gin.Context) {
	var addresses []string
	for _, a := range strings.Split(c.Query("addresses"), ",") {
		if a = strings.TrimSpace(a); a != "" {
			addresses = append(addresses, a)
		}
	}
	if len(addresses) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "addresses is required"})
		return
	}
	c.JSON(http.StatusOK, h.market.GetTokens(c.Request.Context(), addresses))
}

func (h *Handler) SearchTokens(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	c.JSON(http.StatusOK, h.market.SearchTokens(c.Request.Context(), q))
}

func (h *Handler) GetTokenPairs(c *gin.Context) {
	c.JSON(http.StatusOK, h.market.GetTokenPairs(c.Request.Context(), c.Param("chainId"), c.Param("tokenAddress")))
}

func (h *Handler) GetPair(c *gin.Context) {
	pair, ok := h.market.GetPairByAddress(c.Request.Context(), c.Param("chainId"), c.Param("pairAddress"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "pair not found"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	userID, ok := h.requireSelf(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.portfolio.GetPortfolio(c.Request.Context(), userID))
}

func (h *Handler) GetHoldings(c *gin.Context) {
	userID, ok := h.requireSelf(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.portfolio.GetHoldings(c.Request.Context(), userID))
}

func (h *Handler) AddHolding(c *gin.Context) {
	userID, ok := h.requireSelf(c)
	if !ok {
		return
	}
	var in models.HoldingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	holding, err := h.portfolio.AddHolding(c.Request.Context(), userID, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, holding)
}

func (h *Handler) UpdateHolding(c *gin.Context) {
	id := c.Param("holdingId")
	if !h.requireOwner(c, id, true) {
		return
	}
	var upd models.HoldingUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		h.badRequest(c, err)
		return
	}
	holding, err := h.portfolio.UpdateHolding(c.Request.Context(), id, upd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, holding)
}

func (h *Handler) RemoveHolding(c *gin.Context) {
	id := c.Param("holdingId")
	if !h.requireOwner(c, id, false) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": h.portfolio.RemoveHolding(c.Request.Context(), id)})
}

// requireSelf checks the caller is the user named in the path.
func (h *Handler) requireSelf(c *gin.Context) (string, bool) {
	u, ok := requireUser(c)
	if !ok {
		return "", false
	}
	userID := c.Param("userId")
	if u.ID != userID {
		h.log.Warnf("user %s denied access to user %s", u.ID, userID)
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return "", false
	}
	return userID, true
}

// requireOwner checks the caller owns the holding. Unknown holdings pass
// through unless mustExist is set, so delete can answer removed=false.
func (h *Handler) requireOwner(c *gin.Context, holdingID string, mustExist bool) bool {
	u, ok := requireUser(c)
	if !ok {
		return false
	}
	owner, found := h.portfolio.HoldingOwner(holdingID)
	if !found {
		if mustExist {
			h.fail(c, service.ErrHoldingNotFound)
			return false
		}
		return true
	}
	if owner != u.ID {
		h.log.Warnf("user %s denied access to holding %s", u.ID, holdingID)
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return false
	}
	return true
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.log.Warnf("invalid request body: %v", err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidRecoveryPhrase):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrHoldingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidHolding):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.log.Errorf("request failed: %v", err)
		c.JSON(status, gin.H{"error": "internal"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
