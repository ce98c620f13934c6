package handlers

import (
	"net/http"
	"strings"

	"dexfolio/internal/models"

	"github.com/gin-gonic/gin"
)

const userKey = "user"

// Authenticate resolves a bearer token into the calling user. Requests
// without a valid token continue anonymously.
func (h *Handler) Authenticate(c *gin.Context) {
	if u, ok := h.auth.GetUserFromToken(bearerToken(c)); ok {
		c.Set(userKey, u)
	}
	c.Next()
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func currentUser(c *gin.Context) (models.PublicUser, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return models.PublicUser{}, false
	}
	u, ok := v.(models.PublicUser)
	return u, ok
}

func requireUser(c *gin.Context) (models.PublicUser, bool) {
	u, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
	return u, ok
}
