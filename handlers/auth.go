package handlers

import (
	"net/http"
	"strings"

	"catastro-backend/models"
	"catastro-backend/service"

	"github.com/gin-gonic/gin"
)

const actorContextKey = "actor"

// AuthRequired validates the bearer token and puts the resolved Actor in
// the gin context. Capability grants are loaded fresh on every request.
func AuthRequired(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing bearer token",
				},
			})
			return
		}

		actor, err := tokens.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid or expired token",
				},
			})
			return
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// currentActor retrieves the Actor stored by AuthRequired
func currentActor(c *gin.Context) models.Actor {
	value, _ := c.Get(actorContextKey)
	actor, _ := value.(models.Actor)
	return actor
}
