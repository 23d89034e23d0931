package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	userIDKey = "user_id"

	loginRedirect = "/auth/login"
	shopRedirect  = "/shop"

	feedRoute = "/api/admin/feed"
)

// corsMiddleware allows the storefront and admin frontends to call the API.
// Browsers refuse credentials on a wildcard origin, so "*" turns them off.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || containsWildcard(origins) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// requestLogger writes one access line per request. The query string is left
// out because the live feed carries its token there.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// bearerToken reads the Authorization header. Browsers cannot set headers on a
// websocket upgrade, so the feed route alone also accepts access_token.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if c.FullPath() == feedRoute {
		return c.Query("access_token")
	}
	return ""
}

// authenticate resolves the caller from an HS256 token whose subject is the user id.
// Requests without a token continue anonymously; a bad token is rejected.
func authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if len(secret) == 0 {
				return nil, errors.New("token verification is not configured")
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "Invalid or expired token",
				"redirect": loginRedirect,
			})
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Next()
	}
}

// currentUser returns the authenticated user id, or "" for anonymous requests
func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// requireUser rejects anonymous requests
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == "" {
			respondError(c, service.ErrUnauthenticated, "Authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireAdmin rejects users whose profile is not flagged as admin
func (h *Handler) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.admin.RequireAdmin(c.Request.Context(), currentUser(c)); err != nil {
			respondError(c, err, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// respondError maps service errors onto HTTP statuses with an {error, details} body
func respondError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	body := gin.H{"error": message, "details": err.Error()}

	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrTransferNotConfirmed):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		status = http.StatusUnauthorized
		body["redirect"] = loginRedirect
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
		body["redirect"] = shopRedirect
	case errors.Is(err, service.ErrInvalidStatusTransition),
		errors.Is(err, service.ErrCheckoutInProgress),
		errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	}

	c.JSON(status, body)
}

// bindError answers a request whose body failed binding or validation
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}
