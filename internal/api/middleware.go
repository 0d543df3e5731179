// internal/api/middleware.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"loan-management-service/internal/common/auth"
	apperrors "loan-management-service/internal/common/errors"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/common/metrics"
	"loan-management-service/internal/common/ratelimit"
	"loan-management-service/internal/models"

	"github.com/gin-gonic/gin"
)

const userContextKey = "authenticatedUser"

// RequestLogger logs one line per request in the structured format used
// everywhere else.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("http request", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"clientIp": c.ClientIP(),
		})
	}
}

// Observe records Prometheus request metrics.
func Observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Authenticate verifies the bearer token and stores the user on the context.
func Authenticate(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := verifier.Verify(c.GetHeader("Authorization"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequirePermission rejects requests whose authenticated role lacks the
// permission. Must run after Authenticate.
func RequirePermission(permission auth.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			abortWithError(c, apperrors.NewUnauthorizedError("no authenticated user"))
			return
		}
		if !auth.HasPermission(user.Role, permission) {
			abortWithError(c, apperrors.NewForbiddenError(string(permission)))
			return
		}
		c.Next()
	}
}

// RateLimit applies the fixed-window quota per client IP. A nil limiter
// disables limiting.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		result := limiter.Allow(c.Request.Context(), c.ClientIP())
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetIn.Milliseconds()))
		if !result.Allowed {
			abortWithError(c, apperrors.NewRateLimitedError(result.ResetIn.Milliseconds()))
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func abortWithError(c *gin.Context, err error) {
	stdErr := apperrors.AsStandard(err)
	if stdErr == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	body := gin.H{
		"error": stdErr.Message,
		"code":  string(stdErr.Code),
	}
	if stdErr.Details != "" {
		body["details"] = stdErr.Details
	}
	if len(stdErr.Fields) > 0 {
		body["fields"] = stdErr.Fields
	}
	c.AbortWithStatusJSON(apperrors.HTTPStatus(stdErr.Code), body)
}
