package middleware

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gloamlab/gloam/internal/common/cnst"
	"github.com/gloamlab/gloam/internal/common/config"
	"github.com/gloamlab/gloam/internal/common/errorx"
)

// APIKeyAuth guards routes with an X-API-KEY header check behind a
// per-IP rate limit. The rate limit is evaluated first and the attempt
// recorded before the key is validated. With no keys configured every
// request is refused.
func APIKeyAuth(logger *zap.Logger, cfg *config.APIConfig, limiter *RateLimiter) gin.HandlerFunc {
	logger = logger.Named("apiserver.auth")

	keys := make(map[string]string)
	if cfg.KeysJSON != "" {
		if err := json.Unmarshal([]byte(cfg.KeysJSON), &keys); err != nil {
			logger.Error("keys_json did not parse into an object, refusing all requests",
				zap.Error(err))
			keys = make(map[string]string)
		}
	}
	if len(keys) == 0 {
		logger.Warn("no api keys configured, authenticated routes will refuse all requests")
	}

	errs := errorx.NewErrorHandler(logger)
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if limiter.Exceeded(clientIP) {
			logger.Warn("rate limit exceeded",
				zap.String("client_ip", clientIP))
			errs.HandleError(c, errorx.ErrRateLimitExceeded)
			c.Abort()
			return
		}

		if len(keys) == 0 {
			errs.HandleError(c, errorx.ConfigurationError("api", "keys_json", "no api keys configured"))
			c.Abort()
			return
		}

		// Counted before validation so failed keys spend the limit.
		limiter.Record(clientIP)

		key := c.GetHeader(cnst.HeaderAPIKey)
		client, ok := keys[key]
		if key == "" || !ok {
			logger.Warn("unauthorized api access attempt",
				zap.String("client_ip", clientIP),
				zap.Int("key_length", len(key)))
			errs.HandleError(c, errorx.ErrInvalidAPIKey)
			c.Abort()
			return
		}

		c.Set(cnst.CtxClientName, client)
		c.Next()
	}
}
