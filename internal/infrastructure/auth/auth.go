package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"mediavault/services/media-api/internal/config"
)

const (
	userIDKey    = "user_id"
	authTokenKey = "auth_token"

	// HeaderUserID carries the caller identity injected by the gateway.
	HeaderUserID = "X-User-ID"
)

// Validator resolves the calling user from gateway headers or a JWKS-verified bearer token.
type Validator struct {
	cfg  *config.Config
	log  zerolog.Logger
	jwks *keyfunc.JWKS
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	logger := log.With().Str("component", "auth").Logger()
	if !cfg.AuthEnabled {
		logger.Warn().Msg("AUTH_ENABLED is false; trusting the X-User-ID header")
		return &Validator{cfg: cfg, log: logger}, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, err
	}
	return NewValidatorWithJWKS(cfg, logger, jwks), nil
}

// NewValidatorWithJWKS builds a validator around an already loaded key set.
func NewValidatorWithJWKS(cfg *config.Config, log zerolog.Logger, jwks *keyfunc.JWKS) *Validator {
	return &Validator{cfg: cfg, log: log, jwks: jwks}
}

// Middleware stores the caller id under "user_id" or aborts with 401.
func (v *Validator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.cfg.AuthEnabled {
			userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
			if userID == "" {
				abortUnauthorized(c, "missing X-User-ID header")
				return
			}
			c.Set(userIDKey, userID)
			c.Next()
			return
		}

		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		token, err := jwt.Parse(tokenString, v.jwks.Keyfunc,
			jwt.WithIssuer(v.cfg.AuthIssuer),
			jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
			jwt.WithLeeway(time.Minute),
		)
		if err != nil || !token.Valid {
			v.log.Debug().Err(err).Msg("jwt validation failed")
			abortUnauthorized(c, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "invalid token claims")
			return
		}

		if audience := strings.TrimSpace(v.cfg.Account); audience != "" && !hasAudience(claims, audience) {
			abortUnauthorized(c, "invalid token audience")
			return
		}

		subject, err := claims.GetSubject()
		if err != nil || strings.TrimSpace(subject) == "" {
			abortUnauthorized(c, "token has no subject")
			return
		}

		c.Set(authTokenKey, token)
		c.Set(userIDKey, subject)
		c.Next()
	}
}

// Ready indicates if the validator is prepared.
func (v *Validator) Ready() bool {
	if v == nil || !v.cfg.AuthEnabled {
		return true
	}
	return v.jwks != nil
}

// UserID returns the caller id stored by Middleware.
func UserID(c *gin.Context) (string, bool) {
	userID := c.GetString(userIDKey)
	return userID, userID != ""
}

func hasAudience(claims jwt.MapClaims, audience string) bool {
	auds, err := claims.GetAudience()
	if err != nil {
		return false
	}
	if len(auds) == 0 {
		return true
	}
	for _, aud := range auds {
		if aud == audience {
			return true
		}
	}
	return false
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":  "UNAUTHORIZED",
		"error": message,
	})
}
