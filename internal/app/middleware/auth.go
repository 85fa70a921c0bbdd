package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/folivafy/folivafy/internal/domain/auth"
)

const callerKey = "caller"

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Auth validates the bearer token and stores the resulting caller in the
// gin context. Roles are read from the realm_access claim.
func Auth(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "missing_authorization",
				Message: "Authorization header is required",
			})
			c.Abort()
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_authorization_format",
				Message: "Authorization header must be in format: Bearer <token>",
			})
			c.Abort()
			return
		}

		options := []jwt.ParserOption{
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		}
		if issuer != "" {
			options = append(options, jwt.WithIssuer(issuer))
		}

		token, err := jwt.Parse(tokenParts[1], func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, options...)
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_token",
				Message: "Token validation failed",
			})
			c.Abort()
			return
		}

		caller, err := callerFromClaims(token.Claims)
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_claims",
				Message: "Token carries no usable identity",
			})
			c.Abort()
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

func callerFromClaims(claims jwt.Claims) (auth.Caller, error) {
	mapClaims, ok := claims.(jwt.MapClaims)
	if !ok {
		return auth.Caller{}, jwt.ErrTokenInvalidClaims
	}

	sub, _ := mapClaims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return auth.Caller{}, jwt.ErrTokenInvalidSubject
	}

	username, _ := mapClaims["preferred_username"].(string)
	if username == "" {
		username = sub
	}

	var roles []string
	if realmAccess, ok := mapClaims["realm_access"].(map[string]interface{}); ok {
		if rawRoles, ok := realmAccess["roles"].([]interface{}); ok {
			for _, r := range rawRoles {
				if role, ok := r.(string); ok {
					roles = append(roles, role)
				}
			}
		}
	}

	return auth.NewCaller(id, username, roles), nil
}

// GetCaller retrieves the authenticated caller from the gin context.
func GetCaller(c *gin.Context) (auth.Caller, bool) {
	value, exists := c.Get(callerKey)
	if !exists {
		return auth.Caller{}, false
	}
	caller, ok := value.(auth.Caller)
	return caller, ok
}
