package middleware

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/user/cagetracker/internal/utils"
)

// AuthHeader header carrying the JWT
const AuthHeader = "x-auth-token"

// Token scopes
const (
	ScopeSession = "session"
	// ScopeReset only reaches the password reset endpoints
	ScopeReset = "reset"
)

const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
	ctxAdmin  = "admin"
	ctxScope  = "scope"
)

// Claims JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin"`
	Scope  string `json:"scope"`
	jwt.RegisteredClaims
}

// RequireAuth rejects requests without a valid token. With no scopes listed only
// session tokens pass.
func RequireAuth(jwtSecret string, scopes ...string) gin.HandlerFunc {
	if len(scopes) == 0 {
		scopes = []string{ScopeSession}
	}
	return func(c *gin.Context) {
		claims, err := extractClaims(c, jwtSecret)
		if err != nil || !slices.Contains(scopes, claims.Scope) {
			utils.Unauthorized(c, "")
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth sets the user when a valid session token is present
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := extractClaims(c, jwtSecret); err == nil && claims.Scope == ScopeSession {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ctxAdmin) {
			utils.Forbidden(c, "")
			return
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *Claims) {
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxEmail, claims.Email)
	c.Set(ctxAdmin, claims.Admin)
	c.Set(ctxScope, claims.Scope)
}

// extractClaims reads the token from x-auth-token, falling back to a Bearer header
func extractClaims(c *gin.Context, jwtSecret string) (*Claims, error) {
	tokenString := strings.TrimSpace(c.GetHeader(AuthHeader))
	if tokenString == "" {
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if tokenString == "" {
		return nil, jwt.ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// GetUserID user id of the request, "" when anonymous
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetScope scope of the request token
func GetScope(c *gin.Context) string {
	return c.GetString(ctxScope)
}

// IsAdmin reports whether the request carries an admin token
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ctxAdmin)
}

// GenerateToken signs a token for the user
func GenerateToken(userID, email string, admin bool, scope, jwtSecret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Admin:  admin,
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}
