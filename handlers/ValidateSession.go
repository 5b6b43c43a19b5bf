package handlers

import (
	"backend/storage"
	"backend/utils"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// paramInt reads an integer path parameter.
func paramInt(c *gin.Context, name string) (int, error) {
	return strconv.Atoi(c.Param(name))
}

// SessionDetails carries the authenticated user extracted from a request.
type SessionDetails struct {
	UserID int
	Email  string
}

// GetSessionDetails resolves the Authorization header to a live session.
// Used by document handlers to attribute activity-log entries.
func GetSessionDetails(c *gin.Context, db *sql.DB) (*SessionDetails, error) {
	token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	if token == "" {
		return nil, errors.New("missing authorization header")
	}

	parsed, err := utils.ValidateJWT(token)
	if err != nil || !parsed.Valid {
		return nil, errors.New("invalid or expired token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, errors.New("token missing email claim")
	}

	user, err := storage.GetUserByEmail(db, email)
	if err != nil {
		return nil, errors.New("user not found")
	}
	return &SessionDetails{UserID: user.ID, Email: user.Email}, nil
}

// ValidateSession validates user session
// @Summary Validate session
// @Description Validate user session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} models.ValidateSessionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/validate-session [post]
func ValidateSession(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Authorization header"})
			return
		}

		sessionToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if sessionToken == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Empty session token"})
			return
		}

		parsed, err := utils.ValidateJWT(sessionToken)
		if err != nil || !parsed.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": "Invalid or expired token"})
			return
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": "Invalid token claims"})
			return
		}

		if exp, ok := claims["exp"].(float64); ok {
			if time.Now().After(time.Unix(int64(exp), 0)) {
				c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": "Token expired"})
				return
			}
		}

		email, _ := claims["email"].(string)
		user, err := storage.GetUserByEmail(db, email)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": "Session not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"valid": true,
			"user": gin.H{
				"id":    user.ID,
				"email": user.Email,
			},
		})
	}
}
