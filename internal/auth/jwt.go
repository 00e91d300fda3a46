package auth

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const TokenLifetime = 24 * time.Hour

var jwtSecret string

func InitJWTSecret() error {
	jwtSecret = os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	return nil
}

func GenerateJWT(userID uint, email string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(userID), 10),
		"email": email,
		"exp":   time.Now().Add(TokenLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

func VerifyJWT(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})

	if err != nil || !token.Valid {
		// Expired vs. malformed matters for diagnostics only; callers see
		// the same rejection either way.
		if err != nil && errors.Is(err, jwt.ErrTokenExpired) {
			log.Printf("Rejected expired token")
		}
		return nil, fmt.Errorf("Invalid or expired token")
	}

	return token, nil
}

// SubjectUserID extracts the user id carried in the token's subject claim.
func SubjectUserID(token *jwt.Token) (uint, error) {
	subject, err := token.Claims.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("Invalid token claims")
	}

	id, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("Invalid user ID in token claims")
	}

	return uint(id), nil
}
