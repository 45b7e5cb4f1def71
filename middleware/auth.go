package middleware

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var errNotOrganizer = errors.New("token has no organizer role")

// VerifyOrganizerToken checks a token issued by the external auth service and
// reports whether it grants organizer rights. The engine only verifies; it
// never issues credentials.
func VerifyOrganizerToken(tokenString, secret string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return errors.New("invalid token claims")
	}
	if role, _ := claims["role"].(string); role != "organizer" {
		return errNotOrganizer
	}
	return nil
}
