package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
)

var ErrInvalidToken = errors.New("invalid token")

func NewToken(operator models.Operator, duration time.Duration, secret string) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["uid"] = operator.OperatorID
	claims["email"] = operator.Email
	claims["role"] = operator.Role
	claims["exp"] = time.Now().Add(duration).Unix()

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry and returns the operator the
// token was issued for. PassHash is never part of the claims.
func ParseToken(tokenString, secret string) (models.Operator, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return models.Operator{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Operator{}, ErrInvalidToken
	}

	uid, _ := claims["uid"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if uid == "" || role == "" {
		return models.Operator{}, ErrInvalidToken
	}

	return models.Operator{
		OperatorID: uid,
		Email:      email,
		Role:       role,
	}, nil
}
