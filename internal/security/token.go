package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const apiTokenIssuer = "studentdesk"

type APIClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func GenerateAPIToken(secret string, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := APIClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    apiTokenIssuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func ParseAPIToken(tokenStr string, secret string) (*APIClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &APIClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(apiTokenIssuer))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*APIClaims); ok && token.Valid && claims.Username != "" {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// GenerateSessionToken returns a random client token and the key under which
// its server-side state is stored.
func GenerateSessionToken(length int) (string, string, error) {
	if length <= 0 {
		length = 32
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate session token: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(buf)
	return token, HashSessionToken(token), nil
}

func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
