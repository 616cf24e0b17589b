package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SubscriptionClaims binds a subscribe token to one connection and one channel.
type SubscriptionClaims struct {
	ConnectionID string         `json:"connection_id"`
	Channel      string         `json:"channel"`
	UserID       string         `json:"user_id"`
	UserInfo     map[string]any `json:"user_info,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig holds subscribe token signing configuration.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// signToken creates a subscribe token for the given connection, channel and identity.
func signToken(cfg *JWTConfig, connectionID, channelName string, identity Identity) (string, error) {
	now := time.Now()
	claims := SubscriptionClaims{
		ConnectionID: connectionID,
		Channel:      channelName,
		UserID:       identity.UserID,
		UserInfo:     identity.Info,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// parseToken parses and validates a subscribe token.
func parseToken(cfg *JWTConfig, tokenString string) (*SubscriptionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SubscriptionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*SubscriptionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}

	if cfg.Audience != "" {
		validAudience := false
		for _, aud := range claims.Audience {
			if aud == cfg.Audience {
				validAudience = true
				break
			}
		}
		if !validAudience {
			return nil, fmt.Errorf("invalid audience")
		}
	}

	return claims, nil
}
