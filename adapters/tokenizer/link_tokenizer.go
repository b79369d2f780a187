package tokenizer

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/0xblckmrq/signatory-role/ports"
)

const AudienceSignerLink = "verification:signer-link"

// LinkTokenizer implements the LinkTokenizer port using HMAC-signed JWTs.
// A token outlives its purpose once the challenge it was minted alongside
// expires, so its lifetime matches the challenge TTL.
type LinkTokenizer struct {
	secret []byte
	ttl    time.Duration
}

// NewLinkTokenizer creates a new link tokenizer
func NewLinkTokenizer(secret []byte, ttl time.Duration) ports.LinkTokenizer {
	return &LinkTokenizer{secret: secret, ttl: ttl}
}

// Mint creates a signed link token for the requester
func (t *LinkTokenizer) Mint(requesterID string) (string, error) {
	now := time.Now()
	claims := LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   requesterID,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{AudienceSignerLink},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign link token: %w", err)
	}

	return signedToken, nil
}

// RequesterID validates a link token and returns the requester it was minted for
func (t *LinkTokenizer) RequesterID(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &LinkClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithAudience(AudienceSignerLink))

	if err != nil {
		return "", fmt.Errorf("failed to parse link token: %w", err)
	}

	claims, ok := token.Claims.(*LinkClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("invalid link token claims")
	}

	return claims.Subject, nil
}
