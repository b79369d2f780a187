package tokenizer

import "github.com/golang-jwt/jwt/v5"

// LinkClaims are the claims carried by a signer-page link token. The subject
// is the requester identity the HTTP callback resolves.
type LinkClaims struct {
	jwt.RegisteredClaims
}
