package token

import (
	"time"

	"golang.org/x/oauth2"
)

// TypeBearer is the only token type issued by the auth API
const TypeBearer = "Bearer"

// Pair is the access/refresh token pair held by the session store.
// It is replaced wholesale on login, refresh and logout; never mutated in place.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// IsZero reports whether the pair carries no access token
func (p Pair) IsZero() bool {
	return p.AccessToken == ""
}

// OAuth2 converts the pair to an oauth2.Token. A zero expiry means the token never expires.
func (p Pair) OAuth2(expiry time.Time) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    TypeBearer,
		Expiry:       expiry,
	}
}
