package authapi

import (
	"github.com/jrsteele09/go-auth-session/token"
)

// APIResponse is the envelope every backend endpoint responds with
type APIResponse[T any] struct {
	Success    *bool         `json:"success"`
	Message    string        `json:"message,omitempty"`
	Data       T             `json:"data,omitempty"`
	Pagination *PageMetadata `json:"pagination,omitempty"`
}

// PageMetadata accompanies paged list responses
type PageMetadata struct {
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the token pair together with the user's identity
type LoginResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"tokenType"`
	ExpiresIn    int64    `json:"expiresIn"` // seconds
	ID           *int64   `json:"id"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Roles        []string `json:"roles"`
}

// Pair returns the token pair of the login response
func (r LoginResponse) Pair() token.Pair {
	return token.Pair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Department string `json:"department"`
}
