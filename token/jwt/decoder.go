package jwt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/internal/errors"
)

var parser = jwtlib.NewParser(jwtlib.WithPaddingAllowed(), jwtlib.WithJSONNumber())

// Decode extracts claims from a compact three-segment token without verifying its signature.
// Verification is the server's job; the result is only used for display and role checks.
// Errors match errors.ErrMalformedToken.
func Decode(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, fmt.Errorf("%w: empty token", errors.ErrMalformedToken)
	}

	parsed, _, err := parser.ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil && !isUnverifiableOnly(err) {
		return nil, fmt.Errorf("%w: %w", errors.ErrMalformedToken, err)
	}

	if parsed == nil {
		return nil, fmt.Errorf("%w: no token parsed", errors.ErrMalformedToken)
	}
	mc, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok || mc == nil {
		return nil, fmt.Errorf("%w: error extracting claims", errors.ErrMalformedToken)
	}
	if len(mc) == 0 && !payloadIsObject(rawToken) {
		return nil, fmt.Errorf("%w: payload is not an object", errors.ErrMalformedToken)
	}

	claims := &Claims{
		UserID: ExtractUserID(mc),
		Raw:    mc,
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.Exp = exp.Unix()
	}
	claims.Subject, _ = mc["sub"].(string)
	claims.Name, _ = mc["name"].(string)
	claims.Email, _ = mc["email"].(string)
	if claims.Email == "" {
		claims.Email = claims.Subject
	}
	claims.RolesRaw, claims.Roles = parseRolesClaim(mc["roles"])

	return claims, nil
}

// IsValid reports whether rawToken decodes and has not expired at now
func IsValid(rawToken string, now time.Time) bool {
	claims, err := Decode(rawToken)
	if err != nil {
		return false
	}
	return !IsExpired(claims, now)
}

// isUnverifiableOnly is true when the payload decoded but the alg header is unknown or missing.
// The client never verifies, so such tokens are still readable.
func isUnverifiableOnly(err error) bool {
	return errors.Is(err, jwtlib.ErrTokenUnverifiable) && !errors.Is(err, jwtlib.ErrTokenMalformed)
}

// payloadIsObject rejects payloads such as "null" that decode to empty claims
func payloadIsObject(rawToken string) bool {
	parts := strings.Split(rawToken, ".")
	if len(parts) != 3 {
		return false
	}
	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return false
	}
	return bytes.HasPrefix(bytes.TrimSpace(payload), []byte("{"))
}
