package jwt

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/internal/utils"
)

// idClaimNames are consulted in order when extracting the numeric user identity
var idClaimNames = []string{"id", "userId", "employeeId", "user_id", "uid"}

// Claims is the subset of access token claims the client cares about.
// Claims are recomputed from the raw token whenever needed and never persisted.
type Claims struct {
	Exp      int64            // Expiry in epoch seconds, 0 when absent or unreadable
	Subject  string           // sub claim, the user's email for this backend
	Email    string           // email claim when present, otherwise Subject
	Name     string           // name claim, often omitted by the backend
	RolesRaw string           // roles claim as issued when it is a comma-separated string
	Roles    []string         // parsed roles, never nil
	UserID   *int64           // first numeric identity among idClaimNames
	Raw      jwtlib.MapClaims // every claim in the payload
}

// ExpiresAt returns the expiry as a time, zero when the token carries no exp
func (c *Claims) ExpiresAt() time.Time {
	if c == nil || c.Exp == 0 {
		return time.Time{}
	}
	return time.Unix(c.Exp, 0)
}

// IsExpired reports whether claims expire at or before now. Nil claims are expired.
func IsExpired(claims *Claims, now time.Time) bool {
	if claims == nil {
		return true
	}
	return claims.Exp <= now.Unix()
}

// ParseRoles splits a comma-separated roles claim, trimming whitespace and dropping empty segments
func ParseRoles(raw string) []string {
	return utils.SplitTrimmed(raw, ",")
}

// ExtractUserID returns the first alternate identity claim that parses to a finite integral number
func ExtractUserID(claims map[string]any) *int64 {
	for _, name := range idClaimNames {
		if id := NormalizeID(claims[name]); id != nil {
			return id
		}
	}
	return nil
}

// NormalizeID converts a claim or stored value to a numeric identity.
// Numbers and numeric strings are accepted when finite and integral; anything else yields nil.
func NormalizeID(value any) *int64 {
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		return utils.Ptr(int64(v))
	case int32:
		return utils.Ptr(int64(v))
	case int64:
		return utils.Ptr(v)
	case *int64:
		return v
	case float64:
		return floatID(v)
	case json.Number:
		return NormalizeID(v.String())
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return &i
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return floatID(f)
	default:
		return nil
	}
}

func floatID(f float64) *int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return nil
	}
	return utils.Ptr(int64(f))
}

func parseRolesClaim(value any) (raw string, roles []string) {
	switch v := value.(type) {
	case string:
		return v, ParseRoles(v)
	case []any:
		return "", utils.ToStringSlice(v)
	case []string:
		return "", utils.SplitTrimmed(strings.Join(v, ","), ",")
	default:
		return "", []string{}
	}
}
