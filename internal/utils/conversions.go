package utils

import "strings"

// ToStringSlice keeps the non-empty string elements of slice, trimmed
func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0, len(slice))
	for _, v := range slice {
		if s, ok := v.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				stringSlice = append(stringSlice, s)
			}
		}
	}
	return stringSlice
}

// SplitTrimmed splits s on sep, trims each part and drops empty parts. Never returns nil.
func SplitTrimmed(s, sep string) []string {
	parts := make([]string, 0)
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// CloneStrings copies s, mapping nil to an empty slice
func CloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
