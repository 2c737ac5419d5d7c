// Package playbackurl normalises raw playback URLs before they reach the
// player. Mixed-content pages silently block insecure media, so every
// resolvable URL must come out on a secure scheme.
package playbackurl

import "strings"

// Normalize applies, in order: empty input -> empty string, http:// ->
// https://, protocol-relative // -> https:, anything else passes through
// unchanged.
func Normalize(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(value, "http://"); ok {
		return "https://" + rest
	}
	if strings.HasPrefix(value, "//") {
		return "https:" + value
	}
	return value
}
