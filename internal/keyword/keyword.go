package keyword

import "strings"

// Normalize turns free-form user input into a registrable domain label:
// lowercase, runs of anything outside [a-z0-9-] collapse to a single
// hyphen, repeated hyphens collapse, leading/trailing hyphens are
// trimmed. The second return is false when nothing usable remains.
func Normalize(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}

	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
			lastHyphen = false
			continue
		}
		// Everything else, hyphens included, becomes one separator.
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "", false
	}
	return out, true
}

// NormalizeList normalizes every entry, drops the unusable ones and
// dedupes while preserving first-seen order.
func NormalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		n, ok := Normalize(s)
		if !ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// NormalizeTLDs lowercases and trims TLD labels (dropping a leading
// dot if present) and dedupes, preserving first-seen order.
func NormalizeTLDs(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		t := strings.ToLower(strings.TrimSpace(s))
		t = strings.TrimPrefix(t, ".")
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
