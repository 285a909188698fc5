package app

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	dbApplicationName    = "predictor-league"
	maxTracedQueryLength = 512
)

// normalizeDBURL fills connection defaults into URL-style DSNs: application_name
// always, and disable_prepared_binary_result when running behind a transaction
// pooler. Keyword DSNs and explicit values are left alone.
func normalizeDBURL(raw string, disablePreparedBinary bool) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Scheme == "" {
		return raw
	}

	defaults := [][2]string{{"application_name", dbApplicationName}}
	if disablePreparedBinary {
		defaults = append(defaults, [2]string{"disable_prepared_binary_result", "yes"})
	}
	query := parsed.Query()
	changed := false
	for _, kv := range defaults {
		if query.Get(kv[0]) == "" {
			query.Set(kv[0], kv[1])
			changed = true
		}
	}
	if !changed {
		return raw
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func dbNameFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if parsed, err := url.Parse(raw); err == nil && parsed.Scheme != "" {
		return strings.Trim(parsed.Path, "/ ")
	}
	for _, field := range strings.Fields(raw) {
		if name, ok := strings.CutPrefix(field, "dbname="); ok {
			return strings.Trim(name, `"'`)
		}
	}
	return ""
}

// formatDBQueryForTrace collapses whitespace and caps the statement on a rune
// boundary before it becomes a span attribute.
func formatDBQueryForTrace(query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}
	cut := maxTracedQueryLength
	for cut > 0 && !utf8.RuneStart(normalized[cut]) {
		cut--
	}
	return normalized[:cut] + "..."
}
