package tracelog

import "strings"

// Filter is a display filter on line text. An expression starting with '~'
// hides lines that contain the rest of the expression.
type Filter struct {
	Expr    string
	Enabled bool
}

// Inverted reports whether the filter excludes matches.
func (f Filter) Inverted() bool {
	return strings.HasPrefix(f.Expr, "~")
}

// MatchFilters reports whether text passes the enabled filters. When any
// plain filter is enabled, text must contain at least one of them; it must
// contain none of the enabled inverted filters. Matching is case sensitive.
func MatchFilters(filters []Filter, text string) bool {
	match := true
	for _, f := range filters {
		if f.Enabled && !f.Inverted() {
			match = false
			break
		}
	}
	if !match {
		for _, f := range filters {
			if f.Enabled && !f.Inverted() && strings.Contains(text, f.Expr) {
				match = true
				break
			}
		}
	}
	if !match {
		return false
	}
	for _, f := range filters {
		if f.Enabled && f.Inverted() && len(f.Expr) > 1 && strings.Contains(text, f.Expr[1:]) {
			return false
		}
	}
	return true
}
