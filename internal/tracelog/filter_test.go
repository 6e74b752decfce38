package tracelog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchFilters(t *testing.T) {
	tests := []struct {
		name    string
		filters []Filter
		text    string
		want    bool
	}{
		{"NoFilters", nil, "anything", true},
		{"DisabledOnly", []Filter{{Expr: "x", Enabled: false}}, "abc", true},
		{"PlainMatch", []Filter{{Expr: "err", Enabled: true}}, "an error", true},
		{"PlainMiss", []Filter{{Expr: "err", Enabled: true}}, "all good", false},
		{"PlainCaseSensitive", []Filter{{Expr: "ERR", Enabled: true}}, "an error", false},
		{"AnyPlain", []Filter{{Expr: "err", Enabled: true}, {Expr: "warn", Enabled: true}}, "warning", true},
		{"InvertedHides", []Filter{{Expr: "~debug", Enabled: true}}, "debug: x", false},
		{"InvertedPasses", []Filter{{Expr: "~debug", Enabled: true}}, "info: x", true},
		{"PlainAndInverted", []Filter{{Expr: "net", Enabled: true}, {Expr: "~timeout", Enabled: true}}, "net timeout", false},
		{"DisabledInverted", []Filter{{Expr: "~net", Enabled: false}}, "net", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchFilters(tt.filters, tt.text))
		})
	}
}

func TestStoreFiltered(t *testing.T) {
	store := storeWithLines(t, "net up", "debug x", "net down")
	assert.Equal(t, []int{0, 2}, store.Filtered([]Filter{{Expr: "net", Enabled: true}}, 0))
	assert.Equal(t, []int{0, 2}, store.Filtered([]Filter{{Expr: "~debug", Enabled: true}}, 0))
	assert.Equal(t, []int{0, 1, 2}, store.Filtered(nil, 0))
	assert.Equal(t, []int{2}, store.Filtered([]Filter{{Expr: "net", Enabled: true}}, 1))
	assert.Equal(t, []int{0, 1, 2}, store.Filtered(nil, -4))
	assert.Empty(t, store.Filtered(nil, 3))
}
