package printers

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"swotrace/internal/profile"
)

// HistogramPrinter lists the busiest buckets of a PC sample histogram.
type HistogramPrinter struct {
	ItemPrinter
	shift uint
}

// NewHistogramPrinter creates a printer for histograms whose buckets cover
// 1<<shift bytes each.
func NewHistogramPrinter(writer io.Writer, shift uint) *HistogramPrinter {
	return &HistogramPrinter{
		ItemPrinter: *NewItemPrinter(writer),
		shift:       shift,
	}
}

// PrintTop prints up to n non-empty buckets, most samples first. The bucket
// past CodeTop is shown as "other".
func (p *HistogramPrinter) PrintTop(h *profile.Histogram, n int) {
	if p.IsMuted() {
		return
	}
	total := h.Total()
	idx := make([]int, 0, len(h.Buckets))
	for i, b := range h.Buckets {
		if b > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return h.Buckets[idx[a]] > h.Buckets[idx[b]]
	})
	if n > 0 && len(idx) > n {
		idx = idx[:n]
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("PC samples: %d\n", total))
	top := h.Index(h.CodeTop, h.CodeBase)
	for _, i := range idx {
		pct := 100 * float64(h.Buckets[i]) / float64(total)
		if i == top {
			sb.WriteString(fmt.Sprintf("%-10s %10d %6.2f%%\n", "other", h.Buckets[i], pct))
			continue
		}
		addr := h.CodeBase + uint32(i)<<p.shift
		sb.WriteString(fmt.Sprintf("0x%08x %10d %6.2f%%\n", addr, h.Buckets[i], pct))
	}
	p.ItemPrintLine(sb.String())
}
