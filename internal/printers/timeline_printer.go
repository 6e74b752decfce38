package printers

import (
	"fmt"
	"strings"

	"swotrace/internal/channel"
	"swotrace/internal/tracelog"
)

// PrintTimeline draws the marks of each channel as a strip of width columns.
// A column holding more than one line is drawn as '#'.
func (p *LinePrinter) PrintTimeline(tl *tracelog.Timeline, width int) {
	if p.IsMuted() || width < 2 {
		return
	}
	maxPos := tl.MaxPos()
	labelWidth := p.registry.LabelWidth()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Timeline: %.3f s\n", tl.TimeAt(maxPos)-tl.TimeAt(0)))
	for ch := 0; ch < channel.NumChannels; ch++ {
		marks := tl.Marks(ch)
		if len(marks) == 0 {
			continue
		}
		row := []byte(strings.Repeat(".", width))
		for _, m := range marks {
			col := 0
			if maxPos > 0 {
				col = int(m.Pos / maxPos * float64(width-1))
			}
			col = min(max(col, 0), width-1)
			if row[col] == '.' && m.Count == 1 {
				row[col] = '|'
			} else {
				row[col] = '#'
			}
		}
		sb.WriteString(p.label(ch, labelWidth))
		sb.WriteString("  ")
		sb.Write(row)
		sb.WriteByte('\n')
	}
	p.ItemPrintLine(sb.String())
}
