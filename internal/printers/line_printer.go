package printers

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"swotrace/internal/channel"
	"swotrace/internal/tracelog"
)

// LinePrinter writes trace lines as "label  time  text" rows, the label
// coloured with the channel colour.
type LinePrinter struct {
	ItemPrinter
	registry *channel.Registry
	colorize bool
	filters  []tracelog.Filter
	next     int
}

// NewLinePrinter creates a line printer. colorize enables ANSI colours.
func NewLinePrinter(writer io.Writer, registry *channel.Registry, colorize bool) *LinePrinter {
	return &LinePrinter{
		ItemPrinter: *NewItemPrinter(writer),
		registry:    registry,
		colorize:    colorize,
	}
}

// SetFilters sets the display filters; lines not passing them are skipped.
func (p *LinePrinter) SetFilters(filters []tracelog.Filter) {
	p.filters = filters
}

func (p *LinePrinter) label(chanID int, width int) string {
	ch := p.registry.Get(chanID)
	name := fmt.Sprintf("%-*s", width, ch.Name)
	if !p.colorize || ch.Color.IsZero() {
		return name
	}
	c := ch.Color
	bg := color.BgRGB(int(c.R), int(c.G), int(c.B))
	if int(c.R)+2*int(c.G)+int(c.B) < 700 {
		bg.Add(color.FgHiWhite)
	} else {
		bg.Add(color.FgBlack)
	}
	bg.EnableColor()
	return bg.Sprint(name)
}

// FormatLine renders one line without the trailing newline.
func (p *LinePrinter) FormatLine(l tracelog.Line) string {
	var sb strings.Builder
	sb.WriteString(p.label(l.Channel, p.registry.LabelWidth()))
	sb.WriteString("  ")
	if !p.TimePrintMuted() {
		sb.WriteString(fmt.Sprintf("%12s  ", l.TimeFmt))
	}
	sb.WriteString(l.Text)
	return sb.String()
}

// PrintLine prints one line.
func (p *LinePrinter) PrintLine(l tracelog.Line) {
	if p.IsMuted() || !tracelog.MatchFilters(p.filters, l.Text) {
		return
	}
	p.ItemPrintLine(p.FormatLine(l) + "\n")
}

// PrintNew prints the terminated lines added to store since the previous
// call and returns how many lines were consumed.
func (p *LinePrinter) PrintNew(store *tracelog.Store) int {
	return p.print(store, false)
}

// Flush prints all remaining lines, including an open last line.
func (p *LinePrinter) Flush(store *tracelog.Store) int {
	return p.print(store, true)
}

func (p *LinePrinter) print(store *tracelog.Store, all bool) int {
	n := store.Len()
	if n < p.next {
		// store was cleared
		p.next = 0
	}
	limit := n
	if !all && n > p.next {
		// only the last line can still be open
		if l, ok := store.Line(n - 1); ok && !l.Terminated {
			limit = n - 1
		}
	}
	if limit <= p.next {
		return 0
	}
	if !p.IsMuted() {
		for _, i := range store.Filtered(p.filters, p.next) {
			if i >= limit {
				break
			}
			l, ok := store.Line(i)
			if !ok {
				break
			}
			p.ItemPrintLine(p.FormatLine(l) + "\n")
		}
	}
	count := limit - p.next
	p.next = limit
	return count
}
