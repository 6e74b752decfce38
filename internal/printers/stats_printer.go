package printers

import "fmt"

// Stats is the set of counters printed at the end of a run.
type Stats struct {
	Packets          int
	PacketErrors     uint32
	QueueOverflows   uint32
	ProfileOverflows uint32
	Lines            int
}

// PrintStats outputs the counters of a run.
func (p *ItemPrinter) PrintStats(s Stats) {
	p.ItemPrintLine(fmt.Sprintf("Packets processed: %d; Lines: %d; Packet errors: %d; Queue overflows: %d; Profile overflows: %d\n",
		s.Packets, s.Lines, s.PacketErrors, s.QueueOverflows, s.ProfileOverflows))
}
