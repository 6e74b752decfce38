package printers

import (
	"fmt"
	"io"
	"strings"

	"swotrace/internal/itm"
)

// PacketPrinter dumps raw transport packets, 16 bytes per row.
type PacketPrinter struct {
	ItemPrinter
	index int
}

// NewPacketPrinter creates a new printer for raw packets.
func NewPacketPrinter(writer io.Writer) *PacketPrinter {
	return &PacketPrinter{
		ItemPrinter: *NewItemPrinter(writer),
	}
}

// PrintPacket prints one packet received at ts. The first byte is described
// as an ITM header, which is exact when no frame straddles the packet start.
func (p *PacketPrinter) PrintPacket(ts float64, data []byte) {
	idx := p.index
	p.index++
	if p.IsMuted() {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Packet; Index%7d; ", idx))
	if !p.TimePrintMuted() {
		sb.WriteString(fmt.Sprintf("%10.6f; ", ts))
	}
	if len(data) == 0 {
		sb.WriteString("EMPTY; \n")
		p.ItemPrintLine(sb.String())
		return
	}
	sb.WriteString(fmt.Sprintf("[%s]; ", itm.DescribeHeader(data[0])))

	lineBytes := 0
	for i := range data {
		if lineBytes == 16 {
			sb.WriteString("\n")
			lineBytes = 0
		}
		sb.WriteString(fmt.Sprintf("%02x ", data[i]))
		lineBytes++
	}
	sb.WriteString("\n")
	p.ItemPrintLine(sb.String())
}
