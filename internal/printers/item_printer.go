package printers

import (
	"fmt"
	"io"

	"swotrace/internal/common"
)

// ItemPrinter is the base of the printers: an output writer, an optional
// message logger that mirrors the output, and mute controls.
type ItemPrinter struct {
	writer    io.Writer
	msgLog    common.Logger
	muted     bool
	timeMuted bool
}

// NewItemPrinter constructs an ItemPrinter using the given io.Writer.
func NewItemPrinter(writer io.Writer) *ItemPrinter {
	return &ItemPrinter{
		writer: writer,
	}
}

// SetMessageLogger sets the optional logger that receives every printed line.
func (p *ItemPrinter) SetMessageLogger(logger common.Logger) {
	p.msgLog = logger
}

// ItemPrintLine writes the given message to the writer and optionally logs it.
func (p *ItemPrinter) ItemPrintLine(msg string) {
	if p.writer != nil {
		fmt.Fprint(p.writer, msg)
	}
	if p.msgLog != nil {
		p.msgLog.Info(msg)
	}
}

// SetMute sets the printer to mute (avoids output).
func (p *ItemPrinter) SetMute(mute bool) { p.muted = mute }

// IsMuted returns true if the printer is muted.
func (p *ItemPrinter) IsMuted() bool { return p.muted }

// MuteTimePrint mutes or unmutes the timestamp column.
func (p *ItemPrinter) MuteTimePrint(mute bool) { p.timeMuted = mute }

// TimePrintMuted returns whether the timestamp column is muted.
func (p *ItemPrinter) TimePrintMuted() bool { return p.timeMuted }
