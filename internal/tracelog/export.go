package tracelog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ChannelNamer resolves channel indices to display names.
type ChannelNamer interface {
	Name(index int) string
}

var csvHeader = []string{"Number", "Name", "Timestamp", "Text"}

// WriteCSV writes all lines as CSV: channel number, channel name, absolute
// timestamp with 6 decimals and text.
func (s *Store) WriteCSV(w io.Writer, names ChannelNamer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range s.Snapshot() {
		rec := []string{
			strconv.Itoa(l.Channel),
			names.Name(l.Channel),
			strconv.FormatFloat(l.Timestamp, 'f', 6, 64),
			l.Text,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes the store to a CSV file at path.
func (s *Store) Export(path string, names ChannelNamer) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export trace: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("export trace: %w", cerr)
		}
	}()
	if err := s.WriteCSV(f, names); err != nil {
		return fmt.Errorf("export trace: %w", err)
	}
	return nil
}
