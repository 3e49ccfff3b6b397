package audio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes the profile as "seconds,energy" rows for plotting
func (p Profile) WriteCSV(w io.Writer) error {
	if p.Empty() {
		return ErrEmptyWaveform
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"seconds", "energy"}); err != nil {
		return err
	}

	for i, v := range p.Values {
		row := []string{
			strconv.FormatFloat(p.Offset(i).Seconds(), 'f', 3, 64),
			strconv.FormatFloat(v, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
