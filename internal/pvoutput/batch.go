package pvoutput

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jgoulah/pvrelay/pkg/models"
)

// FormatLine renders one reading as a batch status line:
// date,time,energy,,,,,voltage. The empty fields are power, energy used,
// power used and temperature, which the relay does not report.
func FormatLine(r models.Reading) string {
	t := r.Time()
	return fmt.Sprintf("%s,%s,%f,,,,,%s",
		t.Format("20060102"),
		t.Format("15:04"),
		r.DayEnergy,
		strconv.FormatFloat(r.Voltage, 'f', -1, 64),
	)
}

// BatchRequest is one addbatchstatus call
type BatchRequest struct {
	Readings []models.Reading
}

// Data returns the semicolon joined batch lines
func (b BatchRequest) Data() string {
	lines := make([]string, len(b.Readings))
	for i, r := range b.Readings {
		lines[i] = FormatLine(r)
	}
	return strings.Join(lines, ";")
}

// Form returns the POST body fields
func (b BatchRequest) Form() url.Values {
	form := url.Values{}
	form.Set("data", b.Data())
	return form
}

// Chunk splits readings into consecutive slices of at most size, preserving order
func Chunk(readings []models.Reading, size int) [][]models.Reading {
	if size <= 0 {
		size = 1
	}
	var chunks [][]models.Reading
	for start := 0; start < len(readings); start += size {
		end := min(start+size, len(readings))
		chunks = append(chunks, readings[start:end])
	}
	return chunks
}
