// Package page turns the positional arguments handed over by the detector
// into a Page and renders the notification text for it.
package page

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ArgCount is the number of positional arguments a page invocation carries:
// timestamp, detector name, description, recording path, filename, options.
const ArgCount = 6

// TimeLayout renders timestamps as 2022-12-31 00:00:00.
const TimeLayout = "2006-01-02 15:04:05"

// ErrArgCount is returned by Parse when the argument count is wrong.
var ErrArgCount = errors.New("wrong number of page arguments")

// Page is one detector event as received on the command line.
type Page struct {
	Timestamp     time.Time
	DetectorName  string
	Description   string // reserved, not rendered
	RecordingPath string
	Filename      string
	Custom        string // raw JSON options blob
}

// Parse builds a Page from the six positional arguments:
//
//	<timestamp_ms> "<detectorName>" <description> <recordingRelPath> <filename> <customJson>
//
// The options blob is kept raw; decoding it is up to the caller.
func Parse(args []string) (*Page, error) {
	if len(args) != ArgCount {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrArgCount, len(args), ArgCount)
	}

	ms, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", args[0], err)
	}

	return &Page{
		Timestamp:     time.UnixMilli(ms).UTC(),
		DetectorName:  StripQuotes(args[1]),
		Description:   args[2],
		RecordingPath: args[3],
		Filename:      args[4],
		Custom:        args[5],
	}, nil
}

// StripQuotes removes one matched pair of double quotes around s. A lone
// leading or trailing quote is left alone.
func StripQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// FormatTimestamp renders epoch milliseconds as a UTC TimeLayout string.
// Sub-second precision is dropped.
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(TimeLayout)
}

// Title is the headline attached to the uploaded recording.
func (p *Page) Title() string {
	return p.DetectorName + " Page Received"
}

// Comment is the message text posted alongside the recording.
func (p *Page) Comment() string {
	return p.Title() + " at " + p.Timestamp.Format(TimeLayout)
}
