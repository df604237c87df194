// Package upload delivers a page recording to a destination: a Slack channel,
// a Lark drive folder and chat, or an S3 bucket.
package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileType is the file type tag attached to every recording.
const DefaultFileType = "mp3"

// Request is one recording upload with its notification text.
type Request struct {
	Channel  string // Slack channel ID, or Lark drive parent node
	FilePath string
	Filename string // display name
	FileType string
	Title    string
	Comment  string
}

// openRecording opens the recording and returns it with its size.
func openRecording(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open recording: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat recording: %w", err)
	}
	return f, info.Size(), nil
}

// displayName falls back to the recording's base name when no filename is given.
func (r Request) displayName() string {
	if r.Filename != "" {
		return r.Filename
	}
	return filepath.Base(r.FilePath)
}

// ContentType maps a recording's extension to a MIME type.
func ContentType(name string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "ogg", "opus":
		return "audio/ogg"
	case "m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
