package upload

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
)

// SlackClient is the part of *slack.Client used to upload a recording.
type SlackClient interface {
	UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
}

// Slack uploads recordings into a Slack channel.
type Slack struct {
	client SlackClient
}

// NewSlack wraps a Slack API client.
func NewSlack(client SlackClient) *Slack {
	return &Slack{client: client}
}

// NewSlackFromToken builds the destination from a bot token.
func NewSlackFromToken(token string) *Slack {
	return NewSlack(slack.New(token))
}

// Upload sends the recording with its title and initial comment in a single
// upload call and returns the Slack file ID.
func (s *Slack) Upload(ctx context.Context, req Request) (string, error) {
	if req.Channel == "" {
		return "", fmt.Errorf("slack upload: channel is required")
	}

	// The external upload flow needs the byte length up front.
	info, err := os.Stat(req.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat recording: %w", err)
	}
	size := info.Size()

	log.Debug().
		Str("channel", req.Channel).
		Str("file", req.FilePath).
		Str("filename", req.displayName()).
		Str("filetype", req.FileType).
		Int64("size", size).
		Msg("Uploading recording to Slack")

	summary, err := s.client.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:        req.Channel,
		File:           req.FilePath,
		FileSize:       int(size),
		Filename:       req.displayName(),
		Title:          req.Title,
		InitialComment: req.Comment,
	})
	if err != nil {
		return "", fmt.Errorf("slack upload failed: %w", err)
	}

	log.Info().
		Str("channel", req.Channel).
		Str("file_id", summary.ID).
		Msg("Recording uploaded to Slack")

	return summary.ID, nil
}
