package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/toby1991/page-upload/internal/logging"
	"github.com/toby1991/page-upload/internal/options"
	"github.com/toby1991/page-upload/internal/page"
	"github.com/toby1991/page-upload/internal/upload"
)

// Option keys read from the custom JSON argument.
const (
	keySlackChannel   = "slack-channel"
	keyLarkAppID      = "lark-app-id"
	keyLarkParentNode = "lark-parent-node"
	keyLarkChatID     = "lark-chat-id"
)

// bucketEnv names the bucket for the s3 command.
const bucketEnv = "BUCKET_NAME"

type recordingUploader interface {
	Upload(ctx context.Context, req upload.Request) (string, error)
}

// Client constructors, replaced in tests.
var (
	newSlackUploader = func(token string) recordingUploader {
		return upload.NewSlackFromToken(token)
	}
	newLarkUploader = func(appID, appSecret, chatID string) recordingUploader {
		return upload.NewLark(appID, appSecret, chatID)
	}
	newSSMClient = func(ctx context.Context) (options.ParameterGetter, error) {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return ssm.NewFromConfig(cfg), nil
	}
	newObjectPutter = func(ctx context.Context) (upload.ObjectPutter, error) {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return s3.NewFromConfig(cfg), nil
	}
)

// CLI flags
var (
	recordingPathFlag string
	fileNameFlag      string
)

// rootCmd uploads a page recording to Slack.
var rootCmd = &cobra.Command{
	Use:   `page-upload <timestamp_ms> "<detectorName>" <description> <recordingRelPath> <filename> <customJson>`,
	Short: "Upload a page recording with a notification message",
	Long: `page-upload is run by the tone detector for every page. It uploads the
recording to a Slack channel with a "<detector> Page Received at <time>" comment.

customJson must carry slack-channel and one of:
  slack-token
  slack-secret-file + slack-token-name   (JSON file of name -> token)
  slack-token-ssm-parameter              (read from AWS SSM with decryption)

Examples:
  page-upload 1672531200000 '"Fire"' tones rec/fire.mp3 fire.mp3 '{"slack-channel":"C1","slack-token":"xoxb-1"}'
  page-upload lark 1672531200000 '"Fire"' tones rec/fire.mp3 fire.mp3 '{"lark-app-id":"cli_x","lark-app-secret":"s","lark-parent-node":"fldcn1"}'
  page-upload s3 --recording-path rec/fire.mp3 --file-name fire.mp3`,
	Args:               validatePageArgs,
	DisableFlagParsing: true,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		if isHelp(args) {
			return cmd.Help()
		}
		return runSlack(cmd.Context(), args)
	},
}

var larkCmd = &cobra.Command{
	Use:   `lark <timestamp_ms> "<detectorName>" <description> <recordingRelPath> <filename> <customJson>`,
	Short: "Upload a page recording to a Lark drive folder and announce it in a chat",
	Long: `customJson must carry lark-app-id, lark-parent-node and one of:
  lark-app-secret
  lark-secret-file + lark-app-secret-name
  lark-app-secret-ssm-parameter
lark-chat-id is optional; when set the page comment is posted to that chat.`,
	Args:               validatePageArgs,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if isHelp(args) {
			return cmd.Help()
		}
		return runLark(cmd.Context(), args)
	},
}

var s3Cmd = &cobra.Command{
	Use:   "s3",
	Short: "Upload a recording to the S3 bucket named by BUCKET_NAME",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runS3(cmd.Context(), recordingPathFlag, fileNameFlag)
	},
}

func init() {
	s3Cmd.Flags().StringVar(&recordingPathFlag, "recording-path", "", "Path to the recording")
	s3Cmd.Flags().StringVar(&fileNameFlag, "file-name", "", "Name to save file as in bucket (default: recording base name)")
	_ = s3Cmd.MarkFlagRequired("recording-path")

	rootCmd.AddCommand(larkCmd, s3Cmd)
}

// validatePageArgs accepts the six page arguments, or a lone help flag. Flag parsing
// is off for page commands: descriptions and negative timestamps may start
// with a dash.
func validatePageArgs(cmd *cobra.Command, args []string) error {
	if isHelp(args) {
		return nil
	}
	return cobra.ExactArgs(page.ArgCount)(cmd, args)
}

func isHelp(args []string) bool {
	return len(args) == 1 && (args[0] == "-h" || args[0] == "--help")
}

// setup loads an optional .env file and initializes logging.
func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	logging.Init()
	return nil
}

func parsePage(args []string) (*page.Page, options.Options, error) {
	p, err := page.Parse(args)
	if err != nil {
		return nil, nil, err
	}
	opts, err := options.Decode(p.Custom)
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("detector", p.DetectorName).
		Time("timestamp", p.Timestamp).
		Str("recording", p.RecordingPath).
		Msg("Page received")
	log.Debug().Str("description", p.Description).Msg("Page description")

	return p, opts, nil
}

func requestFor(p *page.Page, channel string) upload.Request {
	return upload.Request{
		Channel:  channel,
		FilePath: p.RecordingPath,
		Filename: p.Filename,
		FileType: upload.DefaultFileType,
		Title:    p.Title(),
		Comment:  p.Comment(),
	}
}

// runSlack validates everything it can before building the Slack client, so
// bad input never reaches the network.
func runSlack(ctx context.Context, args []string) error {
	p, opts, err := parsePage(args)
	if err != nil {
		return err
	}
	channel, err := opts.String(keySlackChannel)
	if err != nil {
		return err
	}
	token, err := options.ResolveCredential(ctx, opts, options.SlackToken, newSSMClient)
	if err != nil {
		return err
	}

	_, err = newSlackUploader(token).Upload(ctx, requestFor(p, channel))
	return err
}

func runLark(ctx context.Context, args []string) error {
	p, opts, err := parsePage(args)
	if err != nil {
		return err
	}
	appID, err := opts.String(keyLarkAppID)
	if err != nil {
		return err
	}
	parentNode, err := opts.String(keyLarkParentNode)
	if err != nil {
		return err
	}
	appSecret, err := options.ResolveCredential(ctx, opts, options.LarkAppSecret, newSSMClient)
	if err != nil {
		return err
	}

	_, err = newLarkUploader(appID, appSecret, opts.Lookup(keyLarkChatID)).Upload(ctx, requestFor(p, parentNode))
	return err
}

func runS3(ctx context.Context, recordingPath, key string) error {
	bucket := os.Getenv(bucketEnv)
	if bucket == "" {
		return fmt.Errorf("%s environment variable is required", bucketEnv)
	}
	if key == "" {
		key = filepath.Base(recordingPath)
	}

	client, err := newObjectPutter(ctx)
	if err != nil {
		return err
	}
	_, err = upload.NewS3(client, bucket).Upload(ctx, key, recordingPath)
	return err
}
