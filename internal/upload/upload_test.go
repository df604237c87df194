package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlack struct {
	calls []slack.UploadFileV2Parameters
	err   error
}

func (f *fakeSlack) UploadFileV2Context(_ context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	return &slack.FileSummary{ID: "F123", Title: params.Title}, nil
}

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies []string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func writeRecording(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSlackUpload(t *testing.T) {
	path := writeRecording(t, "fire.mp3", "ID3 audio bytes")
	client := &fakeSlack{}

	id, err := NewSlack(client).Upload(context.Background(), Request{
		Channel:  "C1",
		FilePath: path,
		Filename: "2023-01-01-fire.mp3",
		FileType: DefaultFileType,
		Title:    "Fire Page Received",
		Comment:  "Fire Page Received at 2023-01-01 00:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "F123", id)

	require.Len(t, client.calls, 1)
	call := client.calls[0]
	assert.Equal(t, "C1", call.Channel)
	assert.Equal(t, path, call.File)
	assert.Equal(t, len("ID3 audio bytes"), call.FileSize)
	assert.Equal(t, "2023-01-01-fire.mp3", call.Filename)
	assert.Equal(t, "Fire Page Received", call.Title)
	assert.Equal(t, "Fire Page Received at 2023-01-01 00:00:00", call.InitialComment)
}

func TestSlackUploadDefaultsFilename(t *testing.T) {
	path := writeRecording(t, "engine.mp3", "x")
	client := &fakeSlack{}

	_, err := NewSlack(client).Upload(context.Background(), Request{Channel: "C1", FilePath: path})
	require.NoError(t, err)
	require.Len(t, client.calls, 1)
	assert.Equal(t, "engine.mp3", client.calls[0].Filename)
}

func TestSlackUploadMissingFile(t *testing.T) {
	client := &fakeSlack{}

	_, err := NewSlack(client).Upload(context.Background(), Request{
		Channel:  "C1",
		FilePath: filepath.Join(t.TempDir(), "missing.mp3"),
	})
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, client.calls)
}

func TestSlackUploadMissingChannel(t *testing.T) {
	client := &fakeSlack{}

	_, err := NewSlack(client).Upload(context.Background(), Request{FilePath: writeRecording(t, "a.mp3", "x")})
	require.Error(t, err)
	assert.Empty(t, client.calls)
}

func TestSlackUploadAPIError(t *testing.T) {
	apiErr := errors.New("not_in_channel")
	client := &fakeSlack{err: apiErr}

	_, err := NewSlack(client).Upload(context.Background(), Request{Channel: "C1", FilePath: writeRecording(t, "a.mp3", "x")})
	require.ErrorIs(t, err, apiErr)
	assert.Len(t, client.calls, 1)
}

func TestS3Upload(t *testing.T) {
	path := writeRecording(t, "fire.mp3", "audio")
	client := &fakeS3{}

	location, err := NewS3(client, "pager-recordings").Upload(context.Background(), "2023/fire.mp3", path)
	require.NoError(t, err)
	assert.Equal(t, "s3://pager-recordings/2023/fire.mp3", location)

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "pager-recordings", aws.ToString(in.Bucket))
	assert.Equal(t, "2023/fire.mp3", aws.ToString(in.Key))
	assert.Equal(t, PublicTagging, aws.ToString(in.Tagging))
	assert.Equal(t, "audio/mpeg", aws.ToString(in.ContentType))
	assert.Equal(t, int64(5), aws.ToInt64(in.ContentLength))
	assert.Equal(t, "audio", client.bodies[0])
}

func TestS3UploadRequiresBucketAndKey(t *testing.T) {
	path := writeRecording(t, "fire.mp3", "audio")
	client := &fakeS3{}

	_, err := NewS3(client, "").Upload(context.Background(), "fire.mp3", path)
	assert.Error(t, err)

	_, err = NewS3(client, "bucket").Upload(context.Background(), "", path)
	assert.Error(t, err)

	assert.Empty(t, client.inputs)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", ContentType("page.MP3"))
	assert.Equal(t, "audio/wav", ContentType("page.wav"))
	assert.Equal(t, "audio/ogg", ContentType("page.opus"))
	assert.Equal(t, "application/octet-stream", ContentType("page"))
}

func TestBlockCount(t *testing.T) {
	assert.Equal(t, 0, BlockCount(0, 4<<20))
	assert.Equal(t, 1, BlockCount(1, 4<<20))
	assert.Equal(t, 1, BlockCount(4<<20, 4<<20))
	assert.Equal(t, 2, BlockCount(4<<20+1, 4<<20))
	assert.Equal(t, 0, BlockCount(10, 0))
}

func TestLarkTextContent(t *testing.T) {
	content, err := textContent(Request{
		FilePath: "/var/recordings/fire.mp3",
		Title:    "Fire Page Received",
		Comment:  "Fire Page Received at 2023-01-01 00:00:00",
	})
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(content), &decoded))
	assert.Equal(t, "Fire Page Received at 2023-01-01 00:00:00\nRecording: fire.mp3", decoded["text"])
}

func TestLarkUploadValidatesBeforeNetwork(t *testing.T) {
	l := NewLark("cli_app", "secret", "")

	_, err := l.Upload(context.Background(), Request{FilePath: writeRecording(t, "a.mp3", "x")})
	assert.Error(t, err)

	_, err = l.Upload(context.Background(), Request{Channel: "fldcn1", FilePath: filepath.Join(t.TempDir(), "missing.mp3")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
