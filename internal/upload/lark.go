package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkdrive "github.com/larksuite/oapi-sdk-go/v3/service/drive/v1"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/rs/zerolog/log"
)

// Lark uploads recordings into a Lark (Feishu) drive folder and optionally
// announces them in a chat.
type Lark struct {
	client *lark.Client
	chatID string
}

// NewLark creates a Lark destination for the given app. chatID may be empty.
func NewLark(appID, appSecret, chatID string, opts ...lark.ClientOptionFunc) *Lark {
	return &Lark{
		client: lark.NewClient(appID, appSecret, opts...),
		chatID: chatID,
	}
}

type multipartUpload struct {
	UploadID  string
	BlockSize int
	BlockNum  int
}

// Upload stores the recording under the drive node req.Channel and returns the
// file token. A text message with the comment follows when a chat is set.
func (l *Lark) Upload(ctx context.Context, req Request) (string, error) {
	if req.Channel == "" {
		return "", fmt.Errorf("lark upload: parent node is required")
	}

	f, size, err := openRecording(req.FilePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := l.prepare(ctx, req.displayName(), req.Channel, size)
	if err != nil {
		return "", err
	}
	log.Debug().
		Str("upload_id", info.UploadID).
		Int("block_size", info.BlockSize).
		Int("block_num", info.BlockNum).
		Msg("Lark upload prepared")

	if err := l.uploadParts(ctx, f, size, info); err != nil {
		return "", err
	}

	fileToken, err := l.finish(ctx, info)
	if err != nil {
		return "", err
	}
	log.Info().
		Str("parent_node", req.Channel).
		Str("file_token", fileToken).
		Msg("Recording uploaded to Lark drive")

	if l.chatID != "" {
		if err := l.announce(ctx, req); err != nil {
			return fileToken, err
		}
	}
	return fileToken, nil
}

func (l *Lark) prepare(ctx context.Context, name, parentNode string, size int64) (*multipartUpload, error) {
	req := larkdrive.NewUploadPrepareFileReqBuilder().
		FileUploadInfo(larkdrive.NewFileUploadInfoBuilder().
			FileName(name).
			ParentType("explorer").
			ParentNode(parentNode).
			Size(int(size)).
			Build()).
		Build()

	resp, err := l.client.Drive.File.UploadPrepare(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lark upload prepare: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("lark upload prepare: %s", resp.Msg)
	}
	if resp.Data == nil || resp.Data.UploadId == nil || resp.Data.BlockSize == nil {
		return nil, errors.New("lark upload prepare: incomplete response")
	}

	return &multipartUpload{
		UploadID:  *resp.Data.UploadId,
		BlockSize: *resp.Data.BlockSize,
		BlockNum:  BlockCount(size, int64(*resp.Data.BlockSize)),
	}, nil
}

func (l *Lark) uploadParts(ctx context.Context, r io.Reader, size int64, info *multipartUpload) error {
	remaining := size

	for i := 0; i < info.BlockNum; i++ {
		partSize := int64(info.BlockSize)
		if remaining < partSize {
			partSize = remaining
		}
		if partSize == 0 {
			break
		}

		buffer := make([]byte, partSize)
		n, err := io.ReadFull(r, buffer)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("read block %d: %w", i+1, err)
		}

		req := larkdrive.NewUploadPartFileReqBuilder().
			Body(larkdrive.NewUploadPartFileReqBodyBuilder().
				UploadId(info.UploadID).
				Seq(i).
				Size(n).
				File(bytes.NewReader(buffer[:n])).
				Build()).
			Build()

		resp, err := l.client.Drive.File.UploadPart(ctx, req)
		if err != nil {
			return fmt.Errorf("lark upload block %d: %w", i+1, err)
		}
		if !resp.Success() {
			return fmt.Errorf("lark upload block %d: %s", i+1, resp.Msg)
		}

		log.Debug().Int("block", i+1).Int("bytes", n).Msg("Lark block uploaded")
		remaining -= int64(n)
	}

	return nil
}

func (l *Lark) finish(ctx context.Context, info *multipartUpload) (string, error) {
	req := larkdrive.NewUploadFinishFileReqBuilder().
		Body(larkdrive.NewUploadFinishFileReqBodyBuilder().
			UploadId(info.UploadID).
			BlockNum(info.BlockNum).
			Build()).
		Build()

	resp, err := l.client.Drive.File.UploadFinish(ctx, req)
	if err != nil {
		return "", fmt.Errorf("lark upload finish: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("lark upload finish: %s", resp.Msg)
	}
	if resp.Data == nil || resp.Data.FileToken == nil {
		return "", errors.New("lark upload finish: missing file token")
	}

	return *resp.Data.FileToken, nil
}

func (l *Lark) announce(ctx context.Context, req Request) error {
	content, err := textContent(req)
	if err != nil {
		return err
	}

	msg := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("chat_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(l.chatID).
			MsgType("text").
			Content(content).
			Build()).
		Build()

	resp, err := l.client.Im.Message.Create(ctx, msg)
	if err != nil {
		return fmt.Errorf("lark send message: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("lark send message: %s", resp.Msg)
	}

	log.Info().Str("chat_id", l.chatID).Msg("Page announced in Lark chat")
	return nil
}

// textContent renders the JSON content of a Lark text message.
func textContent(req Request) (string, error) {
	text := req.Comment
	if text == "" {
		text = req.Title
	}
	text += "\nRecording: " + req.displayName()

	b, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// BlockCount is the number of blockSize parts needed to carry size bytes.
func BlockCount(size, blockSize int64) int {
	if size <= 0 || blockSize <= 0 {
		return 0
	}
	return int((size + blockSize - 1) / blockSize)
}
