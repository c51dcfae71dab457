package commands

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/genai"
)

const (
	maxAttachmentSize = 100 * 1024 * 1024
	videoSizeWarning  = 20 * 1024 * 1024
)

// ImageCommand stages an image for the next message.
type ImageCommand struct{}

func (c *ImageCommand) Name() string        { return "image" }
func (c *ImageCommand) Description() string { return "Attach an image to the next message" }
func (c *ImageCommand) Usage() string       { return "/image <path>" }

func (c *ImageCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	return stageAttachment(args, app, c.Usage(), "image/")
}

// VideoCommand stages a video for the next message.
type VideoCommand struct{}

func (c *VideoCommand) Name() string        { return "video" }
func (c *VideoCommand) Description() string { return "Attach a video to the next message" }
func (c *VideoCommand) Usage() string       { return "/video <path>" }

func (c *VideoCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	msg, err := stageAttachment(args, app, c.Usage(), "video/")
	if err != nil {
		return "", err
	}
	if len(args) > 0 {
		path := resolveAttachmentPath(args[0], app)
		if info, statErr := os.Stat(path); statErr == nil && info.Size() > videoSizeWarning {
			msg += fmt.Sprintf("\nWarning: %d MB is large; the request may be slow or rejected.",
				info.Size()/(1024*1024))
		}
	}
	return msg, nil
}

func resolveAttachmentPath(path string, app AppInterface) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(app.GetWorkDir(), path)
}

// stageAttachment reads and mime-sniffs a media file, then queues it on the
// session. wantPrefix restricts the detected type family.
func stageAttachment(args []string, app AppInterface, usage, wantPrefix string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: %s", usage)
	}

	path := resolveAttachmentPath(args[0], app)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("cannot attach %s: %w", args[0], err)
	}
	if info.Size() > maxAttachmentSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), maxAttachmentSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot attach %s: %w", args[0], err)
	}

	mimeType := detectMimeType(path, data)
	if !strings.HasPrefix(mimeType, wantPrefix) {
		return "", fmt.Errorf("%s is %s, expected %s*", args[0], mimeType, wantPrefix)
	}

	app.GetSession().QueueAttachment(&genai.Part{
		InlineData: &genai.Blob{
			MIMEType: mimeType,
			Data:     data,
		},
	})
	return fmt.Sprintf("Attached %s (%s, %d bytes). It will be sent with your next message.",
		args[0], mimeType, len(data)), nil
}

// detectMimeType prefers the file extension and falls back to content
// sniffing, which covers extensionless files.
func detectMimeType(path string, data []byte) string {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		if i := strings.IndexByte(byExt, ';'); i >= 0 {
			byExt = byExt[:i]
		}
		return byExt
	}
	return http.DetectContentType(data)
}
