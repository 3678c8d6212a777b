package notify

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"sheetmail/internal/model"
)

// loadAttachment reads the configured file. An empty path means no
// attachment; a missing or unreadable file is reported as ErrAttachment so
// the caller can send without it.
func loadAttachment(path string) (*model.Attachment, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: file not found: %s", model.ErrAttachment, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrAttachment, err)
	}

	name := filepath.Base(path)
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &model.Attachment{Filename: name, ContentType: ct, Content: b}, nil
}
