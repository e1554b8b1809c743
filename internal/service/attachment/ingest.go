package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/tandelhq/tandel/backend/internal/model/chat"
)

// ErrEmptyFile rejects a capture or upload that carried no bytes.
var ErrEmptyFile = errors.New("attachment is empty")

// Ingest converts a user-supplied binary file into an Attachment: the mime
// type is sniffed (the filename extension wins when recognized) and the
// payload is encoded as a data URI. No size bound is applied; arbitrarily
// large files produce arbitrarily large payloads held in memory.
func Ingest(filename string, data []byte) (chat.Attachment, error) {
	if len(data) == 0 {
		return chat.Attachment{}, ErrEmptyFile
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	return chat.Attachment{
		PreviewURL: filename,
		Base64:     fmt.Sprintf("data:%s;base64,%s", mimeType, encoded),
		MimeType:   mimeType,
	}, nil
}
