package chat

// Attachment is an image carried by a message. Base64 holds the full data URI
// so the record survives persistence without the original bytes; lifetime is
// tied to the owning message.
type Attachment struct {
	PreviewURL string `json:"previewUrl,omitempty"`
	Base64     string `json:"base64"`
	MimeType   string `json:"mimeType"`
}
