package models

import (
	"errors"
	"strings"
)

// ErrIncompleteUpload is returned by MarkUploaded when the backend did not
// hand back both a remote id and a URI.
var ErrIncompleteUpload = errors.New("upload returned no remote id or uri")

// MediaType is the coarse kind of an uploaded item.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaPDF      MediaType = "pdf"
	MediaAudio    MediaType = "audio"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
	MediaUnknown  MediaType = "unknown"
)

// mimeRule maps a MIME substring to a media type. Order matters: first hit wins.
type mimeRule struct {
	key       string
	mediaType MediaType
}

var mimeTable = []mimeRule{
	{"image", MediaImage},
	{"application/pdf", MediaPDF},
	{"audio", MediaAudio},
	{"video", MediaVideo},
	{"text", MediaDocument},
}

// MediaTypeFromMIME resolves the media type of a MIME string.
func MediaTypeFromMIME(mimeType string) MediaType {
	m := strings.ToLower(mimeType)
	for _, rule := range mimeTable {
		if strings.Contains(m, rule.key) {
			return rule.mediaType
		}
	}
	return MediaUnknown
}

// MediaFile is one uploaded item. RemoteID and RemoteURI are set if and
// only if IsUploaded is true.
type MediaFile struct {
	Filename   string    `json:"filename"`
	MIMEType   string    `json:"mimeType"`
	Data       []byte    `json:"-"`
	SizeBytes  int64     `json:"sizeBytes"`
	MediaType  MediaType `json:"mediaType"`
	IsUploaded bool      `json:"isUploaded"`
	RemoteID   string    `json:"remoteId,omitempty"`
	RemoteURI  string    `json:"remoteUri,omitempty"`
}

// NewMediaFile wraps data, keeping SizeBytes equal to len(data).
func NewMediaFile(filename, mimeType string, data []byte) *MediaFile {
	return &MediaFile{
		Filename:  filename,
		MIMEType:  mimeType,
		Data:      data,
		SizeBytes: int64(len(data)),
		MediaType: MediaUnknown,
	}
}

// MarkUploaded records a successful out-of-band upload. The file is left
// untouched when either reference is empty.
func (m *MediaFile) MarkUploaded(remoteID, remoteURI string) error {
	if remoteID == "" || remoteURI == "" {
		return ErrIncompleteUpload
	}
	m.IsUploaded = true
	m.RemoteID = remoteID
	m.RemoteURI = remoteURI
	return nil
}
