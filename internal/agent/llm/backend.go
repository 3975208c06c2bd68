package llm

import (
	"context"
	"errors"
)

// ErrRemoteUploadUnsupported is returned by backends without a files API.
var ErrRemoteUploadUnsupported = errors.New("remote upload not supported by backend")

// Part is one element of a generation request.
type Part interface {
	isPart()
}

// Text is a plain text part.
type Text string

// Blob carries inline bytes.
type Blob struct {
	MIMEType string
	Data     []byte
}

// FileRef references a file previously uploaded to the backend.
type FileRef struct {
	MIMEType string
	URI      string
}

func (Text) isPart()    {}
func (Blob) isPart()    {}
func (FileRef) isPart() {}

// GenerateRequest is a single generation call.
type GenerateRequest struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	TopP            float32
	TopK            int32
	Parts           []Part
}

// RemoteFile identifies an out-of-band upload.
type RemoteFile struct {
	ID  string
	URI string
}

// Backend is a multimodal LLM. Implementations must be safe for
// concurrent use; one instance is shared by every request.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// Generate returns the text of the first candidate.
	Generate(ctx context.Context, req *GenerateRequest) (string, error)

	// SupportsRemoteUpload reports whether Upload and Delete work.
	SupportsRemoteUpload() bool

	// Upload transfers data ahead of a generation call.
	Upload(ctx context.Context, filename, mimeType string, data []byte) (*RemoteFile, error)

	// Delete removes a previous upload.
	Delete(ctx context.Context, id string) error

	Close() error
}
