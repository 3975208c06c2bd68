// Package agenttest provides a scripted llm.Backend for tests.
package agenttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/llm"
)

// Upload records one Upload call.
type Upload struct {
	Filename string
	MIMEType string
	Size     int
}

// Backend returns canned answers and records every call.
type Backend struct {
	mu sync.Mutex

	Remote bool

	// Responses are returned in order; the last one repeats.
	Responses []string
	// GenerateErrs are returned in order before any response; nil entries
	// let the call through.
	GenerateErrs []error
	// FailModels makes every call on these models fail.
	FailModels map[string]error

	UploadErr  error
	UploadErrs []error
	DeleteErr  error
	// BlankURI makes successful uploads come back without a URI.
	BlankURI bool

	Requests []*llm.GenerateRequest
	Uploads  []Upload
	Deleted  []string

	nextID int
}

// New returns a backend that answers with responses.
func New(responses ...string) *Backend {
	return &Backend{Responses: responses, FailModels: map[string]error{}}
}

func (b *Backend) Name() string { return "fake" }

func (b *Backend) Generate(_ context.Context, req *llm.GenerateRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Requests = append(b.Requests, req)
	if err, ok := b.FailModels[req.Model]; ok {
		return "", err
	}
	if len(b.GenerateErrs) > 0 {
		err := b.GenerateErrs[0]
		b.GenerateErrs = b.GenerateErrs[1:]
		if err != nil {
			return "", err
		}
	}
	if len(b.Responses) == 0 {
		return "ok", nil
	}
	resp := b.Responses[0]
	if len(b.Responses) > 1 {
		b.Responses = b.Responses[1:]
	}
	return resp, nil
}

func (b *Backend) SupportsRemoteUpload() bool { return b.Remote }

func (b *Backend) Upload(_ context.Context, filename, mimeType string, data []byte) (*llm.RemoteFile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Uploads = append(b.Uploads, Upload{Filename: filename, MIMEType: mimeType, Size: len(data)})
	if len(b.UploadErrs) > 0 {
		err := b.UploadErrs[0]
		b.UploadErrs = b.UploadErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if b.UploadErr != nil {
		return nil, b.UploadErr
	}
	b.nextID++
	id := fmt.Sprintf("files/fake-%d", b.nextID)
	if b.BlankURI {
		return &llm.RemoteFile{ID: id}, nil
	}
	return &llm.RemoteFile{ID: id, URI: "https://files.example/" + id}, nil
}

func (b *Backend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Deleted = append(b.Deleted, id)
	return b.DeleteErr
}

func (b *Backend) Close() error { return nil }

// GenerateCalls returns the number of Generate calls so far.
func (b *Backend) GenerateCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Requests)
}

// LastRequest returns the most recent generation request, or nil.
func (b *Backend) LastRequest() *llm.GenerateRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Requests) == 0 {
		return nil
	}
	return b.Requests[len(b.Requests)-1]
}
