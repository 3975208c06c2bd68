package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/llm"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
)

const defaultPollInterval = 2 * time.Second

var ErrEmptyResponse = errors.New("gemini: empty response")

// Backend talks to the Gemini API and its Files API.
type Backend struct {
	client       *genai.Client
	generation   config.GenerationConfig
	files        config.FilesAPIConfig
	logger       logger.Logger
	pollInterval time.Duration
}

// New creates the client once; the returned Backend is shared by all requests.
func New(ctx context.Context, apiKey string, cfg *config.OrchestrationConfig, log logger.Logger) (*Backend, error) {
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &Backend{
		client:       client,
		generation:   cfg.Generation,
		files:        cfg.FilesAPI,
		logger:       log.Named("gemini"),
		pollInterval: defaultPollInterval,
	}, nil
}

func (b *Backend) Name() string { return "gemini" }

func (b *Backend) Generate(ctx context.Context, req *llm.GenerateRequest) (string, error) {
	if b.generation.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.generation.Timeout)
		defer cancel()
	}

	model := b.client.GenerativeModel(req.Model)
	model.SetTemperature(req.Temperature)
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(req.MaxOutputTokens)
	}
	if req.TopP > 0 {
		model.SetTopP(req.TopP)
	}
	if req.TopK > 0 {
		model.SetTopK(req.TopK)
	}

	resp, err := model.GenerateContent(ctx, toParts(req.Parts)...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return responseText(resp)
}

func (b *Backend) SupportsRemoteUpload() bool { return b.files.Enabled }

// Upload sends data to the Files API and waits until the file is ACTIVE.
func (b *Backend) Upload(ctx context.Context, filename, mimeType string, data []byte) (*llm.RemoteFile, error) {
	if b.files.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.files.UploadTimeout)
		defer cancel()
	}

	f, err := b.client.UploadFile(ctx, "", bytes.NewReader(data), &genai.UploadFileOptions{
		DisplayName: filename,
		MIMEType:    mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini upload %s: %w", filename, err)
	}

	for f.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gemini upload %s: waiting for processing: %w", filename, ctx.Err())
		case <-time.After(b.pollInterval):
		}
		if f, err = b.client.GetFile(ctx, f.Name); err != nil {
			return nil, fmt.Errorf("gemini get file: %w", err)
		}
	}
	if f.State == genai.FileStateFailed {
		if derr := b.client.DeleteFile(context.WithoutCancel(ctx), f.Name); derr != nil {
			b.logger.Warn("Failed to delete rejected upload", logger.String("name", f.Name), logger.Error(derr))
		}
		return nil, fmt.Errorf("gemini upload %s: processing failed", filename)
	}

	b.logger.Debug("File uploaded",
		logger.String("filename", filename),
		logger.String("name", f.Name),
		logger.Int64("size", f.SizeBytes),
	)
	return &llm.RemoteFile{ID: f.Name, URI: f.URI}, nil
}

func (b *Backend) Delete(ctx context.Context, id string) error {
	if err := b.client.DeleteFile(ctx, id); err != nil {
		return fmt.Errorf("gemini delete %s: %w", id, err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.client.Close()
}

func toParts(parts []llm.Part) []genai.Part {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case llm.Text:
			out = append(out, genai.Text(v))
		case llm.Blob:
			out = append(out, genai.Blob{MIMEType: v.MIMEType, Data: v.Data})
		case llm.FileRef:
			out = append(out, genai.FileData{MIMEType: v.MIMEType, URI: v.URI})
		}
	}
	return out
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
