package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmorganca/ollama/api"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/llm"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
)

// Backend runs generation against a local Ollama server. Ollama has no
// files API, so every media item is embedded in the request: images are
// downscaled, PDFs and text files are converted to prompt text.
type Backend struct {
	client      *api.Client
	logger      logger.Logger
	maxImageDim int
}

func New(host string, timeout time.Duration, log logger.Logger) (*Backend, error) {
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Backend{
		client:      api.NewClient(u, &http.Client{Timeout: timeout}),
		logger:      log.Named("ollama"),
		maxImageDim: defaultMaxImageDim,
	}, nil
}

func (b *Backend) Name() string { return "ollama" }

func (b *Backend) Generate(ctx context.Context, req *llm.GenerateRequest) (string, error) {
	p, err := b.compose(ctx, req.Parts)
	if err != nil {
		return "", err
	}

	options := map[string]any{"temperature": req.Temperature}
	if req.TopP > 0 {
		options["top_p"] = req.TopP
	}
	if req.TopK > 0 {
		options["top_k"] = req.TopK
	}
	if req.MaxOutputTokens > 0 {
		options["num_predict"] = req.MaxOutputTokens
	}

	var text strings.Builder
	err = b.client.Generate(ctx, &api.GenerateRequest{
		Model:   req.Model,
		System:  p.system,
		Prompt:  p.prompt,
		Images:  p.images,
		Options: options,
	}, func(gr api.GenerateResponse) error {
		text.WriteString(gr.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("ollama generate: empty response")
	}
	return text.String(), nil
}

func (b *Backend) SupportsRemoteUpload() bool { return false }

func (b *Backend) Upload(context.Context, string, string, []byte) (*llm.RemoteFile, error) {
	return nil, llm.ErrRemoteUploadUnsupported
}

func (b *Backend) Delete(context.Context, string) error {
	return llm.ErrRemoteUploadUnsupported
}

func (b *Backend) Close() error { return nil }

type prompt struct {
	system string
	prompt string
	images []api.ImageData
}

// compose maps the parts onto Ollama's request shape. The first text part
// is the system prompt; later text parts and converted media form the prompt.
func (b *Backend) compose(ctx context.Context, parts []llm.Part) (*prompt, error) {
	p := &prompt{}
	var sections []string
	seenSystem := false

	for i, part := range parts {
		switch v := part.(type) {
		case llm.Text:
			if !seenSystem {
				p.system = string(v)
				seenSystem = true
				continue
			}
			sections = append(sections, string(v))

		case llm.Blob:
			switch models.MediaTypeFromMIME(v.MIMEType) {
			case models.MediaImage:
				img, err := downscale(v.Data, b.maxImageDim)
				if err != nil {
					return nil, fmt.Errorf("attachment %d: %w", i, err)
				}
				p.images = append(p.images, api.ImageData(img))
			case models.MediaPDF:
				text, err := extractPDFText(ctx, v.Data)
				if err != nil {
					return nil, fmt.Errorf("attachment %d: %w", i, err)
				}
				sections = append(sections, "[PDF content]\n"+text)
			case models.MediaDocument:
				sections = append(sections, "[Document content]\n"+string(v.Data))
			default:
				b.logger.Warn("Attachment type not supported by ollama, skipping",
					logger.String("mime_type", v.MIMEType))
				sections = append(sections, fmt.Sprintf("[Attachment of type %s omitted]", v.MIMEType))
			}

		case llm.FileRef:
			return nil, fmt.Errorf("attachment %d: %w", i, llm.ErrRemoteUploadUnsupported)
		}
	}

	p.prompt = strings.Join(sections, "\n\n")
	return p, nil
}
