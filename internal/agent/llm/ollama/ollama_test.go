package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/llm"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type capturedRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system"`
	Prompt  string         `json:"prompt"`
	Images  [][]byte       `json:"images"`
	Options map[string]any `json:"options"`
}

func newServer(t *testing.T, got *capturedRequest, lines ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, got))

		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, l := range lines {
			_, _ = io.WriteString(w, l+"\n")
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate(t *testing.T) {
	var got capturedRequest
	srv := newServer(t, &got,
		`{"model":"llava","response":"Unas ","done":false}`,
		`{"model":"llava","response":"450 kcal","done":true}`,
	)
	b, err := New(srv.URL, 5*time.Second, logger.NewTestLogger())
	require.NoError(t, err)

	img := pngBytes(t, 10, 10)
	text, err := b.Generate(context.Background(), &llm.GenerateRequest{
		Model:       "llava",
		Temperature: 0.2,
		TopK:        40,
		Parts: []llm.Part{
			llm.Text("system prompt"),
			llm.Blob{MIMEType: "image/png", Data: img},
			llm.Blob{MIMEType: "text/plain", Data: []byte("arroz 100g")},
			llm.Text("User question: ¿calorías?"),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "Unas 450 kcal", text)
	assert.Equal(t, "llava", got.Model)
	assert.Equal(t, "system prompt", got.System)
	assert.Equal(t, "[Document content]\narroz 100g\n\nUser question: ¿calorías?", got.Prompt)
	require.Len(t, got.Images, 1)
	assert.Equal(t, img, got.Images[0])
	assert.InDelta(t, 0.2, got.Options["temperature"], 1e-6)
	assert.EqualValues(t, 40, got.Options["top_k"])
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"model \"nope\" not found"}`)
	}))
	defer srv.Close()

	b, err := New(srv.URL, time.Second, logger.NewTestLogger())
	require.NoError(t, err)

	_, err = b.Generate(context.Background(), &llm.GenerateRequest{Model: "nope", Parts: []llm.Part{llm.Text("x")}})
	assert.ErrorContains(t, err, "not found")
}

func TestComposeRejectsRemoteReferences(t *testing.T) {
	b, err := New("", 0, logger.NewTestLogger())
	require.NoError(t, err)

	_, err = b.compose(context.Background(), []llm.Part{
		llm.Text("system"),
		llm.FileRef{MIMEType: "video/mp4", URI: "files/1"},
	})
	assert.ErrorIs(t, err, llm.ErrRemoteUploadUnsupported)
	assert.False(t, b.SupportsRemoteUpload())
}

func TestComposeOmitsUnsupportedMedia(t *testing.T) {
	log := logger.NewTestLogger()
	b, err := New("", 0, log)
	require.NoError(t, err)

	p, err := b.compose(context.Background(), []llm.Part{
		llm.Text("system"),
		llm.Blob{MIMEType: "audio/mpeg", Data: []byte{0}},
		llm.Text("question"),
	})
	require.NoError(t, err)
	assert.Equal(t, "[Attachment of type audio/mpeg omitted]\n\nquestion", p.prompt)
	assert.True(t, log.HasMessage("WARN", "not supported"))
}

func TestDownscale(t *testing.T) {
	small := pngBytes(t, 100, 50)
	out, err := downscale(small, 64)
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())

	same, err := downscale(small, 200)
	require.NoError(t, err)
	assert.Equal(t, small, same)

	_, err = downscale([]byte("not an image"), 64)
	assert.Error(t, err)
}

func TestExtractPDFTextRejectsGarbage(t *testing.T) {
	_, err := extractPDFText(context.Background(), []byte("%PDF-garbage"))
	assert.Error(t, err)
}
