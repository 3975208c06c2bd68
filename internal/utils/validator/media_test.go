package validator

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
)

type upload struct {
	filename    string
	contentType string
	data        []byte
}

func fileHeaders(t *testing.T, uploads ...upload) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, u := range uploads {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+u.filename+`"`)
		if u.contentType != "" {
			h.Set("Content-Type", u.contentType)
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(u.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, "/", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["files"]
}

func pngData(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestDecodeFilesKeepsOrderAndSize(t *testing.T) {
	d := NewMediaDecoder(logger.NewTestLogger(), nil)
	headers := fileHeaders(t,
		upload{"a.jpg", "image/jpeg", []byte("jpeg-bytes")},
		upload{"b.pdf", "application/pdf", []byte("%PDF-1.4")},
	)

	files, err := d.DecodeFiles(headers)

	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.jpg", files[0].Filename)
	assert.Equal(t, "image/jpeg", files[0].MIMEType)
	assert.Equal(t, int64(len("jpeg-bytes")), files[0].SizeBytes)
	assert.Equal(t, "application/pdf", files[1].MIMEType)
	assert.False(t, files[1].IsUploaded)
}

func TestDecodeFilesLimits(t *testing.T) {
	d := NewMediaDecoder(logger.NewTestLogger(), &DecoderConfig{MaxFiles: 1, MaxFileSize: 4})

	_, err := d.DecodeFiles(fileHeaders(t, upload{"a.txt", "", []byte("a")}, upload{"b.txt", "", []byte("b")}))
	assert.ErrorIs(t, err, ErrTooManyFiles)

	_, err = d.DecodeFiles(fileHeaders(t, upload{"big.txt", "", []byte("12345")}))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestDetectMIMEType(t *testing.T) {
	img := pngData(t)

	mt, src := DetectMIMEType("x.bin", "image/webp; charset=binary", img)
	assert.Equal(t, "image/webp", mt)
	assert.Equal(t, "header", src)

	mt, src = DetectMIMEType("photo", "application/octet-stream", img)
	assert.Equal(t, "image/png", mt)
	assert.Equal(t, "sniffed", src)

	mt, src = DetectMIMEType("notes.pdf", "", []byte{0x00, 0x01, 0x02})
	assert.Equal(t, "application/pdf", mt)
	assert.Equal(t, "extension", src)

	mt, src = DetectMIMEType("notes", "", []byte("plain words"))
	assert.Equal(t, "text/plain", mt)
	assert.Equal(t, "sniffed", src)

	mt, src = DetectMIMEType("blob", "", nil)
	assert.Equal(t, "application/octet-stream", mt)
	assert.Equal(t, "default", src)
}
