package validator

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
)

const octetStream = "application/octet-stream"

var (
	ErrTooManyFiles = errors.New("too many files")
	ErrFileTooLarge = errors.New("file too large")
)

// MediaDecoder turns multipart uploads into MediaFiles.
type MediaDecoder struct {
	logger logger.Logger
	config *DecoderConfig
}

type DecoderConfig struct {
	MaxFileSize int64 // bytes, 0 disables the check
	MaxFiles    int   // 0 disables the check
}

// FileInfo describes one decoded upload.
type FileInfo struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	Source   string `json:"source"` // header, sniffed, extension or default
	Hash     string `json:"hash"`
}

func NewMediaDecoder(log logger.Logger, config *DecoderConfig) *MediaDecoder {
	if config == nil {
		config = &DecoderConfig{
			MaxFileSize: 50 * 1024 * 1024,
			MaxFiles:    10,
		}
	}
	return &MediaDecoder{
		logger: log,
		config: config,
	}
}

// DecodeFiles reads every upload concurrently, keeping the request order.
func (d *MediaDecoder) DecodeFiles(files []*multipart.FileHeader) ([]*models.MediaFile, error) {
	if d.config.MaxFiles > 0 && len(files) > d.config.MaxFiles {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyFiles, len(files), d.config.MaxFiles)
	}

	media := make([]*models.MediaFile, len(files))
	var g errgroup.Group
	for i, fh := range files {
		i, fh := i, fh
		g.Go(func() error {
			m, info, err := d.DecodeFile(fh)
			if err != nil {
				return err
			}
			d.logger.Debug("Decoded upload",
				logger.String("filename", info.Filename),
				logger.String("mime_type", info.MimeType),
				logger.String("mime_source", info.Source),
				logger.Int64("size", info.Size),
				logger.String("hash", info.Hash),
			)
			media[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return media, nil
}

// DecodeFile reads one upload and resolves its MIME type.
func (d *MediaDecoder) DecodeFile(fh *multipart.FileHeader) (*models.MediaFile, *FileInfo, error) {
	if d.config.MaxFileSize > 0 && fh.Size > d.config.MaxFileSize {
		return nil, nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, fh.Filename, fh.Size, d.config.MaxFileSize)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file %s: %w", fh.Filename, err)
	}

	mimeType, source := DetectMIMEType(fh.Filename, fh.Header.Get("Content-Type"), data)
	sum := sha256.Sum256(data)
	info := &FileInfo{
		Filename: fh.Filename,
		Size:     int64(len(data)),
		MimeType: mimeType,
		Source:   source,
		Hash:     hex.EncodeToString(sum[:]),
	}
	return models.NewMediaFile(fh.Filename, mimeType, data), info, nil
}

// DetectMIMEType prefers the declared type, then content sniffing, then the
// file extension, then application/octet-stream.
func DetectMIMEType(filename, declared string, data []byte) (string, string) {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "" && mt != octetStream {
		return mt, "header"
	}
	if len(data) > 0 {
		if detected := mimetype.Detect(data); detected.String() != octetStream {
			mt, _, _ := mime.ParseMediaType(detected.String())
			if mt != "" && mt != "text/plain" {
				return mt, "sniffed"
			}
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		mt, _, _ := mime.ParseMediaType(byExt)
		return mt, "extension"
	}
	if len(data) > 0 && mimetype.Detect(data).Is("text/plain") {
		return "text/plain", "sniffed"
	}
	return octetStream, "default"
}
