package orchestration

import (
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/llm"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
)

// remoteUploadEnabled reports whether the upload stage should run at all.
func remoteUploadEnabled(s *State, backend llm.Backend) bool {
	return s.ValidationPassed && s.UseRemoteUpload && backend.SupportsRemoteUpload()
}

// needsRemoteUpload reports whether f is too large to embed inline.
func needsRemoteUpload(f *models.MediaFile, threshold int64) bool {
	return !f.IsUploaded && f.SizeBytes > threshold
}

// mediaPart references f remotely when it was uploaded, inline otherwise.
func mediaPart(f *models.MediaFile) llm.Part {
	if f.IsUploaded && f.RemoteURI != "" {
		return llm.FileRef{MIMEType: f.MIMEType, URI: f.RemoteURI}
	}
	return llm.Blob{MIMEType: f.MIMEType, Data: f.Data}
}
