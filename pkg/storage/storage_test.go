package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/storage/errdefs"
)

func TestNewStorage(t *testing.T) {
	s, err := NewStorage(context.Background(), StorageTypeMemory, logger.NewTestLogger())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = NewStorage(context.Background(), "ftp", logger.NewTestLogger())
	assert.ErrorContains(t, err, "unsupported storage type")
}

func TestErrObjectNotFoundIsShared(t *testing.T) {
	assert.ErrorIs(t, ErrObjectNotFound, errdefs.ErrObjectNotFound)
}
