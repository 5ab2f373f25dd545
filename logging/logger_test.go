package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amirphl/quote-core/config"
	"github.com/amirphl/quote-core/utils"
)

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("priced", zap.String("document_id", "doc-1"))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "priced", entry["msg"])
	assert.Equal(t, "doc-1", entry["document_id"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "ts")
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
	_, err = New(config.LoggingConfig{Level: "info", Output: "file"})
	assert.Error(t, err)
	_, err = New(config.LoggingConfig{Level: "info", Output: "syslog"})
	assert.Error(t, err)
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quote.log")
	logger, err := New(config.LoggingConfig{Level: "debug", Format: "console", Output: "file", FilePath: path, MaxSize: 1})
	require.NoError(t, err)
	logger.Info("written")
	assert.NoError(t, Sync(logger))
	assert.FileExists(t, path)
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewWriter(config.LoggingConfig{Level: "info"}, &buf)
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), utils.RequestIDKey, "req-42")
	ctx = context.WithValue(ctx, utils.TenantIDKey, "tenant-a")
	WithContext(ctx, base).Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "tenant-a", entry["tenant_id"])

	assert.Same(t, base, WithContext(context.Background(), base))
}
