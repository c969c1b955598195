package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupRenamesKeysAndTagsService(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("huntd", "test", WithWriter(&buf))
	logger.Info("node started", slog.Uint64("height", 3))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "node started", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "huntd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Contains(t, line, "timestamp")
	require.EqualValues(t, 3, line["height"])
}

func TestSetupMirrorsIntoRotatedFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "huntd.log")
	logger := Setup("huntd", "", WithWriter(&buf), WithFile(FileConfig{Path: path, MaxSizeMB: 1}))
	logger.Warn("disk check")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"message":"disk check"`)
	require.Equal(t, buf.String(), string(data))
}

func TestSetupHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("huntd", "", WithWriter(&buf), WithLevel(ParseLevel("warn")))
	logger.Info("hidden")
	require.Zero(t, buf.Len())
	logger.Error("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("jwt_secret", "abc").Value.String())
	require.Equal(t, "hunt1xyz", MaskField("finder", "hunt1xyz").Value.String())
	require.Equal(t, "", MaskField("webhook_secret", "").Value.String())
	require.Contains(t, RedactionAllowlist(), "treasure")
}

func TestMaskDSN(t *testing.T) {
	require.Equal(t, "postgres://[REDACTED]@db:5432/hunt?sslmode=disable",
		MaskDSN("postgres://hunt:s3cret@db:5432/hunt?sslmode=disable"))
	require.Equal(t, "/var/lib/hunt/indexer.db", MaskDSN("/var/lib/hunt/indexer.db"))
	require.Equal(t, "postgres://db/hunt", MaskDSN("postgres://db/hunt"))
}
