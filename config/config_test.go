package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/RallySmith/logic2-ext-armdebug/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "armdebug.yaml")
	yaml := "decode_style: console\nport: 3\ntpiu_stream: 1\ntpiu_decode_style: saleae\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.StyleConsole, cfg.DecodeStyle)
	assert.Equal(t, 3, cfg.Port)
	assert.Equal(t, 1, cfg.TPIUStream)
	assert.Equal(t, config.TPIUStyleSaleae, cfg.TPIUDecodeStyle)
}

func TestLoad_MalformedYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decode_style: [unterminated"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}
