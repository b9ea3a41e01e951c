package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Pipeline.WorkerPoolSize, cfg.Pipeline.WorkerPoolSize)
	assert.Equal(t, "voyage", cfg.Embedding.Provider)
}

func TestLoadConfig_OverridesDefaultsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
pipeline:
  worker_pool_size: 16
  max_chunk_size: 2000
search:
  default_k: 50
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Pipeline.WorkerPoolSize)
	assert.Equal(t, 2000, cfg.Pipeline.MaxChunkSize)
	assert.Equal(t, 50, cfg.Search.DefaultK)
	// fields not present in the YAML keep their defaults
	assert.Equal(t, DefaultConfig().ResourceGuard.WarnPct, cfg.ResourceGuard.WarnPct)
}

func TestResolveSecrets_FallsBackToEnvWhenBlank(t *testing.T) {
	t.Setenv("CODEFORGE_EMBEDDING_API_KEY", "env-key")

	cfg := DefaultConfig()
	cfg.ResolveSecrets()

	assert.Equal(t, "env-key", cfg.Embedding.APIKey)
}

func TestResolveSecrets_YAMLValueWinsOverEnv(t *testing.T) {
	t.Setenv("CODEFORGE_EMBEDDING_API_KEY", "env-key")

	cfg := DefaultConfig()
	cfg.Embedding.APIKey = "yaml-key"
	cfg.ResolveSecrets()

	assert.Equal(t, "yaml-key", cfg.Embedding.APIKey)
}
