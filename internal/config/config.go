// internal/config/config.go
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds global configuration
type Config struct {
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Storage       StorageConfig       `yaml:"storage"`
	Logging       LoggingConfig       `yaml:"logging"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	ResourceGuard ResourceGuardConfig `yaml:"resource_guard"`
	Cache         CacheConfig         `yaml:"cache"`
	Search        SearchConfig        `yaml:"search"`
	HotReload     HotReloadConfig     `yaml:"hot_reload"`
	HTTP          HTTPConfig          `yaml:"http"`
}

// HTTPConfig covers the debug/automation HTTP gateway (§6's thin chi adapter
// over internal/app.Service).
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "voyage"
	Model    string `yaml:"model"`    // "voyage-4-large"
	APIKey   string `yaml:"api_key"`  // read from env if empty, see ResolveSecrets
}

type StorageConfig struct {
	QdrantURL    string `yaml:"qdrant_url"`
	QdrantAPIKey string `yaml:"qdrant_api_key"`
	Neo4jURL     string `yaml:"neo4j_url"`
	Neo4jUser    string `yaml:"neo4j_user"`
	Neo4jPass    string `yaml:"neo4j_pass"`
	RedisURL     string `yaml:"redis_url"`
	StateDBPath  string `yaml:"state_db_path"` // projectstate.Store sqlite file
}

type LoggingConfig struct {
	Level     string `yaml:"level"` // error|warn|info|debug
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// PipelineConfig covers IndexCoordinator's worker pool, per-file limits, and
// chunking parameters (§5 concurrency model, §4.6 chunker).
type PipelineConfig struct {
	WorkerPoolSize            int     `yaml:"worker_pool_size"`
	MaxFileSizeBytes          int64   `yaml:"max_file_size_bytes"`
	MaxChunkSize              int     `yaml:"max_chunk_size"`
	ChunkOverlap              int     `yaml:"chunk_overlap"`
	MaxLinesPerChunk          int     `yaml:"max_lines_per_chunk"`
	MaxRetries                int     `yaml:"max_retries"`
	BackupLanguageConfidence  float64 `yaml:"backup_language_confidence"`
	EmbedQueueHighWatermark   int     `yaml:"embed_queue_high_watermark"`
	EmbedQueueLowWatermark    int     `yaml:"embed_queue_low_watermark"`
}

// ResourceGuardConfig covers MemoryGuard's thresholds and ErrorThreshold's
// rolling-window policy (§4.14).
type ResourceGuardConfig struct {
	WarnPct         float64 `yaml:"warn_pct"`
	CriticalPct     float64 `yaml:"critical_pct"`
	EmergencyPct    float64 `yaml:"emergency_pct"`
	LimitBytes      uint64  `yaml:"limit_bytes"`
	MaxErrors       int     `yaml:"max_errors"`
	ResetIntervalMs int     `yaml:"reset_interval_ms"`
}

// CacheConfig covers CacheLayer's per-cache capacities and TTLs (§4.15).
type CacheConfig struct {
	ResultCacheCapacity    int `yaml:"result_cache_capacity"`
	ResultCacheTTLSeconds  int `yaml:"result_cache_ttl_seconds"`
	EmbedCacheCapacity     int `yaml:"embed_cache_capacity"`
	EmbedCacheTTLSeconds   int `yaml:"embed_cache_ttl_seconds"`
}

// SearchConfig covers SearchCoordinator's defaults (§4.12).
type SearchConfig struct {
	DefaultK          int `yaml:"default_k"`
	BackendTimeoutMs  int `yaml:"backend_timeout_ms"`
}

// HotReloadConfig covers HotReloadController's debounce window (§4.17).
type HotReloadConfig struct {
	Enabled            bool `yaml:"enabled"`
	DebounceIntervalMs int  `yaml:"debounce_interval_ms"`
}

// RepoConfig holds per-repository configuration
type RepoConfig struct {
	Name          string            `yaml:"name"`
	DefaultBranch string            `yaml:"default_branch"`
	Modules       map[string]Module `yaml:"modules"`
	Include       []string          `yaml:"include"`
	Exclude       []string          `yaml:"exclude"`
}

type Module struct {
	Description string            `yaml:"description"`
	Submodules  map[string]string `yaml:"submodules"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider: "voyage",
			Model:    "voyage-4-large",
		},
		Storage: StorageConfig{
			QdrantURL:   "http://localhost:6333",
			Neo4jURL:    "bolt://localhost:7687",
			RedisURL:    "redis://localhost:6379",
			StateDBPath: "codeforge-index.db",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 50,
			MaxFiles:  3,
		},
		Pipeline: PipelineConfig{
			WorkerPoolSize:           8,
			MaxFileSizeBytes:         2 << 20, // 2 MiB
			MaxChunkSize:             1500,
			ChunkOverlap:             150,
			MaxLinesPerChunk:         200,
			MaxRetries:               3,
			BackupLanguageConfidence: 0.7,
			EmbedQueueHighWatermark:  500,
			EmbedQueueLowWatermark:   100,
		},
		ResourceGuard: ResourceGuardConfig{
			WarnPct:         0.70,
			CriticalPct:     0.85,
			EmergencyPct:    0.95,
			LimitBytes:      2 << 30, // 2 GiB
			MaxErrors:       10,
			ResetIntervalMs: 60_000,
		},
		Cache: CacheConfig{
			ResultCacheCapacity:   1000,
			ResultCacheTTLSeconds: 60,
			EmbedCacheCapacity:    10_000,
			EmbedCacheTTLSeconds:  0, // embeddings are content-addressed, no expiry by default
		},
		Search: SearchConfig{
			DefaultK:         20,
			BackendTimeoutMs: 5000,
		},
		HotReload: HotReloadConfig{
			Enabled:            false,
			DebounceIntervalMs: 500,
		},
		HTTP: HTTPConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8733",
		},
	}
}

// LoadConfig loads config from file or returns defaults
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ResolveSecrets()
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.ResolveSecrets()
	return cfg, nil
}

// ResolveSecrets fills in any credential field left blank in YAML from its
// environment variable counterpart. Credentials never have a non-empty
// default in DefaultConfig, so a value present after this call came from
// either the config file or the environment, with the environment used as
// the fallback rather than an override (a YAML-supplied credential wins).
func (c *Config) ResolveSecrets() {
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = os.Getenv("CODEFORGE_EMBEDDING_API_KEY")
	}
	if c.Storage.QdrantAPIKey == "" {
		c.Storage.QdrantAPIKey = os.Getenv("CODEFORGE_QDRANT_API_KEY")
	}
	if c.Storage.Neo4jUser == "" {
		c.Storage.Neo4jUser = os.Getenv("CODEFORGE_NEO4J_USER")
	}
	if c.Storage.Neo4jPass == "" {
		c.Storage.Neo4jPass = os.Getenv("CODEFORGE_NEO4J_PASS")
	}
}

// LoadRepoConfig loads .ai-devtools.yaml from repo root
func LoadRepoConfig(repoPath string) (*RepoConfig, error) {
	path := filepath.Join(repoPath, ".ai-devtools.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		CodeIndex RepoConfig `yaml:"code-index"`
	}

	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}

	return &wrapper.CodeIndex, nil
}
