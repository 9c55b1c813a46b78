package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/envutil"
	"github.com/yungbote/dossier-backend/internal/platform/httpx"
	"github.com/yungbote/dossier-backend/internal/platform/openai"
	"github.com/yungbote/dossier-backend/internal/platform/pinecone"
	"github.com/yungbote/dossier-backend/internal/platform/qdrant"
)

const (
	RecordStoreVector   = "vector"
	RecordStoreSQLite   = "sqlite"
	RecordStorePostgres = "postgres"
)

type Config struct {
	LogMode     string
	Port        string
	CORSOrigins []string

	OpenAI                  openai.Config
	CompletionRatePerSecond float64
	CompletionBurst         int

	VectorProvider  string
	VectorDim       int
	VectorNamespace string

	Pinecone                pinecone.Config
	PineconeIndexName       string
	PineconeIndexHost       string
	PineconeNamespacePrefix string

	Qdrant qdrant.Config

	RecordStore string
	SQLitePath  string
	PostgresDSN string

	RedisAddr     string
	EmbedCacheTTL time.Duration

	ContextBudget     int
	ExtractBudget     int
	QATopK            int
	ReportConcurrency int

	MetricsEnabled bool
	Otel           observability.OtelConfig
}

// ConfigError names the key that failed validation.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}

// LoadConfig reads the environment, overlaid on the YAML or TOML file named
// by DOSSIER_CONFIG when set. Environment values win.
func LoadConfig() (Config, error) {
	values := map[string]string{}
	if path := strings.TrimSpace(os.Getenv("DOSSIER_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read DOSSIER_CONFIG: %w", err)
		}
		values, err = parseConfigFile(raw, filepath.Ext(path))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return loadConfigFrom(envutil.Env.Overlay(values))
}

// parseConfigFile reads a flat mapping of KEY: value, TOML when ext is
// ".toml" and YAML otherwise. Lists are joined with commas so they read like
// their environment form.
func parseConfigFile(raw []byte, ext string) (map[string]string, error) {
	var doc map[string]any
	var err error
	if strings.EqualFold(ext, ".toml") {
		err = toml.Unmarshal(raw, &doc)
	} else {
		err = yaml.Unmarshal(raw, &doc)
	}
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(doc))
	for k, v := range doc {
		key := strings.ToUpper(strings.TrimSpace(k))
		switch t := v.(type) {
		case nil:
		case []any:
			parts := make([]string, 0, len(t))
			for _, item := range t {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ",")
		case map[string]any:
			return nil, fmt.Errorf("key %s: nested mappings are not supported", key)
		default:
			out[key] = fmt.Sprint(t)
		}
	}
	return out, nil
}

func loadConfigFrom(src envutil.Source) (Config, error) {
	dim := src.Int("VECTOR_DIM", 1536)
	cfg := Config{
		LogMode:     src.String("LOG_MODE", "development"),
		Port:        src.String("PORT", "8080"),
		CORSOrigins: src.List("CORS_ALLOWED_ORIGINS"),

		OpenAI: openai.Config{
			APIKey:           src.String("OPENAI_API_KEY", ""),
			BaseURL:          src.String("OPENAI_BASE_URL", openai.DefaultBaseURL),
			Model:            src.String("OPENAI_MODEL", openai.DefaultModel),
			EmbedModel:       src.String("OPENAI_EMBED_MODEL", openai.DefaultEmbedModel),
			Timeout:          src.Seconds("OPENAI_TIMEOUT_SECONDS", 180*time.Second),
			EmbedMaxAttempts: src.Int("EMBED_MAX_ATTEMPTS", 6),
			EmbedBackoff: httpx.Backoff{
				Min: src.Seconds("EMBED_BACKOFF_MIN_SECONDS", time.Second),
				Max: src.Seconds("EMBED_BACKOFF_MAX_SECONDS", 60*time.Second),
			},
		},
		CompletionRatePerSecond: src.Float("COMPLETION_RATE_PER_SECOND", 0),
		CompletionBurst:         src.Int("COMPLETION_BURST", 1),

		VectorProvider:  strings.ToLower(src.String("VECTOR_PROVIDER", string(VectorProviderPinecone))),
		VectorDim:       dim,
		VectorNamespace: src.String("VECTOR_NAMESPACE", ""),

		Pinecone: pinecone.Config{
			APIKey:     src.String("PINECONE_API_KEY", ""),
			APIVersion: src.String("PINECONE_API_VERSION", "2025-10"),
			BaseURL:    src.String("PINECONE_BASE_URL", "https://api.pinecone.io"),
			Timeout:    30 * time.Second,
		},
		PineconeIndexName:       src.String("PINECONE_INDEX_NAME", ""),
		PineconeIndexHost:       src.String("PINECONE_INDEX_HOST", ""),
		PineconeNamespacePrefix: src.String("PINECONE_NAMESPACE_PREFIX", "dossier"),

		Qdrant: qdrant.Config{
			URL:             src.String("QDRANT_URL", ""),
			APIKey:          src.String("QDRANT_API_KEY", ""),
			Collection:      src.String("QDRANT_COLLECTION", ""),
			NamespacePrefix: src.String("QDRANT_NAMESPACE_PREFIX", "dossier"),
			VectorDim:       dim,
		},

		RecordStore: strings.ToLower(src.String("RECORD_STORE", RecordStoreVector)),
		SQLitePath:  src.String("SQLITE_PATH", "dossier.db"),
		PostgresDSN: src.String("POSTGRES_DSN", ""),

		RedisAddr:     src.String("REDIS_ADDR", ""),
		EmbedCacheTTL: src.Seconds("EMBED_CACHE_TTL_SECONDS", 24*time.Hour),

		ContextBudget:     src.Int("CONTEXT_BUDGET_CHARS", 3000),
		ExtractBudget:     src.Int("EXTRACT_BUDGET_CHARS", 3000),
		QATopK:            src.Int("QA_TOP_K", 3),
		ReportConcurrency: src.Int("REPORT_CONCURRENCY", 4),

		MetricsEnabled: src.Bool("METRICS_ENABLED", true),
		Otel:           observability.OtelConfigFrom(src),
	}

	if raw := src.String("OPENAI_TEMPERATURE", ""); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, &ConfigError{Key: "OPENAI_TEMPERATURE", Reason: fmt.Sprintf("expected a number, got %q", raw)}
		}
		cfg.OpenAI.Temperature = &t
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return &ConfigError{Key: "OPENAI_API_KEY", Reason: "required"}
	}
	if c.VectorDim <= 0 {
		return &ConfigError{Key: "VECTOR_DIM", Reason: "must be a positive integer"}
	}
	switch VectorProvider(c.VectorProvider) {
	case VectorProviderPinecone, VectorProviderQdrant:
	default:
		return &ConfigError{Key: "VECTOR_PROVIDER", Reason: fmt.Sprintf("unsupported value %q (pinecone or qdrant)", c.VectorProvider)}
	}
	switch c.RecordStore {
	case RecordStoreVector, RecordStoreSQLite:
	case RecordStorePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return &ConfigError{Key: "POSTGRES_DSN", Reason: "required when RECORD_STORE=postgres"}
		}
	default:
		return &ConfigError{Key: "RECORD_STORE", Reason: fmt.Sprintf("unsupported value %q (vector, sqlite or postgres)", c.RecordStore)}
	}
	for key, v := range map[string]int{
		"CONTEXT_BUDGET_CHARS": c.ContextBudget,
		"EXTRACT_BUDGET_CHARS": c.ExtractBudget,
		"QA_TOP_K":             c.QATopK,
		"REPORT_CONCURRENCY":   c.ReportConcurrency,
		"EMBED_MAX_ATTEMPTS":   c.OpenAI.EmbedMaxAttempts,
	} {
		if v <= 0 {
			return &ConfigError{Key: key, Reason: "must be a positive integer"}
		}
	}
	return nil
}

func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
