package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"

	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/platform/pinecone"
	"github.com/yungbote/dossier-backend/internal/platform/qdrant"
)

var (
	newPineconeClient      = pinecone.New
	newPineconeVectorStore = pinecone.NewVectorStore
	newQdrantVectorStore   = qdrant.NewVectorStore
)

type VectorProvider string

const (
	VectorProviderPinecone VectorProvider = "pinecone"
	VectorProviderQdrant   VectorProvider = "qdrant"
)

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorInvalidProvider       VectorProviderBootstrapErrorCode = "invalid_provider"
	VectorProviderBootstrapErrorMissingPineconeAPIKey VectorProviderBootstrapErrorCode = "missing_pinecone_api_key"
	VectorProviderBootstrapErrorMissingPineconeIndex  VectorProviderBootstrapErrorCode = "missing_pinecone_index"
	VectorProviderBootstrapErrorMissingQdrantURL      VectorProviderBootstrapErrorCode = "missing_qdrant_url"
	VectorProviderBootstrapErrorInvalidQdrantURL      VectorProviderBootstrapErrorCode = "invalid_qdrant_url"
	VectorProviderBootstrapErrorMissingQdrantColl     VectorProviderBootstrapErrorCode = "missing_qdrant_collection"
	VectorProviderBootstrapErrorInvalidVectorDim      VectorProviderBootstrapErrorCode = "invalid_vector_dim"
	VectorProviderBootstrapErrorQdrantConfigFailed    VectorProviderBootstrapErrorCode = "qdrant_config_failed"
	VectorProviderBootstrapErrorConnectFailed         VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorProviderInitFailed    VectorProviderBootstrapErrorCode = "provider_init_failed"
)

type VectorProviderBootstrapError struct {
	Code     VectorProviderBootstrapErrorCode
	Provider string
	Cause    error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf("vector provider bootstrap failed (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveVectorStore builds the backend named by VECTOR_PROVIDER, wrapped
// with per-operation metrics.
func resolveVectorStore(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (pinecone.VectorStore, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.VectorProvider))
	log.Info("Selecting vector store provider", "provider", provider, "vector_dim", cfg.VectorDim)

	var (
		vs  pinecone.VectorStore
		err error
	)
	switch VectorProvider(provider) {
	case VectorProviderQdrant:
		qcfg := cfg.Qdrant
		qcfg.VectorDim = cfg.VectorDim
		vs, err = newQdrantVectorStore(ctx, log, qcfg)
	case VectorProviderPinecone:
		vs, err = bootstrapPinecone(ctx, log, cfg)
	default:
		err = &VectorProviderBootstrapError{
			Code:     VectorProviderBootstrapErrorInvalidProvider,
			Provider: provider,
			Cause:    fmt.Errorf("unsupported vector provider %q", provider),
		}
	}
	if err != nil {
		classified := classifyVectorProviderBootstrapError(provider, err)
		code := vectorProviderBootstrapErrorCode(classified)
		metrics.ObserveVectorStoreBootstrap(provider, "error", string(code))
		log.Error("Vector store provider bootstrap failed", "provider", provider, "error_code", code, "error", classified)
		return nil, classified
	}
	metrics.ObserveVectorStoreBootstrap(provider, "success", "none")
	return instrumentVectorStore(provider, vs, metrics), nil
}

func bootstrapPinecone(ctx context.Context, log *logger.Logger, cfg Config) (pinecone.VectorStore, error) {
	provider := string(VectorProviderPinecone)
	if strings.TrimSpace(cfg.Pinecone.APIKey) == "" {
		return nil, &VectorProviderBootstrapError{
			Code:     VectorProviderBootstrapErrorMissingPineconeAPIKey,
			Provider: provider,
			Cause:    errors.New("PINECONE_API_KEY is required"),
		}
	}
	if strings.TrimSpace(cfg.PineconeIndexName) == "" {
		return nil, &VectorProviderBootstrapError{
			Code:     VectorProviderBootstrapErrorMissingPineconeIndex,
			Provider: provider,
			Cause:    errors.New("PINECONE_INDEX_NAME is required"),
		}
	}
	pc, err := newPineconeClient(log, cfg.Pinecone)
	if err != nil {
		return nil, err
	}
	return newPineconeVectorStore(ctx, log, pc, pinecone.VectorStoreConfig{
		IndexName:       cfg.PineconeIndexName,
		IndexHost:       cfg.PineconeIndexHost,
		NamespacePrefix: cfg.PineconeNamespacePrefix,
	})
}

func classifyVectorProviderBootstrapError(provider string, err error) error {
	var bootstrapErr *VectorProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		return err
	}
	wrap := func(code VectorProviderBootstrapErrorCode) error {
		return &VectorProviderBootstrapError{Code: code, Provider: provider, Cause: err}
	}

	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			return wrap(VectorProviderBootstrapErrorMissingQdrantURL)
		case qdrant.ConfigErrorInvalidURL:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantURL)
		case qdrant.ConfigErrorMissingCollection:
			return wrap(VectorProviderBootstrapErrorMissingQdrantColl)
		case qdrant.ConfigErrorInvalidVectorDim:
			return wrap(VectorProviderBootstrapErrorInvalidVectorDim)
		default:
			return wrap(VectorProviderBootstrapErrorQdrantConfigFailed)
		}
	}

	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	var opErr *qdrant.OperationError
	if errors.As(err, &opErr) && opErr.Unreachable() {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	if strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	return wrap(VectorProviderBootstrapErrorProviderInitFailed)
}

func vectorProviderBootstrapErrorCode(err error) VectorProviderBootstrapErrorCode {
	var bootstrapErr *VectorProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return VectorProviderBootstrapErrorProviderInitFailed
}
