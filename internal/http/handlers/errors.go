package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/http/response"
	"github.com/yungbote/dossier-backend/internal/ingestion/extractor"
	"github.com/yungbote/dossier-backend/internal/modules/knowledge"
	"github.com/yungbote/dossier-backend/internal/modules/qa"
	"github.com/yungbote/dossier-backend/internal/platform/apierr"
	"github.com/yungbote/dossier-backend/internal/platform/openai"
	"github.com/yungbote/dossier-backend/internal/store"
)

// classify maps domain errors onto API errors.
func classify(err error, fallbackCode string) *apierr.Error {
	var unsupported *extractor.UnsupportedFormatError
	var transient *openai.TransientProviderError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apierr.NotFound("not_found", err)
	case errors.As(err, &unsupported):
		return apierr.BadRequest("unsupported_format", err)
	case errors.Is(err, qa.ErrEmptyQuery):
		return apierr.BadRequest("empty_query", err)
	case errors.Is(err, knowledge.ErrStoreUnavailable):
		return apierr.Unavailable("vector_store_unavailable", err)
	case errors.As(err, &transient):
		return apierr.Unavailable("provider_unavailable", err)
	default:
		return apierr.As(err, fallbackCode)
	}
}

func respondErr(c *gin.Context, err error, fallbackCode string) {
	_ = c.Error(err)
	response.RespondAPIError(c, classify(err, fallbackCode), fallbackCode)
}
