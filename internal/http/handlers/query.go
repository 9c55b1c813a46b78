package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/http/response"
	"github.com/yungbote/dossier-backend/internal/modules/qa"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

type QueryAnswerer interface {
	Answer(ctx context.Context, query string) (qa.Result, error)
}

type QueryHandler struct {
	log *logger.Logger
	qa  QueryAnswerer
}

func NewQueryHandler(log *logger.Logger, answerer QueryAnswerer) *QueryHandler {
	return &QueryHandler{log: log.With("handler", "QueryHandler"), qa: answerer}
}

type queryRequest struct {
	Query string `json:"query"`
}

func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.qa.Answer(c.Request.Context(), req.Query)
	if err != nil {
		respondErr(c, err, "query_failed")
		return
	}
	response.RespondOK(c, res)
}
