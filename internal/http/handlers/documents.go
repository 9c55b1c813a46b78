package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/http/response"
	"github.com/yungbote/dossier-backend/internal/modules/knowledge"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

type DocumentService interface {
	IngestFiles(ctx context.Context, files []knowledge.File) ([]knowledge.IngestResult, error)
	List(ctx context.Context) ([]knowledge.Summary, error)
	Delete(ctx context.Context, id string) error
}

type DocumentHandler struct {
	log  *logger.Logger
	docs DocumentService
}

func NewDocumentHandler(log *logger.Logger, docs DocumentService) *DocumentHandler {
	return &DocumentHandler{log: log.With("handler", "DocumentHandler"), docs: docs}
}

// Upload ingests every multipart "files" part. Per-file failures are listed
// in the response; the request only fails when nothing could be attempted.
func (h *DocumentHandler) Upload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	headers := c.Request.MultipartForm.File["files"]
	if len(headers) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_files", nil)
		return
	}

	files := make([]knowledge.File, 0, len(headers))
	var unreadable []knowledge.IngestResult
	for _, fh := range headers {
		data, err := readUpload(fh)
		if err != nil {
			h.log.Warn("Cannot read upload", "filename", fh.Filename, "error", err)
			unreadable = append(unreadable, knowledge.IngestResult{Filename: fh.Filename, Error: err.Error()})
			continue
		}
		files = append(files, knowledge.File{Name: fh.Filename, Data: data})
	}

	results, err := h.docs.IngestFiles(c.Request.Context(), files)
	if err != nil {
		respondErr(c, err, "ingest_failed")
		return
	}
	response.RespondOK(c, gin.H{"results": append(results, unreadable...)})
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docs.List(c.Request.Context())
	if err != nil {
		respondErr(c, err, "list_documents_failed")
		return
	}
	response.RespondOK(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.docs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err, "delete_document_failed")
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
