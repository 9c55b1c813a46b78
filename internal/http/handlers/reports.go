package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/http/response"
	"github.com/yungbote/dossier-backend/internal/modules/report"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

type ReportService interface {
	Generate(ctx context.Context, q domain.Questionnaire, onProgress report.ProgressFunc) (domain.Report, error)
	List(ctx context.Context) ([]domain.Report, error)
	Get(ctx context.Context, id string) (domain.Report, error)
	Delete(ctx context.Context, id string) error
	ExportByID(ctx context.Context, id string) ([]byte, error)
}

type ReportHandler struct {
	log     *logger.Logger
	reports ReportService
}

func NewReportHandler(log *logger.Logger, reports ReportService) *ReportHandler {
	return &ReportHandler{log: log.With("handler", "ReportHandler"), reports: reports}
}

type createReportRequest struct {
	Title     string            `json:"title"`
	Questions []domain.Question `json:"questions" binding:"required"`
}

// Create reports on an unsaved questionnaire.
func (h *ReportHandler) Create(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rep, err := h.reports.Generate(c.Request.Context(), domain.Questionnaire{Title: req.Title, Questions: req.Questions}, nil)
	if err != nil {
		respondErr(c, err, "generate_report_failed")
		return
	}
	c.JSON(http.StatusCreated, rep)
}

func (h *ReportHandler) List(c *gin.Context) {
	reps, err := h.reports.List(c.Request.Context())
	if err != nil {
		respondErr(c, err, "list_reports_failed")
		return
	}
	response.RespondOK(c, gin.H{"reports": reps})
}

func (h *ReportHandler) Get(c *gin.Context) {
	rep, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err, "load_report_failed")
		return
	}
	response.RespondOK(c, rep)
}

func (h *ReportHandler) Delete(c *gin.Context) {
	if err := h.reports.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err, "delete_report_failed")
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *ReportHandler) Export(c *gin.Context) {
	id := c.Param("id")
	raw, err := h.reports.ExportByID(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err, "export_report_failed")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="report-`+id+`.json"`)
	c.Data(http.StatusOK, "application/json", raw)
}
