package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/http/response"
	"github.com/yungbote/dossier-backend/internal/modules/questionnaire"
	"github.com/yungbote/dossier-backend/internal/modules/report"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

type QuestionnaireService interface {
	ExtractFile(ctx context.Context, filename string, data []byte) (questionnaire.Draft, error)
	Save(ctx context.Context, q domain.Questionnaire) (string, error)
	List(ctx context.Context) ([]domain.Questionnaire, error)
	Get(ctx context.Context, id string) (domain.Questionnaire, error)
	Delete(ctx context.Context, id string) error
}

type ReportGenerator interface {
	GenerateForQuestionnaire(ctx context.Context, id string, onProgress report.ProgressFunc) (domain.Report, error)
}

type QuestionnaireHandler struct {
	log            *logger.Logger
	questionnaires QuestionnaireService
	reports        ReportGenerator
}

func NewQuestionnaireHandler(log *logger.Logger, questionnaires QuestionnaireService, reports ReportGenerator) *QuestionnaireHandler {
	return &QuestionnaireHandler{
		log:            log.With("handler", "QuestionnaireHandler"),
		questionnaires: questionnaires,
		reports:        reports,
	}
}

// Extract returns an unsaved draft. Model problems are reported in
// "diagnostics" with a 200, only unreadable uploads fail.
func (h *QuestionnaireHandler) Extract(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	data, err := readUpload(fh)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	draft, err := h.questionnaires.ExtractFile(c.Request.Context(), fh.Filename, data)
	if err != nil {
		respondErr(c, err, "extract_failed")
		return
	}
	if draft.Questions == nil {
		draft.Questions = []domain.Question{}
	}
	response.RespondOK(c, draft)
}

type saveQuestionnaireRequest struct {
	Title     string            `json:"title"`
	Questions []domain.Question `json:"questions"`
}

func (h *QuestionnaireHandler) Save(c *gin.Context) {
	var req saveQuestionnaireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	id, err := h.questionnaires.Save(c.Request.Context(), domain.Questionnaire{Title: req.Title, Questions: req.Questions})
	if err != nil {
		respondErr(c, err, "save_questionnaire_failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *QuestionnaireHandler) List(c *gin.Context) {
	qs, err := h.questionnaires.List(c.Request.Context())
	if err != nil {
		respondErr(c, err, "list_questionnaires_failed")
		return
	}
	response.RespondOK(c, gin.H{"questionnaires": qs})
}

func (h *QuestionnaireHandler) Get(c *gin.Context) {
	q, err := h.questionnaires.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err, "load_questionnaire_failed")
		return
	}
	response.RespondOK(c, q)
}

func (h *QuestionnaireHandler) Delete(c *gin.Context) {
	if err := h.questionnaires.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err, "delete_questionnaire_failed")
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// Report generates and saves a report for a saved questionnaire. With
// Accept: text/event-stream, progress events precede the final report event.
func (h *QuestionnaireHandler) Report(c *gin.Context) {
	id := c.Param("id")
	if !wantsEventStream(c) {
		rep, err := h.reports.GenerateForQuestionnaire(c.Request.Context(), id, nil)
		if err != nil {
			respondErr(c, err, "generate_report_failed")
			return
		}
		response.RespondOK(c, rep)
		return
	}

	startEventStream(c)
	rep, err := h.reports.GenerateForQuestionnaire(c.Request.Context(), id, func(p report.Progress) {
		if err := writeEvent(c, "progress", p); err != nil {
			h.log.Debug("Progress event dropped", "error", err)
		}
	})
	if err != nil {
		ae := classify(err, "generate_report_failed")
		_ = writeEvent(c, "error", response.APIError{Message: err.Error(), Code: ae.Code})
		return
	}
	_ = writeEvent(c, "report", rep)
}
