package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/http"
	httpH "github.com/yungbote/dossier-backend/internal/http/handlers"
	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

type Handlers struct {
	Health         *httpH.HealthHandler
	Documents      *httpH.DocumentHandler
	Questionnaires *httpH.QuestionnaireHandler
	Reports        *httpH.ReportHandler
	Query          *httpH.QueryHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:         httpH.NewHealthHandler(services.Index),
		Documents:      httpH.NewDocumentHandler(log, services.Knowledge),
		Questionnaires: httpH.NewQuestionnaireHandler(log, services.Questionnaires, services.Reports),
		Reports:        httpH.NewReportHandler(log, services.Reports),
		Query:          httpH.NewQueryHandler(log, services.QA),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers) *gin.Engine {
	if cfg.LogMode == "production" || cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	return http.NewRouter(http.RouterConfig{
		Log:                  log,
		Metrics:              metrics,
		ServiceName:          cfg.Otel.ServiceName,
		CORSOrigins:          cfg.CORSOrigins,
		HealthHandler:        handlers.Health,
		DocumentHandler:      handlers.Documents,
		QuestionnaireHandler: handlers.Questionnaires,
		ReportHandler:        handlers.Reports,
		QueryHandler:         handlers.Query,
	})
}
