package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/dossier-backend/internal/http/handlers"
	httpMW "github.com/yungbote/dossier-backend/internal/http/middleware"
	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	HealthHandler        *httpH.HealthHandler
	DocumentHandler      *httpH.DocumentHandler
	QuestionnaireHandler *httpH.QuestionnaireHandler
	ReportHandler        *httpH.ReportHandler
	QueryHandler         *httpH.QueryHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "dossier"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.RequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		if cfg.HealthHandler != nil {
			api.GET("/status", cfg.HealthHandler.Status)
		}

		// Knowledge base
		if cfg.DocumentHandler != nil {
			api.POST("/documents", cfg.DocumentHandler.Upload)
			api.GET("/documents", cfg.DocumentHandler.List)
			api.DELETE("/documents/:id", cfg.DocumentHandler.Delete)
		}

		// Questionnaires
		if cfg.QuestionnaireHandler != nil {
			api.POST("/questionnaires/extract", cfg.QuestionnaireHandler.Extract)
			api.POST("/questionnaires", cfg.QuestionnaireHandler.Save)
			api.GET("/questionnaires", cfg.QuestionnaireHandler.List)
			api.GET("/questionnaires/:id", cfg.QuestionnaireHandler.Get)
			api.DELETE("/questionnaires/:id", cfg.QuestionnaireHandler.Delete)
			api.POST("/questionnaires/:id/report", cfg.QuestionnaireHandler.Report)
		}

		// Reports
		if cfg.ReportHandler != nil {
			api.POST("/reports", cfg.ReportHandler.Create)
			api.GET("/reports", cfg.ReportHandler.List)
			api.GET("/reports/:id", cfg.ReportHandler.Get)
			api.DELETE("/reports/:id", cfg.ReportHandler.Delete)
			api.GET("/reports/:id/export", cfg.ReportHandler.Export)
		}

		// Query
		if cfg.QueryHandler != nil {
			api.POST("/query", cfg.QueryHandler.Query)
		}
	}

	return r
}
