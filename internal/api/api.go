package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/senirlioglu/envanter-risk-analizi/internal/api/handlers"
	"github.com/senirlioglu/envanter-risk-analizi/internal/api/middleware"
)

type Services struct {
	Analysis handlers.AnalysisService
}

type RouterConfig struct {
	AllowedOrigins []string
	MaxUploadMB    int64
	UploadDir      string
	AnalyzeTimeout time.Duration
}

func NewRouter(services *Services, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	if cfg.MaxUploadMB > 0 {
		router.MaxMultipartMemory = cfg.MaxUploadMB << 20
	}

	router.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(cfg.AllowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowCredentials = false
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.Analysis != nil {
		analysisHandler := handlers.NewAnalysisHandler(services.Analysis, cfg.UploadDir, cfg.AnalyzeTimeout)
		analysisGroup := apiGroup.Group("/analysis")
		{
			analysisGroup.POST("/upload", analysisHandler.Upload)
			analysisGroup.GET("/runs", analysisHandler.ListRuns)
			analysisGroup.GET("/runs/:id", analysisHandler.GetRun)
			analysisGroup.GET("/runs/:id/stores", analysisHandler.GetRunStores)
			analysisGroup.GET("/runs/:id/records", analysisHandler.GetRunRecords)
			analysisGroup.GET("/stores/:store/summary", analysisHandler.GetStoreSummary)
			analysisGroup.GET("/rollups", analysisHandler.GetRollups)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
