package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/service"
)

// AnalysisService is what the handler needs from service.AnalysisService.
type AnalysisService interface {
	AnalyzeFiles(ctx context.Context, req service.AnalyzeRequest) (*domain.RegionReport, error)
	GetRun(ctx context.Context, runID string) (*domain.AnalysisRun, error)
	ListRuns(ctx context.Context, period string, limit int) ([]domain.AnalysisRun, error)
	GetSummaries(ctx context.Context, filter domain.ReportFilter) ([]domain.StoreRiskSummary, error)
	GetStoreSummary(ctx context.Context, storeID, period string) (*domain.StoreRiskSummary, error)
	GetRecords(ctx context.Context, runID, storeID string) ([]domain.ClassificationRecord, error)
	GetRollups(ctx context.Context, filter domain.ReportFilter) ([]domain.RollupSummary, error)
}

type AnalysisHandler struct {
	service   AnalysisService
	uploadDir string
	timeout   time.Duration
}

// NewAnalysisHandler creates the handler. Uploads are staged below
// uploadDir, or the OS temp dir when empty. A positive timeout bounds each
// upload analysis.
func NewAnalysisHandler(service AnalysisService, uploadDir string, timeout time.Duration) *AnalysisHandler {
	return &AnalysisHandler{service: service, uploadDir: uploadDir, timeout: timeout}
}

type uploadForm struct {
	Period  string `form:"period" binding:"omitempty,datetime=2006-01"`
	StoreID string `form:"store_id"`
}

// Upload analyzes the uploaded export files synchronously and returns the
// full region report.
func (h *AnalysisHandler) Upload(c *gin.Context) {
	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	multipart, err := c.MultipartForm()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid form data")
		return
	}
	files := multipart.File["files"]
	if len(files) == 0 {
		errorResponse(c, http.StatusBadRequest, "no files provided")
		return
	}

	dir, err := os.MkdirTemp(h.uploadDir, "upload-*")
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to stage uploads")
		return
	}
	defer os.RemoveAll(dir)

	paths := make([]string, 0, len(files))
	for _, file := range files {
		name := filepath.Base(file.Filename)
		switch strings.ToLower(filepath.Ext(name)) {
		case ".csv", ".xlsx", ".xlsm":
		default:
			errorResponse(c, http.StatusBadRequest, "unsupported file type: "+name)
			return
		}
		path := filepath.Join(dir, name)
		if err := c.SaveUploadedFile(file, path); err != nil {
			log.Error().Err(err).Str("filename", file.Filename).Msg("failed to save uploaded file")
			errorResponse(c, http.StatusInternalServerError, "failed to save uploaded file")
			return
		}
		paths = append(paths, path)
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	report, err := h.service.AnalyzeFiles(ctx, service.AnalyzeRequest{
		Paths:   paths,
		Period:  form.Period,
		StoreID: form.StoreID,
		Source:  "upload",
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type runsQuery struct {
	Period string `form:"period" binding:"omitempty,datetime=2006-01"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=200"`
}

func (h *AnalysisHandler) ListRuns(c *gin.Context) {
	var q runsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	runs, err := h.service.ListRuns(c.Request.Context(), q.Period, q.Limit)
	if err != nil {
		serviceError(c, err)
		return
	}
	if runs == nil {
		runs = make([]domain.AnalysisRun, 0)
	}
	c.JSON(http.StatusOK, runs)
}

func (h *AnalysisHandler) GetRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetRunStores returns the store summaries of a run, optionally narrowed by
// ?level= and repeated or comma separated ?store= values.
func (h *AnalysisHandler) GetRunStores(c *gin.Context) {
	filter := domain.ReportFilter{
		RunID:    c.Param("id"),
		StoreIDs: splitValues(c.QueryArray("store")),
		Level:    strings.TrimSpace(c.Query("level")),
	}
	summaries, err := h.service.GetSummaries(c.Request.Context(), filter)
	if err != nil {
		serviceError(c, err)
		return
	}
	if summaries == nil {
		summaries = make([]domain.StoreRiskSummary, 0)
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *AnalysisHandler) GetRunRecords(c *gin.Context) {
	records, err := h.service.GetRecords(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Query("store")))
	if err != nil {
		serviceError(c, err)
		return
	}
	if records == nil {
		records = make([]domain.ClassificationRecord, 0)
	}
	c.JSON(http.StatusOK, records)
}

type periodQuery struct {
	Period string `form:"period" binding:"required,datetime=2006-01"`
}

func (h *AnalysisHandler) GetStoreSummary(c *gin.Context) {
	var q periodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := h.service.GetStoreSummary(c.Request.Context(), c.Param("store"), q.Period)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type rollupQuery struct {
	By     string `form:"by" binding:"required,oneof=manager region"`
	Period string `form:"period" binding:"required_without=RunID"`
	RunID  string `form:"run_id"`
}

func (h *AnalysisHandler) GetRollups(c *gin.Context) {
	var q rollupQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	rollups, err := h.service.GetRollups(c.Request.Context(), domain.ReportFilter{
		RunID:   q.RunID,
		Period:  q.Period,
		GroupBy: domain.RollupKind(q.By),
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	if rollups == nil {
		rollups = make([]domain.RollupSummary, 0)
	}
	c.JSON(http.StatusOK, rollups)
}

// splitValues flattens ?k=a&k=b and ?k=a,b into one list.
func splitValues(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func serviceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNoRows):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRunInProgress):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	errorResponse(c, status, err.Error())
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	if statusCode >= http.StatusInternalServerError {
		log.Error().Int("status", statusCode).Msg(message)
	} else {
		log.Debug().Int("status", statusCode).Msg(message)
	}
	c.JSON(statusCode, gin.H{"error": message})
}
