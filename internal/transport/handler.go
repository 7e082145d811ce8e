package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/skintone-inspector/internal/analyzer"
	"github.com/anime-shed/skintone-inspector/internal/config"
	apperrors "github.com/anime-shed/skintone-inspector/internal/errors"
	"github.com/anime-shed/skintone-inspector/internal/logger"
	"github.com/anime-shed/skintone-inspector/internal/observer"
	"github.com/anime-shed/skintone-inspector/internal/service"
	"github.com/anime-shed/skintone-inspector/pkg/models"
	"github.com/anime-shed/skintone-inspector/pkg/validation"
)

const (
	version = "1.0.0"

	uploadField = "images"
)

// Handler serves the skin tone analysis API
type Handler struct {
	svc       service.ImageAnalysisService
	metrics   *observer.MetricsObserver
	pool      *analyzer.WorkerPool
	cfg       *config.Config
	urls      *validation.URLValidator
	uploads   *validation.UploadValidator
	startedAt time.Time
}

// NewHandler builds the gin engine. metrics and pool may be nil.
func NewHandler(svc service.ImageAnalysisService, metrics *observer.MetricsObserver, pool *analyzer.WorkerPool, cfg *config.Config) http.Handler {
	h := &Handler{
		svc:       svc,
		metrics:   metrics,
		pool:      pool,
		cfg:       cfg,
		urls:      validation.NewURLValidator(),
		uploads:   validation.NewUploadValidator(cfg.MaxUploadFiles, cfg.MaxRequestBodySize),
		startedAt: time.Now(),
	}

	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", h.healthCheck)
	r.GET("/palette", h.palette)
	r.GET("/metrics", h.metricsSnapshot)
	r.POST("/analyze", h.analyzeUploads)
	r.POST("/analyze/url", h.analyzeURLs)

	return r
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "available",
		Version: version,
		Engine:  h.svc.Engine(),
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) palette(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Palette())
}

func (h *Handler) metricsSnapshot(c *gin.Context) {
	body := gin.H{
		"engine":         h.svc.Engine(),
		"uptime_seconds": time.Since(h.startedAt).Seconds(),
	}
	if h.metrics != nil {
		body["analyses"] = h.metrics.GetMetrics()
	}
	if h.pool != nil {
		body["worker_pool"] = h.pool.GetStats()
	}
	c.JSON(http.StatusOK, body)
}

// analyzeUploads handles multipart uploads under the "images" field
func (h *Handler) analyzeUploads(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	logger.WithFields(logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"ip":         c.ClientIP(),
	}).Info("Processing upload analysis request")

	options, err := h.optionsFromQuery(c)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "invalid query parameters", err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}
		respondError(c, http.StatusBadRequest, "invalid multipart form", apperrors.NewValidationError("expected multipart/form-data", err))
		return
	}

	files := form.File[uploadField]
	if err := h.uploads.ValidateCount(len(files)); err != nil {
		respondError(c, apperrors.GetStatusCode(err), "invalid upload", err)
		return
	}

	// A rejected or unreadable file fails in its own slot.
	inputs := make([]service.ImageInput, 0, len(files))
	for _, f := range files {
		input := service.ImageInput{Name: f.Filename}
		if err := h.uploads.ValidateFile(validation.UploadFile{Name: f.Filename, Size: f.Size}); err != nil {
			input.Err = err
		} else if input.Data, err = readUpload(f); err != nil {
			input.Err = apperrors.NewUnreadableImageError(fmt.Sprintf("cannot read %s", f.Filename), err)
		}
		inputs = append(inputs, input)
	}

	results := h.svc.AnalyzeBatch(ctx, inputs, options)
	h.respondBatch(c, results, options)
}

// analyzeURLs handles JSON requests naming remote images
func (h *Handler) analyzeURLs(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	var req models.URLAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WithError(err).WithField("ip", c.ClientIP()).Error("Invalid request format")
		respondError(c, http.StatusBadRequest, "invalid request format", apperrors.NewValidationError("invalid JSON body", err))
		return
	}

	if err := h.urls.ValidateBatch(req.URLs, h.cfg.MaxUploadFiles); err != nil {
		respondError(c, apperrors.GetStatusCode(err), "invalid image URL", err)
		return
	}

	options := analyzer.DefaultOptions().
		WithMinPercentage(h.cfg.MinPercentage).
		WithProcessedImage(req.IncludeImage)
	if req.MinPercentage != nil {
		options = options.WithMinPercentage(*req.MinPercentage)
	}
	if err := options.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid analysis options", apperrors.NewValidationError("min_percentage", err))
		return
	}

	results := h.svc.AnalyzeURLs(ctx, req.URLs, options)
	h.respondBatch(c, results, options)
}

// respondBatch writes 200 when any image succeeded, otherwise the status of
// the first failure.
func (h *Handler) respondBatch(c *gin.Context, results []models.ImageResult, options analyzer.AnalysisOptions) {
	resp := models.BatchResponse{
		Results:       results,
		MinPercentage: options.MinPercentage,
	}

	if uri, err := h.svc.PaletteImage(); err != nil {
		resp.Warnings = append(resp.Warnings, err.Error())
	} else {
		resp.PaletteImage = uri
	}

	status := http.StatusOK
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	if failed == len(results) && failed > 0 {
		status = statusForErrorType(apperrors.ErrorType(results[0].Error.Type))
	}

	logger.WithFields(logrus.Fields{
		"images": len(results),
		"failed": failed,
		"engine": h.svc.Engine(),
	}).Info("Skin tone analysis request completed")

	c.JSON(status, resp)
}

func (h *Handler) optionsFromQuery(c *gin.Context) (analyzer.AnalysisOptions, error) {
	options := analyzer.DefaultOptions().WithMinPercentage(h.cfg.MinPercentage)

	if raw := c.Query("min_percentage"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return options, apperrors.NewValidationError("min_percentage must be a number", err)
		}
		options = options.WithMinPercentage(v)
	}
	if raw := c.Query("include_image"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return options, apperrors.NewValidationError("include_image must be a boolean", err)
		}
		options = options.WithProcessedImage(v)
	}
	if err := options.Validate(); err != nil {
		return options, apperrors.NewValidationError("invalid analysis options", err)
	}
	return options, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func statusForErrorType(t apperrors.ErrorType) int {
	switch t {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeInsufficientSamples, apperrors.ErrorTypeProcessing:
		return http.StatusUnprocessableEntity
	case apperrors.ErrorTypeUnreadableImage:
		return http.StatusUnsupportedMediaType
	case apperrors.ErrorTypeNetwork:
		return http.StatusBadGateway
	case apperrors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrorTypeNotFound, apperrors.ErrorTypeMissingAsset:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Type:    string(apperrors.GetType(err)),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
