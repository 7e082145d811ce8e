package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/skintone-inspector/internal/analyzer"
	apperrors "github.com/anime-shed/skintone-inspector/internal/errors"
	"github.com/anime-shed/skintone-inspector/internal/logger"
	"github.com/anime-shed/skintone-inspector/internal/observer"
	"github.com/anime-shed/skintone-inspector/internal/repository"
	"github.com/anime-shed/skintone-inspector/internal/storage"
	"github.com/anime-shed/skintone-inspector/pkg/models"
)

// PreviewMaxSide bounds the processed image returned for display.
const PreviewMaxSide = 512

// ImageInput is an encoded image and the name it is reported under. Err
// marks an input that was rejected or could not be read; it is reported as
// that image's failure without being decoded.
type ImageInput struct {
	Name string
	Data []byte
	Err  error
}

// ImageAnalysisService analyses skin tone coverage for uploads and remote images
type ImageAnalysisService interface {
	// AnalyzeImage analyses one encoded image
	AnalyzeImage(ctx context.Context, input ImageInput, options analyzer.AnalysisOptions) (*models.ImageResult, error)

	// AnalyzeBatch analyses images concurrently; results keep input order and
	// a failing image is reported in its own slot.
	AnalyzeBatch(ctx context.Context, inputs []ImageInput, options analyzer.AnalysisOptions) []models.ImageResult

	// AnalyzeURLs fetches and analyses remote images like AnalyzeBatch
	AnalyzeURLs(ctx context.Context, urls []string, options analyzer.AnalysisOptions) []models.ImageResult

	// Palette lists the reference colors and the swatch asset when available
	Palette() *models.PaletteResponse

	// PaletteImage returns the swatch asset as a data URI
	PaletteImage() (string, error)

	// Engine names the clustering engine in use
	Engine() string
}

// Dependencies wires an ImageAnalysisService. Cache, Assets and Events are optional.
type Dependencies struct {
	Repository      repository.ImageRepository
	Analyzer        analyzer.ImageAnalyzer
	Pool            *analyzer.WorkerPool
	Cache           repository.AnalysisCache
	Assets          *storage.AssetStore
	Events          observer.Subject
	AnalysisTimeout time.Duration
	FetchTimeout    time.Duration
	// MaxImagePixels bounds decoded images; zero means storage.DefaultMaxImagePixels.
	MaxImagePixels int
}

// imageAnalysisService implements ImageAnalysisService
type imageAnalysisService struct {
	imageRepo       repository.ImageRepository
	analyzer        analyzer.ImageAnalyzer
	pool            *analyzer.WorkerPool
	cache           repository.AnalysisCache
	assets          *storage.AssetStore
	events          observer.Subject
	analysisTimeout time.Duration
	fetchTimeout    time.Duration
	maxImagePixels  int
}

// NewImageAnalysisService creates a new image analysis service
func NewImageAnalysisService(deps Dependencies) (ImageAnalysisService, error) {
	if deps.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	svc := &imageAnalysisService{
		imageRepo:       deps.Repository,
		analyzer:        deps.Analyzer,
		pool:            deps.Pool,
		assets:          deps.Assets,
		events:          deps.Events,
		analysisTimeout: deps.AnalysisTimeout,
		fetchTimeout:    deps.FetchTimeout,
		maxImagePixels:  deps.MaxImagePixels,
	}
	// Non-deterministic engines would poison the cache with one sample of many.
	if deps.Cache != nil && deps.Analyzer.Engine().Deterministic() {
		svc.cache = deps.Cache
	}
	return svc, nil
}

func (s *imageAnalysisService) Engine() string {
	return s.analyzer.Engine().Name()
}

// AnalyzeImage decodes and analyses a single image
func (s *imageAnalysisService) AnalyzeImage(ctx context.Context, input ImageInput, options analyzer.AnalysisOptions) (*models.ImageResult, error) {
	if err := options.Validate(); err != nil {
		return nil, apperrors.NewValidationError("invalid analysis options", err)
	}
	return s.analyze(ctx, uuid.NewString(), input, options)
}

func (s *imageAnalysisService) analyze(ctx context.Context, id string, input ImageInput, options analyzer.AnalysisOptions) (*models.ImageResult, error) {
	start := time.Now()
	s.publish(ctx, observer.AnalysisEvent{EventType: observer.AnalysisStarted, ImageID: id, Source: input.Name})

	result, err := s.run(ctx, id, input, options)
	elapsed := time.Since(start)
	if err != nil {
		s.publish(ctx, observer.AnalysisEvent{
			EventType:      observer.AnalysisFailed,
			ImageID:        id,
			Source:         input.Name,
			ProcessingTime: elapsed,
			ErrorMessage:   err.Error(),
			Metadata:       map[string]interface{}{"error_type": apperrors.GetType(err)},
		})
		return nil, err
	}

	result.ProcessingTimeSec = elapsed.Seconds()
	s.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		ImageID:        id,
		Source:         input.Name,
		ProcessingTime: elapsed,
		Success:        true,
		Metadata: map[string]interface{}{
			"engine":       s.Engine(),
			"cached":       result.Cached,
			"color_groups": len(result.Coverage),
		},
	})
	return result, nil
}

func (s *imageAnalysisService) run(ctx context.Context, id string, input ImageInput, options analyzer.AnalysisOptions) (*models.ImageResult, error) {
	if input.Err != nil {
		return nil, input.Err
	}

	cacheKey := ""
	if s.cache != nil {
		cacheKey = repository.CacheKey(input.Data, s.Engine()+":"+options.Fingerprint())
		if cached := s.lookup(ctx, cacheKey, options); cached != nil {
			s.publish(ctx, observer.AnalysisEvent{EventType: observer.CacheHit, ImageID: id, Source: input.Name})
			return fromCache(id, input.Name, cached, options), nil
		}
	}

	img, _, err := storage.DecodeImage(input.Data, input.Name, s.maxImagePixels)
	if err != nil {
		return nil, apperrors.NewUnreadableImageError(fmt.Sprintf("cannot decode %s", input.Name), err)
	}

	actx := ctx
	if s.analysisTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, s.analysisTimeout)
		defer cancel()
	}

	analysis, err := s.analyzer.AnalyzeWithOptions(actx, img, options)
	if err != nil {
		return nil, classifyAnalysisError(input.Name, err)
	}

	result := &models.ImageResult{
		ID:             id,
		Name:           input.Name,
		Timestamp:      analysis.Timestamp,
		Width:          analysis.SourceBounds.Dx(),
		Height:         analysis.SourceBounds.Dy(),
		FilteredPixels: analysis.FilteredPixels,
		Coverage:       toModelEntries(analysis.Visible),
	}

	if options.IncludeProcessedImage {
		preview, err := encodePreview(analysis)
		if err != nil {
			logger.WithError(err).WithField("image", input.Name).Warn("Failed to encode processed image")
		} else {
			result.ProcessedImage = preview
		}
	}

	if cacheKey != "" {
		s.store(ctx, cacheKey, analysis, result.ProcessedImage)
	}
	return result, nil
}

func classifyAnalysisError(name string, err error) error {
	switch {
	case errors.Is(err, analyzer.ErrInsufficientSamples):
		return apperrors.NewInsufficientSamplesError(fmt.Sprintf("%s has too few non-neutral pixels", name), err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError(fmt.Sprintf("analysis of %s timed out", name), err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewTimeoutError(fmt.Sprintf("analysis of %s was cancelled", name), err)
	default:
		return apperrors.NewProcessingError(fmt.Sprintf("analysis of %s failed", name), err)
	}
}

// AnalyzeBatch fans inputs out over the worker pool
func (s *imageAnalysisService) AnalyzeBatch(ctx context.Context, inputs []ImageInput, options analyzer.AnalysisOptions) []models.ImageResult {
	if err := options.Validate(); err != nil {
		return failAll(inputs, apperrors.NewValidationError("invalid analysis options", err))
	}

	results := make([]models.ImageResult, len(inputs))
	s.fanOut(len(inputs), func(i int) {
		results[i] = s.isolated(ctx, inputs[i].Name, func(id string) (*models.ImageResult, error) {
			return s.analyze(ctx, id, inputs[i], options)
		})
	})
	return results
}

// AnalyzeURLs fetches each URL and analyses it; failures stay per image
func (s *imageAnalysisService) AnalyzeURLs(ctx context.Context, urls []string, options analyzer.AnalysisOptions) []models.ImageResult {
	inputs := make([]ImageInput, len(urls))
	for i, u := range urls {
		inputs[i] = ImageInput{Name: u}
	}
	if err := options.Validate(); err != nil {
		return failAll(inputs, apperrors.NewValidationError("invalid analysis options", err))
	}

	results := make([]models.ImageResult, len(urls))
	s.fanOut(len(urls), func(i int) {
		results[i] = s.isolated(ctx, urls[i], func(id string) (*models.ImageResult, error) {
			data, err := s.fetch(ctx, id, urls[i])
			if err != nil {
				return nil, err
			}
			return s.analyze(ctx, id, ImageInput{Name: urls[i], Data: data}, options)
		})
	})
	return results
}

func (s *imageAnalysisService) fetch(ctx context.Context, id, imageURL string) ([]byte, error) {
	if s.imageRepo == nil {
		return nil, apperrors.NewInternalError("no image repository configured", nil)
	}
	if err := s.imageRepo.ValidateImageURL(imageURL); err != nil {
		return nil, apperrors.NewValidationError("invalid image URL", err)
	}

	fctx := ctx
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	start := time.Now()
	data, err := s.imageRepo.FetchImage(fctx, imageURL)
	if err != nil {
		s.publish(ctx, observer.AnalysisEvent{
			EventType:      observer.ImageFetchFailed,
			ImageID:        id,
			Source:         imageURL,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("image fetch timeout", err)
		}
		return nil, apperrors.NewNetworkError("failed to fetch image", err)
	}

	s.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.ImageFetched,
		ImageID:        id,
		Source:         imageURL,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata:       map[string]interface{}{"bytes": len(data)},
	})
	return data, nil
}

// fanOut runs job(0..n-1) on the pool and waits for this batch only.
func (s *imageAnalysisService) fanOut(n int, job func(i int)) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			job(i)
		}
		if s.pool == nil || !s.pool.Submit(task) {
			task()
		}
	}
	wg.Wait()
}

// isolated turns errors and panics from one image into its result slot.
func (s *imageAnalysisService) isolated(ctx context.Context, name string, fn func(id string) (*models.ImageResult, error)) (out models.ImageResult) {
	id := uuid.NewString()
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{"image": name, "panic": r}).Error("Image analysis panicked")
			out = failedResult(id, name, apperrors.NewInternalError("analysis panicked", fmt.Errorf("%v", r)))
		}
	}()

	result, err := fn(id)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"image":      name,
			"error_type": apperrors.GetType(err),
		}).Warn("Image skipped")
		return failedResult(id, name, err)
	}
	return *result
}

func failedResult(id, name string, err error) models.ImageResult {
	return models.ImageResult{
		ID:        id,
		Name:      name,
		Timestamp: time.Now(),
		Error:     toErrorResponse(err),
	}
}

func failAll(inputs []ImageInput, err error) []models.ImageResult {
	results := make([]models.ImageResult, len(inputs))
	for i, in := range inputs {
		results[i] = failedResult(uuid.NewString(), in.Name, err)
	}
	return results
}

func toErrorResponse(err error) *models.ErrorResponse {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return &models.ErrorResponse{
			Error:   appErr.Message,
			Type:    string(appErr.Type),
			Message: appErr.Details,
		}
	}
	return &models.ErrorResponse{Error: err.Error(), Type: string(apperrors.ErrorTypeInternal)}
}

// Palette lists the reference table; a missing swatch only adds a warning
func (s *imageAnalysisService) Palette() *models.PaletteResponse {
	table := analyzer.ReferenceTable()
	resp := &models.PaletteResponse{Entries: make([]models.PaletteEntry, 0, len(table))}
	for _, e := range table {
		resp.Entries = append(resp.Entries, models.PaletteEntry{
			Color:       e.Color.Tuple(),
			Hex:         e.Color.Hex(),
			ColorNumber: e.ColorNumber,
		})
	}

	uri, err := s.PaletteImage()
	if err != nil {
		resp.Warnings = append(resp.Warnings, err.Error())
	} else {
		resp.PaletteImage = uri
	}
	return resp
}

func (s *imageAnalysisService) PaletteImage() (string, error) {
	if s.assets == nil {
		return "", apperrors.NewMissingAssetError("palette asset is not configured", nil)
	}
	uri, err := s.assets.DataURI()
	if err != nil {
		return "", apperrors.NewMissingAssetError("palette asset unavailable", err)
	}
	return uri, nil
}

func (s *imageAnalysisService) publish(ctx context.Context, event observer.AnalysisEvent) {
	if s.events == nil {
		return
	}
	event.Timestamp = time.Now()
	s.events.NotifyObservers(ctx, event)
}

func (s *imageAnalysisService) lookup(ctx context.Context, key string, options analyzer.AnalysisOptions) *repository.CachedAnalysis {
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.WithError(err).Warn("Result cache lookup failed")
		return nil
	}
	if !ok {
		return nil
	}
	if options.IncludeProcessedImage && cached.ProcessedImage == "" {
		return nil
	}
	return cached
}

func (s *imageAnalysisService) store(ctx context.Context, key string, analysis *analyzer.AnalysisResult, preview string) {
	entry := &repository.CachedAnalysis{
		Coverage:       make([]repository.CachedEntry, 0, len(analysis.Coverage)),
		FilteredPixels: analysis.FilteredPixels,
		Width:          analysis.SourceBounds.Dx(),
		Height:         analysis.SourceBounds.Dy(),
		ProcessedImage: preview,
		CachedAt:       time.Now().UTC(),
	}
	for _, e := range analysis.Coverage {
		entry.Coverage = append(entry.Coverage, repository.CachedEntry{
			Color:       e.Color.Tuple(),
			Percentage:  e.Percentage,
			ColorNumber: e.ColorNumber,
		})
	}
	if err := s.cache.Set(ctx, key, entry); err != nil {
		logger.WithError(err).Warn("Result cache write failed")
	}
}

// fromCache rebuilds a result; the presentation filter is applied on read
// because the cache holds the full table.
func fromCache(id, name string, cached *repository.CachedAnalysis, options analyzer.AnalysisOptions) *models.ImageResult {
	full := make([]analyzer.CoverageEntry, 0, len(cached.Coverage))
	for _, e := range cached.Coverage {
		full = append(full, analyzer.CoverageEntry{
			Color:       analyzer.PixelColor{R: e.Color[0], G: e.Color[1], B: e.Color[2]},
			Percentage:  e.Percentage,
			ColorNumber: e.ColorNumber,
		})
	}

	result := &models.ImageResult{
		ID:             id,
		Name:           name,
		Timestamp:      time.Now(),
		Width:          cached.Width,
		Height:         cached.Height,
		FilteredPixels: cached.FilteredPixels,
		Coverage:       toModelEntries(analyzer.FilterCoverage(full, options.MinPercentage)),
		Cached:         true,
	}
	if options.IncludeProcessedImage {
		result.ProcessedImage = cached.ProcessedImage
	}
	return result
}

func toModelEntries(entries []analyzer.CoverageEntry) []models.CoverageEntry {
	out := make([]models.CoverageEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.CoverageEntry{
			Color:       e.Color.Tuple(),
			Hex:         e.Color.Hex(),
			Percentage:  e.Percentage,
			ColorNumber: e.ColorNumber,
		})
	}
	return out
}

func encodePreview(analysis *analyzer.AnalysisResult) (string, error) {
	if analysis.Processed == nil || analysis.Processed.Bounds().Empty() {
		return "", fmt.Errorf("no processed image")
	}
	preview := imaging.Fit(analysis.Processed, PreviewMaxSide, PreviewMaxSide, imaging.NearestNeighbor)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, preview, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}
	return storage.DataURI("image/png", buf.Bytes()), nil
}
