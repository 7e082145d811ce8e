package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anime-shed/skintone-inspector/internal/analyzer"
	apperrors "github.com/anime-shed/skintone-inspector/internal/errors"
	"github.com/anime-shed/skintone-inspector/internal/observer"
	"github.com/anime-shed/skintone-inspector/internal/repository"
	"github.com/anime-shed/skintone-inspector/internal/storage"
	"github.com/anime-shed/skintone-inspector/pkg/models"
)

var (
	gray = color.NRGBA{128, 128, 128, 255}
	skin = color.NRGBA{190, 134, 88, 255}
)

// splitPNG encodes a w x h image, gray on the left half and fill on the right.
func splitPNG(t *testing.T, w, h int, fill color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetNRGBA(x, y, gray)
			} else {
				img.SetNRGBA(x, y, fill)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

type fakeRepo struct {
	mu    sync.Mutex
	data  map[string][]byte
	calls int
}

func (f *fakeRepo) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	data, ok := f.data[imageURL]
	if !ok {
		return nil, errors.New("client error: status code 404")
	}
	return data, nil
}

func (f *fakeRepo) ValidateImageURL(imageURL string) error {
	if !strings.HasPrefix(imageURL, "https://") {
		return repository.ErrInvalidImageURL
	}
	return nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*repository.CachedAnalysis
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*repository.CachedAnalysis{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) (*repository.CachedAnalysis, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.entries[key]
	return a, ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, analysis *repository.CachedAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = analysis
	m.sets++
	return nil
}

type testEnv struct {
	svc     ImageAnalysisService
	repo    *fakeRepo
	cache   *memoryCache
	metrics *observer.MetricsObserver
}

func newTestEnv(t *testing.T, engine analyzer.Clusterer, assetPath string) *testEnv {
	t.Helper()
	a, err := analyzer.NewImageAnalyzer(engine)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	pool := analyzer.NewWorkerPool(2)
	pool.Start()
	t.Cleanup(pool.Close)

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(metrics)

	env := &testEnv{
		repo:    &fakeRepo{data: map[string][]byte{}},
		cache:   newMemoryCache(),
		metrics: metrics,
	}
	deps := Dependencies{
		Repository:      env.repo,
		Analyzer:        a,
		Pool:            pool,
		Cache:           env.cache,
		Events:          events,
		AnalysisTimeout: 10 * time.Second,
		FetchTimeout:    time.Second,
	}
	if assetPath != "" {
		deps.Assets = storage.NewAssetStore(assetPath)
	}
	svc, err := NewImageAnalysisService(deps)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	env.svc = svc
	return env
}

func TestAnalyzeImage_SkinBlock(t *testing.T) {
	env := newTestEnv(t, nil, "")

	result, err := env.svc.AnalyzeImage(context.Background(),
		ImageInput{Name: "face.png", Data: splitPNG(t, 40, 40, skin)},
		analyzer.DefaultOptions().WithProcessedImage(true))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.ID == "" || result.Name != "face.png" {
		t.Errorf("Expected id and name to be set, got %+v", result)
	}
	if result.Width != 40 || result.Height != 40 || result.FilteredPixels != 50 {
		t.Errorf("Unexpected dimensions or sample count: %+v", result)
	}
	if len(result.Coverage) != 1 {
		t.Fatalf("Expected one coverage row, got %+v", result.Coverage)
	}
	row := result.Coverage[0]
	if row.Color != [3]uint8{190, 134, 88} || row.ColorNumber != 10 || row.Hex != "#be8658" {
		t.Errorf("Unexpected row %+v", row)
	}
	if math.Abs(row.Percentage-100) > 0.01 {
		t.Errorf("Expected ~100%%, got %f", row.Percentage)
	}
	if !strings.HasPrefix(result.ProcessedImage, "data:image/png;base64,") {
		t.Errorf("Expected a PNG data URI preview, got %.30q", result.ProcessedImage)
	}

	m := env.metrics.GetMetrics()
	if m.TotalAnalyses != 1 || m.SuccessfulAnalyses != 1 {
		t.Errorf("Unexpected metrics %+v", m)
	}
}

func TestAnalyzeImage_Errors(t *testing.T) {
	env := newTestEnv(t, nil, "")

	tests := []struct {
		name     string
		data     []byte
		options  analyzer.AnalysisOptions
		wantType apperrors.ErrorType
	}{
		{"undecodable bytes", []byte("plain text"), analyzer.DefaultOptions(), apperrors.ErrorTypeUnreadableImage},
		{"all neutral", splitPNG(t, 40, 40, gray), analyzer.DefaultOptions(), apperrors.ErrorTypeInsufficientSamples},
		{"bad options", splitPNG(t, 40, 40, skin), analyzer.DefaultOptions().WithMinPercentage(200), apperrors.ErrorTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.AnalyzeImage(context.Background(), ImageInput{Name: "x.png", Data: tt.data}, tt.options)
			if !apperrors.IsType(err, tt.wantType) {
				t.Errorf("Expected %s, got %v", tt.wantType, err)
			}
		})
	}
}

func TestAnalyzeBatch_IsolatesFailures(t *testing.T) {
	env := newTestEnv(t, nil, "")

	inputs := []ImageInput{
		{Name: "a.png", Data: splitPNG(t, 40, 40, skin)},
		{Name: "broken.png", Data: []byte("nope")},
		{Name: "gray.png", Data: splitPNG(t, 40, 40, gray)},
		{Name: "b.png", Data: splitPNG(t, 40, 40, color.NRGBA{93, 71, 63, 255})},
	}

	results := env.svc.AnalyzeBatch(context.Background(), inputs, analyzer.DefaultOptions())
	if len(results) != len(inputs) {
		t.Fatalf("Expected %d results, got %d", len(inputs), len(results))
	}
	for i, r := range results {
		if r.Name != inputs[i].Name {
			t.Errorf("Result %d: expected %s, got %s", i, inputs[i].Name, r.Name)
		}
	}

	if results[0].Failed() || results[3].Failed() {
		t.Errorf("Expected healthy images to succeed: %+v / %+v", results[0].Error, results[3].Error)
	}
	if !results[1].Failed() || results[1].Error.Type != string(apperrors.ErrorTypeUnreadableImage) {
		t.Errorf("Expected unreadable image error, got %+v", results[1].Error)
	}
	if !results[2].Failed() || results[2].Error.Type != string(apperrors.ErrorTypeInsufficientSamples) {
		t.Errorf("Expected insufficient samples error, got %+v", results[2].Error)
	}
	if results[3].Coverage[0].ColorNumber != 16 {
		t.Errorf("Expected color number 16, got %+v", results[3].Coverage)
	}

	m := env.metrics.GetMetrics()
	if m.SuccessfulAnalyses != 2 || m.FailedAnalyses != 2 {
		t.Errorf("Unexpected metrics %+v", m)
	}
}

func TestAnalyzeBatch_RejectedInputFailsInPlace(t *testing.T) {
	env := newTestEnv(t, nil, "")

	rejected := apperrors.NewValidationError("notes.txt: unsupported file type", nil)
	inputs := []ImageInput{
		{Name: "notes.txt", Err: rejected},
		{Name: "a.png", Data: splitPNG(t, 40, 40, skin)},
	}

	results := env.svc.AnalyzeBatch(context.Background(), inputs, analyzer.DefaultOptions())
	if !results[0].Failed() || results[0].Error.Type != string(apperrors.ErrorTypeValidation) {
		t.Errorf("Expected the rejected input to fail with validation, got %+v", results[0].Error)
	}
	if results[1].Failed() || results[1].Coverage[0].ColorNumber != 10 {
		t.Errorf("Expected a.png to be analysed, got %+v", results[1])
	}
	if env.cache.sets != 1 {
		t.Errorf("Expected only a.png to be cached, got %d sets", env.cache.sets)
	}
	if m := env.metrics.GetMetrics(); m.FailedAnalyses != 1 || m.SuccessfulAnalyses != 1 {
		t.Errorf("Unexpected metrics %+v", m)
	}
}

func TestAnalyzeImage_PixelLimit(t *testing.T) {
	a, err := analyzer.NewImageAnalyzer(nil)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	svc, err := NewImageAnalysisService(Dependencies{Analyzer: a, MaxImagePixels: 40 * 39})
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	_, err = svc.AnalyzeImage(context.Background(), ImageInput{Name: "big.png", Data: splitPNG(t, 40, 40, skin)}, analyzer.DefaultOptions())
	if !apperrors.IsType(err, apperrors.ErrorTypeUnreadableImage) || !errors.Is(err, storage.ErrUnreadableImage) {
		t.Errorf("Expected an unreadable image error over the pixel limit, got %v", err)
	}

	if _, err := svc.AnalyzeImage(context.Background(), ImageInput{Name: "ok.png", Data: splitPNG(t, 40, 39, skin)}, analyzer.DefaultOptions()); err != nil {
		t.Errorf("Expected an image at the limit to pass, got %v", err)
	}
}

func TestAnalyzeURLs(t *testing.T) {
	env := newTestEnv(t, nil, "")
	env.repo.data["https://img.example.com/face.png"] = splitPNG(t, 40, 40, skin)

	urls := []string{
		"https://img.example.com/face.png",
		"https://img.example.com/missing.png",
		"ftp://img.example.com/face.png",
	}
	results := env.svc.AnalyzeURLs(context.Background(), urls, analyzer.DefaultOptions())

	if results[0].Failed() || results[0].Coverage[0].ColorNumber != 10 {
		t.Errorf("Expected first URL to succeed, got %+v", results[0])
	}
	if !results[1].Failed() || results[1].Error.Type != string(apperrors.ErrorTypeNetwork) {
		t.Errorf("Expected network error, got %+v", results[1].Error)
	}
	if !results[2].Failed() || results[2].Error.Type != string(apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %+v", results[2].Error)
	}
	if env.repo.calls != 2 {
		t.Errorf("Expected invalid URL to be rejected before fetching, got %d fetches", env.repo.calls)
	}
	if env.metrics.GetMetrics().FetchFailures != 1 {
		t.Errorf("Expected one fetch failure, got %+v", env.metrics.GetMetrics())
	}
}

func TestAnalyze_CacheHit(t *testing.T) {
	env := newTestEnv(t, nil, "")
	input := ImageInput{Name: "face.png", Data: splitPNG(t, 40, 40, skin)}

	first, err := env.svc.AnalyzeImage(context.Background(), input, analyzer.DefaultOptions())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if first.Cached {
		t.Error("Expected the first analysis to miss the cache")
	}

	second, err := env.svc.AnalyzeImage(context.Background(), input, analyzer.DefaultOptions())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !second.Cached {
		t.Error("Expected the second analysis to hit the cache")
	}
	if len(second.Coverage) != len(first.Coverage) || second.Coverage[0] != first.Coverage[0] {
		t.Errorf("Expected cached coverage to match: %+v vs %+v", first.Coverage, second.Coverage)
	}
	if env.cache.sets != 1 {
		t.Errorf("Expected one cache write, got %d", env.cache.sets)
	}
	if env.metrics.GetMetrics().CacheHits != 1 {
		t.Errorf("Expected one cache hit, got %+v", env.metrics.GetMetrics())
	}

	// The preview is not cached without a prior request for it.
	third, err := env.svc.AnalyzeImage(context.Background(), input, analyzer.DefaultOptions().WithProcessedImage(true))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if third.Cached || third.ProcessedImage == "" {
		t.Errorf("Expected a fresh analysis with a preview, got cached=%v", third.Cached)
	}
}

func TestAnalyze_CacheSkippedForRandomEngine(t *testing.T) {
	env := newTestEnv(t, analyzer.NewMuesliClusterer(), "")
	input := ImageInput{Name: "face.png", Data: splitPNG(t, 40, 40, skin)}

	for i := 0; i < 2; i++ {
		result, err := env.svc.AnalyzeImage(context.Background(), input, analyzer.DefaultOptions())
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Cached {
			t.Error("Expected no cache hits for the muesli engine")
		}
	}
	if env.cache.sets != 0 {
		t.Errorf("Expected no cache writes, got %d", env.cache.sets)
	}
	if env.svc.Engine() != "muesli" {
		t.Errorf("Expected muesli engine, got %s", env.svc.Engine())
	}
}

func TestPalette(t *testing.T) {
	dir := t.TempDir()
	asset := filepath.Join(dir, "paleta.png")
	if err := os.WriteFile(asset, splitPNG(t, 4, 4, skin), 0o644); err != nil {
		t.Fatalf("Failed to write asset: %v", err)
	}

	withAsset := newTestEnv(t, nil, asset).svc.Palette()
	if len(withAsset.Entries) != analyzer.ClusterCount {
		t.Fatalf("Expected %d entries, got %d", analyzer.ClusterCount, len(withAsset.Entries))
	}
	if withAsset.Entries[0].ColorNumber != 17 || withAsset.Entries[13].ColorNumber != 4 {
		t.Errorf("Unexpected numbering %+v", withAsset.Entries)
	}
	if !strings.HasPrefix(withAsset.PaletteImage, "data:image/png;base64,") || len(withAsset.Warnings) != 0 {
		t.Errorf("Expected swatch data URI, got %.30q / %v", withAsset.PaletteImage, withAsset.Warnings)
	}

	env := newTestEnv(t, nil, filepath.Join(dir, "missing.png"))
	missing := env.svc.Palette()
	if missing.PaletteImage != "" || len(missing.Warnings) != 1 {
		t.Errorf("Expected a warning for the missing asset, got %+v", missing)
	}
	if _, err := env.svc.PaletteImage(); !apperrors.IsType(err, apperrors.ErrorTypeMissingAsset) {
		t.Errorf("Expected missing_asset error, got %v", err)
	}
}

func TestToErrorResponse(t *testing.T) {
	resp := toErrorResponse(apperrors.NewInsufficientSamplesError("too few", errors.New("13 samples")))
	want := models.ErrorResponse{Error: "too few", Type: "insufficient_samples", Message: "13 samples"}
	if *resp != want {
		t.Errorf("Expected %+v, got %+v", want, *resp)
	}

	plain := toErrorResponse(errors.New("boom"))
	if plain.Type != "internal" || plain.Error != "boom" {
		t.Errorf("Unexpected plain conversion %+v", plain)
	}
}
