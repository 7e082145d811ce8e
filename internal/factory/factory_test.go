package factory

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/anime-shed/skintone-inspector/internal/analyzer"
	"github.com/anime-shed/skintone-inspector/internal/config"
)

func TestAnalyzerFactory(t *testing.T) {
	f := NewAnalyzerFactory()

	tests := []struct {
		engine   analyzer.ClusterEngine
		wantName string
		wantErr  bool
	}{
		{analyzer.EngineLloyd, "lloyd", false},
		{"", "lloyd", false},
		{analyzer.EngineMuesli, "muesli", false},
		{"dbscan", "", true},
	}

	for _, tt := range tests {
		a, err := f.CreateAnalyzer(tt.engine)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Expected error for engine %q", tt.engine)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Unexpected error for %q: %v", tt.engine, err)
		}
		if a.Engine().Name() != tt.wantName {
			t.Errorf("Expected %s, got %s", tt.wantName, a.Engine().Name())
		}
	}
}

func TestStorageFactory_Disabled(t *testing.T) {
	cfg := &config.Config{ImageFetchTimeout: time.Second, PaletteAssetPath: "assets/paleta.png"}
	f := NewStorageFactory(cfg)

	if f.CreateFetcher() == nil {
		t.Error("Expected an HTTP fetcher")
	}
	blobs, err := f.CreateBlobStorage()
	if err != nil || blobs != nil {
		t.Errorf("Expected no blob storage without credentials, got %v, %v", blobs, err)
	}
	cache, closeFn, err := f.CreateCache(context.Background())
	if err != nil || cache != nil || closeFn != nil {
		t.Errorf("Expected no cache without REDIS_ADDR, got %v, %v", cache, err)
	}
	if f.CreateAssetStore().Path() != "assets/paleta.png" {
		t.Error("Expected the configured asset path")
	}
}

func TestStorageFactory_Azure(t *testing.T) {
	cfg := &config.Config{
		ImageFetchTimeout: time.Second,
		AzureAccount:      "acct",
		AzureKey:          base64.StdEncoding.EncodeToString([]byte("secret")),
	}
	blobs, err := NewStorageFactory(cfg).CreateBlobStorage()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if blobs == nil {
		t.Error("Expected blob storage with credentials")
	}
}
