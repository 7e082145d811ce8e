package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"

	"github.com/anime-shed/skintone-inspector/internal/config"
)

func TestNewContainer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	vp := viper.New()
	vp.Set(config.KeyWorkers, 2)
	cfg, err := config.Load(vp)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	c, err := NewContainer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}
	defer c.Close()

	if c.Config() != cfg {
		t.Error("Expected the container to keep the config")
	}
	if c.Service().Engine() != "lloyd" {
		t.Errorf("Expected lloyd engine, got %s", c.Service().Engine())
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", rec.Code)
	}
}
