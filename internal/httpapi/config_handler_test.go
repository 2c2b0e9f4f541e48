package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rankvault/leaderboard-service/internal/config"
)

func TestConfigHandler_GetConfig_DefaultsToJSON(t *testing.T) {
	cfg := &config.Config{ServiceNode: config.NodeMaster}
	cfg.Server.Port = 8080
	handler := NewConfigHandler(cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/rank/config", nil)
	rec := httptest.NewRecorder()
	handler.GetConfig(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}
}

func TestConfigHandler_GetConfig_YAMLFormat(t *testing.T) {
	cfg := &config.Config{ServiceNode: config.NodeMaster}
	handler := NewConfigHandler(cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/rank/config?format=yaml", nil)
	rec := httptest.NewRecorder()
	handler.GetConfig(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/yaml" {
		t.Fatalf("expected yaml content type, got %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected non-empty yaml body")
	}
}
