package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/settings"

	"github.com/labstack/echo/v4"
)

type stubSettingsStore struct {
	record *models.StoredAISettings
}

func (s *stubSettingsStore) Load(context.Context, string) (*models.StoredAISettings, error) {
	return s.record, nil
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestHandler(store *stubSettingsStore) *EngineEchoHandler {
	return NewEngineEchoHandler(nil, store, settings.NewResolver(), nil, nil)
}

func doRequest(t *testing.T, h *EngineEchoHandler, target string) envelope {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestEffectiveSettingsRequiresUserID(t *testing.T) {
	env := doRequest(t, newTestHandler(&stubSettingsStore{}), "/api/settings/effective")
	if env.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", env.Status)
	}
}

func TestEffectiveSettingsReturnsDefaultsForUnknownUser(t *testing.T) {
	env := doRequest(t, newTestHandler(&stubSettingsStore{}), "/api/settings/effective?user_id=u1&tf=1h")
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", env.Status)
	}
	var resolved models.UserAISettings
	if err := json.Unmarshal(env.Data, &resolved); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if resolved.MinConfidence <= 0 {
		t.Fatalf("expected resolved defaults, got %+v", resolved)
	}
}

func TestPresetEndpoints(t *testing.T) {
	h := newTestHandler(&stubSettingsStore{})

	env := doRequest(t, h, "/api/presets")
	if env.Status != http.StatusOK {
		t.Fatalf("presets status = %d", env.Status)
	}
	for _, name := range settings.PresetNames() {
		if !strings.Contains(string(env.Data), name) {
			t.Fatalf("preset list missing %q: %s", name, env.Data)
		}
	}

	env = doRequest(t, h, "/api/presets/balanced")
	if env.Status != http.StatusOK {
		t.Fatalf("preset status = %d: %s", env.Status, env.Data)
	}
	var w models.FusionWeights
	if err := json.Unmarshal(env.Data, &w); err != nil {
		t.Fatalf("decode weights: %v", err)
	}
	if w.Sum() != 100 {
		t.Fatalf("preset weights sum = %v, want 100", w.Sum())
	}

	env = doRequest(t, h, "/api/presets/nonsense")
	if env.Status != http.StatusNotFound {
		t.Fatalf("unknown preset status = %d, want 404", env.Status)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	h := newTestHandler(&stubSettingsStore{})
	if env := doRequest(t, h, "/healthz"); env.Status != http.StatusOK {
		t.Fatalf("healthz status = %d", env.Status)
	}

	h.SetReadyCheck(func() bool { return false })
	if env := doRequest(t, h, "/readyz"); env.Status != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503", env.Status)
	}
	h.SetReadyCheck(func() bool { return true })
	if env := doRequest(t, h, "/readyz"); env.Status != http.StatusOK {
		t.Fatalf("readyz status = %d, want 200", env.Status)
	}
}
