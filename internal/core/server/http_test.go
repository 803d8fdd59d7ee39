package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/formkeeper/internal/core/api"
	"github.com/solatis/formkeeper/internal/core/config"
	"github.com/solatis/formkeeper/internal/core/store"
	"github.com/solatis/formkeeper/internal/normalize"
	"github.com/solatis/formkeeper/internal/types"
)

const campPayload = `{
  "title": "Summer Camp",
  "layout_config": {"columns": 2},
  "steps": [
    {"key": "contact", "title": "Contact"},
    {"key": "medical", "title": "Medical",
     "conditional_logic": {"mode": "all", "rules": [{"field": "needs_care", "operator": "equals", "value": "yes"}]}}
  ],
  "fields": [
    {"field_name": "email", "label": "Email", "field_type": "email", "step_key": "contact", "order": 1},
    {"field_name": "needs_care", "label": "Needs care?", "field_type": "radio", "options": ["yes", "no"], "step_key": "contact", "order": 2},
    {"field_name": "allergies", "label": "Allergies", "field_type": "textarea", "step_key": "medical", "order": 101}
  ]
}`

type testEnv struct {
	server *HTTPServer
	repo   *store.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.DefaultServiceConfig()
	cfg.DataDir = t.TempDir()
	cfg.MaxPayloadBytes = 64 << 10

	repo := store.NewMemory()
	svc, err := api.NewFormService(repo, cfg)
	require.NoError(t, err)
	srv, err := NewHTTPServer(cfg, svc)
	require.NoError(t, err)
	return &testEnv{server: srv, repo: repo}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) saveCamp(t *testing.T) *store.Record {
	t.Helper()
	form, _ := normalize.Normalize([]byte(campPayload))
	require.NotNil(t, form)
	rec, err := e.repo.Save(t.Context(), form, "")
	require.NoError(t, err)
	return rec
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestNormalizeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/v1/normalize", campPayload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Form        normalize.Payload `json:"form"`
		Diagnostics []string          `json:"diagnostics"`
		Summary     string            `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "Summer Camp", out.Form.Title)
	assert.Equal(t, 2, out.Form.LayoutConfig.Columns)
	require.Len(t, out.Form.Fields, 3)
	assert.Equal(t, "medical", out.Form.Fields[2].StepKey)
	assert.Empty(t, out.Diagnostics)
	assert.Equal(t, "2 step(s), 3 field(s), 2 column(s)", out.Summary)
}

func TestNormalizeEndpoint_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"not JSON", `{`, "InvalidArgument"},
		{"array body", `[1, 2]`, "InvalidArgument"},
		{"no fields", `{"title": "Empty"}`, "InvalidArgument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/v1/normalize", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var out map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.Equal(t, tt.code, out["code"])
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestNormalizeEndpoint_TooLarge(t *testing.T) {
	env := newTestEnv(t)
	body := `{"title": "` + strings.Repeat("x", 128<<10) + `", "fields": [{"label": "A"}]}`
	rec := env.do(http.MethodPost, "/v1/normalize", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewEndpoint(t *testing.T) {
	env := newTestEnv(t)
	body := `{"form": ` + campPayload + `, "answers": {"needs_care": "yes"}, "page": 1}`

	rec := env.do(http.MethodPost, "/v1/preview", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Preview-Page"))
	assert.Equal(t, "2", rec.Header().Get("X-Preview-Pages"))
	assert.Contains(t, rec.Body.String(), "Allergies")
	assert.Contains(t, rec.Body.String(), "Step 2 of 2")
}

func TestPreviewEndpoint_HidesConditionalStep(t *testing.T) {
	env := newTestEnv(t)
	body := `{"form": ` + campPayload + `, "answers": {"needs_care": "no"}, "page": 1}`

	rec := env.do(http.MethodPost, "/v1/preview", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-Preview-Page"))
	assert.Equal(t, "1", rec.Header().Get("X-Preview-Pages"))
	assert.NotContains(t, rec.Body.String(), "Allergies")
}

func TestPreviewEndpoint_BadBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/v1/preview", `{"form": 3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/v1/preview", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoredPreview(t *testing.T) {
	env := newTestEnv(t)
	saved := env.saveCamp(t)

	rec := env.do(http.MethodGet, "/v1/forms/"+string(saved.ID)+"/preview?needs_care=yes&page=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2", rec.Header().Get("X-Preview-Pages"))
	assert.Contains(t, rec.Body.String(), `data-step="medical"`)

	rec = env.do(http.MethodGet, "/v1/forms/"+string(saved.ID)+"/preview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Preview-Pages"))
}

func TestStoredPreview_NotFound(t *testing.T) {
	env := newTestEnv(t)

	for _, id := range []string{string(types.NewFormID()), "not-a-uuid"} {
		rec := env.do(http.MethodGet, "/v1/forms/"+id+"/preview", "")
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
	}
}

func TestHTTPStatusFor(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/v1/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/v1/normalize", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNewHTTPServer_Validation(t *testing.T) {
	_, err := NewHTTPServer(nil, nil)
	assert.Error(t, err)
	_, err = NewHTTPServer(config.DefaultServiceConfig(), nil)
	assert.Error(t, err)
}
