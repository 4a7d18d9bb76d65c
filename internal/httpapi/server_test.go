package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"visiond/pkg/types"
)

// mockService is a configurable Service used across handler tests.
type mockService struct {
	inferText string
	inferErr  error
	lastReq   types.InferRequest
	models    []types.Model
	modelsErr error
	status    types.StatusResponse
	ready     bool
}

func (m *mockService) Infer(_ context.Context, req types.InferRequest) (string, error) {
	m.lastReq = req
	if m.inferErr != nil {
		return "", m.inferErr
	}
	return m.inferText, nil
}

func (m *mockService) ListModels() ([]types.Model, error) { return m.models, m.modelsErr }

func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }

func postInfer(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/infer", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	return w
}

func TestInfer_ReturnsText(t *testing.T) {
	svc := &mockService{inferText: "a cat on a keyboard"}
	w := postInfer(t, NewMux(svc), `{"model_path":"/models/llava.gguf","prompt":"describe"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.InferResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "a cat on a keyboard", resp.Text)
	require.Equal(t, "/models/llava.gguf", svc.lastReq.ModelPath)
	require.Equal(t, "describe", svc.lastReq.Prompt)
}

func TestInfer_RequiresJSONContentType(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/infer", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	NewMux(&mockService{}).ServeHTTP(w, req)
	require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestInfer_RejectsInvalidJSON(t *testing.T) {
	w := postInfer(t, NewMux(&mockService{}), `{not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInfer_RequiresModelPath(t *testing.T) {
	svc := &mockService{}
	w := postInfer(t, NewMux(svc), `{"prompt":"hi"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp types.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "model_path is required", resp.Error)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestStatus_EncodesSnapshot(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{State: "healthy", PID: 42, Port: 30781}}
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "healthy", resp.State)
	require.Equal(t, 42, resp.PID)
	require.Equal(t, 30781, resp.Port)
}

func TestModels_ListsScan(t *testing.T) {
	svc := &mockService{models: []types.Model{{ID: "llava.gguf", Path: "/m/llava.gguf"}}}
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/models", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.ModelsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Models, 1)
	require.Equal(t, "llava.gguf", resp.Models[0].ID)
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", w.Body.String())
}

func TestReadyz(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{ready: true}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	NewMux(&mockService{ready: false}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "visiond_http_requests_total")
}

func TestInfer_BodySizeCap(t *testing.T) {
	old := maxBodyBytes
	SetMaxBodyBytes(64)
	defer SetMaxBodyBytes(old)

	big := `{"model_path":"/m.gguf","prompt":"` + string(bytes.Repeat([]byte("x"), 256)) + `"}`
	w := postInfer(t, NewMux(&mockService{}), big)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
