package server

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/options-risk/pkg/constants"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func readTestConfig(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "test", "test_config.yaml"))
	if err != nil {
		t.Fatalf("failed to read test config: %v", err)
	}
	return data
}

func TestHandleReportSuccess(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "1.2.3")

	rr := performUpload(t, handler, string(readTestConfig(t)), "test_config.yaml")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp reportResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Positions) != 2 {
		t.Fatalf("expected 2 positions in response, got %v", resp.Positions)
	}
	if len(resp.Report.Positions) != 2 || len(resp.Report.Quotes) != 2 {
		t.Fatalf("unexpected report %+v", resp.Report)
	}
	if math.Abs(resp.Report.Positions[0].Summary.Delta.Aggregate-0.559618) > 1e-6 {
		t.Errorf("unexpected delta %v", resp.Report.Positions[0].Summary.Delta.Aggregate)
	}
	if resp.CSV == "" {
		t.Fatal("expected CSV data in response")
	}
	if resp.Duration == "" {
		t.Fatal("expected duration in response")
	}
	if resp.Config == nil {
		t.Fatal("expected config data in response")
	}
	if resp.ConfigYAML == "" {
		t.Fatal("expected config YAML in response")
	}
}

func TestHandleReportEditorSuccess(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "")

	var cfg map[string]interface{}
	if err := yaml.Unmarshal(readTestConfig(t), &cfg); err != nil {
		t.Fatalf("failed to unmarshal yaml: %v", err)
	}

	rr := performEditorJSON(t, handler, map[string]interface{}{"config": cfg}, "/api/editor/report")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp reportResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Positions) != 2 {
		t.Fatalf("expected 2 positions, got %v", resp.Positions)
	}
	if !strings.HasPrefix(resp.ConfigYAML, "logging:") {
		t.Errorf("expected ordered YAML starting with logging, got %q", resp.ConfigYAML)
	}
}

func TestHandleReportEditorInvalidConfigPayload(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "")

	rr := performEditorJSON(t, handler, map[string]interface{}{"config": "nope"}, "/api/editor/report")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleReportInvalidConfiguration(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "")

	configYAML := `
market:
  underlyingPrice: 100
positions:
  - name: broken
    active: true
    legs:
      - type: swaption
        strike: 100
        expiry: 1
        volatility: 0.2
        quantity: 1
`
	rr := performUpload(t, handler, configYAML, "config.yaml")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "unknown option type") {
		t.Fatalf("expected option type error, got %q", resp["error"])
	}
}

func TestHandleReportNoPositions(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "")

	rr := performUpload(t, handler, "market:\n  underlyingPrice: 100\n", "config.yaml")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "no active positions") {
		t.Fatalf("expected no positions error, got %q", resp["error"])
	}
}

func TestHandleConfigExport(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "")

	payload := map[string]interface{}{
		"positions": []interface{}{
			map[string]interface{}{
				"name":   "sample",
				"active": true,
			},
		},
		"market": map[string]interface{}{
			"underlyingPrice": 100.0,
		},
		"output": map[string]interface{}{
			"format": "pretty",
		},
		"logging": map[string]interface{}{
			"level": "info",
		},
		"extra": "kept",
	}

	rr := performEditorJSON(t, handler, payload, "/api/editor/export")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	yamlStr := resp["configYaml"]
	if yamlStr == "" {
		t.Fatal("expected configYaml in response")
	}

	var top []string
	for _, line := range strings.Split(strings.TrimRight(yamlStr, "\n"), "\n") {
		if line == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "-") {
			continue
		}
		top = append(top, strings.SplitN(line, ":", 2)[0])
	}

	expected := []string{"logging", "output", "market", "positions", "extra"}
	if strings.Join(top, ",") != strings.Join(expected, ",") {
		t.Fatalf("expected top-level keys %v, got %v", expected, top)
	}
}

func TestHandleImpliedVol(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "")

	tests := []struct {
		name       string
		payload    map[string]interface{}
		wantStatus int
		wantVol    float64
	}{
		{
			name: "ATM call",
			payload: map[string]interface{}{
				"type": "call", "spot": 100, "strike": 100, "rate": 0.01, "expiry": 1, "price": 8.433319,
			},
			wantStatus: http.StatusOK,
			wantVol:    0.2,
		},
		{
			name: "OTM put",
			payload: map[string]interface{}{
				"type": "P", "spot": 100, "strike": 90, "rate": 0.01, "expiry": 0.5, "price": 2.706079,
			},
			wantStatus: http.StatusOK,
			wantVol:    0.25,
		},
		{
			name: "Unknown type",
			payload: map[string]interface{}{
				"type": "digital", "spot": 100, "strike": 100, "expiry": 1, "price": 5,
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "Expired option",
			payload: map[string]interface{}{
				"type": "call", "spot": 100, "strike": 100, "expiry": 0, "price": 5,
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "Unknown field",
			payload: map[string]interface{}{
				"type": "call", "spot": 100, "strike": 100, "expiry": 1, "price": 5, "volatility": 0.2,
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := performEditorJSON(t, handler, tt.payload, "/api/impliedvol")
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp impliedVolResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if !resp.ImpliedVol.Converged || math.Abs(resp.ImpliedVol.Vol-tt.wantVol) > 1e-4 {
				t.Errorf("unexpected implied vol %+v", resp.ImpliedVol)
			}
		})
	}
}

func TestHandleVersion(t *testing.T) {
	tests := map[string]string{
		"1.2.3": "1.2.3",
		"  ":    "dev",
	}
	for version, expected := range tests {
		handler := NewHandler(nil, 0, version)
		req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["version"] != expected {
			t.Errorf("version = %q, expected %q", resp["version"], expected)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "")

	tests := map[string]string{
		"/api/report":        http.MethodGet,
		"/api/editor/report": http.MethodGet,
		"/api/editor/export": http.MethodPut,
		"/api/impliedvol":    http.MethodGet,
		"/api/version":       http.MethodPost,
	}
	for path, method := range tests {
		req := httptest.NewRequest(method, path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status 405, got %d", method, path, rr.Code)
		}
	}
}

func TestHandleReportUploadTooLarge(t *testing.T) {
	handler := NewHandler(zap.NewNop(), 64, "")

	rr := performUpload(t, handler, strings.Repeat("a", 128), "config.yaml")

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "upload exceeds limit") {
		t.Fatalf("expected upload limit error message, got %q", resp["error"])
	}
}

func TestHandleReportMissingFile(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/report", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp["error"] != "missing configuration file" {
		t.Fatalf("expected missing file error, got %q", resp["error"])
	}
}

func TestHandleReportInvalidYAML(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "")

	rr := performUpload(t, handler, "market: [", "config.yaml")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "error reading config data") {
		t.Fatalf("expected parse error message, got %q", resp["error"])
	}
}

func performUpload(t *testing.T, handler http.Handler, content, filename string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/report", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}

func performEditorJSON(t *testing.T, handler http.Handler, payload map[string]interface{}, path string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}
