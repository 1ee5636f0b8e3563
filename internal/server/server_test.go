package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gyeh/pccc/internal/classify"
	"github.com/gyeh/pccc/internal/model"
)

func newTestServer(t *testing.T, maxRecords int) (*echo.Echo, *Handler) {
	t.Helper()
	h, err := NewHandler(zerolog.Nop(), classify.Options{Workers: 2}, maxRecords)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return New(zerolog.Nop(), h), h
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t, 0)
	rec := doJSON(e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected a request id header")
	}
}

func TestClassify_Scenario(t *testing.T) {
	e, _ := newTestServer(t, 0)
	body := `{"version":9,"records":[{"dx":["3180"]},{"dx":[],"pc":[]},{"dx":["R69"],"pc":["3751"]}]}`
	rec := doJSON(e, http.MethodPost, "/v1/classify", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ClassifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Columns) != 13 || resp.Columns[12] != model.AggregateColumn {
		t.Errorf("unexpected columns: %v", resp.Columns)
	}
	if len(resp.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(resp.Rows))
	}
	want := [][]int{
		{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1},
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1},
	}
	for i := range want {
		for j := range want[i] {
			if resp.Rows[i][j] != want[i][j] {
				t.Errorf("row %d = %v, want %v", i, resp.Rows[i], want[i])
				break
			}
		}
	}
}

func TestClassify_Normalize(t *testing.T) {
	e, _ := newTestServer(t, 0)
	for _, tt := range []struct {
		body string
		want int
	}{
		{`{"version":10,"records":[{"dx":["i42.0"]}]}`, 0},
		{`{"version":10,"normalize":true,"records":[{"dx":["i42.0"]}]}`, 1},
	} {
		rec := doJSON(e, http.MethodPost, "/v1/classify", tt.body)
		var resp ClassifyResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got := resp.Rows[0][model.CVD]; got != tt.want {
			t.Errorf("%s: cvd = %d, want %d", tt.body, got, tt.want)
		}
	}
}

func TestClassify_BadRequests(t *testing.T) {
	e, _ := newTestServer(t, 2)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"unsupported version", `{"version":8,"records":[]}`, http.StatusBadRequest},
		{"missing version", `{"records":[{"dx":["3180"]}]}`, http.StatusBadRequest},
		{"malformed json", `{"version":9,`, http.StatusBadRequest},
		{"too many records", `{"version":9,"records":[{},{},{}]}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(e, http.MethodPost, "/v1/classify", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestClassify_UnsupportedVersionMessage(t *testing.T) {
	e, _ := newTestServer(t, 0)
	rec := doJSON(e, http.MethodPost, "/v1/classify", `{"version":11,"records":[]}`)
	if !strings.Contains(rec.Body.String(), "must be 9 or 10") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestClassify_CancelledRequest(t *testing.T) {
	_, h := newTestServer(t, 0)
	e := echo.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/v1/classify",
		strings.NewReader(`{"version":9,"records":[{"dx":["3180"]}]}`)).WithContext(ctx)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.handleClassify(c); err != nil {
		t.Fatalf("handleClassify: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCodes(t *testing.T) {
	e, _ := newTestServer(t, 0)
	rec := doJSON(e, http.MethodGet, "/v1/codes/10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Version int `json:"version"`
		Tables  []struct {
			Category string   `json:"category"`
			CodeType string   `json:"code_type"`
			Match    string   `json:"match"`
			Codes    []string `json:"codes"`
		} `json:"tables"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Version != 10 || len(resp.Tables) != 22 {
		t.Fatalf("version=%d tables=%d", resp.Version, len(resp.Tables))
	}
	if resp.Tables[0].Category != "neuromusc" || resp.Tables[0].CodeType != "dx" || resp.Tables[0].Match != "prefix" {
		t.Errorf("unexpected first table: %+v", resp.Tables[0])
	}
}

func TestCodes_FilterByCategory(t *testing.T) {
	_, h := newTestServer(t, 0)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/codes/9?category=neonatal&category=transplant", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("version")
	c.SetParamValues("9")

	if err := h.handleCodes(c); err != nil {
		t.Fatalf("handleCodes: %v", err)
	}
	var resp CodesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// neonatal has no procedure table, transplant has both.
	if len(resp.Tables) != 3 {
		t.Fatalf("expected 3 tables, got %d", len(resp.Tables))
	}
	for _, ti := range resp.Tables {
		if ti.Category != model.Neonatal && ti.Category != model.Transplant {
			t.Errorf("unexpected category %s", ti.Category)
		}
	}
}

func TestCodes_BadVersion(t *testing.T) {
	e, _ := newTestServer(t, 0)
	for _, path := range []string{"/v1/codes/ten", "/v1/codes/7", "/v1/codes/9?category=bogus"} {
		if rec := doJSON(e, http.MethodGet, path, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}
