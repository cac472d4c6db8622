package server

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/tealeg/xlsx/v3"

	"github.com/Skufu/dhanvantari/internal/analysis"
	"github.com/Skufu/dhanvantari/internal/llm"
	"github.com/Skufu/dhanvantari/internal/patient"
)

type fakeDB struct {
	err error
}

func (f fakeDB) Ping(ctx context.Context) error {
	return f.err
}

type fakeCompleter struct {
	text string
	err  error
}

func (f fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return f.text, f.err
}

const adviceText = "### OVERALL HEALTH STATUS\n- Stable vitals\n\n### PRESCRIPTION:\n- Continue current plan"

func testStore(t *testing.T) *patient.Store {
	t.Helper()
	store, err := patient.NewStore([]patient.Record{
		{ID: "P001", Name: "Asha Rao", Gender: "Female", Age: 34, BloodGroup: "O+", HeartRate: 72, BloodOxygen: 98, SugarLevel: 110, HeightCm: 162, WeightKg: 58, Symptoms: "Fatigue, Headache", BloodPressure: "118/76"},
		{ID: "P002", Name: "Ravi Kumar", Gender: "Male", Age: 61, BloodGroup: "B+", HeartRate: 96, BloodOxygen: 93, SugarLevel: 180, HeightCm: 170, WeightKg: 88, Symptoms: "Cough", BloodPressure: "150/95"},
	})
	if err != nil {
		t.Fatalf("build store: %v", err)
	}
	return store
}

func newTestRouter(t *testing.T, completer llm.Completer, db HealthChecker) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	a := analysis.New(testStore(t), completer, zerolog.Nop())
	return New(a, db, "test.csv", zerolog.Nop()).Router()
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func postAnalysis(router http.Handler, selection string) *httptest.ResponseRecorder {
	form := url.Values{"patient": {selection}}
	req := httptest.NewRequest(http.MethodPost, "/analysis", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return serve(router, req)
}

func TestRouterHealthz(t *testing.T) {
	router := newTestRouter(t, fakeCompleter{}, fakeDB{})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if w.Header().Get(headerRequestID) == "" {
		t.Fatal("expected request id header")
	}
}

func TestRouterReadyz(t *testing.T) {
	tests := []struct {
		name   string
		db     HealthChecker
		status int
		want   string
	}{
		{"db disabled", nil, http.StatusOK, `"db":"disabled"`},
		{"db healthy", fakeDB{}, http.StatusOK, `"db":"ok"`},
		{"db down", fakeDB{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, fakeCompleter{}, tt.db)
			w := serve(router, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.want) || !strings.Contains(w.Body.String(), `"patients":2`) {
				t.Fatalf("unexpected body: %s", w.Body.String())
			}
		})
	}
}

func TestHomePage(t *testing.T) {
	router := newTestRouter(t, fakeCompleter{}, nil)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Welcome to Dhanvantari", "2 patient records", "Team Dhanvantari"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected home page to contain %q", want)
		}
	}
}

func TestAnalysisPageListsPatients(t *testing.T) {
	router := newTestRouter(t, fakeCompleter{}, nil)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/analysis?patient=P002+%28Ravi+Kumar%29", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<option >P001 (Asha Rao)</option>") {
		t.Fatalf("expected first patient option, got %s", body)
	}
	if !strings.Contains(body, "<option selected>P002 (Ravi Kumar)</option>") {
		t.Fatalf("expected second patient selected, got %s", body)
	}
}

func TestGenerateAnalysisRendersAllTabs(t *testing.T) {
	router := newTestRouter(t, fakeCompleter{text: adviceText}, nil)

	w := postAnalysis(router, "P001 (Asha Rao)")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	body := w.Body.String()
	for _, want := range []string{
		"📊 Analysis", "💊 Prescription", "📑 Raw Data",
		"Asha Rao", "Vital Signs vs Population Average", "BMI Index", "<li>Headache</li>",
		"<h3>OVERALL HEALTH STATUS</h3>", "<li>Continue current plan</li>",
		"Blood Pressure (mmHg)", "118/76", "/patients/P001/raw.xlsx",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected report to contain %q", want)
		}
	}
	if strings.Contains(body, `class="alert error"`) {
		t.Fatal("did not expect an error alert")
	}
}

func TestGenerateAnalysisShowsAPIKeyErrors(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`))
	}))
	defer upstream.Close()

	tests := []struct {
		name   string
		apiKey string
		want   string
	}{
		{"missing key", "", "GROQ_API_KEY not found in environment variables"},
		{"invalid key", "gsk_invalid", "rejected the API key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := llm.NewClient(llm.Config{APIKey: tt.apiKey, Model: "test-model", BaseURL: upstream.URL}, upstream.Client())
			router := newTestRouter(t, client, nil)

			w := postAnalysis(router, "P002 (Ravi Kumar)")
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			body := w.Body.String()
			if !strings.Contains(body, `class="alert error"`) || !strings.Contains(body, tt.want) {
				t.Fatalf("expected visible error %q, got %s", tt.want, body)
			}
			for _, want := range []string{"📊 Analysis", "Ravi Kumar", "150/95"} {
				if !strings.Contains(body, want) {
					t.Fatalf("expected the other tabs to stay populated, missing %q", want)
				}
			}
		})
	}
}

func TestGenerateAnalysisErrors(t *testing.T) {
	router := newTestRouter(t, fakeCompleter{text: adviceText}, nil)

	if w := postAnalysis(router, "P404 (Nobody)"); w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "patient not found") {
		t.Fatalf("expected 404 page, got %d: %s", w.Code, w.Body.String())
	}
	if w := postAnalysis(router, "  "); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAPIPatients(t *testing.T) {
	router := newTestRouter(t, fakeCompleter{}, nil)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/patients", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list struct {
		Count    int              `json:"count"`
		Patients []patientSummary `json:"patients"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 2 || list.Patients[1].Label != "P002 (Ravi Kumar)" {
		t.Fatalf("unexpected list %+v", list)
	}

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/patients/P404", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"error"`) {
		t.Fatalf("expected 404 json, got %d: %s", w.Code, w.Body.String())
	}

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/patients/P001/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"heart_rate_vs_avg"`) {
		t.Fatalf("unexpected metrics response %d: %s", w.Code, w.Body.String())
	}
}

func TestAPIAnalysisReportsAdviceError(t *testing.T) {
	router := newTestRouter(t, fakeCompleter{err: llm.ErrMissingAPIKey}, nil)

	w := serve(router, httptest.NewRequest(http.MethodPost, "/api/patients/P001/analysis", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var report analysis.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Advice != "" || !strings.Contains(report.AdviceError, "GROQ_API_KEY") {
		t.Fatalf("expected advice error, got %+v", report)
	}
	if report.Patient.ID != "P001" || report.BMICategory == "" {
		t.Fatalf("expected populated report, got %+v", report)
	}
}

func TestDownloadRawData(t *testing.T) {
	router := newTestRouter(t, fakeCompleter{}, nil)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/patients/P002/raw.xlsx", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "patient-P002.xlsx") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	f, err := xlsx.OpenBinary(w.Body.Bytes())
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	m, err := f.ToSlice()
	if err != nil {
		t.Fatalf("to slice: %v", err)
	}
	if m[0][1][0] != "P002" {
		t.Fatalf("unexpected first value %q", m[0][1][0])
	}

	w = serve(router, httptest.NewRequest(http.MethodGet, "/patients/P404/raw.xlsx", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestNoRoute(t *testing.T) {
	router := newTestRouter(t, fakeCompleter{}, nil)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "page not found") {
		t.Fatalf("expected 404 page, got %d", w.Code)
	}
	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if w.Code != http.StatusNotFound || !strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("expected 404 json, got %d %s", w.Code, w.Header().Get("Content-Type"))
	}
}

func TestRawDataLinkEscapesID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := patient.NewStore([]patient.Record{
		{ID: `P#1 "x"`, Name: "Odd Id", HeartRate: 70, BloodOxygen: 97, SugarLevel: 100, HeightCm: 170, WeightKg: 70, BloodPressure: "120/80"},
	})
	if err != nil {
		t.Fatalf("build store: %v", err)
	}
	router := New(analysis.New(store, fakeCompleter{text: adviceText}, zerolog.Nop()), nil, "test.csv", zerolog.Nop()).Router()

	w := postAnalysis(router, `P#1 "x" (Odd Id)`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	link := "/patients/" + url.PathEscape(`P#1 "x"`) + "/raw.xlsx"
	if !strings.Contains(w.Body.String(), `href="`+link+`"`) {
		t.Fatalf("expected escaped link %s in report", link)
	}

	w = serve(router, httptest.NewRequest(http.MethodGet, link, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	_, params, err := mime.ParseMediaType(w.Header().Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("parse disposition %q: %v", w.Header().Get("Content-Disposition"), err)
	}
	if params["filename"] != `patient-P#1 "x".xlsx` {
		t.Fatalf("unexpected filename %q", params["filename"])
	}
}
