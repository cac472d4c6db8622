package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Skufu/dhanvantari/internal/llm"
	"github.com/Skufu/dhanvantari/internal/patient"
)

type fakeCompleter struct {
	prompt string
	text   string
	err    error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.text, f.err
}

func testStore(t *testing.T) *patient.Store {
	t.Helper()
	store, err := patient.NewStore([]patient.Record{
		{ID: "P001", Name: "Asha Rao", HeartRate: 60, BloodOxygen: 98, SugarLevel: 100, HeightCm: 160, WeightKg: 64, Symptoms: "Fatigue, Headache", BloodPressure: "118/76"},
		{ID: "P002", Name: "Ravi Kumar", HeartRate: 90, BloodOxygen: 94, SugarLevel: 150, HeightCm: 0, WeightKg: 80, Symptoms: "Cough", BloodPressure: "150/95"},
	})
	if err != nil {
		t.Fatalf("build store: %v", err)
	}
	return store
}

func TestMetrics(t *testing.T) {
	a := New(testStore(t), &fakeCompleter{}, zerolog.Nop())

	m, err := a.Metrics("P001 (Asha Rao)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Patient.ID != "P001" {
		t.Fatalf("expected P001, got %s", m.Patient.ID)
	}
	if m.Stats.HeartRate.Mean != 75 {
		t.Fatalf("expected mean heart rate 75, got %v", m.Stats.HeartRate.Mean)
	}
	if m.Performance.HeartRateVsAvg != -20 {
		t.Fatalf("expected -20%%, got %v", m.Performance.HeartRateVsAvg)
	}

	if _, err := a.Metrics("P404 (Nobody)"); !errors.Is(err, patient.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAnalyzeWithAdvice(t *testing.T) {
	completer := &fakeCompleter{text: "### OVERALL HEALTH STATUS\n- Stable"}
	a := New(testStore(t), completer, zerolog.Nop())

	report, err := a.Analyze(context.Background(), "P001 (Asha Rao)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.HasAdvice() || report.Advice != completer.text {
		t.Fatalf("expected advice, got %+v", report)
	}
	if report.BMI != 25 || report.BMICategory != "Overweight" {
		t.Fatalf("unexpected bmi %v %s", report.BMI, report.BMICategory)
	}
	if len(report.Symptoms) != 2 || report.Symptoms[1] != "Headache" {
		t.Fatalf("unexpected symptoms %v", report.Symptoms)
	}
	if report.Triage.RiskLevel == "" {
		t.Fatal("expected triage result")
	}
	for _, want := range []string{`"Patient ID": "P001"`, `"vital_statistics"`, `"heart_rate_vs_avg": -20`, "PRESCRIPTION:"} {
		if !strings.Contains(completer.prompt, want) {
			t.Fatalf("expected prompt to contain %q", want)
		}
	}
}

func TestAnalyzeSurfacesAIErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"missing key", llm.ErrMissingAPIKey, "GROQ_API_KEY"},
		{"invalid key", llm.ErrUnauthorized, "rejected the API key"},
		{"network", errors.New("dial tcp: connection refused"), "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(testStore(t), &fakeCompleter{err: tt.err}, zerolog.Nop())

			report, err := a.Analyze(context.Background(), "P001")
			if err != nil {
				t.Fatalf("AI failure must not fail the report: %v", err)
			}
			if report.HasAdvice() {
				t.Fatal("expected no advice")
			}
			if !strings.Contains(report.AdviceError, tt.want) {
				t.Fatalf("expected %q in %q", tt.want, report.AdviceError)
			}
			if report.Patient.ID != "P001" || report.Triage.Source != "rules" {
				t.Fatalf("expected the rest of the report, got %+v", report)
			}
		})
	}
}

func TestAnalyzeWithoutHeight(t *testing.T) {
	a := New(testStore(t), &fakeCompleter{text: "ok"}, zerolog.Nop())

	report, err := a.Analyze(context.Background(), "P002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.BMI != 0 || report.BMICategory != "" {
		t.Fatalf("expected no bmi, got %v %s", report.BMI, report.BMICategory)
	}
}
