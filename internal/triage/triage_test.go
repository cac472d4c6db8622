package triage

import (
	"strings"
	"testing"

	"github.com/Skufu/dhanvantari/internal/patient"
)

func healthy() patient.Record {
	return patient.Record{
		ID:                "P001",
		HeartRate:         72,
		BloodOxygen:       98,
		SugarLevel:        100,
		BloodPressure:     "118/76",
		Allergies:         "None",
		CurrentMedication: "Vitamin D",
	}
}

func TestAssess_Healthy(t *testing.T) {
	result := Assess(healthy(), 22)
	if result.RiskLevel != SeverityLow || result.RiskScore != 5 {
		t.Fatalf("expected low risk baseline, got %+v", result)
	}
	if len(result.Issues) != 1 || result.Issues[0] != "None" {
		t.Fatalf("expected no issues, got %+v", result.Issues)
	}
	if result.Source != "rules" {
		t.Fatalf("expected rules source, got %s", result.Source)
	}
}

func TestAssess_Hypoxaemia(t *testing.T) {
	rec := healthy()
	rec.BloodOxygen = 87
	result := Assess(rec, 22)
	if result.RiskLevel != SeverityHigh {
		t.Fatalf("expected high risk, got %+v", result)
	}
	if !containsIssue(result.Issues, "Hypoxaemia") {
		t.Fatalf("expected hypoxaemia issue, got %+v", result.Issues)
	}
}

func TestAssess_OneFindingPerVital(t *testing.T) {
	rec := healthy()
	rec.HeartRate = 130
	result := Assess(rec, 22)

	count := 0
	for _, f := range result.Findings {
		if strings.HasPrefix(f.Factor, patient.ColHeartRate) {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected a single heart rate finding, got %d: %+v", count, result.Findings)
	}
	if result.Findings[0].Severity != SeverityHigh {
		t.Fatalf("expected the severe rule to win, got %+v", result.Findings[0])
	}
}

func TestAssess_MediumFindings(t *testing.T) {
	rec := healthy()
	rec.SugarLevel = 160
	rec.BloodPressure = "145/92"
	result := Assess(rec, 22)

	if result.RiskLevel != SeverityMedium {
		t.Fatalf("expected medium risk, got %+v", result)
	}
	if result.RiskScore != 45 {
		t.Fatalf("expected score 45, got %d", result.RiskScore)
	}
	for _, want := range []string{"Elevated blood sugar", "Stage 2"} {
		if !containsIssue(result.Issues, want) {
			t.Fatalf("expected %q issue, got %+v", want, result.Issues)
		}
	}
}

func TestAssess_ScoreEscalatesRiskLevel(t *testing.T) {
	rec := healthy()
	rec.SugarLevel = 160
	rec.BloodPressure = "145/92"
	result := Assess(rec, 31)

	if result.RiskScore != 65 || result.RiskLevel != SeverityHigh {
		t.Fatalf("expected score 65 and high risk, got %+v", result)
	}
	if !containsIssue(result.Issues, "BMI 31.0") || !containsIssue(result.Issues, "Obese") {
		t.Fatalf("expected BMI issue, got %+v", result.Issues)
	}
}

func TestAssess_AllergyInMedication(t *testing.T) {
	rec := healthy()
	rec.Allergies = "Penicillin; Latex"
	rec.CurrentMedication = "Amoxicillin, Penicillin V"
	result := Assess(rec, 22)

	if result.RiskLevel != SeverityHigh {
		t.Fatalf("expected high risk, got %+v", result)
	}
	if !containsIssue(result.Issues, "Allergy to penicillin") {
		t.Fatalf("expected allergy conflict, got %+v", result.Issues)
	}
	if containsIssue(result.Issues, "latex") {
		t.Fatalf("latex is not in medication, got %+v", result.Issues)
	}
}

func TestAssess_ScoreCapped(t *testing.T) {
	rec := patient.Record{
		HeartRate:         40,
		BloodOxygen:       80,
		SugarLevel:        300,
		BloodPressure:     "190/125",
		Allergies:         "aspirin",
		CurrentMedication: "aspirin",
	}
	result := Assess(rec, 36)
	if result.RiskScore != 100 {
		t.Fatalf("expected capped score 100, got %d", result.RiskScore)
	}
}

func TestAssess_UnreadablePressure(t *testing.T) {
	rec := healthy()
	rec.BloodPressure = "high"
	result := Assess(rec, 22)
	if !containsIssue(result.Issues, "Unreadable blood pressure") {
		t.Fatalf("expected unreadable pressure issue, got %+v", result.Issues)
	}
	if result.RiskLevel != SeverityLow {
		t.Fatalf("expected low risk, got %s", result.RiskLevel)
	}
}

func TestParseBloodPressure(t *testing.T) {
	tests := []struct {
		in       string
		sys, dia int
		ok       bool
	}{
		{"120/80", 120, 80, true},
		{" 135 / 85 ", 135, 85, true},
		{"120", 0, 0, false},
		{"a/b", 0, 0, false},
		{"0/80", 0, 0, false},
	}
	for _, tt := range tests {
		sys, dia, ok := ParseBloodPressure(tt.in)
		if sys != tt.sys || dia != tt.dia || ok != tt.ok {
			t.Errorf("ParseBloodPressure(%q) = %d, %d, %v", tt.in, sys, dia, ok)
		}
	}
}

func containsIssue(issues []string, substr string) bool {
	for _, i := range issues {
		if strings.Contains(i, substr) {
			return true
		}
	}
	return false
}
