package sample

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Skufu/dhanvantari/internal/patient"
	"github.com/Skufu/dhanvantari/internal/triage"
)

func TestGenerateLoadsBack(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, 25, 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store, err := patient.LoadCSV(&buf)
	if err != nil {
		t.Fatalf("generated csv did not load: %v", err)
	}
	if store.Len() != 25 {
		t.Fatalf("expected 25 patients, got %d", store.Len())
	}

	for _, rec := range store.All() {
		if rec.HeightCm <= 0 || rec.WeightKg <= 0 {
			t.Fatalf("patient %s has no body measurements", rec.ID)
		}
		if _, _, ok := triage.ParseBloodPressure(rec.BloodPressure); !ok {
			t.Fatalf("patient %s has unreadable pressure %q", rec.ID, rec.BloodPressure)
		}
		if strings.Contains(rec.Symptoms, "None,") {
			t.Fatalf("patient %s mixes None with symptoms: %q", rec.ID, rec.Symptoms)
		}
	}
}

func TestGenerateHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, 0, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if line != strings.Join(patient.Columns, ",") {
		t.Fatalf("unexpected header %q", line)
	}
}
