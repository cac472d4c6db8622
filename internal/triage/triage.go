package triage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Skufu/dhanvantari/internal/patient"
	"github.com/Skufu/dhanvantari/internal/vitals"
)

const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
)

type Finding struct {
	Category string `json:"category"` // vital|pressure|body|allergy
	Factor   string `json:"factor"`
	Severity string `json:"severity"`
	Note     string `json:"note"`
}

type Result struct {
	RiskScore int       `json:"riskScore"`
	RiskLevel string    `json:"riskLevel"`
	Issues    []string  `json:"issues"`
	Findings  []Finding `json:"findings"`
	Source    string    `json:"source"`
}

// Rule flags a vital strictly below Below or strictly above Above. A zero bound
// is unused.
type Rule struct {
	ID       string
	Vital    string
	Severity string
	Below    float64
	Above    float64
	Note     string
}

var (
	ruleDB = []Rule{
		{ID: "hr-brady-severe", Vital: patient.ColHeartRate, Severity: SeverityHigh, Below: 50, Note: "Marked bradycardia; assess perfusion and conduction."},
		{ID: "hr-tachy-severe", Vital: patient.ColHeartRate, Severity: SeverityHigh, Above: 120, Note: "Marked tachycardia; evaluate for infection, bleeding or arrhythmia."},
		{ID: "hr-brady", Vital: patient.ColHeartRate, Severity: SeverityMedium, Below: 60, Note: "Heart rate below resting range."},
		{ID: "hr-tachy", Vital: patient.ColHeartRate, Severity: SeverityMedium, Above: 100, Note: "Heart rate above resting range."},
		{ID: "spo2-severe", Vital: patient.ColBloodOxygen, Severity: SeverityHigh, Below: 90, Note: "Hypoxaemia; consider supplemental oxygen."},
		{ID: "spo2-low", Vital: patient.ColBloodOxygen, Severity: SeverityMedium, Below: 95, Note: "Blood oxygen below normal range."},
		{ID: "sugar-severe", Vital: patient.ColSugarLevel, Severity: SeverityHigh, Above: 200, Note: "Marked hyperglycaemia; check for ketosis."},
		{ID: "sugar-high", Vital: patient.ColSugarLevel, Severity: SeverityMedium, Above: 140, Note: "Elevated blood sugar."},
		{ID: "sugar-low", Vital: patient.ColSugarLevel, Severity: SeverityMedium, Below: 70, Note: "Hypoglycaemia risk."},
	}
	severityWeight = map[string]int{
		SeverityHigh:   40,
		SeverityMedium: 20,
		SeverityLow:    10,
	}
	noneTokens = []string{"none", "nil", "n/a", "na", "no known allergies", "nka"}
)

// Assess runs the rule table over a patient. bmi may be zero when height is
// unknown.
func Assess(rec patient.Record, bmi float64) Result {
	findings := []Finding{}
	findings = append(findings, vitalFindings(rec)...)
	findings = append(findings, pressureFindings(rec.BloodPressure)...)
	findings = append(findings, bodyFindings(bmi)...)
	findings = append(findings, allergyFindings(rec)...)

	maxSeverity := SeverityLow
	for _, f := range findings {
		if f.Severity == SeverityHigh {
			maxSeverity = SeverityHigh
			break
		}
		if f.Severity == SeverityMedium {
			maxSeverity = SeverityMedium
		}
	}

	score := 5
	for _, f := range findings {
		score += severityWeight[f.Severity]
	}
	if score > 100 {
		score = 100
	}

	riskLevel := SeverityLow
	if maxSeverity == SeverityHigh || score >= 60 {
		riskLevel = SeverityHigh
	} else if maxSeverity == SeverityMedium || score >= 30 {
		riskLevel = SeverityMedium
	}

	issues := []string{}
	for _, f := range findings {
		issues = append(issues, fmt.Sprintf("[%s] %s - %s", f.Severity, f.Factor, f.Note))
	}
	if len(issues) == 0 {
		issues = append(issues, "None")
	}

	return Result{
		RiskScore: score,
		RiskLevel: riskLevel,
		Issues:    issues,
		Findings:  findings,
		Source:    "rules",
	}
}

// vitalFindings reports at most one finding per vital, the first matching rule.
func vitalFindings(rec patient.Record) []Finding {
	values := map[string]float64{
		patient.ColHeartRate:   rec.HeartRate,
		patient.ColBloodOxygen: rec.BloodOxygen,
		patient.ColSugarLevel:  rec.SugarLevel,
	}

	out := []Finding{}
	flagged := map[string]bool{}
	for _, rule := range ruleDB {
		if flagged[rule.Vital] {
			continue
		}
		v := values[rule.Vital]
		if v == 0 {
			continue
		}
		if (rule.Below != 0 && v < rule.Below) || (rule.Above != 0 && v > rule.Above) {
			flagged[rule.Vital] = true
			out = append(out, Finding{
				Category: "vital",
				Factor:   fmt.Sprintf("%s %s", rule.Vital, strconv.FormatFloat(v, 'f', -1, 64)),
				Severity: rule.Severity,
				Note:     rule.Note,
			})
		}
	}
	return out
}

func pressureFindings(bp string) []Finding {
	if strings.TrimSpace(bp) == "" {
		return nil
	}

	sys, dia, ok := ParseBloodPressure(bp)
	if !ok {
		return []Finding{{
			Category: "pressure",
			Factor:   "Blood pressure " + bp,
			Severity: SeverityLow,
			Note:     "Unreadable blood pressure; re-measure.",
		}}
	}

	factor := "Blood pressure " + bp
	switch {
	case sys >= 180 || dia >= 120:
		return []Finding{{Category: "pressure", Factor: factor, Severity: SeverityHigh, Note: "Hypertensive crisis range; urgent evaluation."}}
	case sys >= 140 || dia >= 90:
		return []Finding{{Category: "pressure", Factor: factor, Severity: SeverityMedium, Note: "Stage 2 hypertension range."}}
	case sys >= 130 || dia >= 80:
		return []Finding{{Category: "pressure", Factor: factor, Severity: SeverityLow, Note: "Stage 1 hypertension range."}}
	case sys < 90 || dia < 60:
		return []Finding{{Category: "pressure", Factor: factor, Severity: SeverityMedium, Note: "Hypotension range."}}
	}
	return nil
}

// ParseBloodPressure parses "SYS/DIA".
func ParseBloodPressure(bp string) (int, int, bool) {
	parts := strings.Split(bp, "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	sys, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	dia, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || sys <= 0 || dia <= 0 {
		return 0, 0, false
	}
	return sys, dia, true
}

func bodyFindings(bmi float64) []Finding {
	if bmi <= 0 {
		return nil
	}
	factor := fmt.Sprintf("BMI %.1f", bmi)
	switch {
	case bmi >= 30:
		return []Finding{{Category: "body", Factor: factor, Severity: SeverityMedium, Note: vitals.BMICategory(bmi) + "; weigh cardiometabolic risk."}}
	case bmi < 18.5:
		return []Finding{{Category: "body", Factor: factor, Severity: SeverityLow, Note: "Underweight; review nutrition."}}
	}
	return nil
}

// allergyFindings flags any listed allergy that also appears in the current
// medication list.
func allergyFindings(rec patient.Record) []Finding {
	allergies := normalizeList(rec.AllergyList())
	meds := normalizeList(rec.MedicationList())

	out := []Finding{}
	for _, a := range allergies {
		if containsString(noneTokens, a) {
			continue
		}
		if hasToken(meds, a) {
			out = append(out, Finding{
				Category: "allergy",
				Factor:   "Allergy to " + a,
				Severity: SeverityHigh,
				Note:     "Listed allergen appears in current medication; review immediately.",
			})
		}
	}
	return out
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, strings.ToLower(strings.TrimSpace(item)))
	}
	return out
}

func hasToken(tokens []string, substr string) bool {
	for _, t := range tokens {
		if strings.Contains(t, substr) {
			return true
		}
	}
	return false
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
