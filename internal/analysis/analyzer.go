package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Skufu/dhanvantari/internal/llm"
	"github.com/Skufu/dhanvantari/internal/patient"
	"github.com/Skufu/dhanvantari/internal/triage"
	"github.com/Skufu/dhanvantari/internal/vitals"
)

// Metrics is a patient together with population statistics and the patient's
// deviation from them.
type Metrics struct {
	Patient     patient.Record     `json:"patient"`
	Stats       vitals.Population  `json:"vitalStatistics"`
	Performance vitals.Performance `json:"performance"`
}

type Report struct {
	Metrics
	BMI         float64       `json:"bmi"`
	BMICategory string        `json:"bmiCategory"`
	Symptoms    []string      `json:"symptoms"`
	Triage      triage.Result `json:"triage"`
	Advice      string        `json:"advice,omitempty"`
	AdviceError string        `json:"adviceError,omitempty"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

// HasAdvice reports whether the AI analysis was produced.
func (r Report) HasAdvice() bool {
	return r.AdviceError == "" && r.Advice != ""
}

type promptData struct {
	PatientDetails  map[string]string  `json:"patient_details"`
	VitalStatistics vitals.Population  `json:"vital_statistics"`
	Performance     vitals.Performance `json:"performance"`
}

type Analyzer struct {
	store      *patient.Store
	population vitals.Population
	completer  llm.Completer
	logger     zerolog.Logger
	now        func() time.Time
}

func New(store *patient.Store, completer llm.Completer, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		store:      store,
		population: vitals.Compute(store.All()),
		completer:  completer,
		logger:     logger,
		now:        time.Now,
	}
}

func (a *Analyzer) Store() *patient.Store {
	return a.store
}

func (a *Analyzer) Population() vitals.Population {
	return a.population
}

// Metrics looks up a patient by id or selector label.
func (a *Analyzer) Metrics(selection string) (Metrics, error) {
	rec, err := a.store.Get(patient.ParseSelection(selection))
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{
		Patient:     rec,
		Stats:       a.population,
		Performance: a.population.Compare(rec),
	}, nil
}

// Analyze builds the full report for a patient. A failing AI call does not fail
// the report; its message is carried in AdviceError instead.
func (a *Analyzer) Analyze(ctx context.Context, selection string) (Report, error) {
	m, err := a.Metrics(selection)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Metrics:     m,
		Symptoms:    m.Patient.SymptomList(),
		GeneratedAt: a.now().UTC(),
	}

	if bmi, err := vitals.BMI(m.Patient.HeightCm, m.Patient.WeightKg); err == nil {
		report.BMI = vitals.Round2(bmi)
		report.BMICategory = vitals.BMICategory(bmi)
	} else {
		a.logger.Warn().Err(err).Str("patient_id", m.Patient.ID).Msg("bmi unavailable")
	}

	report.Triage = triage.Assess(m.Patient, report.BMI)

	advice, err := a.advise(ctx, m)
	if err != nil {
		a.logger.Error().Err(err).Str("patient_id", m.Patient.ID).Msg("generate analysis")
		report.AdviceError = llm.UserMessage(err)
		return report, nil
	}
	report.Advice = advice

	return report, nil
}

func (a *Analyzer) advise(ctx context.Context, m Metrics) (string, error) {
	details := make(map[string]string, len(patient.Columns))
	for _, f := range m.Patient.Fields() {
		details[f.Column] = f.Value
	}

	prompt, err := llm.BuildPrompt(promptData{
		PatientDetails:  details,
		VitalStatistics: m.Stats,
		Performance:     m.Performance,
	})
	if err != nil {
		return "", err
	}

	start := a.now()
	text, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	a.logger.Info().
		Str("patient_id", m.Patient.ID).
		Dur("latency", a.now().Sub(start)).
		Int("chars", len(text)).
		Msg("analysis generated")

	return text, nil
}
