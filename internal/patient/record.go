package patient

import (
	"strconv"
	"strings"
	"time"
)

// Column headers of the hospital patient CSV. A file must carry exactly this set.
const (
	ColID                = "Patient ID"
	ColName              = "Patient Name"
	ColContact           = "Contact Number"
	ColGender            = "Gender"
	ColAge               = "Age"
	ColBirthDate         = "Birth Date"
	ColOccupation        = "Occupation"
	ColAddress           = "Address"
	ColInsuranceProvider = "Insurance Provider"
	ColInsurancePolicy   = "Insurance Policy Number"
	ColAllergies         = "Allergies"
	ColCurrentMedication = "Current Medication"
	ColPastHistory       = "Past Medical History"
	ColSymptoms          = "Symptoms"
	ColBloodGroup        = "Blood Group"
	ColHeartRate         = "Heart Rate (bpm)"
	ColBloodOxygen       = "Blood Oxygen Level (%)"
	ColHeight            = "Height (cm)"
	ColWeight            = "Weight (kg)"
	ColSugarLevel        = "Sugar Level (mg/dL)"
	ColBloodPressure     = "Blood Pressure (mmHg)"
)

// Columns lists the documented columns in their canonical order.
var Columns = []string{
	ColID,
	ColName,
	ColContact,
	ColGender,
	ColAge,
	ColBirthDate,
	ColOccupation,
	ColAddress,
	ColInsuranceProvider,
	ColInsurancePolicy,
	ColAllergies,
	ColCurrentMedication,
	ColPastHistory,
	ColSymptoms,
	ColBloodGroup,
	ColHeartRate,
	ColBloodOxygen,
	ColHeight,
	ColWeight,
	ColSugarLevel,
	ColBloodPressure,
}

const BirthDateLayout = "2006-01-02"

var birthDateLayouts = []string{
	BirthDateLayout,
	"01/02/2006",
	"2006/01/02",
	time.RFC3339,
}

type Record struct {
	ID                string    `json:"patientId"`
	Name              string    `json:"patientName"`
	Contact           string    `json:"contactNumber"`
	Gender            string    `json:"gender"`
	Age               int       `json:"age"`
	BirthDate         time.Time `json:"birthDate"`
	Occupation        string    `json:"occupation"`
	Address           string    `json:"address"`
	InsuranceProvider string    `json:"insuranceProvider"`
	InsurancePolicy   string    `json:"insurancePolicyNumber"`
	Allergies         string    `json:"allergies"`
	CurrentMedication string    `json:"currentMedication"`
	PastHistory       string    `json:"pastMedicalHistory"`
	Symptoms          string    `json:"symptoms"`
	BloodGroup        string    `json:"bloodGroup"`
	HeartRate         float64   `json:"heartRate"`
	BloodOxygen       float64   `json:"bloodOxygen"`
	HeightCm          float64   `json:"heightCm"`
	WeightKg          float64   `json:"weightKg"`
	SugarLevel        float64   `json:"sugarLevel"`
	BloodPressure     string    `json:"bloodPressure"`
}

// Field is one column/value pair of a record, used for raw data views.
type Field struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// DisplayName is the selector label, "ID (Name)".
func (r Record) DisplayName() string {
	return r.ID + " (" + r.Name + ")"
}

func (r Record) SymptomList() []string {
	return SplitList(r.Symptoms)
}

func (r Record) AllergyList() []string {
	return SplitList(r.Allergies)
}

func (r Record) MedicationList() []string {
	return SplitList(r.CurrentMedication)
}

// Fields returns the record as column/value pairs in canonical column order.
func (r Record) Fields() []Field {
	fields := make([]Field, 0, len(Columns))
	for _, col := range Columns {
		fields = append(fields, Field{Column: col, Value: r.Value(col)})
	}
	return fields
}

// Value formats a single column of the record the way it appears in the CSV.
func (r Record) Value(column string) string {
	switch column {
	case ColID:
		return r.ID
	case ColName:
		return r.Name
	case ColContact:
		return r.Contact
	case ColGender:
		return r.Gender
	case ColAge:
		return strconv.Itoa(r.Age)
	case ColBirthDate:
		if r.BirthDate.IsZero() {
			return ""
		}
		return r.BirthDate.Format(BirthDateLayout)
	case ColOccupation:
		return r.Occupation
	case ColAddress:
		return r.Address
	case ColInsuranceProvider:
		return r.InsuranceProvider
	case ColInsurancePolicy:
		return r.InsurancePolicy
	case ColAllergies:
		return r.Allergies
	case ColCurrentMedication:
		return r.CurrentMedication
	case ColPastHistory:
		return r.PastHistory
	case ColSymptoms:
		return r.Symptoms
	case ColBloodGroup:
		return r.BloodGroup
	case ColHeartRate:
		return formatFloat(r.HeartRate)
	case ColBloodOxygen:
		return formatFloat(r.BloodOxygen)
	case ColHeight:
		return formatFloat(r.HeightCm)
	case ColWeight:
		return formatFloat(r.WeightKg)
	case ColSugarLevel:
		return formatFloat(r.SugarLevel)
	case ColBloodPressure:
		return r.BloodPressure
	default:
		return ""
	}
}

// SplitList splits a comma or semicolon separated cell into trimmed, non-empty items.
func SplitList(text string) []string {
	out := []string{}
	for _, t := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';'
	}) {
		trimmed := strings.TrimSpace(t)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseBirthDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range birthDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
