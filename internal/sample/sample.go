package sample

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/Skufu/dhanvantari/internal/patient"
)

var (
	bloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
	insurers    = []string{"Star Health", "LIC", "HDFC Ergo", "ICICI Lombard", "Niva Bupa", "Care Health"}
	allergies   = []string{"None", "Penicillin", "Peanuts", "Dust", "Latex", "Sulfa drugs", "Aspirin"}
	medications = []string{"None", "Metformin", "Amlodipine", "Atorvastatin", "Salbutamol", "Levothyroxine", "Aspirin", "Omeprazole"}
	histories   = []string{"None", "Hypertension", "Type 2 diabetes", "Asthma", "Hypothyroidism", "Migraine", "Appendectomy"}
	symptoms    = []string{"Fatigue", "Headache", "Fever", "Cough", "Chest pain", "Dizziness", "Nausea", "Shortness of breath", "Joint pain"}
)

// Generate writes n fake patient rows under the documented header. A zero seed
// draws a random one.
func Generate(w io.Writer, n int, seed uint64) error {
	faker := gofakeit.New(seed)
	now := time.Now().UTC()

	cw := csv.NewWriter(w)
	if err := cw.Write(patient.Columns); err != nil {
		return err
	}

	for i := 1; i <= n; i++ {
		age := faker.Number(18, 90)
		birth := now.AddDate(-age, 0, -faker.Number(0, 364))
		height := faker.Float64Range(148, 195)
		bmi := faker.Float64Range(17, 36)
		sys := faker.Number(95, 175)

		rec := patient.Record{
			ID:                fmt.Sprintf("P%04d", i),
			Name:              faker.FirstName() + " " + faker.LastName(),
			Contact:           faker.PhoneFormatted(),
			Gender:            faker.RandomString([]string{"Male", "Female"}),
			Age:               age,
			BirthDate:         time.Date(birth.Year(), birth.Month(), birth.Day(), 0, 0, 0, 0, time.UTC),
			Occupation:        faker.JobTitle(),
			Address:           faker.Street() + ", " + faker.City(),
			InsuranceProvider: faker.RandomString(insurers),
			InsurancePolicy:   fmt.Sprintf("POL-%06d", faker.Number(0, 999999)),
			Allergies:         faker.RandomString(allergies),
			CurrentMedication: pick(faker, medications, 2),
			PastHistory:       faker.RandomString(histories),
			Symptoms:          pick(faker, symptoms, 3),
			BloodGroup:        faker.RandomString(bloodGroups),
			HeartRate:         float64(faker.Number(52, 128)),
			BloodOxygen:       float64(faker.Number(88, 100)),
			HeightCm:          round1(height),
			WeightKg:          round1(bmi * (height / 100) * (height / 100)),
			SugarLevel:        float64(faker.Number(65, 240)),
			BloodPressure:     strconv.Itoa(sys) + "/" + strconv.Itoa(faker.Number(60, sys-25)),
		}

		row := make([]string, 0, len(patient.Columns))
		for _, col := range patient.Columns {
			row = append(row, rec.Value(col))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// pick joins up to max distinct items from list. "None" only ever stands alone.
func pick(faker *gofakeit.Faker, list []string, max int) string {
	n := faker.Number(1, max)
	seen := map[string]bool{}
	out := []string{}
	for len(out) < n {
		item := faker.RandomString(list)
		if seen[item] {
			continue
		}
		seen[item] = true
		if item == "None" {
			if len(out) == 0 {
				return item
			}
			continue
		}
		out = append(out, item)
	}
	return strings.Join(out, ", ")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
