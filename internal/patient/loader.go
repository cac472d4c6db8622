package patient

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

var (
	ErrMissingColumns    = errors.New("missing columns")
	ErrUnexpectedColumns = errors.New("unexpected columns")
	ErrDuplicateColumn   = errors.New("duplicate column")
	ErrDuplicateID       = errors.New("duplicate patient id")
	ErrEmpty             = errors.New("no patient records")
)

// RowError reports a value that could not be parsed.
type RowError struct {
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

type setter func(r *Record, value string) error

var setters = map[string]setter{
	ColID: func(r *Record, v string) error {
		if v == "" {
			return errors.New("patient id is required")
		}
		r.ID = v
		return nil
	},
	ColName:              func(r *Record, v string) error { r.Name = v; return nil },
	ColContact:           func(r *Record, v string) error { r.Contact = v; return nil },
	ColGender:            func(r *Record, v string) error { r.Gender = v; return nil },
	ColOccupation:        func(r *Record, v string) error { r.Occupation = v; return nil },
	ColAddress:           func(r *Record, v string) error { r.Address = v; return nil },
	ColInsuranceProvider: func(r *Record, v string) error { r.InsuranceProvider = v; return nil },
	ColInsurancePolicy:   func(r *Record, v string) error { r.InsurancePolicy = v; return nil },
	ColAllergies:         func(r *Record, v string) error { r.Allergies = v; return nil },
	ColCurrentMedication: func(r *Record, v string) error { r.CurrentMedication = v; return nil },
	ColPastHistory:       func(r *Record, v string) error { r.PastHistory = v; return nil },
	ColSymptoms:          func(r *Record, v string) error { r.Symptoms = v; return nil },
	ColBloodGroup:        func(r *Record, v string) error { r.BloodGroup = v; return nil },
	ColBloodPressure:     func(r *Record, v string) error { r.BloodPressure = v; return nil },
	ColAge: func(r *Record, v string) error {
		age, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid age %q", v)
		}
		r.Age = age
		return nil
	},
	ColBirthDate: func(r *Record, v string) error {
		if v == "" {
			return nil
		}
		t, err := parseBirthDate(v)
		if err != nil {
			return fmt.Errorf("invalid birth date %q", v)
		}
		r.BirthDate = t
		return nil
	},
	ColHeartRate:   floatSetter(func(r *Record) *float64 { return &r.HeartRate }),
	ColBloodOxygen: floatSetter(func(r *Record) *float64 { return &r.BloodOxygen }),
	ColHeight:      floatSetter(func(r *Record) *float64 { return &r.HeightCm }),
	ColWeight:      floatSetter(func(r *Record) *float64 { return &r.WeightKg }),
	ColSugarLevel:  floatSetter(func(r *Record) *float64 { return &r.SugarLevel }),
}

func floatSetter(field func(r *Record) *float64) setter {
	return func(r *Record, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("invalid number %q", v)
		}
		*field(r) = f
		return nil
	}
}

// LoadCSV parses a patient CSV. The header must contain exactly the documented
// column set, in any order.
func LoadCSV(r io.Reader) (*Store, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = normalizeHeader(header)
	if err := ValidateHeader(header); err != nil {
		return nil, err
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}

		line, _ := reader.FieldPos(0)
		rec, err := parseRow(header, row, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return NewStore(records)
}

// ValidateHeader checks that header holds every documented column exactly once
// and nothing else.
func ValidateHeader(header []string) error {
	seen := make(map[string]bool, len(header))
	for _, col := range header {
		if seen[col] {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, col)
		}
		seen[col] = true
	}

	missing, unexpected := lo.Difference(Columns, header)
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	if len(unexpected) > 0 {
		return fmt.Errorf("%w: %s", ErrUnexpectedColumns, strings.Join(unexpected, ", "))
	}
	return nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}
		out[i] = strings.TrimSpace(col)
	}
	return out
}

func parseRow(header, row []string, line int) (Record, error) {
	var rec Record
	for i, col := range header {
		value := strings.TrimSpace(row[i])
		if err := setters[col](&rec, value); err != nil {
			return Record{}, &RowError{Line: line, Column: col, Err: err}
		}
	}
	return rec, nil
}
