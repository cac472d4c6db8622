package export

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx/v3"

	"github.com/Skufu/dhanvantari/internal/patient"
)

const SheetNameRawData = "Raw Data"

// PatientWorkbook lays out one patient's row as a header row and a value row.
func PatientWorkbook(rec patient.Record) (*xlsx.File, error) {
	report := xlsx.NewFile()

	sh, err := report.AddSheet(SheetNameRawData)
	if err != nil {
		return nil, err
	}

	header := sh.AddRow()
	values := sh.AddRow()
	for _, f := range rec.Fields() {
		header.AddCell().SetValue(f.Column)
		addValueCell(values, rec, f)
	}

	return report, nil
}

func addValueCell(row *xlsx.Row, rec patient.Record, f patient.Field) {
	cell := row.AddCell()
	switch f.Column {
	case patient.ColAge:
		cell.SetInt(rec.Age)
	case patient.ColHeartRate:
		cell.SetFloat(rec.HeartRate)
	case patient.ColBloodOxygen:
		cell.SetFloat(rec.BloodOxygen)
	case patient.ColHeight:
		cell.SetFloat(rec.HeightCm)
	case patient.ColWeight:
		cell.SetFloat(rec.WeightKg)
	case patient.ColSugarLevel:
		cell.SetFloat(rec.SugarLevel)
	default:
		cell.SetString(f.Value)
	}
}

// WritePatient streams the workbook for rec to w.
func WritePatient(w io.Writer, rec patient.Record) error {
	report, err := PatientWorkbook(rec)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	if err := report.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func FileName(rec patient.Record) string {
	return fmt.Sprintf("patient-%s.xlsx", rec.ID)
}
