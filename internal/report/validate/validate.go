// Package validate turns normalized source rows into admissible person
// records, with a parallel list of per-row rejections. Validation is
// row-local: one row's rejection never affects sibling rows, and the
// package performs no I/O.
package validate

import (
	"strings"

	"stayreg/internal/report/models"
	"stayreg/internal/report/normalize"
)

// Result carries both outputs of a validation pass, preserved for reporting.
type Result struct {
	Admissible []models.PersonRecord
	Rejected   []models.RejectedRow
}

// Validator applies the field rules of the normalizer to whole rows.
type Validator struct {
	norm *normalize.Normalizer
}

func New(norm *normalize.Normalizer) *Validator {
	return &Validator{norm: norm}
}

// Rows validates every source row against the mapped headers. The header
// mapping must come from normalize.MapHeaders, so all required fields have a
// resolved column. Row numbers are spreadsheet-style: header is row 1.
func (v *Validator) Rows(headers map[normalize.Field]string, rows []models.RawRow) *Result {
	res := &Result{}
	for i, row := range rows {
		record, reasons := v.row(headers, row)
		if len(reasons) > 0 {
			res.Rejected = append(res.Rejected, models.RejectedRow{
				Row:     i + 2,
				Name:    strings.TrimSpace(cell(row, headers, normalize.FieldSurname) + " " + cell(row, headers, normalize.FieldGivenName)),
				Reasons: reasons,
			})
			continue
		}
		res.Admissible = append(res.Admissible, record)
	}
	return res
}

func (v *Validator) row(headers map[normalize.Field]string, row models.RawRow) (models.PersonRecord, []string) {
	var record models.PersonRecord
	var reasons []string

	fail := func(err error) {
		reasons = append(reasons, err.Error())
	}

	var err error
	if record.Surname, err = v.norm.Name(cell(row, headers, normalize.FieldSurname)); err != nil {
		fail(err)
	}
	if record.GivenName, err = v.norm.Name(cell(row, headers, normalize.FieldGivenName)); err != nil {
		fail(err)
	}
	if record.BirthDate, err = v.norm.BirthDate(cell(row, headers, normalize.FieldBirthDate)); err != nil {
		fail(err)
	}
	if record.PassportNumber, err = v.norm.Passport(cell(row, headers, normalize.FieldPassport)); err != nil {
		fail(err)
	}
	if record.Nationality, err = v.norm.Nationality(cell(row, headers, normalize.FieldNationality)); err != nil {
		fail(err)
	}
	if record.Arrival, err = v.norm.StayDate(cell(row, headers, normalize.FieldArrival)); err != nil {
		fail(err)
	}
	if record.Departure, err = v.norm.StayDate(cell(row, headers, normalize.FieldDeparture)); err != nil {
		fail(err)
	}

	// Optional fields pass through beyond trimming; a malformed purpose code
	// still rejects the row because the service refuses it downstream.
	record.VisaNumber = strings.TrimSpace(cell(row, headers, normalize.FieldVisaNumber))
	record.HomeAddress = strings.TrimSpace(cell(row, headers, normalize.FieldHomeAddress))
	record.Note = strings.TrimSpace(cell(row, headers, normalize.FieldNote))
	if record.PurposeCode, err = v.norm.PurposeCode(cell(row, headers, normalize.FieldPurpose)); err != nil {
		fail(err)
	}

	return record, reasons
}

func cell(row models.RawRow, headers map[normalize.Field]string, field normalize.Field) string {
	header, ok := headers[field]
	if !ok {
		return ""
	}
	return row[header]
}
