// Package export renders FinalRecords as CSV, JSON and XLSX, and reads the
// CSV and JSON forms back.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

// Columns is the CSV header, in order. Names match the JSON keys.
var Columns = []string{
	"id",
	"created_at",
	"full_name",
	"position",
	"employer",
	"average_net_salary",
	"monthly_capacity",
	"total_borrowable",
	"loan_years",
	"verified",
	"reason",
}

// CSV renders records as a header line plus one row each. Money uses two
// decimals, absent names are empty cells.
func CSV(records ...entity.FinalRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(row(r)); err != nil {
			return nil, fmt.Errorf("csv row %s: %w", r.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}
	return buf.Bytes(), nil
}

func row(r entity.FinalRecord) []string {
	return []string{
		r.ID.String(),
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
		entity.StringValue(r.FullName),
		entity.StringValue(r.Position),
		entity.StringValue(r.Employer),
		money(r.AverageNetSalary),
		money(r.MonthlyCapacity),
		money(r.TotalBorrowable),
		strconv.Itoa(r.LoanYears),
		strconv.FormatBool(r.Verified),
		r.Reason,
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ParseCSV reads back what CSV wrote. The header must match Columns.
func ParseCSV(data []byte) ([]entity.FinalRecord, error) {
	rd := csv.NewReader(bytes.NewReader(data))
	rd.FieldsPerRecord = len(Columns)
	rows, err := rd.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: csv: %w", common.ErrInvalidInput, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: csv: missing header", common.ErrInvalidInput)
	}
	for i, h := range rows[0] {
		if strings.TrimSpace(h) != Columns[i] {
			return nil, fmt.Errorf("%w: csv: column %d is %q, want %q", common.ErrInvalidInput, i+1, h, Columns[i])
		}
	}

	out := make([]entity.FinalRecord, 0, len(rows)-1)
	for n, cells := range rows[1:] {
		rec, err := parseRow(cells)
		if err != nil {
			return nil, fmt.Errorf("%w: csv line %d: %w", common.ErrInvalidInput, n+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(c []string) (entity.FinalRecord, error) {
	var (
		rec  entity.FinalRecord
		err  error
		errs []error
	)
	if rec.ID, err = uuid.Parse(c[0]); err != nil {
		errs = append(errs, fmt.Errorf("id: %w", err))
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, c[1]); err != nil {
		errs = append(errs, fmt.Errorf("created_at: %w", err))
	}
	rec.FullName = optional(c[2])
	rec.Position = optional(c[3])
	rec.Employer = optional(c[4])
	if rec.AverageNetSalary, err = strconv.ParseFloat(c[5], 64); err != nil {
		errs = append(errs, fmt.Errorf("average_net_salary: %w", err))
	}
	if rec.MonthlyCapacity, err = strconv.ParseFloat(c[6], 64); err != nil {
		errs = append(errs, fmt.Errorf("monthly_capacity: %w", err))
	}
	if rec.TotalBorrowable, err = strconv.ParseFloat(c[7], 64); err != nil {
		errs = append(errs, fmt.Errorf("total_borrowable: %w", err))
	}
	if rec.LoanYears, err = strconv.Atoi(c[8]); err != nil {
		errs = append(errs, fmt.Errorf("loan_years: %w", err))
	}
	if rec.Verified, err = strconv.ParseBool(c[9]); err != nil {
		errs = append(errs, fmt.Errorf("verified: %w", err))
	}
	rec.Reason = c[10]
	return rec, errors.Join(errs...)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// JSON renders one record as an indented object.
func JSON(rec entity.FinalRecord) ([]byte, error) {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return b, nil
}

// ParseJSON reads back one record written by JSON.
func ParseJSON(data []byte) (entity.FinalRecord, error) {
	var rec entity.FinalRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return entity.FinalRecord{}, fmt.Errorf("%w: json: %w", common.ErrInvalidInput, err)
	}
	return rec, nil
}
