package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
	"github.com/joseph-ayodele/income-verifier/internal/repository"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts csv, json or xlsx in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	case "":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: unsupported export format %q", common.ErrInvalidInput, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// File is a rendered export ready to be written or served.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Service produces exports from a result store.
type Service struct {
	store  repository.ResultStore
	logger *slog.Logger
}

func NewService(store repository.ResultStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Latest renders the most recent record. CSV and JSON hold that record only;
// XLSX holds the whole history.
func (s *Service) Latest(ctx context.Context, format Format) (File, error) {
	start := time.Now()
	if format == FormatXLSX {
		return s.History(ctx)
	}

	rec, err := s.store.Latest(ctx)
	if err != nil {
		return File{}, err
	}
	var data []byte
	switch format {
	case FormatJSON:
		data, err = JSON(rec)
	default:
		format = FormatCSV
		data, err = CSV(rec)
	}
	if err != nil {
		return File{}, err
	}

	s.logger.Info("export.latest.ok",
		"format", format,
		"id", rec.ID,
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return File{
		Name:        fmt.Sprintf("resultat_%s.%s", rec.CreatedAt.UTC().Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// History renders every stored record as an XLSX workbook.
func (s *Service) History(ctx context.Context) (File, error) {
	start := time.Now()
	recs, err := s.store.List(ctx)
	if err != nil {
		return File{}, fmt.Errorf("list records: %w", err)
	}
	data, err := XLSX(recs)
	if err != nil {
		return File{}, err
	}
	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return File{
		Name:        "historique.xlsx",
		ContentType: FormatXLSX.ContentType(),
		Data:        data,
	}, nil
}

const sheet = "Records"

// XLSX returns a workbook with one row per record, oldest first.
func XLSX(recs []entity.FinalRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	headers := []string{
		"Date",
		"Full Name",
		"Position",
		"Employer",
		"Average Net Salary",
		"Monthly Capacity",
		"Total Borrowable",
		"Loan Years",
		"Verified",
		"Reason",
		"Record ID",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	for i, r := range recs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.CreatedAt.UTC().Format("2006-01-02 15:04"))
		write(2, entity.StringValue(r.FullName))
		write(3, entity.StringValue(r.Position))
		write(4, entity.StringValue(r.Employer))
		write(5, r.AverageNetSalary)
		write(6, r.MonthlyCapacity)
		write(7, r.TotalBorrowable)
		write(8, r.LoanYears)
		write(9, r.Verified)
		write(10, r.Reason)
		write(11, r.ID.String())
	}
	if len(recs) > 0 {
		last := len(recs) + 1
		from, _ := excelize.CoordinatesToCellName(5, 2)
		to, _ := excelize.CoordinatesToCellName(7, last)
		_ = f.SetCellStyle(sheet, from, to, moneyStyle)
	}

	_ = f.SetColWidth(sheet, "A", "A", 17) // date
	_ = f.SetColWidth(sheet, "B", "D", 24) // identity
	_ = f.SetColWidth(sheet, "E", "G", 18) // figures
	_ = f.SetColWidth(sheet, "J", "J", 60) // reason
	_ = f.SetColWidth(sheet, "K", "K", 38) // id

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
