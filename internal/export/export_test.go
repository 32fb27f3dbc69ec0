package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
	"github.com/joseph-ayodele/income-verifier/internal/repository"
)

func strPtr(s string) *string { return &s }

func records() []entity.FinalRecord {
	return []entity.FinalRecord{
		{
			ID:               uuid.MustParse("0b6c5f5e-3f4e-4c55-9a43-2a4f1a0f1c01"),
			CreatedAt:        time.Date(2025, 4, 2, 9, 30, 0, 123456789, time.UTC),
			FullName:         strPtr("Marie Dupont"),
			Position:         strPtr("Comptable, senior"),
			Employer:         strPtr(`ACME "Group"`),
			AverageNetSalary: 2050,
			MonthlyCapacity:  676.5,
			TotalBorrowable:  162360,
			LoanYears:        20,
			Verified:         true,
		},
		{
			ID:               uuid.MustParse("0b6c5f5e-3f4e-4c55-9a43-2a4f1a0f1c02"),
			CreatedAt:        time.Date(2025, 4, 3, 9, 30, 0, 0, time.UTC),
			AverageNetSalary: 1000.33,
			MonthlyCapacity:  330.11,
			TotalBorrowable:  118839.6,
			LoanYears:        30,
			Verified:         false,
			Reason:           "contract gross 4000.00 differs from estimated gross 3000.00; no bank transfer match",
		},
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	in := records()
	data, err := CSV(in...)
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if !strings.HasPrefix(string(data), strings.Join(Columns, ",")+"\n") {
		t.Errorf("unexpected header in %q", data)
	}
	if !strings.Contains(string(data), ",676.50,162360.00,20,true,") {
		t.Errorf("money not rendered with two decimals: %q", data)
	}

	out, err := ParseCSV(data)
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d records, want %d", len(out), len(in))
	}
	for i := range in {
		assertEqual(t, out[i], in[i])
	}
}

func TestCSV_IsDeterministic(t *testing.T) {
	a, _ := CSV(records()[0])
	b, _ := CSV(records()[0])
	if !bytes.Equal(a, b) {
		t.Error("rendering the same record twice gave different bytes")
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	for _, rec := range records() {
		data, err := JSON(rec)
		if err != nil {
			t.Fatalf("JSON: %v", err)
		}
		got, err := ParseJSON(data)
		if err != nil {
			t.Fatalf("ParseJSON: %v", err)
		}
		assertEqual(t, got, rec)
	}
}

func TestJSON_NullName(t *testing.T) {
	data, _ := JSON(records()[1])
	if !strings.Contains(string(data), `"full_name": null`) {
		t.Errorf("expected a null full_name, got %s", data)
	}
}

func TestParseCSV_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "wrong header", data: "nom,prenom,poste,entreprise,a,b,c,d,e,f,g\n"},
		{name: "bad number", data: strings.Join(Columns, ",") + "\n" +
			"0b6c5f5e-3f4e-4c55-9a43-2a4f1a0f1c01,2025-04-02T09:30:00Z,,,,abc,1,1,20,true,\n"},
		{name: "short row", data: strings.Join(Columns, ",") + "\n1,2,3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCSV([]byte(tt.data)); !errors.Is(err, common.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestXLSX(t *testing.T) {
	data, err := XLSX(records())
	if err != nil {
		t.Fatalf("XLSX: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[1][1] != "Marie Dupont" {
		t.Errorf("B2 = %q", rows[1][1])
	}
}

func TestService_Latest(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewService(store, nil)

	if _, err := svc.Latest(ctx, FormatCSV); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	for _, r := range records() {
		_ = store.Append(ctx, r)
	}

	file, err := svc.Latest(ctx, FormatJSON)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	got, err := ParseJSON(file.Data)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if got.ID != records()[1].ID {
		t.Errorf("exported %s, want the most recent record", got.ID)
	}
	if file.ContentType != "application/json" || !strings.HasSuffix(file.Name, ".json") {
		t.Errorf("unexpected file metadata %q %q", file.Name, file.ContentType)
	}

	hist, err := svc.Latest(ctx, FormatXLSX)
	if err != nil || len(hist.Data) == 0 {
		t.Fatalf("xlsx export: %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatCSV, "CSV": FormatCSV, "json": FormatJSON, " xlsx ": FormatXLSX} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("pdf"); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for pdf, got %v", err)
	}
}

func assertEqual(t *testing.T, got, want entity.FinalRecord) {
	t.Helper()
	if got.ID != want.ID || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("identity %s/%s, want %s/%s", got.ID, got.CreatedAt, want.ID, want.CreatedAt)
	}
	for _, pair := range [][2]*string{{got.FullName, want.FullName}, {got.Position, want.Position}, {got.Employer, want.Employer}} {
		if (pair[0] == nil) != (pair[1] == nil) || entity.StringValue(pair[0]) != entity.StringValue(pair[1]) {
			t.Errorf("text field %v, want %v", entity.StringValue(pair[0]), entity.StringValue(pair[1]))
		}
	}
	if got.AverageNetSalary != want.AverageNetSalary || got.MonthlyCapacity != want.MonthlyCapacity || got.TotalBorrowable != want.TotalBorrowable {
		t.Errorf("figures %+v, want %+v", got, want)
	}
	if got.LoanYears != want.LoanYears || got.Verified != want.Verified || got.Reason != want.Reason {
		t.Errorf("verdict %+v, want %+v", got, want)
	}
}
