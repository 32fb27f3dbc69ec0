package capacity

import (
	"errors"
	"testing"

	"github.com/joseph-ayodele/income-verifier/internal/common"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name        string
		salaries    []float64
		years       int
		wantAverage float64
		wantMonthly float64
		wantTotal   float64
	}{
		{
			name:        "three pay slips over twenty years",
			salaries:    []float64{2000, 2100, 2050},
			years:       20,
			wantAverage: 2050.00,
			wantMonthly: 676.50,
			wantTotal:   162360.00,
		},
		{
			name:        "single salary, shortest duration",
			salaries:    []float64{1500},
			years:       5,
			wantAverage: 1500.00,
			wantMonthly: 495.00,
			wantTotal:   29700.00,
		},
		{
			name:        "average rounds to cents before the ratio",
			salaries:    []float64{1000, 1000, 1001},
			years:       30,
			wantAverage: 1000.33,
			wantMonthly: 330.11,
			wantTotal:   118839.60,
		},
		{
			name:        "monthly rounds half away from zero",
			salaries:    []float64{1234.50},
			years:       10,
			wantAverage: 1234.50,
			wantMonthly: 407.39,
			wantTotal:   48886.80,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Estimate(tt.salaries, tt.years)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.AverageNetSalary != tt.wantAverage {
				t.Errorf("average = %.2f, want %.2f", got.AverageNetSalary, tt.wantAverage)
			}
			if got.MonthlyCapacity != tt.wantMonthly {
				t.Errorf("monthly = %.2f, want %.2f", got.MonthlyCapacity, tt.wantMonthly)
			}
			if got.TotalBorrowable != tt.wantTotal {
				t.Errorf("total = %.2f, want %.2f", got.TotalBorrowable, tt.wantTotal)
			}
			if got.LoanYears != tt.years {
				t.Errorf("years = %d, want %d", got.LoanYears, tt.years)
			}
		})
	}
}

func TestEstimate_EmptySalaries(t *testing.T) {
	got, err := Estimate(nil, 20)
	if !errors.Is(err, common.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if got.MonthlyCapacity != 0 || got.TotalBorrowable != 0 || got.AverageNetSalary != 0 {
		t.Errorf("expected no numeric result, got %+v", got)
	}
}

func TestEstimate_LoanYearsOutOfRange(t *testing.T) {
	for _, years := range []int{0, 4, 31, -1} {
		if _, err := Estimate([]float64{2000}, years); !errors.Is(err, common.ErrInvalidInput) {
			t.Errorf("years=%d: expected ErrInvalidInput, got %v", years, err)
		}
	}
	for _, years := range []int{5, 30} {
		if _, err := Estimate([]float64{2000}, years); err != nil {
			t.Errorf("years=%d: unexpected error %v", years, err)
		}
	}
}
