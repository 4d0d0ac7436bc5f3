package limits

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestCheckLimit_Disabled(t *testing.T) {
	l := NewPositionLimiter(0, decimal.Zero)
	if l.Enabled() {
		t.Fatal("zero limits should disable the limiter")
	}
	if err := l.CheckLimit(1_000_000, d(1e9), d(1)); err != nil {
		t.Errorf("disabled limiter should allow everything, got %v", err)
	}
}

func TestCheckLimit_NilLimiter(t *testing.T) {
	var l *PositionLimiter
	if err := l.CheckLimit(10, d(500), d(100000)); err != nil {
		t.Errorf("nil limiter should allow everything, got %v", err)
	}
}

func TestCheckLimit_ShareCap(t *testing.T) {
	l := NewPositionLimiter(100, decimal.Zero)

	if err := l.CheckLimit(100, d(5000), d(100000)); err != nil {
		t.Errorf("exactly at the cap should be allowed, got %v", err)
	}

	err := l.CheckLimit(101, d(5050), d(100000))
	if !errors.Is(err, ErrShareLimitExceeded) {
		t.Errorf("expected ErrShareLimitExceeded, got %v", err)
	}
}

func TestCheckLimit_Concentration(t *testing.T) {
	l := NewPositionLimiter(0, d(25))

	tests := []struct {
		name      string
		position  float64
		portfolio float64
		wantErr   error
	}{
		{"well under", 1000, 100000, nil},
		{"exactly at limit", 25000, 100000, nil},
		{"over limit", 25001, 100000, ErrConcentrationLimitExceeded},
		{"entire portfolio", 100000, 100000, ErrConcentrationLimitExceeded},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := l.CheckLimit(1, d(tc.position), d(tc.portfolio))
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("CheckLimit(%v, %v) = %v, want %v", tc.position, tc.portfolio, err, tc.wantErr)
			}
		})
	}
}

func TestNewPositionLimiter_NegativeClamped(t *testing.T) {
	l := NewPositionLimiter(-5, d(-10))
	if l.MaxSharesPerMovie != 0 || !l.MaxPositionPercent.IsZero() {
		t.Errorf("negative limits should clamp to zero, got %d / %s", l.MaxSharesPerMovie, l.MaxPositionPercent)
	}
}
