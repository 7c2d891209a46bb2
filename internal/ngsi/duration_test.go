package ngsi

import (
	"errors"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
	}{
		{"one month", "P1M", 30 * 24 * time.Hour},
		{"five seconds", "PT5S", 5 * time.Second},
		{"one week", "P1W", 7 * 24 * time.Hour},
		{"two days", "P2D", 48 * time.Hour},
		{"mixed date and time", "P1DT2H30M", 26*time.Hour + 30*time.Minute},
		{"one year", "P1Y", 365 * 24 * time.Hour},
		{"minutes in time part", "PT15M", 15 * time.Minute},
		{"fractional seconds", "PT0.5S", 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if err != nil {
				t.Fatalf("ParseDuration(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDurationInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing P", "1M"},
		{"bare P", "P"},
		{"bare T", "PT"},
		{"trailing number", "P1M2"},
		{"unknown designator", "P1X"},
		{"seconds without T", "P5S"},
		{"double T", "PT1HT2M"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDuration(tt.input); !errors.Is(err, ErrInvalidDuration) {
				t.Errorf("ParseDuration(%q) = %v, want ErrInvalidDuration", tt.input, err)
			}
		})
	}
}
