package common

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   decimal.Decimal
		expected string
	}{
		{decimal.Zero, "Rp 0"},
		{decimal.NewFromInt(500), "Rp 500"},
		{decimal.NewFromInt(8000), "Rp 8,000"},
		{decimal.NewFromInt(1234567), "Rp 1,234,567"},
		{decimal.NewFromInt(-14000), "-Rp 14,000"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.amount); got != tt.expected {
			t.Errorf("FormatAmount(%s) = %q, expected %q", tt.amount, got, tt.expected)
		}
	}
}

func TestBoxPrefix(t *testing.T) {
	if BoxPrefix(true) != "└  " || BoxPrefix(false) != "│  " {
		t.Errorf("Unexpected box prefixes")
	}
}
