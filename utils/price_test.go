package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"100.00", "100", true},
		{"50", "50", true},
		{" $1,200.50 ", "1200.5", true},
		{"", "0", true},
		{"abc", "0", false},
		{"-20", "0", false},
		{"12.5.1", "0", false},
		{"1e5", "100000", true},
		{"9999999999.99", "9999999999.99", true},
		{"1e99999999", "0", false},
		{"1e-99999999", "0", false},
		{"123456789012", "0", false},
		{"99999999999", "0", false},
	}
	for _, tc := range cases {
		got, ok := ParsePrice(tc.raw)
		require.Equal(t, tc.ok, ok, tc.raw)
		require.True(t, decimal.RequireFromString(tc.want).Equal(got), "%q: got %s", tc.raw, got)
	}
}

func TestSumPricesSkipsInvalid(t *testing.T) {
	var coerced []string
	total := SumPrices([]string{"100.00", "50", "abc"}, func(raw string) {
		coerced = append(coerced, raw)
	})

	require.True(t, decimal.NewFromInt(150).Equal(total), "got %s", total)
	require.Equal(t, []string{"abc"}, coerced)
}

func TestSumPricesEmpty(t *testing.T) {
	require.True(t, SumPrices(nil, nil).IsZero())
}

func TestSumPricesHugeExponentReturnsPromptly(t *testing.T) {
	done := make(chan decimal.Decimal, 1)
	go func() { done <- SumPrices([]string{"100", "1e99999999"}, nil) }()

	select {
	case total := <-done:
		require.True(t, decimal.NewFromInt(100).Equal(total), "got %s", total)
	case <-time.After(2 * time.Second):
		t.Fatal("SumPrices did not return for a price with a huge exponent")
	}
}

func TestSumPricesKeepsTotalInColumnRange(t *testing.T) {
	var coerced []string
	total := SumPrices([]string{"9999999999", "5", "0.99"}, func(raw string) {
		coerced = append(coerced, raw)
	})

	require.True(t, decimal.RequireFromString("9999999999.99").Equal(total), "got %s", total)
	require.Equal(t, []string{"5"}, coerced)
}

func TestAmountInRange(t *testing.T) {
	cases := map[string]bool{
		"0":              true,
		"0.01":           true,
		"1e5":            true,
		"-250.5":         true,
		"9999999999.99":  true,
		"10000000000":    false,
		"123456789012":   false,
		"1e99999999":     false,
		"1e-99999999":    false,
		"0.000000000001": true,
	}
	for raw, want := range cases {
		require.Equal(t, want, AmountInRange(decimal.RequireFromString(raw)), raw)
	}
}
