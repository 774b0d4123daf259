// Copyright (c) 2025-present Marko Kocić <marko@euptera.com>
// SPDX-License-Identifier: EPL-2.0
// See LICENSE for full license text.

package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"cryptogains/internal/engine"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleResults() engine.Results {
	acquired := time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)
	disposed := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	return engine.Results{
		Gains: []engine.RealizedGain{
			{
				Asset:    "BTC",
				Quantity: d("0.2"),
				Acquired: acquired,
				Disposed: disposed,
				Proceeds: d("9950"),
				Basis:    d("8040"),
				Gain:     d("1910"),
				Term:     engine.TermLong,
			},
			{
				Asset:    "ETH",
				Quantity: d("1"),
				Acquired: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
				Disposed: time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC),
				Proceeds: d("3000"),
				Basis:    d("2500"),
				Gain:     d("500"),
				Term:     engine.TermShort,
			},
		},
		Income: []engine.IncomeEvent{
			{
				Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
				Asset:     "ALGO",
				Quantity:  d("10"),
				Value:     d("2.5"),
			},
		},
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	balances := map[string]decimal.Decimal{
		"BTC":  d("0.3"),
		"ALGO": d("130"),
	}
	Write(&buf, sampleResults(), balances, 2024)
	out := buf.String()

	assert.Contains(t, out, "Tax year 2024")
	assert.Contains(t, out, "Sales and Other Dispositions of Capital Assets")
	assert.Contains(t, out, "0.20000000 BTC")
	assert.Contains(t, out, "2023-01-05")
	assert.Contains(t, out, "2024-04-10")
	assert.Contains(t, out, "1910.00")
	assert.Contains(t, out, "long")
	assert.Contains(t, out, "net short-term: $500.00")
	assert.Contains(t, out, "net long-term:  $1910.00")
	assert.Contains(t, out, "net profits:    $2410.00")
	assert.Contains(t, out, "Ordinary Income")
	assert.Contains(t, out, "10.00000000 ALGO")
	assert.Contains(t, out, "net income:     $2.50")
	assert.Contains(t, out, "Remaining Balances")
	assert.Contains(t, out, "ALGO")
}

func TestWriteYearFilter(t *testing.T) {
	var buf bytes.Buffer
	Write(&buf, sampleResults(), nil, 2023)
	out := buf.String()

	// Nothing was disposed or received in 2023.
	assert.Contains(t, out, "Tax year 2023")
	assert.NotContains(t, out, "0.20000000 BTC")
	assert.NotContains(t, out, "Ordinary Income")
	assert.Contains(t, out, "net profits:    $0.00")
}

func TestWriteAllYears(t *testing.T) {
	var buf bytes.Buffer
	Write(&buf, sampleResults(), nil, 0)
	out := buf.String()

	assert.Contains(t, out, "All years")
	assert.Contains(t, out, "0.20000000 BTC")
	assert.Contains(t, out, "1.00000000 ETH")
}
