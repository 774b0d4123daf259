// Copyright (c) 2025-present Marko Kocić <marko@euptera.com>
// SPDX-License-Identifier: EPL-2.0
// See LICENSE for full license text.

// Package ingest reads Coinbase-format transaction CSV files and classifies
// each row into the closed set of operations the engine understands. Rows
// the calculator does not handle are rejected here; the engine never sees a
// raw type string.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cryptogains/internal/engine"
)

// Coinbase transaction-history column positions.
const (
	colTime = iota
	colType
	colAsset
	colQuantity
	colSpot
	colSubtotal
	colTotal
	colFees
	colNotes
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 MST",
	"2006-01-02",
}

// convertNote matches Coinbase conversion notes like
// "Converted 1.00000000 ETH to 120.00000000 ALGO".
var convertNote = regexp.MustCompile(`(?i)converted\s+([0-9.,]+)\s+(\S+)\s+to\s+([0-9.,]+)\s+(\S+)`)

// ParseFile parses one CSV file. Preamble and header rows (anything whose
// first column is not a timestamp) are skipped silently; recognizable rows
// with an unsupported transaction type are skipped with a warning.
func ParseFile(path string, log zerolog.Logger) ([]engine.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	txs, err := parse(f, log)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", path, err)
	}
	log.Debug().Str("file", path).Int("transactions", len(txs)).Msg("parsed")
	return txs, nil
}

func parse(r io.Reader, log zerolog.Logger) ([]engine.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var txs []engine.Transaction
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) <= colTotal {
			continue
		}
		ts, err := parseTime(row[colTime])
		if err != nil {
			// Header or preamble noise.
			continue
		}
		tx, ok := classify(row, ts)
		if !ok {
			log.Warn().
				Time("time", ts).
				Str("type", strings.TrimSpace(row[colType])).
				Str("asset", strings.TrimSpace(row[colAsset])).
				Msg("skipping unsupported transaction type")
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// classify maps a raw row to a typed transaction. Prefix matching on the
// type string happens here and nowhere else.
func classify(row []string, ts time.Time) (engine.Transaction, bool) {
	typ := strings.ToLower(strings.TrimSpace(row[colType]))
	asset := strings.ToUpper(strings.TrimSpace(row[colAsset]))
	quantity := parseDecimal(row[colQuantity])
	spot := parseDecimal(row[colSpot])
	subtotal := parseDecimal(row[colSubtotal])
	total := parseDecimal(row[colTotal])

	tx := engine.Transaction{
		Timestamp: ts,
		Asset:     asset,
		Quantity:  quantity,
	}

	switch {
	case typ == "buy":
		if subtotal.IsZero() && total.IsZero() {
			// Zero-value buy: promotional credit, taxable at spot value.
			tx.Kind = engine.KindIncome
			tx.Value = quantity.Mul(spot)
		} else {
			tx.Kind = engine.KindBuy
			tx.Value = total
		}
	case strings.HasPrefix(typ, "receive"):
		tx.Kind = engine.KindReceive
		tx.Value = quantity.Mul(spot)
	case strings.HasPrefix(typ, "sell"):
		tx.Kind = engine.KindSell
		tx.Value = total
	case strings.HasPrefix(typ, "paid"), strings.HasPrefix(typ, "send"):
		tx.Kind = engine.KindSell
		tx.Value = quantity.Mul(spot)
	case isIncomeType(typ):
		tx.Kind = engine.KindIncome
		if !subtotal.IsZero() {
			tx.Value = subtotal
		} else {
			tx.Value = quantity.Mul(spot)
		}
	case strings.HasPrefix(typ, "convert"):
		tx.Kind = engine.KindConvert
		if !subtotal.IsZero() {
			tx.Value = subtotal
		} else {
			tx.Value = total
		}
		if len(row) > colNotes {
			if tgtQuantity, tgtAsset, ok := parseConvertNote(row[colNotes]); ok {
				tx.TargetAsset = tgtAsset
				tx.TargetQuantity = tgtQuantity
				tx.TargetBasis = tx.Value
			}
		}
		// An unparseable note leaves the target empty; the engine
		// rejects the conversion instead of guessing.
	default:
		return engine.Transaction{}, false
	}
	return tx, true
}

func isIncomeType(typ string) bool {
	switch typ {
	case "coinbase earn", "rewards income", "staking income", "income":
		return true
	}
	return strings.HasPrefix(typ, "earn") || strings.HasPrefix(typ, "learning reward")
}

func parseConvertNote(note string) (decimal.Decimal, string, bool) {
	m := convertNote.FindStringSubmatch(note)
	if m == nil {
		return decimal.Decimal{}, "", false
	}
	quantity := parseDecimal(m[3])
	if quantity.Sign() <= 0 {
		return decimal.Decimal{}, "", false
	}
	return quantity, strings.ToUpper(m[4]), true
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time: %q", s)
}

func parseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	// Strip stray non-numeric characters (currency codes, symbols).
	clean := ""
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			clean += string(r)
		}
	}
	d, _ := decimal.NewFromString(clean)
	return d
}

// MergeSort merges transaction batches from multiple files into one stream
// sorted by timestamp. The sort is stable so same-instant rows keep their
// file order.
func MergeSort(batches ...[]engine.Transaction) []engine.Transaction {
	var merged []engine.Transaction
	for _, batch := range batches {
		merged = append(merged, batch...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

// FilterAssets restricts the stream to the given asset symbols
// (case-insensitive). An empty filter keeps everything.
func FilterAssets(txs []engine.Transaction, assets []string) []engine.Transaction {
	set := make(map[string]bool, len(assets))
	for _, a := range assets {
		a = strings.ToUpper(strings.TrimSpace(a))
		if a != "" {
			set[a] = true
		}
	}
	if len(set) == 0 {
		return txs
	}
	var filtered []engine.Transaction
	for _, tx := range txs {
		if set[strings.ToUpper(tx.Asset)] {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}
