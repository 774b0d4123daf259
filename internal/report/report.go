// Copyright (c) 2025-present Marko Kocić <marko@euptera.com>
// SPDX-License-Identifier: EPL-2.0
// See LICENSE for full license text.

// Package report renders realized gains, income and remaining balances for
// humans. All display rounding happens here; the records themselves carry
// exact decimals.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"

	"cryptogains/internal/engine"
)

// Write renders the report for the selected tax year (0 = all years).
func Write(w io.Writer, res engine.Results, balances map[string]decimal.Decimal, year int) {
	selected := res.SelectYear(year)

	if year != 0 {
		fmt.Fprintf(w, "Tax year %d\n\n", year)
	} else {
		fmt.Fprintf(w, "All years\n\n")
	}

	writeGains(w, selected)
	writeIncome(w, selected)
	writeBalances(w, balances)
}

func writeGains(w io.Writer, res engine.Results) {
	fmt.Fprint(w, `==============================================
Sales and Other Dispositions of Capital Assets
----------------------------------------------

   Description    |    Date    |    Date    |            |    Cost    |   Gains/   | Short or
   of Property    |  Acquired  |    Sold    |  Proceeds  |  (basis)   |   Losses   | Long term
------------------+------------+------------+------------+------------+------------+----------
`)
	for _, g := range res.Gains {
		fmt.Fprintf(w, " %16s | %s | %s | %10s | %10s | %10s | %s\n",
			fmt.Sprintf("%s %s", g.Quantity.StringFixed(8), g.Asset),
			g.Acquired.Format("2006-01-02"),
			g.Disposed.Format("2006-01-02"),
			g.Proceeds.StringFixed(2),
			g.Basis.StringFixed(2),
			g.Gain.StringFixed(2),
			g.Term,
		)
	}
	fmt.Fprintf(w, "\n   net short-term: $%s\n", res.NetGainByTerm(engine.TermShort).StringFixed(2))
	fmt.Fprintf(w, "   net long-term:  $%s\n", res.NetGainByTerm(engine.TermLong).StringFixed(2))
	fmt.Fprintf(w, "   net profits:    $%s\n\n", res.NetGain().StringFixed(2))
}

func writeIncome(w io.Writer, res engine.Results) {
	if len(res.Income) == 0 {
		return
	}
	fmt.Fprint(w, "Ordinary Income\n---------------\n")
	for _, e := range res.Income {
		fmt.Fprintf(w, " %s  %16s | %10s\n",
			e.Timestamp.Format("2006-01-02"),
			fmt.Sprintf("%s %s", e.Quantity.StringFixed(8), e.Asset),
			e.Value.StringFixed(2),
		)
	}
	fmt.Fprintf(w, "\n   net income:     $%s\n\n", res.NetIncome().StringFixed(2))
}

func writeBalances(w io.Writer, balances map[string]decimal.Decimal) {
	if len(balances) == 0 {
		return
	}
	assets := make([]string, 0, len(balances))
	for asset := range balances {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	fmt.Fprint(w, "Remaining Balances\n------------------\n")
	for _, asset := range assets {
		fmt.Fprintf(w, " %-6s %s\n", asset, balances[asset].String())
	}
}
