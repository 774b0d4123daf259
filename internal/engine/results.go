// Copyright (c) 2025-present Marko Kocić <marko@euptera.com>
// SPDX-License-Identifier: EPL-2.0
// See LICENSE for full license text.

package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Term classifies a realized gain by holding period.
type Term int

const (
	// TermShort is a holding period of 52 weeks or less.
	TermShort Term = iota
	// TermLong is a holding period of more than 52 weeks.
	TermLong
)

const longTermThreshold = 52 * 7 * 24 * time.Hour

func (t Term) String() string {
	if t == TermLong {
		return "long"
	}
	return "short"
}

// ClassifyTerm derives the term from the acquisition and disposal dates.
// Exactly 52 weeks is still short term.
func ClassifyTerm(acquired, disposed time.Time) Term {
	if disposed.Sub(acquired) > longTermThreshold {
		return TermLong
	}
	return TermShort
}

// RealizedGain is the immutable record produced for each lot fragment
// consumed during a disposal.
type RealizedGain struct {
	Asset    string
	Quantity decimal.Decimal
	Acquired time.Time
	Disposed time.Time
	Proceeds decimal.Decimal
	Basis    decimal.Decimal
	// Gain is proceeds minus basis; negative for a loss.
	Gain decimal.Decimal
	Term Term
}

// IncomeEvent is the immutable record of a non-sale taxable acquisition.
type IncomeEvent struct {
	Timestamp time.Time
	Asset     string
	Quantity  decimal.Decimal
	Value     decimal.Decimal
}

// Results bundles the two output collections of a run.
type Results struct {
	Gains  []RealizedGain
	Income []IncomeEvent
}

// SelectYear returns the subset whose disposal or receipt falls in the given
// calendar year. Year 0 selects everything.
func (r Results) SelectYear(year int) Results {
	if year == 0 {
		return r
	}
	var out Results
	for _, g := range r.Gains {
		if g.Disposed.Year() == year {
			out.Gains = append(out.Gains, g)
		}
	}
	for _, e := range r.Income {
		if e.Timestamp.Year() == year {
			out.Income = append(out.Income, e)
		}
	}
	return out
}

// NetGain sums gain over all realized gains.
func (r Results) NetGain() decimal.Decimal {
	total := decimal.Zero
	for _, g := range r.Gains {
		total = total.Add(g.Gain)
	}
	return total
}

// NetGainByTerm sums gain over the realized gains with the given term.
func (r Results) NetGainByTerm(term Term) decimal.Decimal {
	total := decimal.Zero
	for _, g := range r.Gains {
		if g.Term == term {
			total = total.Add(g.Gain)
		}
	}
	return total
}

// NetIncome sums the USD value over all income events.
func (r Results) NetIncome() decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.Income {
		total = total.Add(e.Value)
	}
	return total
}
