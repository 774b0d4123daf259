// Copyright (c) 2025-present Marko Kocić <marko@euptera.com>
// SPDX-License-Identifier: EPL-2.0
// See LICENSE for full license text.

// Package ledger tracks open acquisition lots per asset and matches
// disposals against them in FIFO order (oldest lot first).
package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Lot is one open acquisition: when it was acquired, how many units remain,
// and the USD cost per unit at acquisition. A lot whose remaining quantity
// reaches zero is removed from its queue immediately.
type Lot struct {
	Acquired  time.Time
	Remaining decimal.Decimal
	UnitCost  decimal.Decimal
}

// Fragment describes the draw-down of a single lot during one disposal.
type Fragment struct {
	Acquired time.Time
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

// InsufficientLotsError is returned when a disposal requests more units than
// the asset's open lots hold. Selling what was never bought means the input
// is malformed or out of order, so the caller must stop rather than clamp.
type InsufficientLotsError struct {
	Asset     string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("ledger: insufficient lots for %s: requested %s, have %s",
		e.Asset, e.Requested, e.Available)
}

// InvalidQuantityError is returned for a zero or negative quantity. It
// indicates a defect in the upstream validation, not in the ledger.
type InvalidQuantityError struct {
	Op       string
	Asset    string
	Quantity decimal.Decimal
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("ledger: %s %s: quantity must be positive, got %s",
		e.Op, e.Asset, e.Quantity)
}

// LotLedger owns, per asset symbol, the ordered queue of open lots.
// Acquisitions are processed in chronological order, so each queue is in
// acquisition-time order by construction. Not safe for concurrent use.
type LotLedger struct {
	lots map[string][]*Lot
}

// NewLotLedger creates an empty ledger.
func NewLotLedger() *LotLedger {
	return &LotLedger{lots: make(map[string][]*Lot)}
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

// Acquire appends a new lot of quantity units at totalUSD total cost to the
// asset's queue, creating the queue for an unseen asset. Unit cost is
// totalUSD / quantity; quantity must be positive.
func (l *LotLedger) Acquire(asset string, acquired time.Time, quantity, totalUSD decimal.Decimal) error {
	if quantity.Sign() <= 0 {
		return &InvalidQuantityError{Op: "acquire", Asset: asset, Quantity: quantity}
	}
	key := normalizeAsset(asset)
	l.lots[key] = append(l.lots[key], &Lot{
		Acquired:  acquired,
		Remaining: quantity,
		UnitCost:  totalUSD.Div(quantity),
	})
	return nil
}

// Consume draws quantity units off the asset's queue, oldest lot first, and
// reports which lots were drawn down and by how much. The head lot is split
// when it holds more than the still-unsatisfied quantity; otherwise it is
// consumed whole and removed. A failed consume leaves the ledger untouched.
func (l *LotLedger) Consume(asset string, quantity decimal.Decimal) ([]Fragment, error) {
	if quantity.Sign() <= 0 {
		return nil, &InvalidQuantityError{Op: "consume", Asset: asset, Quantity: quantity}
	}
	key := normalizeAsset(asset)
	available := l.Balance(key)
	if available.LessThan(quantity) {
		return nil, &InsufficientLotsError{Asset: key, Requested: quantity, Available: available}
	}

	queue := l.lots[key]
	fragments := make([]Fragment, 0, 1)
	remaining := quantity
	for remaining.Sign() > 0 {
		head := queue[0]
		if head.Remaining.GreaterThan(remaining) {
			fragments = append(fragments, Fragment{
				Acquired: head.Acquired,
				Quantity: remaining,
				UnitCost: head.UnitCost,
			})
			head.Remaining = head.Remaining.Sub(remaining)
			remaining = decimal.Zero
		} else {
			fragments = append(fragments, Fragment{
				Acquired: head.Acquired,
				Quantity: head.Remaining,
				UnitCost: head.UnitCost,
			})
			remaining = remaining.Sub(head.Remaining)
			queue = queue[1:]
		}
	}
	l.lots[key] = queue
	return fragments, nil
}

// Balance returns the total remaining quantity across the asset's open lots.
func (l *LotLedger) Balance(asset string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range l.lots[normalizeAsset(asset)] {
		total = total.Add(lot.Remaining)
	}
	return total
}

// Balances returns the outstanding quantity for every asset that still has
// at least one open lot.
func (l *LotLedger) Balances() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(l.lots))
	for asset, queue := range l.lots {
		if len(queue) == 0 {
			continue
		}
		total := decimal.Zero
		for _, lot := range queue {
			total = total.Add(lot.Remaining)
		}
		out[asset] = total
	}
	return out
}

// Assets returns the symbols with open lots, sorted.
func (l *LotLedger) Assets() []string {
	assets := make([]string, 0, len(l.lots))
	for asset, queue := range l.lots {
		if len(queue) > 0 {
			assets = append(assets, asset)
		}
	}
	sort.Strings(assets)
	return assets
}
